// Package domain provides the core rules of the funnels bounded context:
// stage registry invariants and the deal stage state machine.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FinalType is the polarity of a terminal stage.
type FinalType string

const (
	FinalWon  FinalType = "won"
	FinalLost FinalType = "lost"
)

func (f FinalType) Valid() bool {
	return f == FinalWon || f == FinalLost
}

// ParseFinalType accepts "won"/"lost" case-insensitively. Empty input yields nil.
func ParseFinalType(value string) (*FinalType, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return nil, nil
	}
	ft := FinalType(trimmed)
	if !ft.Valid() {
		return nil, ErrInvalidFinalType
	}
	return &ft, nil
}

type Funnel struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	DisplayOrder   int
	Stages         []Stage
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Stage struct {
	ID           uuid.UUID
	FunnelID     uuid.UUID
	Name         string
	Color        string
	DisplayOrder int
	IsFinal      bool
	FinalType    *FinalType
	Probability  int
}

// Is reports whether the stage is terminal with the given polarity.
func (s Stage) Is(ft FinalType) bool {
	return s.IsFinal && s.FinalType != nil && *s.FinalType == ft
}

var (
	ErrInvalidFinalType      = errors.New("final type must be won or lost")
	ErrFinalTypeMismatch     = errors.New("final stages require a final type and non-final stages must not have one")
	ErrDuplicateTerminal     = errors.New("funnel already has a terminal stage with this polarity")
	ErrProbabilityOutOfRange = errors.New("probability must be between 0 and 100")
)

// StageTemplate describes one stage of a funnel template.
type StageTemplate struct {
	Name        string
	Color       string
	Probability int
	FinalType   *FinalType
}

// DefaultStageTemplate returns the six stages a new funnel is seeded with.
func DefaultStageTemplate() []StageTemplate {
	won, lost := FinalWon, FinalLost
	return []StageTemplate{
		{Name: "Novo Lead", Color: "#3b82f6", Probability: 10},
		{Name: "Qualificação", Color: "#8b5cf6", Probability: 25},
		{Name: "Proposta", Color: "#f59e0b", Probability: 50},
		{Name: "Negociação", Color: "#f97316", Probability: 75},
		{Name: "Ganho", Color: "#22c55e", Probability: 100, FinalType: &won},
		{Name: "Perdido", Color: "#ef4444", Probability: 0, FinalType: &lost},
	}
}

// ValidateStage checks the per-stage invariants.
func ValidateStage(s Stage) error {
	if s.Probability < 0 || s.Probability > 100 {
		return ErrProbabilityOutOfRange
	}
	if s.IsFinal != (s.FinalType != nil) {
		return ErrFinalTypeMismatch
	}
	if s.FinalType != nil && !s.FinalType.Valid() {
		return ErrInvalidFinalType
	}
	return nil
}

// ValidateTerminalUniqueness checks that candidate would not become a second
// terminal stage of its polarity among existing. A stage with the same ID as
// candidate is ignored so updates can keep their own polarity.
func ValidateTerminalUniqueness(existing []Stage, candidate Stage) error {
	if !candidate.IsFinal || candidate.FinalType == nil {
		return nil
	}
	for _, s := range existing {
		if s.ID == candidate.ID {
			continue
		}
		if s.Is(*candidate.FinalType) {
			return ErrDuplicateTerminal
		}
	}
	return nil
}

// FindTerminalStage returns the first terminal stage of polarity ft in
// display order. The data layer does not forbid duplicates, so the lowest
// display order wins deterministically.
func FindTerminalStage(stages []Stage, ft FinalType) (Stage, bool) {
	var (
		found Stage
		ok    bool
	)
	for _, s := range stages {
		if !s.Is(ft) {
			continue
		}
		if !ok || s.DisplayOrder < found.DisplayOrder {
			found, ok = s, true
		}
	}
	return found, ok
}

// FindStage looks up a stage by ID.
func FindStage(stages []Stage, id uuid.UUID) (Stage, bool) {
	for _, s := range stages {
		if s.ID == id {
			return s, true
		}
	}
	return Stage{}, false
}
