package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DealState is the state-machine value of a deal: where it is and since when.
// ClosedAt is non-nil exactly when the current stage is final.
type DealState struct {
	FunnelID       uuid.UUID
	StageID        uuid.UUID
	EnteredStageAt time.Time
	ClosedAt       *time.Time
}

// EmissionKind names a fact produced by a transition.
type EmissionKind string

const (
	EmittedStageExited  EmissionKind = "stage_exited"
	EmittedStageEntered EmissionKind = "stage_entered"
	EmittedDealWon      EmissionKind = "deal_won"
	EmittedDealLost     EmissionKind = "deal_lost"
	EmittedDealReopened EmissionKind = "deal_reopened"
)

type Emission struct {
	Kind    EmissionKind
	StageID uuid.UUID
}

// MoveCommand asks the state machine to put a deal into To. From is the
// stage the deal currently occupies, nil when the deal is being created.
type MoveCommand struct {
	From *Stage
	To   Stage
	At   time.Time
}

// Policy captures caller-enforced rules the data model leaves open.
type Policy struct {
	// AllowReopen lets a deal leave a final stage; closed_at is cleared.
	AllowReopen bool
}

var (
	ErrStageOutsideFunnel = errors.New("target stage does not belong to the deal's funnel")
	ErrSameStage          = errors.New("deal is already in the target stage")
	ErrDealClosed         = errors.New("deal is closed and cannot leave its final stage")
	ErrStateMismatch      = errors.New("current stage does not match the deal state")
)

// Transition computes the next deal state for cmd without touching storage.
// For creation pass a zero DealState with FunnelID set and cmd.From nil.
func Transition(state DealState, cmd MoveCommand, policy Policy) (DealState, []Emission, error) {
	if cmd.To.FunnelID != state.FunnelID {
		return state, nil, ErrStageOutsideFunnel
	}

	emitted := make([]Emission, 0, 4)
	if cmd.From != nil {
		if cmd.From.ID != state.StageID {
			return state, nil, ErrStateMismatch
		}
		if cmd.From.ID == cmd.To.ID {
			return state, nil, ErrSameStage
		}
		if cmd.From.IsFinal {
			if !policy.AllowReopen {
				return state, nil, ErrDealClosed
			}
			if !cmd.To.IsFinal {
				emitted = append(emitted, Emission{Kind: EmittedDealReopened, StageID: cmd.From.ID})
			}
		}
		emitted = append(emitted, Emission{Kind: EmittedStageExited, StageID: cmd.From.ID})
	}

	at := cmd.At.UTC()
	next := DealState{
		FunnelID:       state.FunnelID,
		StageID:        cmd.To.ID,
		EnteredStageAt: at,
	}
	emitted = append(emitted, Emission{Kind: EmittedStageEntered, StageID: cmd.To.ID})

	if cmd.To.IsFinal {
		closedAt := at
		next.ClosedAt = &closedAt
		switch {
		case cmd.To.Is(FinalWon):
			emitted = append(emitted, Emission{Kind: EmittedDealWon, StageID: cmd.To.ID})
		case cmd.To.Is(FinalLost):
			emitted = append(emitted, Emission{Kind: EmittedDealLost, StageID: cmd.To.ID})
		}
	}

	return next, emitted, nil
}

// HasEmission reports whether kind is present in emitted.
func HasEmission(emitted []Emission, kind EmissionKind) bool {
	for _, e := range emitted {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// DealLockKey is the lock key every writer of a deal's stage serialises on.
func DealLockKey(dealID uuid.UUID) string {
	return "deal:" + dealID.String()
}
