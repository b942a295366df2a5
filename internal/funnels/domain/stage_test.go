package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestDefaultStageTemplate(t *testing.T) {
	tpl := DefaultStageTemplate()
	if len(tpl) != 6 {
		t.Fatalf("expected six template stages, got %d", len(tpl))
	}

	var won, lost int
	for _, s := range tpl {
		if s.FinalType == nil {
			continue
		}
		switch *s.FinalType {
		case FinalWon:
			won++
		case FinalLost:
			lost++
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("expected exactly one won and one lost stage, got won=%d lost=%d", won, lost)
	}
}

func TestValidateStage(t *testing.T) {
	won := FinalWon
	if err := ValidateStage(Stage{Probability: 101}); !errors.Is(err, ErrProbabilityOutOfRange) {
		t.Fatalf("expected probability error, got %v", err)
	}
	if err := ValidateStage(Stage{IsFinal: true}); !errors.Is(err, ErrFinalTypeMismatch) {
		t.Fatalf("expected mismatch for final stage without type, got %v", err)
	}
	if err := ValidateStage(Stage{FinalType: &won}); !errors.Is(err, ErrFinalTypeMismatch) {
		t.Fatalf("expected mismatch for non-final stage with type, got %v", err)
	}
	if err := ValidateStage(Stage{IsFinal: true, FinalType: &won, Probability: 100}); err != nil {
		t.Fatalf("expected valid final stage, got %v", err)
	}
}

func TestValidateTerminalUniqueness(t *testing.T) {
	won := FinalWon
	existing := Stage{ID: uuid.New(), IsFinal: true, FinalType: &won}

	second := Stage{ID: uuid.New(), IsFinal: true, FinalType: &won}
	if err := ValidateTerminalUniqueness([]Stage{existing}, second); !errors.Is(err, ErrDuplicateTerminal) {
		t.Fatalf("expected duplicate terminal error, got %v", err)
	}
	if err := ValidateTerminalUniqueness([]Stage{existing}, existing); err != nil {
		t.Fatalf("updating the existing terminal stage must pass, got %v", err)
	}
}

func TestFindTerminalStagePrefersLowestOrder(t *testing.T) {
	won := FinalWon
	later := Stage{ID: uuid.New(), DisplayOrder: 5, IsFinal: true, FinalType: &won}
	earlier := Stage{ID: uuid.New(), DisplayOrder: 2, IsFinal: true, FinalType: &won}

	got, ok := FindTerminalStage([]Stage{later, earlier}, FinalWon)
	if !ok || got.ID != earlier.ID {
		t.Fatalf("expected earliest won stage, got %v ok=%v", got.ID, ok)
	}
	if _, ok := FindTerminalStage([]Stage{later}, FinalLost); ok {
		t.Fatal("expected no lost stage")
	}
}

func TestParseFinalType(t *testing.T) {
	ft, err := ParseFinalType(" WON ")
	if err != nil || ft == nil || *ft != FinalWon {
		t.Fatalf("expected won, got %v err=%v", ft, err)
	}
	ft, err = ParseFinalType("")
	if err != nil || ft != nil {
		t.Fatalf("expected nil for empty input, got %v err=%v", ft, err)
	}
	if _, err := ParseFinalType("draw"); !errors.Is(err, ErrInvalidFinalType) {
		t.Fatalf("expected invalid final type, got %v", err)
	}
}
