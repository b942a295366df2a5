package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestMatchesStageScope(t *testing.T) {
	x, y, z := uuid.New(), uuid.New(), uuid.New()
	rule := Rule{StageID: &x, TriggerType: TriggerStageEnter}

	cases := []struct {
		name string
		ev   Event
		want bool
	}{
		{"entering scoped stage", Event{FromStageID: &y, ToStageID: &x}, true},
		{"leaving scoped stage", Event{FromStageID: &x, ToStageID: &y}, true},
		{"unrelated stages", Event{FromStageID: &y, ToStageID: &z}, false},
		{"no stages at all", Event{TriggerType: TriggerStageEnter}, false},
	}
	for _, tc := range cases {
		got, err := Matches(rule, tc.ev)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: Matches() = %v, want %v", tc.name, got, tc.want)
		}
	}

	unscoped := Rule{TriggerType: TriggerStageEnter}
	if ok, _ := Matches(unscoped, Event{ToStageID: &z}); !ok {
		t.Fatal("rule without stage scope must match any stage")
	}
}

func TestMatchesKeyword(t *testing.T) {
	rule := Rule{TriggerType: TriggerKeywordReceived, TriggerConfig: map[string]any{"keywords": "Preço, orçamento ,"}}

	if ok, err := Matches(rule, Event{MessageText: "Qual o PREÇO do plano?"}); err != nil || !ok {
		t.Fatalf("expected case-insensitive substring match, got %v %v", ok, err)
	}
	if ok, _ := Matches(rule, Event{MessageText: "bom dia"}); ok {
		t.Fatal("expected no match for unrelated text")
	}
	if ok, _ := Matches(rule, Event{}); ok {
		t.Fatal("expected no match for empty text")
	}
}

func TestMatchesTagAndField(t *testing.T) {
	tagRule := Rule{TriggerType: TriggerTagAdded, TriggerConfig: map[string]any{"tag_name": "VIP"}}
	if ok, _ := Matches(tagRule, Event{TagName: "vip"}); !ok {
		t.Fatal("expected tag match regardless of case")
	}
	if ok, _ := Matches(tagRule, Event{TagName: "lead-frio"}); ok {
		t.Fatal("expected tag mismatch to skip")
	}

	fieldRule := Rule{TriggerType: TriggerCustomFieldChanged, TriggerConfig: map[string]any{"field_key": "budget"}}
	if ok, _ := Matches(fieldRule, Event{FieldKey: "budget", FieldValue: "10"}); !ok {
		t.Fatal("expected field key match")
	}
	if ok, _ := Matches(fieldRule, Event{FieldKey: "segment"}); ok {
		t.Fatal("expected field key mismatch to skip")
	}
}

func TestMatchesReportsBrokenTriggerConfig(t *testing.T) {
	rule := Rule{TriggerType: TriggerTagAdded, TriggerConfig: map[string]any{}}
	if _, err := Matches(rule, Event{TagName: "x"}); err == nil {
		t.Fatal("expected error for tag trigger without tag_name")
	}
}
