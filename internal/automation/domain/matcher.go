package domain

import (
	"strings"
)

// InScope reports whether the rule's optional stage scope admits ev.
func InScope(r Rule, ev Event) bool {
	if r.StageID == nil {
		return true
	}
	if ev.ToStageID != nil && *ev.ToStageID == *r.StageID {
		return true
	}
	return ev.FromStageID != nil && *ev.FromStageID == *r.StageID
}

// Matches applies the scope check and the trigger-specific condition. A
// false result means the rule is skipped; an error means its stored trigger
// config could not be decoded.
func Matches(r Rule, ev Event) (bool, error) {
	if !InScope(r, ev) {
		return false, nil
	}

	cfg, err := DecodeTriggerConfig(r.TriggerType, r.TriggerConfig)
	if err != nil {
		return false, err
	}

	switch c := cfg.(type) {
	case KeywordTriggerConfig:
		text := strings.ToLower(ev.MessageText)
		if text == "" {
			return false, nil
		}
		for _, k := range c.List() {
			if strings.Contains(text, k) {
				return true, nil
			}
		}
		return false, nil
	case TagTriggerConfig:
		return strings.EqualFold(strings.TrimSpace(c.TagName), strings.TrimSpace(ev.TagName)), nil
	case CustomFieldTriggerConfig:
		return c.FieldKey == ev.FieldKey, nil
	default:
		return true, nil
	}
}

// ContainsTrigger reports whether t is among candidates.
func ContainsTrigger(candidates []TriggerType, t TriggerType) bool {
	for _, c := range candidates {
		if c == t {
			return true
		}
	}
	return false
}
