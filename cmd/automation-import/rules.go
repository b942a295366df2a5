package main

import (
	"errors"
	"fmt"
	"strings"

	"funnel_backend/internal/automation/transport"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type ruleFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	FunnelID      string         `yaml:"funnelId"`
	StageID       string         `yaml:"stageId"`
	Name          string         `yaml:"name"`
	IsActive      *bool          `yaml:"isActive"`
	TriggerType   string         `yaml:"triggerType"`
	TriggerConfig map[string]any `yaml:"triggerConfig"`
	ActionType    string         `yaml:"actionType"`
	ActionConfig  map[string]any `yaml:"actionConfig"`
}

var errNoRules = errors.New("rule file contains no rules")

// parseRuleFile turns the YAML document into rule requests. Config
// validation is left to the automation service.
func parseRuleFile(data []byte) ([]transport.RuleRequest, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, errNoRules
	}

	reqs := make([]transport.RuleRequest, 0, len(file.Rules))
	for i, entry := range file.Rules {
		req, err := entry.request()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i+1, entry.Name, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func (e ruleEntry) request() (transport.RuleRequest, error) {
	funnelID, err := uuid.Parse(strings.TrimSpace(e.FunnelID))
	if err != nil {
		return transport.RuleRequest{}, fmt.Errorf("invalid funnelId: %w", err)
	}

	var stageID *uuid.UUID
	if s := strings.TrimSpace(e.StageID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return transport.RuleRequest{}, fmt.Errorf("invalid stageId: %w", err)
		}
		stageID = &id
	}

	return transport.RuleRequest{
		FunnelID:      funnelID,
		StageID:       stageID,
		Name:          strings.TrimSpace(e.Name),
		IsActive:      e.IsActive,
		TriggerType:   strings.TrimSpace(e.TriggerType),
		TriggerConfig: e.TriggerConfig,
		ActionType:    strings.TrimSpace(e.ActionType),
		ActionConfig:  e.ActionConfig,
	}, nil
}
