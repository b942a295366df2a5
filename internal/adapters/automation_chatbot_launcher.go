package adapters

import (
	"context"
	"errors"

	"funnel_backend/internal/automation/engine"
	chatbotsvc "funnel_backend/internal/chatbot/service"

	"github.com/google/uuid"
)

type FlowLauncher interface {
	Launch(ctx context.Context, params chatbotsvc.LaunchParams) (uuid.UUID, error)
}

// AutomationChatbotLauncher implements engine.ChatbotLauncher over the
// chatbot service.
type AutomationChatbotLauncher struct {
	chatbot FlowLauncher
}

func NewAutomationChatbotLauncher(chatbot FlowLauncher) *AutomationChatbotLauncher {
	return &AutomationChatbotLauncher{chatbot: chatbot}
}

func (a *AutomationChatbotLauncher) Launch(ctx context.Context, launch engine.FlowLaunch) (uuid.UUID, error) {
	ruleID := launch.AutomationRuleID
	id, err := a.chatbot.Launch(ctx, chatbotsvc.LaunchParams{
		FlowID:           launch.FlowID,
		OrganizationID:   launch.OrganizationID,
		DealID:           launch.DealID,
		ContactID:        launch.ContactID,
		AutomationRuleID: &ruleID,
		Variables:        launch.Variables,
	})
	switch {
	case errors.Is(err, chatbotsvc.ErrFlowNotFound):
		return uuid.Nil, engine.ErrFlowNotFound
	case errors.Is(err, chatbotsvc.ErrFlowInactive):
		return uuid.Nil, engine.ErrFlowInactive
	}
	return id, err
}
