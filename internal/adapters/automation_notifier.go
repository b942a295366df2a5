package adapters

import (
	"context"

	"funnel_backend/internal/automation/engine"
	"funnel_backend/internal/email"
)

// AutomationNotifier delivers notify_user actions by email.
type AutomationNotifier struct {
	sender email.Sender
}

func NewAutomationNotifier(sender email.Sender) *AutomationNotifier {
	return &AutomationNotifier{sender: sender}
}

func (a *AutomationNotifier) Notify(ctx context.Context, n engine.Notification) error {
	return a.sender.SendNotification(ctx, n.To, n.Subject, n.Body)
}
