// Package email delivers owner notifications and task reminders over SMTP.
package email

import (
	"context"
	"time"
)

// TaskReminder describes a follow-up task that is due.
type TaskReminder struct {
	TaskTitle   string
	DealTitle   string
	Description string
	DueAt       time.Time
}

type Sender interface {
	SendNotification(ctx context.Context, toEmail, subject, message string) error
	SendTaskReminder(ctx context.Context, toEmail string, reminder TaskReminder) error
}

// NoopSender is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendNotification(ctx context.Context, toEmail, subject, message string) error {
	return nil
}

func (NoopSender) SendTaskReminder(ctx context.Context, toEmail string, reminder TaskReminder) error {
	return nil
}
