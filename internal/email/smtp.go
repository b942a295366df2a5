package email

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"funnel_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers mail through the configured SMTP relay via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender returns nil when SMTP is not configured so callers can fall
// back to NoopSender or log-only behaviour.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	if !cfg.IsSMTPEnabled() {
		return nil
	}
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetSMTPFromName(),
		fromEmail: cfg.GetSMTPFromAddress(),
	}
}

func (s *SMTPSender) SendNotification(ctx context.Context, toEmail, subject, message string) error {
	content, err := renderEmailTemplate("notification.html", notificationEmailData{
		baseEmailData: baseEmailData{Title: subject, Heading: subject},
		Paragraphs:    paragraphs(message),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content, message)
}

func (s *SMTPSender) SendTaskReminder(ctx context.Context, toEmail string, reminder TaskReminder) error {
	subject := fmt.Sprintf(subjectTaskReminderFmt, reminder.TaskTitle)
	dueDate := reminder.DueAt.Format(dueDateLayout)
	content, err := renderEmailTemplate("task_reminder.html", taskReminderEmailData{
		baseEmailData: baseEmailData{Title: subject, Heading: "Lembrete de tarefa"},
		TaskTitle:     reminder.TaskTitle,
		DealTitle:     reminder.DealTitle,
		Description:   reminder.Description,
		DueDate:       dueDate,
	})
	if err != nil {
		return err
	}
	plain := fmt.Sprintf("A tarefa %q do negócio %q vence em %s.", reminder.TaskTitle, reminder.DealTitle, dueDate)
	return s.send(ctx, toEmail, subject, content, plain)
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent, plainContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(strings.TrimSpace(toEmail)); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, plainContent)
	msg.AddAlternativeString(gomail.TypeTextHTML, htmlContent)

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
