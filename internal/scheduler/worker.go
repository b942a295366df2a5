package scheduler

import (
	"context"
	"fmt"
	"time"

	"funnel_backend/internal/email"
	"funnel_backend/platform/config"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ReminderTask is a deal task whose reminder has been claimed.
type ReminderTask struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Title          string
	Description    string
	DealTitle      string
	DueAt          time.Time
}

// ReminderStore claims a task for reminding. ok is false when the task is
// gone, no longer open, or was already reminded.
type ReminderStore interface {
	ClaimTaskReminder(ctx context.Context, taskID, organizationID uuid.UUID) (task ReminderTask, ok bool, err error)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	reminders ReminderStore
	sender    email.Sender
	recipient string
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, reminders ReminderStore, sender email.Sender, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg.GetAsynqQueueName(), "default"): 1,
		},
	})

	if sender == nil {
		sender = email.NoopSender{}
	}

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		reminders: reminders,
		sender:    sender,
		recipient: cfg.GetTaskReminderEmail(),
		log:       log,
	}

	mux.HandleFunc(TaskDealTaskReminder, w.handleTaskReminder)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleTaskReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseTaskReminderPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	taskID, err := uuid.Parse(payload.TaskID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	orgID, err := uuid.Parse(payload.OrganizationID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	reminder, ok, err := w.reminders.ClaimTaskReminder(ctx, taskID, orgID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	w.log.Info("task reminder due", "taskId", reminder.ID, "organizationId", reminder.OrganizationID, "title", reminder.Title, "dueAt", reminder.DueAt)
	if w.recipient == "" {
		return nil
	}

	// The claim is already committed, so a failed send is logged instead of
	// retried to avoid reminding twice.
	if err := w.sender.SendTaskReminder(ctx, w.recipient, email.TaskReminder{
		TaskTitle:   reminder.Title,
		DealTitle:   reminder.DealTitle,
		Description: reminder.Description,
		DueAt:       reminder.DueAt,
	}); err != nil {
		w.log.Warn("task reminder email failed", "taskId", reminder.ID, "error", err)
	}
	return nil
}
