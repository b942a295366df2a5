package scheduler

import (
	"context"
	"time"

	"funnel_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultDispatchInterval = 5 * time.Second
	defaultDispatchGrace    = 30 * time.Second
	defaultExecutionTTL     = 24 * time.Hour
	dispatchBatchSize       = 50
)

// ChatbotOutbox is the execution table seen as an outbox. Rows are inserted
// as pending by the automation engine; ones that were never handed to the
// queue are picked up here.
type ChatbotOutbox interface {
	ClaimPending(ctx context.Context, createdBefore time.Time, limit int) ([]ChatbotExecutionPayload, error)
	ReleasePending(ctx context.Context, executionID uuid.UUID) error
	ExpirePending(ctx context.Context, createdBefore time.Time) (int64, error)
}

type ChatbotEnqueuer interface {
	EnqueueChatbotExecution(ctx context.Context, payload ChatbotExecutionPayload) error
}

// ChatbotDispatcher retries enqueueing executions left pending and expires
// the ones that stayed pending for too long.
type ChatbotDispatcher struct {
	outbox   ChatbotOutbox
	enqueuer ChatbotEnqueuer
	log      *logger.Logger
	interval time.Duration
	grace    time.Duration
	ttl      time.Duration
	now      func() time.Time
}

func NewChatbotDispatcher(outbox ChatbotOutbox, enqueuer ChatbotEnqueuer, log *logger.Logger, interval, ttl time.Duration) *ChatbotDispatcher {
	if interval <= 0 {
		interval = defaultDispatchInterval
	}
	if ttl <= 0 {
		ttl = defaultExecutionTTL
	}
	return &ChatbotDispatcher{
		outbox:   outbox,
		enqueuer: enqueuer,
		log:      log,
		interval: interval,
		grace:    defaultDispatchGrace,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (d *ChatbotDispatcher) Run(ctx context.Context) {
	if d == nil || d.outbox == nil || d.enqueuer == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.expire(ctx)
		d.dispatch(ctx)
	}
}

func (d *ChatbotDispatcher) dispatch(ctx context.Context) int {
	records, err := d.outbox.ClaimPending(ctx, d.now().Add(-d.grace), dispatchBatchSize)
	if err != nil {
		d.log.Warn("chatbot outbox claim failed", "error", err)
		return 0
	}

	sent := 0
	for _, rec := range records {
		if err := d.enqueuer.EnqueueChatbotExecution(ctx, rec); err != nil {
			d.log.Warn("chatbot execution enqueue failed", "executionId", rec.ExecutionID, "error", err)
			if id, parseErr := uuid.Parse(rec.ExecutionID); parseErr == nil {
				if err := d.outbox.ReleasePending(ctx, id); err != nil {
					d.log.Warn("chatbot execution release failed", "executionId", rec.ExecutionID, "error", err)
				}
			}
			continue
		}
		sent++
	}
	if sent > 0 {
		d.log.Info("chatbot executions dispatched", "count", sent)
	}
	return sent
}

func (d *ChatbotDispatcher) expire(ctx context.Context) {
	expired, err := d.outbox.ExpirePending(ctx, d.now().Add(-d.ttl))
	if err != nil {
		d.log.Warn("chatbot execution expiry failed", "error", err)
		return
	}
	if expired > 0 {
		d.log.Info("chatbot executions expired", "count", expired)
	}
}
