package adapters

import (
	"context"
	"time"

	chatbotrepo "funnel_backend/internal/chatbot/repository"
	"funnel_backend/internal/scheduler"

	"github.com/google/uuid"
)

type ChatbotQueueClient interface {
	EnqueueChatbotExecution(ctx context.Context, payload scheduler.ChatbotExecutionPayload) error
}

// ChatbotExecutionEnqueuer implements chatbot/service.ExecutionEnqueuer on
// the asynq client.
type ChatbotExecutionEnqueuer struct {
	client ChatbotQueueClient
}

func NewChatbotExecutionEnqueuer(client ChatbotQueueClient) *ChatbotExecutionEnqueuer {
	return &ChatbotExecutionEnqueuer{client: client}
}

func (a *ChatbotExecutionEnqueuer) Enqueue(ctx context.Context, exec chatbotrepo.Execution) error {
	return a.client.EnqueueChatbotExecution(ctx, executionPayload(exec))
}

// ChatbotOutbox implements scheduler.ChatbotOutbox over the execution table.
type ChatbotOutbox struct {
	repo chatbotrepo.ExecutionStore
}

func NewChatbotOutbox(repo chatbotrepo.ExecutionStore) *ChatbotOutbox {
	return &ChatbotOutbox{repo: repo}
}

func (a *ChatbotOutbox) ClaimPending(ctx context.Context, createdBefore time.Time, limit int) ([]scheduler.ChatbotExecutionPayload, error) {
	execs, err := a.repo.ClaimPending(ctx, createdBefore, limit)
	if err != nil {
		return nil, err
	}
	out := make([]scheduler.ChatbotExecutionPayload, 0, len(execs))
	for _, e := range execs {
		out = append(out, executionPayload(e))
	}
	return out, nil
}

func (a *ChatbotOutbox) ReleasePending(ctx context.Context, executionID uuid.UUID) error {
	return a.repo.ReleasePending(ctx, executionID)
}

func (a *ChatbotOutbox) ExpirePending(ctx context.Context, createdBefore time.Time) (int64, error) {
	return a.repo.ExpirePending(ctx, createdBefore)
}

func executionPayload(e chatbotrepo.Execution) scheduler.ChatbotExecutionPayload {
	return scheduler.ChatbotExecutionPayload{
		ExecutionID:    e.ID.String(),
		FlowID:         e.FlowID.String(),
		OrganizationID: e.OrganizationID.String(),
		DealID:         e.DealID.String(),
		ContactID:      e.ContactID.String(),
	}
}
