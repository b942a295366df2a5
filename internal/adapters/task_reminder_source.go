package adapters

import (
	"context"

	activitiesrepo "funnel_backend/internal/activities/repository"
	"funnel_backend/internal/scheduler"

	"github.com/google/uuid"
)

type ReminderClaimer interface {
	ClaimReminder(ctx context.Context, organizationID, taskID uuid.UUID) (activitiesrepo.DueTask, bool, error)
}

// TaskReminderSource implements scheduler.ReminderStore over the activities
// repository.
type TaskReminderSource struct {
	repo ReminderClaimer
}

func NewTaskReminderSource(repo ReminderClaimer) *TaskReminderSource {
	return &TaskReminderSource{repo: repo}
}

func (a *TaskReminderSource) ClaimTaskReminder(ctx context.Context, taskID, organizationID uuid.UUID) (scheduler.ReminderTask, bool, error) {
	due, ok, err := a.repo.ClaimReminder(ctx, organizationID, taskID)
	if err != nil || !ok {
		return scheduler.ReminderTask{}, ok, err
	}
	return scheduler.ReminderTask{
		ID:             due.ID,
		OrganizationID: due.OrganizationID,
		Title:          due.Title,
		Description:    due.Description,
		DealTitle:      due.DealTitle,
		DueAt:          due.DueAt,
	}, true, nil
}
