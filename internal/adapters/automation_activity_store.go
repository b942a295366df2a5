package adapters

import (
	"context"

	activitiesrepo "funnel_backend/internal/activities/repository"
	"funnel_backend/internal/automation/engine"

	"github.com/google/uuid"
)

// ActivityWriter is the write side of the activities repository.
type ActivityWriter interface {
	CreateNote(ctx context.Context, note activitiesrepo.Note) (activitiesrepo.Note, error)
	CreateTask(ctx context.Context, task activitiesrepo.Task) (activitiesrepo.Task, error)
}

// AutomationActivityStore implements engine.NoteStore and engine.TaskStore.
type AutomationActivityStore struct {
	repo ActivityWriter
}

func NewAutomationActivityStore(repo ActivityWriter) *AutomationActivityStore {
	return &AutomationActivityStore{repo: repo}
}

func (a *AutomationActivityStore) AddNote(ctx context.Context, note engine.NewNote) error {
	ruleID := note.AutomationRuleID
	_, err := a.repo.CreateNote(ctx, activitiesrepo.Note{
		OrganizationID:   note.OrganizationID,
		DealID:           note.DealID,
		ContactID:        note.ContactID,
		Body:             note.Body,
		AutomationRuleID: &ruleID,
	})
	return err
}

func (a *AutomationActivityStore) CreateTask(ctx context.Context, task engine.NewTask) (uuid.UUID, error) {
	ruleID := task.AutomationRuleID
	created, err := a.repo.CreateTask(ctx, activitiesrepo.Task{
		OrganizationID:   task.OrganizationID,
		DealID:           task.DealID,
		ContactID:        task.ContactID,
		AssigneeID:       task.AssigneeID,
		Title:            task.Title,
		Description:      task.Description,
		DueAt:            task.DueAt,
		AutomationRuleID: &ruleID,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID, nil
}
