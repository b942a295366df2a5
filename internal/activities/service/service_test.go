package service

import (
	"context"
	"testing"
	"time"

	"funnel_backend/internal/activities/repository"
	"funnel_backend/internal/activities/transport"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	deals map[uuid.UUID]uuid.UUID // deal -> organization
	notes []repository.Note
	tasks map[uuid.UUID]repository.Task
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{deals: map[uuid.UUID]uuid.UUID{}, tasks: map[uuid.UUID]repository.Task{}}
}

func (f *fakeRepo) CreateNote(_ context.Context, n repository.Note) (repository.Note, error) {
	n.ID = uuid.New()
	f.notes = append(f.notes, n)
	return n, nil
}

func (f *fakeRepo) CreateDealNote(_ context.Context, orgID, dealID uuid.UUID, body string) (repository.Note, error) {
	if f.deals[dealID] != orgID {
		return repository.Note{}, repository.ErrNotFound
	}
	n := repository.Note{ID: uuid.New(), OrganizationID: orgID, DealID: dealID, Body: body, CreatedAt: time.Now()}
	f.notes = append(f.notes, n)
	return n, nil
}

func (f *fakeRepo) ListNotes(_ context.Context, orgID, dealID uuid.UUID) ([]repository.Note, error) {
	out := make([]repository.Note, 0)
	for _, n := range f.notes {
		if n.OrganizationID == orgID && n.DealID == dealID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateTask(_ context.Context, t repository.Task) (repository.Task, error) {
	t.ID = uuid.New()
	t.Status = repository.TaskStatusOpen
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeRepo) ListTasks(_ context.Context, orgID, dealID uuid.UUID) ([]repository.Task, error) {
	out := make([]repository.Task, 0)
	for _, t := range f.tasks {
		if t.OrganizationID == orgID && t.DealID == dealID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRepo) SetTaskStatus(_ context.Context, orgID, taskID uuid.UUID, status string) (repository.Task, error) {
	t, ok := f.tasks[taskID]
	if !ok || t.OrganizationID != orgID {
		return repository.Task{}, repository.ErrNotFound
	}
	t.Status = status
	f.tasks[taskID] = t
	return t, nil
}

func (f *fakeRepo) ClaimReminder(context.Context, uuid.UUID, uuid.UUID) (repository.DueTask, bool, error) {
	return repository.DueTask{}, false, nil
}

func TestAddNoteSanitizesAndScopesToTenant(t *testing.T) {
	repo := newFakeRepo()
	org, deal := uuid.New(), uuid.New()
	repo.deals[deal] = org
	svc := New(repo, repo, logger.Discard())

	resp, err := svc.AddNote(context.Background(), org, deal, transport.CreateNoteRequest{Body: "<b>Cliente</b> pediu retorno"})
	if err != nil {
		t.Fatalf("add note: %v", err)
	}
	if resp.Body != "Cliente pediu retorno" {
		t.Fatalf("unexpected body %q", resp.Body)
	}

	_, err = svc.AddNote(context.Background(), uuid.New(), deal, transport.CreateNoteRequest{Body: "x"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for another tenant, got %v", err)
	}

	_, err = svc.AddNote(context.Background(), org, deal, transport.CreateNoteRequest{Body: "<p></p>"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty body, got %v", err)
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	repo := newFakeRepo()
	org := uuid.New()
	task, _ := repo.CreateTask(context.Background(), repository.Task{OrganizationID: org, DealID: uuid.New(), Title: "Ligar"})
	svc := New(repo, repo, logger.Discard())

	resp, err := svc.UpdateTaskStatus(context.Background(), org, task.ID, transport.UpdateTaskStatusRequest{Status: repository.TaskStatusDone})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if resp.Status != repository.TaskStatusDone {
		t.Fatalf("unexpected status %q", resp.Status)
	}

	_, err = svc.UpdateTaskStatus(context.Background(), uuid.New(), task.ID, transport.UpdateTaskStatusRequest{Status: repository.TaskStatusDone})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
