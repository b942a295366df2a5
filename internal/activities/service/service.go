// Package service exposes deal notes and follow-up tasks.
package service

import (
	"context"
	"errors"

	"funnel_backend/internal/activities/repository"
	"funnel_backend/internal/activities/transport"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgDealNotFound = "deal not found"
	msgTaskNotFound = "task not found"
)

type Service struct {
	notes repository.NoteStore
	tasks repository.TaskStore
	log   *logger.Logger
}

func New(notes repository.NoteStore, tasks repository.TaskStore, log *logger.Logger) *Service {
	return &Service{notes: notes, tasks: tasks, log: log}
}

func (s *Service) AddNote(ctx context.Context, tenantID, dealID uuid.UUID, req transport.CreateNoteRequest) (transport.NoteResponse, error) {
	body := sanitize.Text(req.Body)
	if body == "" {
		return transport.NoteResponse{}, apperr.Validation("note body is empty")
	}
	note, err := s.notes.CreateDealNote(ctx, tenantID, dealID, body)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.NoteResponse{}, apperr.NotFound(msgDealNotFound)
	}
	if err != nil {
		return transport.NoteResponse{}, apperr.Wrap(apperr.KindInternal, "create note", err)
	}
	return toNoteResponse(note), nil
}

func (s *Service) ListNotes(ctx context.Context, tenantID, dealID uuid.UUID) (transport.NoteListResponse, error) {
	notes, err := s.notes.ListNotes(ctx, tenantID, dealID)
	if err != nil {
		return transport.NoteListResponse{}, apperr.Wrap(apperr.KindInternal, "list notes", err)
	}
	items := make([]transport.NoteResponse, 0, len(notes))
	for _, n := range notes {
		items = append(items, toNoteResponse(n))
	}
	return transport.NoteListResponse{Items: items}, nil
}

func (s *Service) ListTasks(ctx context.Context, tenantID, dealID uuid.UUID) (transport.TaskListResponse, error) {
	tasks, err := s.tasks.ListTasks(ctx, tenantID, dealID)
	if err != nil {
		return transport.TaskListResponse{}, apperr.Wrap(apperr.KindInternal, "list tasks", err)
	}
	items := make([]transport.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, toTaskResponse(t))
	}
	return transport.TaskListResponse{Items: items}, nil
}

func (s *Service) UpdateTaskStatus(ctx context.Context, tenantID, taskID uuid.UUID, req transport.UpdateTaskStatusRequest) (transport.TaskResponse, error) {
	task, err := s.tasks.SetTaskStatus(ctx, tenantID, taskID, req.Status)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.TaskResponse{}, apperr.NotFound(msgTaskNotFound)
	}
	if err != nil {
		return transport.TaskResponse{}, apperr.Wrap(apperr.KindInternal, "update task status", err)
	}
	s.log.Info("task status changed", "taskId", task.ID, "status", task.Status)
	return toTaskResponse(task), nil
}

func toNoteResponse(n repository.Note) transport.NoteResponse {
	return transport.NoteResponse{
		ID:               n.ID,
		DealID:           n.DealID,
		Body:             n.Body,
		AutomationRuleID: n.AutomationRuleID,
		CreatedAt:        n.CreatedAt,
	}
}

func toTaskResponse(t repository.Task) transport.TaskResponse {
	return transport.TaskResponse{
		ID:               t.ID,
		DealID:           t.DealID,
		AssigneeID:       t.AssigneeID,
		Title:            t.Title,
		Description:      t.Description,
		DueAt:            t.DueAt,
		Status:           t.Status,
		AutomationRuleID: t.AutomationRuleID,
		CreatedAt:        t.CreatedAt,
		CompletedAt:      t.CompletedAt,
	}
}
