package adapters

import (
	"context"
	"errors"

	activitiesrepo "funnel_backend/internal/activities/repository"
	"funnel_backend/internal/notification"

	"github.com/google/uuid"
)

type DealNoteCreator interface {
	CreateDealNote(ctx context.Context, organizationID, dealID uuid.UUID, body string) (activitiesrepo.Note, error)
}

// DealTimelineWriter implements notification.TimelineWriter with deal notes.
type DealTimelineWriter struct {
	notes DealNoteCreator
}

func NewDealTimelineWriter(notes DealNoteCreator) *DealTimelineWriter {
	return &DealTimelineWriter{notes: notes}
}

func (a *DealTimelineWriter) AddDealNote(ctx context.Context, organizationID, dealID uuid.UUID, body string) error {
	_, err := a.notes.CreateDealNote(ctx, organizationID, dealID, body)
	if errors.Is(err, activitiesrepo.ErrNotFound) {
		return notification.ErrDealGone
	}
	return err
}
