// Package service manages contacts and exposes their tags to the automation
// engine.
package service

import (
	"context"
	"errors"
	"strings"

	"funnel_backend/internal/contacts/repository"
	"funnel_backend/internal/contacts/transport"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/phone"

	"github.com/google/uuid"
)

const (
	msgContactNotFound = "contact not found"
	defaultListLimit   = 100
)

type Service struct {
	repo repository.ContactStore
	log  *logger.Logger
}

func New(repo repository.ContactStore, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) CreateContact(ctx context.Context, tenantID uuid.UUID, req transport.CreateContactRequest) (transport.ContactResponse, error) {
	created, err := s.repo.CreateContact(ctx, repository.Contact{
		OrganizationID: tenantID,
		Name:           strings.TrimSpace(req.Name),
		Phone:          phone.NormalizeE164(req.Phone),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
	})
	if err != nil {
		return transport.ContactResponse{}, apperr.Wrap(apperr.KindInternal, "create contact", err)
	}
	s.log.Info("contact created", "contactId", created.ID, "organizationId", tenantID)
	return toContactResponse(created, []string{}), nil
}

func (s *Service) GetContact(ctx context.Context, tenantID, contactID uuid.UUID) (transport.ContactResponse, error) {
	contact, err := s.loadContact(ctx, tenantID, contactID)
	if err != nil {
		return transport.ContactResponse{}, err
	}
	tags, err := s.repo.ListTags(ctx, contactID)
	if err != nil {
		return transport.ContactResponse{}, apperr.Wrap(apperr.KindInternal, "list contact tags", err)
	}
	return toContactResponse(contact, tags), nil
}

func (s *Service) ListContacts(ctx context.Context, tenantID uuid.UUID) (transport.ContactListResponse, error) {
	contacts, err := s.repo.ListContacts(ctx, tenantID, defaultListLimit)
	if err != nil {
		return transport.ContactListResponse{}, apperr.Wrap(apperr.KindInternal, "list contacts", err)
	}
	items := make([]transport.ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		items = append(items, toContactResponse(c, nil))
	}
	return transport.ContactListResponse{Items: items}, nil
}

func (s *Service) loadContact(ctx context.Context, tenantID, contactID uuid.UUID) (repository.Contact, error) {
	contact, err := s.repo.GetContact(ctx, contactID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && contact.OrganizationID != tenantID) {
		return repository.Contact{}, apperr.NotFound(msgContactNotFound)
	}
	if err != nil {
		return repository.Contact{}, apperr.Wrap(apperr.KindInternal, "load contact", err)
	}
	return contact, nil
}

func toContactResponse(c repository.Contact, tags []string) transport.ContactResponse {
	if tags == nil {
		tags = []string{}
	}
	return transport.ContactResponse{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		Tags:      tags,
		CreatedAt: c.CreatedAt,
	}
}
