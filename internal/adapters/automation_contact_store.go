package adapters

import (
	"context"
	"errors"

	"funnel_backend/internal/automation/engine"
	contactsrepo "funnel_backend/internal/contacts/repository"

	"github.com/google/uuid"
)

// AutomationContactStore implements engine.ContactStore over the contacts
// repository.
type AutomationContactStore struct {
	repo contactsrepo.ContactStore
}

func NewAutomationContactStore(repo contactsrepo.ContactStore) *AutomationContactStore {
	return &AutomationContactStore{repo: repo}
}

func (a *AutomationContactStore) GetContact(ctx context.Context, contactID uuid.UUID) (engine.Contact, error) {
	c, err := a.repo.GetContact(ctx, contactID)
	if errors.Is(err, contactsrepo.ErrNotFound) {
		return engine.Contact{}, engine.ErrContactNotFound
	}
	if err != nil {
		return engine.Contact{}, err
	}
	return engine.Contact{ID: c.ID, Name: c.Name, Phone: c.Phone, Email: c.Email}, nil
}

func (a *AutomationContactStore) AddTag(ctx context.Context, organizationID, contactID uuid.UUID, tagName string) error {
	return a.repo.AddTag(ctx, organizationID, contactID, tagName)
}

func (a *AutomationContactStore) RemoveTag(ctx context.Context, organizationID, contactID uuid.UUID, tagName string) (bool, error) {
	return a.repo.RemoveTag(ctx, organizationID, contactID, tagName)
}
