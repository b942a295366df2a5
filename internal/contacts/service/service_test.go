package service

import (
	"context"
	"strings"
	"testing"

	"funnel_backend/internal/contacts/repository"
	"funnel_backend/internal/contacts/transport"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	contacts map[uuid.UUID]repository.Contact
	tags     map[uuid.UUID][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{contacts: map[uuid.UUID]repository.Contact{}, tags: map[uuid.UUID][]string{}}
}

func (f *fakeStore) GetContact(_ context.Context, id uuid.UUID) (repository.Contact, error) {
	c, ok := f.contacts[id]
	if !ok {
		return repository.Contact{}, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) ListContacts(_ context.Context, orgID uuid.UUID, limit int) ([]repository.Contact, error) {
	out := make([]repository.Contact, 0)
	for _, c := range f.contacts {
		if c.OrganizationID == orgID && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateContact(_ context.Context, c repository.Contact) (repository.Contact, error) {
	c.ID = uuid.New()
	f.contacts[c.ID] = c
	return c, nil
}

func (f *fakeStore) ListTags(_ context.Context, id uuid.UUID) ([]string, error) {
	return f.tags[id], nil
}

func (f *fakeStore) AddTag(_ context.Context, _, id uuid.UUID, name string) error {
	for _, t := range f.tags[id] {
		if strings.EqualFold(t, name) {
			return nil
		}
	}
	f.tags[id] = append(f.tags[id], name)
	return nil
}

func (f *fakeStore) RemoveTag(_ context.Context, _, id uuid.UUID, name string) (bool, error) {
	for i, t := range f.tags[id] {
		if strings.EqualFold(t, name) {
			f.tags[id] = append(f.tags[id][:i], f.tags[id][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func TestCreateContactNormalizesPhoneAndEmail(t *testing.T) {
	svc := New(newFakeStore(), logger.Discard())
	resp, err := svc.CreateContact(context.Background(), uuid.New(), transport.CreateContactRequest{
		Name:  "  Ana Souza ",
		Phone: "(11) 98765-4321",
		Email: " Ana@Example.COM ",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Name != "Ana Souza" || resp.Phone != "+5511987654321" || resp.Email != "ana@example.com" {
		t.Fatalf("unexpected contact %+v", resp)
	}
	if resp.Tags == nil {
		t.Fatalf("expected empty tag list, not nil")
	}
}

func TestGetContactHidesOtherTenants(t *testing.T) {
	store := newFakeStore()
	svc := New(store, logger.Discard())
	owner := uuid.New()
	created, err := svc.CreateContact(context.Background(), owner, transport.CreateContactRequest{Name: "Ana"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = store.AddTag(context.Background(), owner, created.ID, "VIP")

	got, err := svc.GetContact(context.Background(), owner, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "VIP" {
		t.Fatalf("unexpected tags %v", got.Tags)
	}

	_, err = svc.GetContact(context.Background(), uuid.New(), created.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for another tenant, got %v", err)
	}
}
