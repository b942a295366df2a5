package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"funnel_backend/internal/automation/domain"
	"funnel_backend/internal/automation/repository"
	"funnel_backend/internal/events"
	funnels "funnel_backend/internal/funnels/domain"

	"github.com/google/uuid"
)

type fakeRules struct {
	mu    sync.Mutex
	rules []domain.Rule
	err   error
	calls int
}

func (f *fakeRules) add(r domain.Rule) domain.Rule {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.IsActive = true
	f.rules = append(f.rules, r)
	return r
}

func (f *fakeRules) ListDispatchable(_ context.Context, funnelID uuid.UUID, triggers []domain.TriggerType) ([]domain.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Rule, 0)
	for _, r := range f.rules {
		if r.FunnelID == funnelID && r.IsActive && domain.ContainsTrigger(triggers, r.TriggerType) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRules) ListByFunnel(context.Context, uuid.UUID, uuid.UUID) ([]domain.Rule, error) {
	return nil, errors.New("not used")
}

func (f *fakeRules) Get(context.Context, uuid.UUID, uuid.UUID) (domain.Rule, error) {
	return domain.Rule{}, repository.ErrNotFound
}

func (f *fakeRules) Create(_ context.Context, r domain.Rule) (domain.Rule, error) { return r, nil }

func (f *fakeRules) Update(_ context.Context, r domain.Rule) (domain.Rule, error) { return r, nil }

func (f *fakeRules) SetActive(context.Context, uuid.UUID, uuid.UUID, bool) (domain.Rule, error) {
	return domain.Rule{}, repository.ErrNotFound
}

func (f *fakeRules) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type fakeDeals struct {
	mu       sync.Mutex
	deals    map[uuid.UUID]Deal
	fields   map[uuid.UUID]map[string]any
	writeErr error
}

func newFakeDeals() *fakeDeals {
	return &fakeDeals{deals: make(map[uuid.UUID]Deal), fields: make(map[uuid.UUID]map[string]any)}
}

func (f *fakeDeals) GetDeal(_ context.Context, dealID uuid.UUID) (Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deals[dealID]
	if !ok {
		return Deal{}, ErrDealNotFound
	}
	return d, nil
}

func (f *fakeDeals) update(dealID uuid.UUID, fn func(*Deal)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	d, ok := f.deals[dealID]
	if !ok {
		return ErrDealNotFound
	}
	fn(&d)
	f.deals[dealID] = d
	return nil
}

func (f *fakeDeals) SetCustomField(_ context.Context, dealID uuid.UUID, key string, value any) error {
	return f.update(dealID, func(*Deal) {
		if f.fields[dealID] == nil {
			f.fields[dealID] = make(map[string]any)
		}
		f.fields[dealID][key] = value
	})
}

func (f *fakeDeals) SetValue(_ context.Context, dealID uuid.UUID, value float64) error {
	return f.update(dealID, func(d *Deal) { d.Value = value })
}

func (f *fakeDeals) SetAssignedUser(_ context.Context, dealID, userID uuid.UUID) error {
	return f.update(dealID, func(d *Deal) { d.AssignedUserID = &userID })
}

type fakeFunnels struct {
	funnel funnels.Funnel
	stages []funnels.Stage
}

func (f *fakeFunnels) GetFunnel(_ context.Context, funnelID uuid.UUID) (funnels.Funnel, error) {
	if funnelID != f.funnel.ID {
		return funnels.Funnel{}, ErrFunnelNotFound
	}
	return f.funnel, nil
}

func (f *fakeFunnels) ListStages(_ context.Context, funnelID uuid.UUID) ([]funnels.Stage, error) {
	if funnelID != f.funnel.ID {
		return nil, nil
	}
	return f.stages, nil
}

type fakeContacts struct {
	mu       sync.Mutex
	contacts map[uuid.UUID]Contact
	tags     map[uuid.UUID]map[string]bool
}

func newFakeContacts() *fakeContacts {
	return &fakeContacts{contacts: make(map[uuid.UUID]Contact), tags: make(map[uuid.UUID]map[string]bool)}
}

func (f *fakeContacts) GetContact(_ context.Context, contactID uuid.UUID) (Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[contactID]
	if !ok {
		return Contact{}, ErrContactNotFound
	}
	return c, nil
}

func (f *fakeContacts) AddTag(_ context.Context, _, contactID uuid.UUID, tagName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tags[contactID] == nil {
		f.tags[contactID] = make(map[string]bool)
	}
	f.tags[contactID][strings.ToLower(tagName)] = true
	return nil
}

func (f *fakeContacts) RemoveTag(_ context.Context, _, contactID uuid.UUID, tagName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(tagName)
	if !f.tags[contactID][key] {
		return false, nil
	}
	delete(f.tags[contactID], key)
	return true, nil
}

func (f *fakeContacts) hasTag(contactID uuid.UUID, tagName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tags[contactID][strings.ToLower(tagName)]
}

type fakeNotes struct {
	mu    sync.Mutex
	notes []NewNote
}

func (f *fakeNotes) AddNote(_ context.Context, note NewNote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, note)
	return nil
}

type fakeTasks struct {
	mu    sync.Mutex
	tasks []NewTask
}

func (f *fakeTasks) CreateTask(_ context.Context, task NewTask) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return uuid.New(), nil
}

type reminder struct {
	taskID uuid.UUID
	runAt  time.Time
}

type fakeReminders struct {
	mu        sync.Mutex
	scheduled []reminder
}

func (f *fakeReminders) ScheduleTaskReminder(_ context.Context, taskID, _ uuid.UUID, runAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, reminder{taskID: taskID, runAt: runAt})
	return nil
}

type fakeChatbot struct {
	mu       sync.Mutex
	active   map[uuid.UUID]bool
	launches []FlowLaunch
}

func (f *fakeChatbot) Launch(_ context.Context, launch FlowLaunch) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	active, ok := f.active[launch.FlowID]
	if !ok {
		return uuid.Nil, ErrFlowNotFound
	}
	if !active {
		return uuid.Nil, ErrFlowInactive
	}
	f.launches = append(f.launches, launch)
	return uuid.New(), nil
}

type sentMessage struct {
	phone string
	text  string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeMessenger) SendMessage(_ context.Context, phone, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{phone: phone, text: message})
	return nil
}

// fakeMover plays the funnels service: it moves the deal and dispatches the
// resulting stage change back into the engine, as the real wiring does.
type fakeMover struct {
	mu     sync.Mutex
	deals  *fakeDeals
	stages []funnels.Stage
	engine *Engine
	moves  []MoveRequest
}

func (m *fakeMover) MoveStage(ctx context.Context, req MoveRequest) ([]domain.Result, error) {
	m.mu.Lock()
	m.moves = append(m.moves, req)
	m.mu.Unlock()

	if _, ok := funnels.FindStage(m.stages, req.ToStageID); !ok {
		return nil, errors.New("stage not found")
	}
	var from uuid.UUID
	err := m.deals.update(req.DealID, func(d *Deal) {
		from = d.StageID
		d.StageID = req.ToStageID
	})
	if err != nil {
		return nil, err
	}
	to := req.ToStageID
	return m.engine.ProcessEvent(ctx, domain.Event{DealID: req.DealID, FromStageID: &from, ToStageID: &to, Depth: req.Depth})
}

func (m *fakeMover) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.moves)
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.published {
		if e.EventName() == name {
			n++
		}
	}
	return n
}
