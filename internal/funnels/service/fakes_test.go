package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"funnel_backend/internal/events"
	"funnel_backend/internal/funnels/domain"
	"funnel_backend/internal/funnels/ports"
	"funnel_backend/internal/funnels/repository"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu      sync.Mutex
	funnels map[uuid.UUID]domain.Funnel
	stages  map[uuid.UUID]domain.Stage
	deals   map[uuid.UUID]repository.Deal
	history []repository.HistoryEntry
	// beforeApply runs inside ApplyTransition before the compare-and-swap,
	// letting tests interleave concurrent writers.
	beforeApply func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		funnels: make(map[uuid.UUID]domain.Funnel),
		stages:  make(map[uuid.UUID]domain.Stage),
		deals:   make(map[uuid.UUID]repository.Deal),
	}
}

func (r *fakeRepo) stagesOf(funnelID uuid.UUID) []domain.Stage {
	out := make([]domain.Stage, 0)
	for _, s := range r.stages {
		if s.FunnelID == funnelID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out
}

func (r *fakeRepo) CreateFunnel(_ context.Context, params repository.CreateFunnelParams) (domain.Funnel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := domain.Funnel{ID: uuid.New(), OrganizationID: params.OrganizationID, Name: params.Name, DisplayOrder: params.DisplayOrder}
	r.funnels[f.ID] = f
	for i, tpl := range params.Stages {
		s := domain.Stage{ID: uuid.New(), FunnelID: f.ID, Name: tpl.Name, Color: tpl.Color, DisplayOrder: i,
			IsFinal: tpl.FinalType != nil, FinalType: tpl.FinalType, Probability: tpl.Probability}
		r.stages[s.ID] = s
	}
	f.Stages = r.stagesOf(f.ID)
	return f, nil
}

func (r *fakeRepo) DeleteFunnel(_ context.Context, organizationID, funnelID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.funnels[funnelID]
	if !ok || f.OrganizationID != organizationID {
		return repository.ErrNotFound
	}
	delete(r.funnels, funnelID)
	return nil
}

func (r *fakeRepo) GetFunnel(_ context.Context, funnelID uuid.UUID) (domain.Funnel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.funnels[funnelID]
	if !ok {
		return domain.Funnel{}, repository.ErrNotFound
	}
	f.Stages = r.stagesOf(funnelID)
	return f, nil
}

func (r *fakeRepo) ListFunnels(_ context.Context, organizationID uuid.UUID) ([]domain.Funnel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Funnel, 0)
	for _, f := range r.funnels {
		if f.OrganizationID == organizationID {
			f.Stages = r.stagesOf(f.ID)
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListStages(_ context.Context, funnelID uuid.UUID) ([]domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stagesOf(funnelID), nil
}

func (r *fakeRepo) GetStage(_ context.Context, stageID uuid.UUID) (domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stages[stageID]
	if !ok {
		return domain.Stage{}, repository.ErrNotFound
	}
	return s, nil
}

func (r *fakeRepo) CreateStage(_ context.Context, stage domain.Stage) (domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stage.ID = uuid.New()
	r.stages[stage.ID] = stage
	return stage, nil
}

func (r *fakeRepo) UpdateStage(_ context.Context, stage domain.Stage) (domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stages[stage.ID]; !ok {
		return domain.Stage{}, repository.ErrNotFound
	}
	r.stages[stage.ID] = stage
	return stage, nil
}

func (r *fakeRepo) DeleteStage(_ context.Context, funnelID, stageID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stages[stageID]
	if !ok || s.FunnelID != funnelID {
		return repository.ErrNotFound
	}
	for _, d := range r.deals {
		if d.StageID == stageID {
			return repository.ErrStageHasDeals
		}
	}
	delete(r.stages, stageID)
	return nil
}

func (r *fakeRepo) ReorderStages(_ context.Context, funnelID uuid.UUID, orderedIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(orderedIDs) != len(r.stagesOf(funnelID)) {
		return repository.ErrStagesIncomplete
	}
	for i, id := range orderedIDs {
		s, ok := r.stages[id]
		if !ok || s.FunnelID != funnelID {
			return repository.ErrStagesIncomplete
		}
		s.DisplayOrder = i
		r.stages[id] = s
	}
	return nil
}

func (r *fakeRepo) GetDeal(_ context.Context, dealID uuid.UUID) (repository.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deals[dealID]
	if !ok {
		return repository.Deal{}, repository.ErrNotFound
	}
	return d, nil
}

func (r *fakeRepo) ListHistory(_ context.Context, dealID uuid.UUID) ([]repository.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.HistoryEntry, 0)
	for _, e := range r.history {
		if e.DealID == dealID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateDeal(_ context.Context, params repository.CreateDealParams) (repository.Deal, repository.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := repository.Deal{
		ID:             uuid.New(),
		OrganizationID: params.OrganizationID,
		FunnelID:       params.State.FunnelID,
		StageID:        params.State.StageID,
		ContactID:      params.ContactID,
		Title:          params.Title,
		Value:          params.Value,
		CustomFields:   map[string]any{},
		AssignedUserID: params.AssignedUserID,
		EnteredStageAt: params.State.EnteredStageAt,
		ClosedAt:       params.State.ClosedAt,
		CreatedAt:      time.Now(),
	}
	for k, v := range params.CustomFields {
		d.CustomFields[k] = v
	}
	r.deals[d.ID] = d
	e := repository.HistoryEntry{ID: uuid.New(), DealID: d.ID, ToStageID: d.StageID, Note: params.Note, CreatedAt: time.Now()}
	r.history = append(r.history, e)
	return d, e, nil
}

func (r *fakeRepo) ApplyTransition(_ context.Context, params repository.ApplyTransitionParams) (repository.Deal, repository.HistoryEntry, error) {
	if r.beforeApply != nil {
		r.beforeApply()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deals[params.DealID]
	if !ok || d.StageID != params.ExpectedStageID {
		return repository.Deal{}, repository.HistoryEntry{}, repository.ErrStageConflict
	}
	d.StageID = params.Next.StageID
	d.EnteredStageAt = params.Next.EnteredStageAt
	d.ClosedAt = params.Next.ClosedAt
	if params.Next.ClosedAt == nil {
		d.CloseReasonID = nil
	} else if params.CloseReasonID != nil {
		d.CloseReasonID = params.CloseReasonID
	}
	r.deals[d.ID] = d

	from := params.ExpectedStageID
	e := repository.HistoryEntry{ID: uuid.New(), DealID: d.ID, FromStageID: &from, ToStageID: d.StageID,
		Note: params.Note, AutomationRuleID: params.AutomationRuleID, CreatedAt: time.Now()}
	r.history = append(r.history, e)
	return d, e, nil
}

func (r *fakeRepo) SetCustomField(_ context.Context, dealID uuid.UUID, key string, value any) (repository.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deals[dealID]
	if !ok {
		return repository.Deal{}, repository.ErrNotFound
	}
	fields := make(map[string]any, len(d.CustomFields)+1)
	for k, v := range d.CustomFields {
		fields[k] = v
	}
	fields[key] = value
	d.CustomFields = fields
	r.deals[dealID] = d
	return d, nil
}

func (r *fakeRepo) SetValue(_ context.Context, dealID uuid.UUID, value float64) (repository.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deals[dealID]
	if !ok {
		return repository.Deal{}, repository.ErrNotFound
	}
	d.Value = value
	r.deals[dealID] = d
	return d, nil
}

func (r *fakeRepo) SetAssignedUser(_ context.Context, dealID uuid.UUID, userID uuid.UUID) (repository.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deals[dealID]
	if !ok {
		return repository.Deal{}, repository.ErrNotFound
	}
	d.AssignedUserID = &userID
	r.deals[dealID] = d
	return d, nil
}

type recordingDispatcher struct {
	mu           sync.Mutex
	stageChanges []ports.StageChange
	fieldChanges []ports.FieldChange
	outcomes     []ports.AutomationOutcome
	err          error
}

func (d *recordingDispatcher) DispatchStageChange(_ context.Context, change ports.StageChange) ([]ports.AutomationOutcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stageChanges = append(d.stageChanges, change)
	return d.outcomes, d.err
}

func (d *recordingDispatcher) DispatchFieldChange(_ context.Context, change ports.FieldChange) ([]ports.AutomationOutcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fieldChanges = append(d.fieldChanges, change)
	return d.outcomes, d.err
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

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.published))
	for _, e := range b.published {
		out = append(out, e.EventName())
	}
	return out
}
