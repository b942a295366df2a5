package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"funnel_backend/internal/funnels/domain"
	"funnel_backend/internal/funnels/repository"
	"funnel_backend/internal/funnels/transport"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/keylock"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
)

type fixture struct {
	svc        *Service
	repo       *fakeRepo
	dispatcher *recordingDispatcher
	bus        *recordingBus
	tenant     uuid.UUID
	funnel     domain.Funnel
	newLead    domain.Stage
	proposal   domain.Stage
	won        domain.Stage
	lost       domain.Stage
}

func newFixture(t *testing.T, policy domain.Policy) *fixture {
	t.Helper()
	repo := newFakeRepo()
	bus := &recordingBus{}
	dispatcher := &recordingDispatcher{}
	svc := New(repo, keylock.NewMemory(), bus, policy, logger.Discard())
	svc.SetAutomationDispatcher(dispatcher)

	tenant := uuid.New()
	resp, err := svc.CreateFunnel(context.Background(), tenant, transport.CreateFunnelRequest{Name: "Vendas"})
	if err != nil {
		t.Fatalf("create funnel: %v", err)
	}
	funnel, err := repo.GetFunnel(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("load funnel: %v", err)
	}

	return &fixture{
		svc:        svc,
		repo:       repo,
		dispatcher: dispatcher,
		bus:        bus,
		tenant:     tenant,
		funnel:     funnel,
		newLead:    funnel.Stages[0],
		proposal:   funnel.Stages[2],
		won:        funnel.Stages[4],
		lost:       funnel.Stages[5],
	}
}

func (f *fixture) createDeal(t *testing.T, stage domain.Stage) repository.Deal {
	t.Helper()
	res, err := f.svc.CreateDeal(context.Background(), f.tenant, transport.CreateDealRequest{
		FunnelID:  f.funnel.ID,
		StageID:   stage.ID,
		ContactID: uuid.New(),
		Title:     "Website redesign",
		Value:     150,
	})
	if err != nil {
		t.Fatalf("create deal: %v", err)
	}
	return res.Deal
}

func (f *fixture) move(ctx context.Context, dealID uuid.UUID, to domain.Stage) (DealChangeResult, error) {
	return f.svc.MoveStage(ctx, MoveStageInput{TenantID: &f.tenant, DealID: dealID, ToStageID: to.ID})
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", kind)
	}
	if got := apperr.GetKind(err); got != kind {
		t.Fatalf("expected error kind %v, got %v (%v)", kind, got, err)
	}
}

func TestCreateFunnelSeedsDefaultTemplate(t *testing.T) {
	f := newFixture(t, domain.Policy{AllowReopen: true})

	if len(f.funnel.Stages) != 6 {
		t.Fatalf("expected six stages, got %d", len(f.funnel.Stages))
	}
	if !f.won.Is(domain.FinalWon) || !f.lost.Is(domain.FinalLost) {
		t.Fatalf("expected Ganho/Perdido to be terminal, got %+v %+v", f.won, f.lost)
	}
	if f.newLead.Name != "Novo Lead" || f.newLead.Probability != 10 {
		t.Fatalf("unexpected first stage %+v", f.newLead)
	}
}

func TestCreateFunnelWithoutTemplate(t *testing.T) {
	f := newFixture(t, domain.Policy{})
	useTemplate := false

	resp, err := f.svc.CreateFunnel(context.Background(), f.tenant, transport.CreateFunnelRequest{Name: "Empty", UseDefaultTemplate: &useTemplate})
	if err != nil {
		t.Fatalf("create funnel: %v", err)
	}
	if len(resp.Stages) != 0 {
		t.Fatalf("expected no stages, got %d", len(resp.Stages))
	}
}

func TestCreateStageRejectsSecondWonStage(t *testing.T) {
	f := newFixture(t, domain.Policy{})

	_, err := f.svc.CreateStage(context.Background(), f.tenant, f.funnel.ID, transport.StageRequest{
		Name:        "Ganho 2",
		IsFinal:     true,
		FinalType:   "won",
		Probability: 100,
	})
	requireKind(t, err, apperr.KindValidation)
}

func TestUpdateStageKeepsOwnPolarity(t *testing.T) {
	f := newFixture(t, domain.Policy{})

	resp, err := f.svc.UpdateStage(context.Background(), f.tenant, f.funnel.ID, f.won.ID, transport.StageRequest{
		Name:        "Fechado",
		Color:       "#00ff00",
		IsFinal:     true,
		FinalType:   "won",
		Probability: 100,
	})
	if err != nil {
		t.Fatalf("update stage: %v", err)
	}
	if resp.Name != "Fechado" || resp.DisplayOrder != f.won.DisplayOrder {
		t.Fatalf("unexpected stage after update: %+v", resp)
	}
}

func TestMoveStageIntoWonClosesDealAndDispatches(t *testing.T) {
	f := newFixture(t, domain.Policy{AllowReopen: true})
	deal := f.createDeal(t, f.newLead)

	res, err := f.move(context.Background(), deal.ID, f.won)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if res.Deal.StageID != f.won.ID || res.Deal.ClosedAt == nil {
		t.Fatalf("expected deal closed in won stage, got stage=%s closedAt=%v", res.Deal.StageID, res.Deal.ClosedAt)
	}
	if !domain.HasEmission(res.Emitted, domain.EmittedDealWon) {
		t.Fatalf("expected deal_won emission, got %v", res.Emitted)
	}

	history, _ := f.repo.ListHistory(context.Background(), deal.ID)
	if len(history) != 2 {
		t.Fatalf("expected creation and move history rows, got %d", len(history))
	}
	last := history[1]
	if last.FromStageID == nil || *last.FromStageID != f.newLead.ID || last.ToStageID != f.won.ID {
		t.Fatalf("history row does not match transition: %+v", last)
	}

	if len(f.dispatcher.stageChanges) != 2 {
		t.Fatalf("expected dispatch for create and move, got %d", len(f.dispatcher.stageChanges))
	}
	change := f.dispatcher.stageChanges[1]
	if change.FromStageID == nil || *change.FromStageID != f.newLead.ID || change.ToStageID != f.won.ID {
		t.Fatalf("unexpected dispatched change %+v", change)
	}

	names := f.bus.names()
	if !slices.Contains(names, "funnels.deal.stage_changed") || !slices.Contains(names, "funnels.deal.closed") {
		t.Fatalf("expected stage_changed and closed events, got %v", names)
	}
}

func TestMoveStageRejectsReopenWhenDisabled(t *testing.T) {
	f := newFixture(t, domain.Policy{AllowReopen: false})
	deal := f.createDeal(t, f.won)

	_, err := f.move(context.Background(), deal.ID, f.newLead)
	requireKind(t, err, apperr.KindConflict)

	history, _ := f.repo.ListHistory(context.Background(), deal.ID)
	if len(history) != 1 {
		t.Fatalf("rejected move must not write history, got %d rows", len(history))
	}
}

func TestMoveStageReopenClearsClosedAt(t *testing.T) {
	f := newFixture(t, domain.Policy{AllowReopen: true})
	deal := f.createDeal(t, f.lost)
	if deal.ClosedAt == nil {
		t.Fatal("deal created into lost stage must be closed")
	}

	res, err := f.move(context.Background(), deal.ID, f.proposal)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if res.Deal.ClosedAt != nil {
		t.Fatalf("expected closed_at cleared, got %v", res.Deal.ClosedAt)
	}
	if !slices.Contains(f.bus.names(), "funnels.deal.reopened") {
		t.Fatalf("expected reopened event, got %v", f.bus.names())
	}
}

func TestMoveStageValidation(t *testing.T) {
	f := newFixture(t, domain.Policy{AllowReopen: true})
	deal := f.createDeal(t, f.newLead)
	other := newFixture(t, domain.Policy{})

	_, err := f.move(context.Background(), deal.ID, f.newLead)
	requireKind(t, err, apperr.KindValidation)

	stale := f.proposal.ID
	_, err = f.svc.MoveStage(context.Background(), MoveStageInput{TenantID: &f.tenant, DealID: deal.ID, FromStageID: &stale, ToStageID: f.won.ID})
	requireKind(t, err, apperr.KindConflict)

	_, err = f.move(context.Background(), deal.ID, domain.Stage{ID: uuid.New()})
	requireKind(t, err, apperr.KindNotFound)

	// a stage that exists but belongs to another funnel
	f.repo.stages[other.won.ID] = other.won
	_, err = f.move(context.Background(), deal.ID, other.won)
	requireKind(t, err, apperr.KindValidation)

	_, err = f.svc.MoveStage(context.Background(), MoveStageInput{TenantID: &other.tenant, DealID: deal.ID, ToStageID: f.won.ID})
	requireKind(t, err, apperr.KindNotFound)
}

func TestMoveStageWithoutTenantIsAllowedForAutomations(t *testing.T) {
	f := newFixture(t, domain.Policy{AllowReopen: true})
	deal := f.createDeal(t, f.newLead)
	ruleID := uuid.New()
	note := "moved automatically by: qualify"

	res, err := f.svc.MoveStage(context.Background(), MoveStageInput{DealID: deal.ID, ToStageID: f.proposal.ID, Note: &note, AutomationRuleID: &ruleID, Depth: 2})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if res.History == nil || res.History.AutomationRuleID == nil || *res.History.AutomationRuleID != ruleID {
		t.Fatalf("expected history annotated with rule, got %+v", res.History)
	}
	if res.History.Note == nil || *res.History.Note != note {
		t.Fatalf("expected history note %q, got %v", note, res.History.Note)
	}
	if got := f.dispatcher.stageChanges[len(f.dispatcher.stageChanges)-1].Depth; got != 2 {
		t.Fatalf("expected depth carried to dispatch, got %d", got)
	}
}

func TestConcurrentMovesOnlyOneWins(t *testing.T) {
	f := newFixture(t, domain.Policy{AllowReopen: true})
	deal := f.createDeal(t, f.newLead)
	from := f.newLead.ID

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for _, target := range []domain.Stage{f.proposal, f.lost} {
		wg.Add(1)
		go func(to domain.Stage) {
			defer wg.Done()
			_, err := f.svc.MoveStage(context.Background(), MoveStageInput{TenantID: &f.tenant, DealID: deal.ID, FromStageID: &from, ToStageID: to.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperr.Is(err, apperr.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(target)
	}
	wg.Wait()

	if successes != 1 || conflicts != 1 {
		t.Fatalf("expected one success and one conflict, got %d/%d", successes, conflicts)
	}
	history, _ := f.repo.ListHistory(context.Background(), deal.ID)
	if len(history) != 2 {
		t.Fatalf("expected exactly one move in history, got %d rows", len(history))
	}
}

func TestMoveStageIsReentrantUnderHeldLock(t *testing.T) {
	f := newFixture(t, domain.Policy{AllowReopen: true})
	deal := f.createDeal(t, f.newLead)

	ctx, release, err := f.svc.locker.Acquire(context.Background(), domain.DealLockKey(deal.ID))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if _, err := f.svc.MoveStage(ctx, MoveStageInput{DealID: deal.ID, ToStageID: f.proposal.ID, Depth: 1}); err != nil {
		t.Fatalf("nested move under held lock failed: %v", err)
	}
}

func TestCreateDealIntoFinalStageDispatchesWithoutFrom(t *testing.T) {
	f := newFixture(t, domain.Policy{})
	deal := f.createDeal(t, f.won)

	if deal.ClosedAt == nil {
		t.Fatal("expected closed_at on deal created into won stage")
	}
	change := f.dispatcher.stageChanges[0]
	if change.FromStageID != nil || change.ToStageID != f.won.ID || change.Depth != 0 {
		t.Fatalf("unexpected creation dispatch %+v", change)
	}
}

func TestCreateDealRejectsStageOfOtherFunnel(t *testing.T) {
	f := newFixture(t, domain.Policy{})
	other := newFixture(t, domain.Policy{})

	_, err := f.svc.CreateDeal(context.Background(), f.tenant, transport.CreateDealRequest{
		FunnelID:  f.funnel.ID,
		StageID:   other.newLead.ID,
		ContactID: uuid.New(),
	})
	requireKind(t, err, apperr.KindValidation)
}

func TestMoveStageReportsDispatchErrorWithoutFailing(t *testing.T) {
	f := newFixture(t, domain.Policy{})
	deal := f.createDeal(t, f.newLead)
	f.dispatcher.err = errors.New("rules unavailable")

	res, err := f.move(context.Background(), deal.ID, f.proposal)
	if err != nil {
		t.Fatalf("move must succeed when dispatch fails: %v", err)
	}
	if res.AutomationError == nil {
		t.Fatal("expected automation error to be surfaced")
	}
	if ToDealChangeResponse(res).AutomationError == "" {
		t.Fatal("expected automation error in response")
	}
	if res.Deal.StageID != f.proposal.ID {
		t.Fatalf("expected committed move, got stage %s", res.Deal.StageID)
	}
}

func TestSetDealCustomFieldDispatchesFieldChange(t *testing.T) {
	f := newFixture(t, domain.Policy{})
	deal := f.createDeal(t, f.newLead)

	res, err := f.svc.SetDealCustomField(context.Background(), f.tenant, deal.ID, transport.SetCustomFieldRequest{Key: " budget ", Value: 42.0})
	if err != nil {
		t.Fatalf("set custom field: %v", err)
	}
	if res.Deal.CustomFields["budget"] != 42.0 {
		t.Fatalf("expected field stored, got %v", res.Deal.CustomFields)
	}
	if len(f.dispatcher.fieldChanges) != 1 {
		t.Fatalf("expected one field dispatch, got %d", len(f.dispatcher.fieldChanges))
	}
	change := f.dispatcher.fieldChanges[0]
	if change.FieldKey != "budget" || change.Value != "42" {
		t.Fatalf("unexpected field change %+v", change)
	}
}

func TestDeleteStageWithDealsConflicts(t *testing.T) {
	f := newFixture(t, domain.Policy{})
	f.createDeal(t, f.newLead)

	err := f.svc.DeleteStage(context.Background(), f.tenant, f.funnel.ID, f.newLead.ID)
	requireKind(t, err, apperr.KindConflict)

	if err := f.svc.DeleteStage(context.Background(), f.tenant, f.funnel.ID, f.proposal.ID); err != nil {
		t.Fatalf("delete empty stage: %v", err)
	}
}

func TestReorderStagesRejectsDuplicates(t *testing.T) {
	f := newFixture(t, domain.Policy{})
	ids := make([]uuid.UUID, 0, len(f.funnel.Stages))
	for _, s := range f.funnel.Stages {
		ids = append(ids, s.ID)
	}
	dup := append(slices.Clone(ids[:len(ids)-1]), ids[0])

	_, err := f.svc.ReorderStages(context.Background(), f.tenant, f.funnel.ID, transport.ReorderStagesRequest{StageIDs: dup})
	requireKind(t, err, apperr.KindValidation)

	slices.Reverse(ids)
	resp, err := f.svc.ReorderStages(context.Background(), f.tenant, f.funnel.ID, transport.ReorderStagesRequest{StageIDs: ids})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if resp.Stages[0].ID != f.lost.ID {
		t.Fatalf("expected lost stage first after reversing, got %s", resp.Stages[0].Name)
	}
}

func TestFieldValueString(t *testing.T) {
	cases := map[string]any{
		"":        nil,
		"premium": "premium",
		"150.5":   150.5,
		"true":    true,
	}
	for want, in := range cases {
		if got := FieldValueString(in); got != want {
			t.Errorf("FieldValueString(%v) = %q, want %q", in, got, want)
		}
	}
}
