// Package engine evaluates automation rules against deal events and runs
// the matched actions. Rules of one event run sequentially under the deal
// lock; a failing rule is reported in its result and never stops the batch.
package engine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"funnel_backend/internal/automation/domain"
	"funnel_backend/internal/automation/repository"
	"funnel_backend/internal/events"
	funnels "funnel_backend/internal/funnels/domain"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/keylock"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxHops        = 5
	DefaultWebhookTimeout = 10 * time.Second
)

// Config tunes dispatch behaviour.
type Config struct {
	// MaxHops bounds chains of automation-initiated moves.
	MaxHops int
	// StrictMode reports actions that silently did nothing as failures.
	StrictMode     bool
	WebhookTimeout time.Duration
}

// Deps are the collaborators every engine needs. Optional integrations are
// injected with the Set* methods.
type Deps struct {
	Rules    repository.RuleStore
	Deals    DealStore
	Funnels  FunnelReader
	Contacts ContactStore
	Notes    NoteStore
	Tasks    TaskStore
	Chatbot  ChatbotLauncher
	Locker   keylock.Locker
	Bus      events.Bus
	Log      *logger.Logger
}

type Engine struct {
	rules    repository.RuleStore
	deals    DealStore
	funnels  FunnelReader
	contacts ContactStore
	notes    NoteStore
	tasks    TaskStore
	chatbot  ChatbotLauncher
	locker   keylock.Locker
	bus      events.Bus
	log      *logger.Logger

	mover     StageMover
	messenger MessageSender
	notifier  Notifier
	reminders TaskReminderScheduler
	http      HTTPDoer

	cfg Config
	now func() time.Time
}

func New(deps Deps, cfg Config) *Engine {
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = DefaultMaxHops
	}
	if cfg.WebhookTimeout <= 0 {
		cfg.WebhookTimeout = DefaultWebhookTimeout
	}
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Engine{
		rules:    deps.Rules,
		deals:    deps.Deals,
		funnels:  deps.Funnels,
		contacts: deps.Contacts,
		notes:    deps.Notes,
		tasks:    deps.Tasks,
		chatbot:  deps.Chatbot,
		locker:   deps.Locker,
		bus:      deps.Bus,
		log:      log,
		http:     &http.Client{Timeout: cfg.WebhookTimeout},
		cfg:      cfg,
		now:      time.Now,
	}
}

// SetStageMover injects the stage state machine. The funnels service
// depends on the engine for dispatch, so this is wired after construction.
func (e *Engine) SetStageMover(m StageMover) { e.mover = m }

func (e *Engine) SetMessageSender(s MessageSender) { e.messenger = s }

func (e *Engine) SetNotifier(n Notifier) { e.notifier = n }

func (e *Engine) SetTaskReminderScheduler(s TaskReminderScheduler) { e.reminders = s }

func (e *Engine) SetHTTPClient(c HTTPDoer) { e.http = c }

// snapshot holds read-only data loaded once per event.
type snapshot struct {
	contact Contact
	funnel  funnels.Funnel
	stages  []funnels.Stage
}

// ProcessEvent resolves the triggers of ev, runs every matching active rule
// of the deal's funnel and returns one result per executed rule, followed
// by the results of automations nested under it. Only a missing deal, funnel
// or stage and a failed rule lookup abort the call.
func (e *Engine) ProcessEvent(ctx context.Context, ev domain.Event) ([]domain.Result, error) {
	ctx, release, err := e.locker.Acquire(ctx, funnels.DealLockKey(ev.DealID))
	if err != nil {
		if errors.Is(err, keylock.ErrLockTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Conflict("deal is being updated, try again")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "acquire deal lock", err)
	}
	defer release()

	deal, err := e.deals.GetDeal(ctx, ev.DealID)
	if errors.Is(err, ErrDealNotFound) {
		return nil, apperr.NotFound("deal not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load deal", err)
	}

	snap, err := e.prefetch(ctx, deal)
	if err != nil {
		return nil, err
	}
	if err := checkEventStages(ev, snap.stages); err != nil {
		return nil, err
	}

	results := make([]domain.Result, 0)
	triggers := domain.ResolveTriggers(ev, snap.stages)
	if len(triggers) == 0 {
		return results, nil
	}

	rules, err := e.rules.ListDispatchable(ctx, deal.FunnelID, triggers)
	if err != nil {
		e.log.Error("failed to load automation rules", "error", err, "dealId", deal.ID, "funnelId", deal.FunnelID)
		return nil, apperr.Wrap(apperr.KindInternal, "load automation rules", err)
	}

	for _, rule := range rules {
		matched, err := domain.Matches(rule, ev)
		if err != nil {
			results = append(results, e.record(ctx, ev, rule, outcome{err: err}))
			continue
		}
		if !matched {
			continue
		}

		out := e.execute(ctx, ev, rule, snap)
		results = append(results, e.record(ctx, ev, rule, out))
		results = append(results, out.nested...)
	}
	return results, nil
}

func (e *Engine) prefetch(ctx context.Context, deal Deal) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		contact, err := e.contacts.GetContact(gctx, deal.ContactID)
		if errors.Is(err, ErrContactNotFound) {
			e.log.Warn("deal contact not found, templates use fallbacks", "dealId", deal.ID, "contactId", deal.ContactID)
			return nil
		}
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "load contact", err)
		}
		snap.contact = contact
		return nil
	})
	g.Go(func() error {
		funnel, err := e.funnels.GetFunnel(gctx, deal.FunnelID)
		if errors.Is(err, ErrFunnelNotFound) {
			return apperr.NotFound("funnel not found")
		}
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "load funnel", err)
		}
		snap.funnel = funnel
		return nil
	})
	g.Go(func() error {
		stages, err := e.funnels.ListStages(gctx, deal.FunnelID)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "list stages", err)
		}
		snap.stages = stages
		return nil
	})

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func checkEventStages(ev domain.Event, stages []funnels.Stage) error {
	for _, id := range []*uuid.UUID{ev.FromStageID, ev.ToStageID} {
		if id == nil {
			continue
		}
		if _, ok := funnels.FindStage(stages, *id); !ok {
			return apperr.NotFound("stage not found")
		}
	}
	return nil
}

func (e *Engine) record(ctx context.Context, ev domain.Event, rule domain.Rule, out outcome) domain.Result {
	res := domain.Result{
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		ActionType: rule.ActionType,
		Success:    out.err == nil,
		Skipped:    out.skipped,
		Depth:      ev.Depth,
	}
	if out.err != nil {
		res.Error = out.err.Error()
	}

	e.log.WithContext(ctx).AutomationOutcome(rule.ID.String(), string(rule.ActionType), res.Success, out.err)
	if e.bus != nil {
		e.bus.Publish(ctx, events.AutomationRuleExecuted{
			BaseEvent:   events.NewBaseEvent(),
			RuleID:      rule.ID,
			DealID:      ev.DealID,
			TriggerType: string(rule.TriggerType),
			ActionType:  string(rule.ActionType),
			Success:     res.Success,
			Error:       res.Error,
			Depth:       ev.Depth,
		})
	}
	return res
}
