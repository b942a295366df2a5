package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"funnel_backend/internal/automation/domain"
	"funnel_backend/internal/events"
	funnels "funnel_backend/internal/funnels/domain"
	"funnel_backend/platform/phone"
	"funnel_backend/platform/sanitize"
)

var (
	errUnknownAction    = errors.New("unknown action type")
	errHopLimit         = errors.New("automation hop limit exceeded")
	errMoverUnavailable = errors.New("stage mover is not configured")
)

// outcome is what an action handler reports back to the dispatcher.
type outcome struct {
	skipped bool
	err     error
	nested  []domain.Result
}

func done() outcome { return outcome{} }

func skippedOutcome() outcome { return outcome{skipped: true} }

func failed(err error) outcome { return outcome{err: err} }

func failedf(format string, args ...any) outcome {
	return outcome{err: fmt.Errorf(format, args...)}
}

// run is the per-rule execution context.
type run struct {
	ev      domain.Event
	rule    domain.Rule
	deal    Deal
	contact Contact
	funnel  funnels.Funnel
	stages  []funnels.Stage
}

func (r run) templateData() domain.TemplateData {
	data := domain.TemplateData{
		ContactName:  r.contact.Name,
		ContactPhone: phone.NormalizeE164(r.contact.Phone),
		ContactEmail: r.contact.Email,
		DealValue:    r.deal.Value,
		DealTitle:    r.deal.Title,
		FunnelName:   r.funnel.Name,
	}
	if stage, ok := funnels.FindStage(r.stages, r.deal.StageID); ok {
		data.StageName = stage.Name
	}
	return data
}

func (r run) interpolate(template string) string {
	return domain.Interpolate(template, r.templateData())
}

func (e *Engine) execute(ctx context.Context, ev domain.Event, rule domain.Rule, snap snapshot) outcome {
	cfg, err := domain.DecodeActionConfig(rule.ActionType, rule.ActionConfig)
	if errors.Is(err, domain.ErrUnknownActionType) {
		return failed(errUnknownAction)
	}
	if err != nil {
		return failed(err)
	}

	// Earlier rules of the same event may have moved or edited the deal.
	deal, err := e.deals.GetDeal(ctx, ev.DealID)
	if err != nil {
		return failedf("load deal: %v", err)
	}

	r := run{ev: ev, rule: rule, deal: deal, contact: snap.contact, funnel: snap.funnel, stages: snap.stages}

	switch c := cfg.(type) {
	case domain.SendMessageConfig:
		return e.sendMessage(ctx, r, c)
	case domain.SendTemplateConfig:
		e.log.Info("send_template is not wired to a provider, skipping", "ruleId", rule.ID, "templateId", c.TemplateID)
		return skippedOutcome()
	case domain.AddTagConfig:
		return e.addTag(ctx, r, c)
	case domain.RemoveTagConfig:
		return e.removeTag(ctx, r, c)
	case domain.MoveStageConfig:
		return e.moveStage(ctx, r, c)
	case domain.NotifyUserConfig:
		return e.notifyUser(ctx, r, c)
	case domain.TriggerChatbotFlowConfig:
		return e.triggerChatbotFlow(ctx, r, c)
	case domain.SetCustomFieldConfig:
		err := e.deals.SetCustomField(ctx, deal.ID, c.FieldKey, r.interpolate(c.FieldValue))
		return e.bestEffort(r, "set custom field", err)
	case domain.SetDealValueConfig:
		err := e.deals.SetValue(ctx, deal.ID, *c.Value)
		return e.bestEffort(r, "set deal value", err)
	case domain.ChangeResponsibleConfig:
		err := e.deals.SetAssignedUser(ctx, deal.ID, c.UserID)
		return e.bestEffort(r, "change responsible", err)
	case domain.AddNoteConfig:
		return e.addNote(ctx, r, c)
	case domain.WebhookRequestConfig:
		return e.webhook(ctx, r, c)
	case domain.CreateTaskConfig:
		return e.createTask(ctx, r, c)
	case domain.CloseDealConfig:
		return e.closeDeal(ctx, r, c)
	default:
		return failed(errUnknownAction)
	}
}

// noop reports an action that had nothing to act on: a failure in strict
// mode, a skipped success otherwise.
func (e *Engine) noop(r run, reason string) outcome {
	if e.cfg.StrictMode {
		return failed(errors.New(reason))
	}
	e.log.Info("automation action had no effect", "ruleId", r.rule.ID, "actionType", r.rule.ActionType, "reason", reason)
	return skippedOutcome()
}

// bestEffort handles field writes that lenient mode reports as successful
// even when the write fails.
func (e *Engine) bestEffort(r run, op string, err error) outcome {
	if err == nil {
		return done()
	}
	if e.cfg.StrictMode {
		return failedf("%s: %v", op, err)
	}
	e.log.Warn("automation write failed", "ruleId", r.rule.ID, "dealId", r.deal.ID, "operation", op, "error", err)
	return done()
}

func (e *Engine) sendMessage(ctx context.Context, r run, c domain.SendMessageConfig) outcome {
	text := r.interpolate(c.Message)
	if e.messenger == nil {
		e.log.Info("messaging is not configured, message not sent", "ruleId", r.rule.ID, "dealId", r.deal.ID)
		return skippedOutcome()
	}
	if strings.TrimSpace(r.contact.Phone) == "" {
		return failed(errors.New("contact has no phone number"))
	}
	if err := e.messenger.SendMessage(ctx, r.contact.Phone, text); err != nil {
		return failedf("send message: %v", err)
	}
	return done()
}

func (e *Engine) addTag(ctx context.Context, r run, c domain.AddTagConfig) outcome {
	if err := e.contacts.AddTag(ctx, r.deal.OrganizationID, r.deal.ContactID, strings.TrimSpace(c.TagName)); err != nil {
		return failedf("add tag: %v", err)
	}
	return done()
}

func (e *Engine) removeTag(ctx context.Context, r run, c domain.RemoveTagConfig) outcome {
	removed, err := e.contacts.RemoveTag(ctx, r.deal.OrganizationID, r.deal.ContactID, strings.TrimSpace(c.TagName))
	if err != nil {
		return failedf("remove tag: %v", err)
	}
	if !removed {
		return e.noop(r, fmt.Sprintf("tag %q not found", c.TagName))
	}
	return done()
}

func (e *Engine) moveStage(ctx context.Context, r run, c domain.MoveStageConfig) outcome {
	if r.deal.StageID == c.TargetStageID {
		return skippedOutcome()
	}
	return e.move(ctx, r, MoveRequest{
		DealID:    r.deal.ID,
		ToStageID: c.TargetStageID,
		Note:      "moved automatically by: " + r.rule.Name,
	})
}

func (e *Engine) closeDeal(ctx context.Context, r run, c domain.CloseDealConfig) outcome {
	polarity := funnels.FinalLost
	if c.Won() {
		polarity = funnels.FinalWon
	}
	target, ok := funnels.FindTerminalStage(r.stages, polarity)
	if !ok {
		return e.noop(r, fmt.Sprintf("funnel has no %s stage", polarity))
	}
	if r.deal.StageID == target.ID {
		return skippedOutcome()
	}

	note := strings.TrimSpace(c.Note)
	if note == "" {
		note = "closed automatically by: " + r.rule.Name
	}
	return e.move(ctx, r, MoveRequest{
		DealID:        r.deal.ID,
		ToStageID:     target.ID,
		Note:          r.interpolate(note),
		CloseReasonID: c.CloseReasonID,
	})
}

// move re-enters the stage state machine one hop deeper than the event.
func (e *Engine) move(ctx context.Context, r run, req MoveRequest) outcome {
	if r.ev.Depth >= e.cfg.MaxHops {
		e.log.Warn("automation hop limit reached, move aborted",
			"ruleId", r.rule.ID, "dealId", r.deal.ID, "depth", r.ev.Depth, "maxHops", e.cfg.MaxHops)
		return failed(errHopLimit)
	}
	if e.mover == nil {
		return failed(errMoverUnavailable)
	}

	req.RuleID = r.rule.ID
	req.Depth = r.ev.Depth + 1
	nested, err := e.mover.MoveStage(ctx, req)
	if err != nil {
		return outcome{err: fmt.Errorf("move stage: %w", err), nested: nested}
	}
	return outcome{nested: nested}
}

func (e *Engine) notifyUser(ctx context.Context, r run, c domain.NotifyUserConfig) outcome {
	body := r.interpolate(c.Message)
	to := strings.TrimSpace(c.Email)
	if e.notifier == nil || to == "" {
		e.log.Info("owner notification", "ruleId", r.rule.ID, "dealId", r.deal.ID, "message", body)
		return skippedOutcome()
	}
	err := e.notifier.Notify(ctx, Notification{
		To:      to,
		Subject: fmt.Sprintf("%s: %s", r.rule.Name, r.deal.Title),
		Body:    body,
	})
	if err != nil {
		return failedf("notify user: %v", err)
	}
	return done()
}

func (e *Engine) triggerChatbotFlow(ctx context.Context, r run, c domain.TriggerChatbotFlowConfig) outcome {
	_, err := e.chatbot.Launch(ctx, FlowLaunch{
		FlowID:           c.FlowID,
		OrganizationID:   r.deal.OrganizationID,
		DealID:           r.deal.ID,
		ContactID:        r.deal.ContactID,
		AutomationRuleID: r.rule.ID,
		Variables: map[string]any{
			"deal_id":       r.deal.ID.String(),
			"contact_id":    r.deal.ContactID.String(),
			"funnel_id":     r.deal.FunnelID.String(),
			"stage_id":      r.deal.StageID.String(),
			"contact_name":  r.contact.Name,
			"contact_phone": phone.NormalizeE164(r.contact.Phone),
			"deal_value":    r.deal.Value,
		},
	})
	switch {
	case errors.Is(err, ErrFlowNotFound), errors.Is(err, ErrFlowInactive):
		return failed(err)
	case err != nil:
		return failedf("start chatbot flow: %v", err)
	}
	return done()
}

func (e *Engine) addNote(ctx context.Context, r run, c domain.AddNoteConfig) outcome {
	body := sanitize.Plain(r.interpolate(c.Content))
	if body == "" {
		return failed(errors.New("note is empty after interpolation"))
	}
	err := e.notes.AddNote(ctx, NewNote{
		OrganizationID:   r.deal.OrganizationID,
		DealID:           r.deal.ID,
		ContactID:        r.deal.ContactID,
		Body:             body,
		AutomationRuleID: r.rule.ID,
	})
	if err != nil {
		return failedf("add note: %v", err)
	}
	return done()
}

func (e *Engine) createTask(ctx context.Context, r run, c domain.CreateTaskConfig) outcome {
	title := sanitize.Truncate(sanitize.Plain(r.interpolate(c.Title)), 200)
	dueAt := e.now().AddDate(0, 0, c.DueDays)

	taskID, err := e.tasks.CreateTask(ctx, NewTask{
		OrganizationID:   r.deal.OrganizationID,
		DealID:           r.deal.ID,
		ContactID:        r.deal.ContactID,
		AssigneeID:       r.deal.AssignedUserID,
		Title:            title,
		Description:      sanitize.Plain(r.interpolate(c.Description)),
		DueAt:            dueAt,
		AutomationRuleID: r.rule.ID,
	})
	if err != nil {
		return failedf("create task: %v", err)
	}

	if e.bus != nil {
		e.bus.Publish(ctx, events.DealTaskCreated{
			BaseEvent:      events.NewBaseEvent(),
			TaskID:         taskID,
			DealID:         r.deal.ID,
			OrganizationID: r.deal.OrganizationID,
			AssigneeID:     r.deal.AssignedUserID,
			Title:          title,
		})
	}
	if e.reminders != nil {
		if err := e.reminders.ScheduleTaskReminder(ctx, taskID, r.deal.OrganizationID, dueAt); err != nil {
			e.log.Warn("failed to schedule task reminder", "taskId", taskID, "error", err)
		}
	}
	return done()
}
