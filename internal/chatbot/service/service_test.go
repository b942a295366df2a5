package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"funnel_backend/internal/chatbot/repository"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	flows map[uuid.UUID]repository.Flow
	execs map[uuid.UUID]repository.Execution
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{flows: map[uuid.UUID]repository.Flow{}, execs: map[uuid.UUID]repository.Execution{}}
}

func (f *fakeRepo) GetFlow(_ context.Context, id uuid.UUID) (repository.Flow, error) {
	flow, ok := f.flows[id]
	if !ok {
		return repository.Flow{}, repository.ErrNotFound
	}
	return flow, nil
}

func (f *fakeRepo) ListFlows(context.Context, uuid.UUID) ([]repository.Flow, error) {
	return nil, nil
}

func (f *fakeRepo) CreateFlow(_ context.Context, flow repository.Flow) (repository.Flow, error) {
	flow.ID = uuid.New()
	f.flows[flow.ID] = flow
	return flow, nil
}

func (f *fakeRepo) SetFlowActive(_ context.Context, orgID, id uuid.UUID, active bool) (repository.Flow, error) {
	flow, ok := f.flows[id]
	if !ok || flow.OrganizationID != orgID {
		return repository.Flow{}, repository.ErrNotFound
	}
	flow.IsActive = active
	f.flows[id] = flow
	return flow, nil
}

func (f *fakeRepo) CreateExecution(_ context.Context, e repository.Execution) (repository.Execution, error) {
	e.ID = uuid.New()
	e.Status = repository.ExecutionPending
	e.OrganizationID = f.flows[e.FlowID].OrganizationID
	f.execs[e.ID] = e
	return e, nil
}

func (f *fakeRepo) ListDealExecutions(context.Context, uuid.UUID, uuid.UUID) ([]repository.Execution, error) {
	return nil, nil
}

func (f *fakeRepo) MarkQueued(_ context.Context, id uuid.UUID) error {
	e := f.execs[id]
	e.Status = repository.ExecutionQueued
	f.execs[id] = e
	return nil
}

func (f *fakeRepo) ClaimPending(context.Context, time.Time, int) ([]repository.Execution, error) {
	return nil, nil
}

func (f *fakeRepo) ReleasePending(context.Context, uuid.UUID) error { return nil }

func (f *fakeRepo) ExpirePending(context.Context, time.Time) (int64, error) { return 0, nil }

type fakeEnqueuer struct {
	err  error
	sent []uuid.UUID
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, e repository.Execution) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, e.ID)
	return nil
}

func TestLaunchRecordsAndQueuesExecution(t *testing.T) {
	repo := newFakeRepo()
	org := uuid.New()
	flow, _ := repo.CreateFlow(context.Background(), repository.Flow{OrganizationID: org, IsActive: true})
	enq := &fakeEnqueuer{}
	svc := New(repo, repo, logger.Discard())
	svc.SetExecutionEnqueuer(enq)

	id, err := svc.Launch(context.Background(), LaunchParams{
		FlowID:         flow.ID,
		OrganizationID: org,
		DealID:         uuid.New(),
		ContactID:      uuid.New(),
		Variables:      map[string]any{"contact_name": "Ana"},
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	exec := repo.execs[id]
	if exec.Status != repository.ExecutionQueued {
		t.Fatalf("expected queued execution, got %q", exec.Status)
	}
	if exec.Variables["contact_name"] != "Ana" {
		t.Fatalf("variables not stored: %v", exec.Variables)
	}
	if len(enq.sent) != 1 || enq.sent[0] != id {
		t.Fatalf("unexpected enqueued %v", enq.sent)
	}
}

func TestLaunchEnqueueFailureLeavesPending(t *testing.T) {
	repo := newFakeRepo()
	org := uuid.New()
	flow, _ := repo.CreateFlow(context.Background(), repository.Flow{OrganizationID: org, IsActive: true})
	svc := New(repo, repo, logger.Discard())
	svc.SetExecutionEnqueuer(&fakeEnqueuer{err: errors.New("redis down")})

	id, err := svc.Launch(context.Background(), LaunchParams{FlowID: flow.ID, OrganizationID: org})
	if err != nil {
		t.Fatalf("launch should not fail on enqueue error: %v", err)
	}
	if repo.execs[id].Status != repository.ExecutionPending {
		t.Fatalf("expected pending execution, got %q", repo.execs[id].Status)
	}
}

func TestLaunchRejectsUnusableFlows(t *testing.T) {
	repo := newFakeRepo()
	org := uuid.New()
	inactive, _ := repo.CreateFlow(context.Background(), repository.Flow{OrganizationID: org, IsActive: false})
	foreign, _ := repo.CreateFlow(context.Background(), repository.Flow{OrganizationID: uuid.New(), IsActive: true})
	svc := New(repo, repo, logger.Discard())

	cases := []struct {
		name string
		flow uuid.UUID
		want error
	}{
		{"missing", uuid.New(), ErrFlowNotFound},
		{"other organization", foreign.ID, ErrFlowNotFound},
		{"inactive", inactive.ID, ErrFlowInactive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Launch(context.Background(), LaunchParams{FlowID: tc.flow, OrganizationID: org})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if len(repo.execs) != 0 {
		t.Fatalf("expected no executions, got %d", len(repo.execs))
	}
}
