// Package saga implements the dual-write saga executor (spec §4.7): any
// write that must land in both relational storage and a graph projection
// is described as an ordered list of forward/compensation step pairs and
// run through this executor. The executor never touches a database
// itself — callers inject the concrete actions, the same separation the
// teacher's DAG executor keeps between orchestration and node handlers
// (backend/internal/application/engine/dag_executor.go).
package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/smilemakc/idis/internal/audit"
	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/idiserr"
)

// StepStatus is one step's lifecycle state (spec §4.7).
type StepStatus string

const (
	StepPending     StepStatus = "PENDING"
	StepCompleted   StepStatus = "COMPLETED"
	StepFailed      StepStatus = "FAILED"
	StepCompensated StepStatus = "COMPENSATED"
)

// SagaStatus is the overall saga outcome.
type SagaStatus string

const (
	SagaCompleted           SagaStatus = "COMPLETED"
	SagaCompensated         SagaStatus = "COMPENSATED"
	SagaCompensationFailed  SagaStatus = "COMPENSATION_FAILED"
)

// StepResult records one step's terminal state.
type StepResult struct {
	Name   string
	Status StepStatus
	Result map[string]any
	Err    error
}

// Step is one forward action with its reverse compensation. Forward
// receives the shared context map and returns entries that Run merges into
// it; Compensate receives the same shared map as it stands when
// compensation runs.
type Step struct {
	Name       string
	Forward    func(ctx context.Context, state map[string]any) (map[string]any, error)
	Compensate func(ctx context.Context, state map[string]any) error
}

// Saga is an ordered list of steps. Executor.Run creates one shared mutable
// context map per run and threads it through them, letting later steps read
// ids produced by earlier ones (spec §4.7).
type Saga struct {
	TenantID string
	DealID   string
	Name     string
	Steps    []Step
}

// Outcome is the saga executor's result.
type Outcome struct {
	Status SagaStatus
	Steps  []StepResult
	State  map[string]any
}

// Executor runs sagas and emits the saga-level audit events spec §4.7
// requires on compensation failure.
type Executor struct {
	sink audit.Sink
}

// NewExecutor builds an Executor. sink is used only for the
// COMPENSATION_FAILED audit event; step-level audit emission, if any, is
// the caller's responsibility inside its step actions.
func NewExecutor(sink audit.Sink) *Executor {
	return &Executor{sink: sink}
}

// Run executes s's steps in order. If step k fails, compensations for
// steps k-1..0 run in reverse order. A compensation failure puts the saga
// into COMPENSATION_FAILED and emits a dedicated audit event; the
// operator must manually reconcile (spec §4.7).
func (e *Executor) Run(ctx context.Context, s Saga) (Outcome, error) {
	state := map[string]any{}
	results := make([]StepResult, 0, len(s.Steps))

	failedAt := -1
	for i, step := range s.Steps {
		log.Debug().Str("saga", s.Name).Str("step", step.Name).Str("deal_id", s.DealID).Msg("running forward step")
		out, err := step.Forward(ctx, state)
		if err != nil {
			log.Warn().Str("saga", s.Name).Str("step", step.Name).Err(err).Msg("forward step failed, compensating")
			results = append(results, StepResult{Name: step.Name, Status: StepFailed, Err: err})
			failedAt = i
			break
		}
		for k, v := range out {
			state[k] = v
		}
		results = append(results, StepResult{Name: step.Name, Status: StepCompleted, Result: out})
	}

	if failedAt == -1 {
		return Outcome{Status: SagaCompleted, Steps: results, State: state}, nil
	}

	for i := failedAt - 1; i >= 0; i-- {
		step := s.Steps[i]
		if step.Compensate == nil {
			continue
		}
		log.Debug().Str("saga", s.Name).Str("step", step.Name).Msg("running compensation")
		if err := step.Compensate(ctx, state); err != nil {
			log.Error().Str("saga", s.Name).Str("step", step.Name).Err(err).Msg("compensation failed, manual reconciliation required")
			results[i].Status = StepFailed
			if emitErr := e.emitCompensationFailed(ctx, s, step.Name, err); emitErr != nil {
				return Outcome{Status: SagaCompensationFailed, Steps: results, State: state},
					idiserr.Wrap(idiserr.AuditEmitFailed, "saga: compensation failed and its audit event could not be emitted", emitErr)
			}
			return Outcome{Status: SagaCompensationFailed, Steps: results, State: state},
				idiserr.Newf(idiserr.SagaCompensationFailed, "saga %q: compensation for step %q failed: %v", s.Name, step.Name, err)
		}
		results[i].Status = StepCompensated
	}

	return Outcome{Status: SagaCompensated, Steps: results, State: state},
		idiserr.Newf(idiserr.SagaCompensated, "saga %q: step %q failed, all prior steps compensated", s.Name, s.Steps[failedAt].Name)
}

func (e *Executor) emitCompensationFailed(ctx context.Context, s Saga, stepName string, cause error) error {
	event := domain.AuditEvent{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		TenantID:   s.TenantID,
		Resource:   domain.AuditResource{ResourceType: "DEAL", ResourceID: s.DealID},
		EventType:  "saga.compensation.failed",
		Severity:   domain.AuditCritical,
		Summary:    fmt.Sprintf("saga %q compensation for step %q failed: requires manual reconciliation", s.Name, stepName),
		Payload: domain.AuditPayload{
			Safe: map[string]any{
				"saga_name": s.Name,
				"deal_id":   s.DealID,
				"step":      stepName,
				"cause":     cause.Error(),
			},
		},
	}
	return e.sink.Emit(ctx, event)
}
