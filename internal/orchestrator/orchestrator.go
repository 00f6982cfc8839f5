// Package orchestrator drives a run through its canonical step sequence
// (spec §4.8). It owns no business logic: each step's handler is supplied
// by the caller, the same separation the teacher's DAG executor keeps
// between wave traversal and node execution
// (backend/internal/application/engine/dag_executor.go).
package orchestrator

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

// StepHandler runs one named step's business logic. It receives the
// running context (merged result_summary values from prior steps) and
// returns the summary to merge forward.
type StepHandler func(ctx context.Context, run domain.Run, state map[string]any) (map[string]any, error)

// Ledger is the durable per-(run_id, step) state store (spec §4.8).
// The caller supplies the implementation; internal/storage has none.
type Ledger interface {
	Get(ctx context.Context, runID, stepName string) (*domain.RunStep, error)
	Upsert(ctx context.Context, step domain.RunStep) error
}

// Orchestrator drives runs through SequenceFor(mode), dispatching to
// caller-supplied handlers and recording every transition in the ledger.
type Orchestrator struct {
	ledger   Ledger
	sink     audit.Sink
	handlers map[string]StepHandler
	blocked  map[string]string // step name -> block_reason, for steps declared but not implemented
}

// New builds an Orchestrator. handlers maps a step name to its business
// logic; blocked maps a declared-but-unimplemented step name to a stable
// block_reason (spec §4.8 rule 7).
func New(ledger Ledger, sink audit.Sink, handlers map[string]StepHandler, blocked map[string]string) *Orchestrator {
	return &Orchestrator{ledger: ledger, sink: sink, handlers: handlers, blocked: blocked}
}

// Execute runs (or resumes) run through its canonical step sequence.
// Calling Execute again with the same run_id reconstructs state from the
// ledger and picks up where it stopped (spec §4.8).
func (o *Orchestrator) Execute(ctx context.Context, run domain.Run) (domain.RunStatus, error) {
	sequence := domain.SequenceFor(run.Mode)
	state := map[string]any{}

	var anyCompleted, anyFailed, anyBlocked bool

	for order, stepName := range sequence {
		existing, err := o.ledger.Get(ctx, run.RunID, stepName)
		if err != nil {
			return domain.RunFailed, fmt.Errorf("orchestrator: reading ledger for step %q: %w", stepName, err)
		}
		if existing != nil && existing.Status == domain.StepCompleted {
			mergeInto(state, existing.ResultSummary)
			anyCompleted = true
			continue
		}

		if reason, isBlocked := o.blocked[stepName]; isBlocked {
			log.Warn().Str("run_id", run.RunID).Str("step", stepName).Str("reason", reason).Msg("step blocked, not yet implemented")
			if err := o.recordBlocked(ctx, run, stepName, order, reason); err != nil {
				return domain.RunFailed, err
			}
			anyBlocked = true
			break
		}

		handler, ok := o.handlers[stepName]
		if !ok {
			return domain.RunFailed, idiserr.Newf(idiserr.InvalidInput, "%s_fn not provided", stepName)
		}

		retryCount := 0
		if existing != nil {
			retryCount = existing.RetryCount + 1
		}
		started := time.Now().UTC()
		if err := o.recordRunning(ctx, run, stepName, order, retryCount, started); err != nil {
			return domain.RunFailed, err
		}
		if err := o.emitStep(ctx, run, stepName, "started", nil); err != nil {
			return domain.RunFailed, err
		}
		log.Debug().Str("run_id", run.RunID).Str("step", stepName).Int("order", order).Int("retry", retryCount).Msg("dispatching step")

		summary, handlerErr := handler(ctx, run, state)
		finished := time.Now().UTC()

		if handlerErr != nil {
			log.Warn().Str("run_id", run.RunID).Str("step", stepName).Err(handlerErr).Msg("step failed")
			if err := o.recordFailed(ctx, run, stepName, order, retryCount, started, finished, handlerErr); err != nil {
				return domain.RunFailed, err
			}
			if err := o.emitStep(ctx, run, stepName, "failed", map[string]any{"error": handlerErr.Error()}); err != nil {
				return domain.RunFailed, err
			}
			anyFailed = true
			break
		}

		log.Debug().Str("run_id", run.RunID).Str("step", stepName).Dur("elapsed", finished.Sub(started)).Msg("step completed")
		if err := o.recordCompleted(ctx, run, stepName, order, retryCount, started, finished, summary); err != nil {
			return domain.RunFailed, err
		}
		if err := o.emitStep(ctx, run, stepName, "completed", summary); err != nil {
			return domain.RunFailed, err
		}
		mergeInto(state, summary)
		anyCompleted = true
	}

	switch {
	case anyBlocked:
		return domain.RunBlocked, nil
	case anyFailed && anyCompleted:
		return domain.RunPartial, nil
	case anyFailed:
		return domain.RunFailed, nil
	default:
		return domain.RunCompleted, nil
	}
}

func (o *Orchestrator) recordRunning(ctx context.Context, run domain.Run, stepName string, order, retryCount int, started time.Time) error {
	return o.ledger.Upsert(ctx, domain.RunStep{
		RunID: run.RunID, TenantID: run.TenantID, StepName: stepName, StepOrder: order,
		Status: domain.StepRunning, StartedAt: started, RetryCount: retryCount,
	})
}

func (o *Orchestrator) recordCompleted(ctx context.Context, run domain.Run, stepName string, order, retryCount int, started, finished time.Time, summary map[string]any) error {
	return o.ledger.Upsert(ctx, domain.RunStep{
		RunID: run.RunID, TenantID: run.TenantID, StepName: stepName, StepOrder: order,
		Status: domain.StepCompleted, StartedAt: started, FinishedAt: &finished,
		RetryCount: retryCount, ResultSummary: summary,
	})
}

func (o *Orchestrator) recordFailed(ctx context.Context, run domain.Run, stepName string, order, retryCount int, started, finished time.Time, handlerErr error) error {
	return o.ledger.Upsert(ctx, domain.RunStep{
		RunID: run.RunID, TenantID: run.TenantID, StepName: stepName, StepOrder: order,
		Status: domain.StepFailed, StartedAt: started, FinishedAt: &finished,
		RetryCount: retryCount, ErrorCode: errorCode(handlerErr), ErrorMessage: truncate(handlerErr.Error(), 500),
	})
}

// recordBlocked inserts a BLOCKED row for a step declared in the sequence
// but not yet in the implemented set. Audit events for started/completed/
// failed are the run's only observable side effects beyond ledger writes
// (spec §4.8); a blocked step is a ledger-only transition.
func (o *Orchestrator) recordBlocked(ctx context.Context, run domain.Run, stepName string, order int, reason string) error {
	now := time.Now().UTC()
	if err := o.ledger.Upsert(ctx, domain.RunStep{
		RunID: run.RunID, TenantID: run.TenantID, StepName: stepName, StepOrder: order,
		Status: domain.StepBlocked, StartedAt: now, FinishedAt: &now, ErrorCode: "BLOCKED", ErrorMessage: reason,
	}); err != nil {
		return fmt.Errorf("orchestrator: recording blocked step %q: %w", stepName, err)
	}
	return nil
}

func (o *Orchestrator) emitStep(ctx context.Context, run domain.Run, stepName, phase string, summary map[string]any) error {
	safe := map[string]any{"step": stepName, "phase": phase}
	for k, v := range summary {
		safe[k] = v
	}
	event := domain.AuditEvent{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		TenantID:   run.TenantID,
		EventType:  fmt.Sprintf("run.step.%s.%s", stepName, phase),
		Severity:   domain.AuditLow,
		Summary:    fmt.Sprintf("run %s step %s %s", run.RunID, stepName, phase),
		Resource:   domain.AuditResource{ResourceType: "run", ResourceID: run.RunID},
		Payload:    domain.AuditPayload{Safe: safe},
	}
	if err := o.sink.Emit(ctx, event); err != nil {
		return idiserr.Wrap(idiserr.AuditEmitFailed, fmt.Sprintf("orchestrator: emitting %s for step %q", phase, stepName), err)
	}
	return nil
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

func errorCode(err error) string {
	if kind, ok := idiserr.KindOf(err); ok {
		return string(kind)
	}
	return "ERROR"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
