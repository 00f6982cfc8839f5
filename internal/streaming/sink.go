package streaming

import (
	"context"
	"strings"
	"time"

	"github.com/smilemakc/idis/internal/audit"
	"github.com/smilemakc/idis/internal/domain"
)

// BroadcastingSink decorates an audit.Sink: every event is still written
// through to inner unchanged, and "run.step.*" events are additionally
// fanned out to a Hub's subscribed clients. This replaces the teacher's
// SocketObserver (internal/infrastructure/websocket/observer.go), which
// bridged a monitoring.ExecutionObserver callback set onto the hub — here
// the bridge point is the audit sink the orchestrator already emits
// through, so no orchestrator-side hook is needed.
type BroadcastingSink struct {
	inner audit.Sink
	hub   Broadcaster
}

// NewBroadcastingSink wraps inner, fanning run.step.* events out to hub.
func NewBroadcastingSink(inner audit.Sink, hub Broadcaster) *BroadcastingSink {
	return &BroadcastingSink{inner: inner, hub: hub}
}

// Emit writes event through inner, then broadcasts it if it is a run-step
// event. A broadcast failure never fails the call: streaming is best
// effort, unlike the sink write itself (spec §4.1's durability guarantee
// applies only to inner).
func (s *BroadcastingSink) Emit(ctx context.Context, event domain.AuditEvent) error {
	if err := s.inner.Emit(ctx, event); err != nil {
		return err
	}
	if runEvent, ok := runEventFrom(event); ok {
		s.hub.Broadcast(event.TenantID, event.Resource.ResourceID, runEvent)
	}
	return nil
}

func runEventFrom(event domain.AuditEvent) (*RunEvent, bool) {
	const prefix = "run.step."
	if !strings.HasPrefix(event.EventType, prefix) {
		return nil, false
	}
	rest := strings.TrimPrefix(event.EventType, prefix)
	idx := strings.LastIndex(rest, ".")
	if idx < 0 {
		return nil, false
	}
	stepName, phase := rest[:idx], rest[idx+1:]

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	runEvent := &RunEvent{
		Type:      event.EventType,
		Timestamp: occurredAt,
		TenantID:  event.TenantID,
		RunID:     event.Resource.ResourceID,
		StepName:  stepName,
		Phase:     phase,
	}
	if errMsg, ok := event.Payload.Safe["error"].(string); ok {
		runEvent.Error = errMsg
	}
	return runEvent, true
}
