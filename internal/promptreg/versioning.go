package promptreg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smilemakc/idis/internal/audit"
	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/idiserr"
)

// Versioning exposes promote/rollback/retire over a per-environment
// pointer file, gated by the artifact's risk_class gate requirements
// (spec §4.11).
type Versioning struct {
	store   *Store
	pointer *PointerFile
	sink    audit.Sink
}

// NewVersioning builds a Versioning service for one environment's pointer
// file.
func NewVersioning(store *Store, pointer *PointerFile, sink audit.Sink) *Versioning {
	return &Versioning{store: store, pointer: pointer, sink: sink}
}

// Promote points prompt_id at version in this environment. Every required
// gate (per artifact.RiskClass) must have a passing GateResult; missing or
// failed gates fail closed. If audit emission fails after the pointer
// write, the operation compensates by writing the prior pointer back, then
// propagates (spec §4.11).
func (v *Versioning) Promote(ctx context.Context, tenantID, actorID, promptID, version string, gateResults []domain.GateResult) error {
	artifact, _, err := v.store.Load(promptID, version)
	if err != nil {
		return err
	}
	if err := requireGatesPassed(artifact.ValidationGatesRequired, gateResults); err != nil {
		return err
	}
	return v.swapPointer(ctx, tenantID, actorID, promptID, version, "prompt.version.promoted")
}

// Rollback points prompt_id at a previously promoted version, bypassing
// gate checks (the version was already gated when first promoted).
func (v *Versioning) Rollback(ctx context.Context, tenantID, actorID, promptID, version string) error {
	if _, _, err := v.store.Load(promptID, version); err != nil {
		return err
	}
	return v.swapPointer(ctx, tenantID, actorID, promptID, version, "prompt.version.rolledback")
}

// Retire removes prompt_id's pointer in this environment without deleting
// any on-disk content — past deliverables must remain reproducible
// (spec §4.11).
func (v *Versioning) Retire(ctx context.Context, tenantID, actorID, promptID string) error {
	pointers, err := v.pointer.Read()
	if err != nil {
		return err
	}
	prior, existed := pointers[promptID]
	delete(pointers, promptID)

	if err := v.pointer.Write(pointers); err != nil {
		return err
	}
	if err := v.emit(ctx, tenantID, actorID, promptID, "", "prompt.version.retired"); err != nil {
		if existed {
			pointers[promptID] = prior
		}
		_ = v.pointer.Write(pointers) // best-effort compensation
		return err
	}
	return nil
}

func (v *Versioning) swapPointer(ctx context.Context, tenantID, actorID, promptID, version, eventType string) error {
	pointers, err := v.pointer.Read()
	if err != nil {
		return err
	}
	prior, hadPrior := pointers[promptID]
	pointers[promptID] = version

	if err := v.pointer.Write(pointers); err != nil {
		return err
	}
	if err := v.emit(ctx, tenantID, actorID, promptID, version, eventType); err != nil {
		if hadPrior {
			pointers[promptID] = prior
		} else {
			delete(pointers, promptID)
		}
		_ = v.pointer.Write(pointers) // best-effort compensation, per spec §4.11
		return err
	}
	return nil
}

func (v *Versioning) emit(ctx context.Context, tenantID, actorID, promptID, version, eventType string) error {
	event := domain.AuditEvent{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		TenantID:   tenantID,
		EventType:  eventType,
		Severity:   domain.AuditMedium,
		Summary:    fmt.Sprintf("%s: %s -> %s by %s", eventType, promptID, version, actorID),
		Actor:      domain.AuditActor{ActorID: actorID},
		Resource:   domain.AuditResource{ResourceType: "prompt", ResourceID: promptID},
		Payload:    domain.AuditPayload{Safe: map[string]any{"prompt_id": promptID, "version": version}},
	}
	if err := v.sink.Emit(ctx, event); err != nil {
		return idiserr.Wrap(idiserr.AuditEmitFailed, "promptreg: emitting "+eventType, err)
	}
	return nil
}

func requireGatesPassed(required []domain.GateID, results []domain.GateResult) error {
	passed := make(map[domain.GateID]bool, len(results))
	for _, r := range results {
		if r.Passed {
			passed[r.Gate] = true
		}
	}
	for _, gate := range required {
		if !passed[gate] {
			return idiserr.Newf(idiserr.Blocked, "promptreg: required gate %d missing or failed", gate)
		}
	}
	return nil
}
