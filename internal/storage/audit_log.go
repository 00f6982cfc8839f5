// Package storage holds the bun/Postgres repositories backing the core's
// persisted entities, grounded on the teacher's repository-per-entity
// pattern (service_audit_log_repo.go, workflow_repository.go): one bun.DB,
// one struct per table, ToModel/ToDomain conversions, no ORM magic beyond
// what bun itself provides.
package storage

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/idiserr"
)

// AuditLogModel is the bun row shape for audit_events (spec §3, §6).
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_events,alias:ae"`

	EventID        string         `bun:"event_id,pk"`
	TenantID       string         `bun:"tenant_id,notnull"`
	OccurredAt     time.Time      `bun:"occurred_at,notnull"`
	ActorType      string         `bun:"actor_type,notnull"`
	ActorID        string         `bun:"actor_id,notnull"`
	ActorRoles     []string       `bun:"actor_roles,array"`
	ActorIP        string         `bun:"actor_ip"`
	ActorUserAgent string         `bun:"actor_user_agent"`
	RequestID      string         `bun:"request_id"`
	Method         string         `bun:"method"`
	Path           string         `bun:"path"`
	IdempotencyKey string         `bun:"idempotency_key"`
	ResourceType   string         `bun:"resource_type,notnull"`
	ResourceID     string         `bun:"resource_id,notnull"`
	EventType      string         `bun:"event_type,notnull"`
	Severity       string         `bun:"severity,notnull"`
	Summary        string         `bun:"summary,notnull"`
	PayloadSafe    map[string]any `bun:"payload_safe,type:jsonb"`
	PayloadHashes  []string       `bun:"payload_hashes,array"`
	PayloadRefs    []string       `bun:"payload_refs,array"`
}

func auditModelFromDomain(e domain.AuditEvent) *AuditLogModel {
	return &AuditLogModel{
		EventID:        e.EventID,
		TenantID:       e.TenantID,
		OccurredAt:     e.OccurredAt,
		ActorType:      e.Actor.ActorType,
		ActorID:        e.Actor.ActorID,
		ActorRoles:     e.Actor.Roles,
		ActorIP:        e.Actor.IP,
		ActorUserAgent: e.Actor.UserAgent,
		RequestID:      e.Request.RequestID,
		Method:         e.Request.Method,
		Path:           e.Request.Path,
		IdempotencyKey: e.Request.IdempotencyKey,
		ResourceType:   e.Resource.ResourceType,
		ResourceID:     e.Resource.ResourceID,
		EventType:      e.EventType,
		Severity:       string(e.Severity),
		Summary:        e.Summary,
		PayloadSafe:    e.Payload.Safe,
		PayloadHashes:  e.Payload.Hashes,
		PayloadRefs:    e.Payload.Refs,
	}
}

// AuditLogRepo is the relational audit sink (spec §4.1): one row insert per
// event, synchronous from the caller's perspective.
type AuditLogRepo struct {
	db *bun.DB
}

// NewAuditLogRepo constructs an AuditLogRepo over an already-connected bun.DB.
func NewAuditLogRepo(db *bun.DB) *AuditLogRepo {
	return &AuditLogRepo{db: db}
}

// Emit inserts one audit_events row. Any insert error is wrapped as
// AUDIT_EMIT_FAILED so the caller's fail-closed contract (spec §4.1) holds
// regardless of which sink implementation is wired in.
func (r *AuditLogRepo) Emit(ctx context.Context, event domain.AuditEvent) error {
	model := auditModelFromDomain(event)
	if _, err := r.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return idiserr.Wrap(idiserr.AuditEmitFailed, "audit insert failed", err)
	}
	return nil
}

// FindByIdempotencyKey supports the at-most-once guarantee in spec §8:
// "idempotency key, if present, guarantees at-most-once."
func (r *AuditLogRepo) FindByIdempotencyKey(ctx context.Context, tenantID, key string) (*domain.AuditEvent, error) {
	var model AuditLogModel
	err := r.db.NewSelect().
		Model(&model).
		Where("tenant_id = ?", tenantID).
		Where("idempotency_key = ?", key).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	event := domain.AuditEvent{
		EventID:    model.EventID,
		TenantID:   model.TenantID,
		OccurredAt: model.OccurredAt,
		Actor: domain.AuditActor{
			ActorType: model.ActorType,
			ActorID:   model.ActorID,
			Roles:     model.ActorRoles,
			IP:        model.ActorIP,
			UserAgent: model.ActorUserAgent,
		},
		Request: domain.AuditRequest{
			RequestID:      model.RequestID,
			Method:         model.Method,
			Path:           model.Path,
			IdempotencyKey: model.IdempotencyKey,
		},
		Resource: domain.AuditResource{
			ResourceType: model.ResourceType,
			ResourceID:   model.ResourceID,
		},
		EventType: model.EventType,
		Severity:  domain.AuditSeverity(model.Severity),
		Summary:   model.Summary,
		Payload: domain.AuditPayload{
			Safe:   model.PayloadSafe,
			Hashes: model.PayloadHashes,
			Refs:   model.PayloadRefs,
		},
	}
	return &event, nil
}
