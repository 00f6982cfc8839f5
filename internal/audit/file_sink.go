package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/idiserr"
)

// FileSink appends one canonicalised JSON line per event to a file (spec
// §4.1, §6). It is the IDIS_AUDIT_LOG_PATH implementation. If the configured
// path is a directory (or otherwise unwritable), every Emit fails, which is
// the documented scenario 6 in spec §8 ("audit sink down").
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink builds a FileSink. It does not open the file until the first
// Emit, so a bad path only fails the operations that actually try to write.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Emit validates, canonicalises, and appends the event as one newline-
// terminated JSON object with sorted keys and no inter-element whitespace
// (spec §6 wire format).
func (s *FileSink) Emit(_ context.Context, event domain.AuditEvent) error {
	if err := ValidatePayload(event); err != nil {
		return idiserr.Wrap(idiserr.AuditEmitFailed, "audit event failed validation", err)
	}

	line, err := canonicalize(event)
	if err != nil {
		return idiserr.Wrap(idiserr.AuditEmitFailed, "audit event could not be serialised", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return idiserr.Wrap(idiserr.AuditEmitFailed, fmt.Sprintf("audit sink %q is not writable", s.path), err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return idiserr.Wrap(idiserr.AuditEmitFailed, "audit event write failed", err)
	}
	return nil
}

// canonicalEvent is the wire shape of an AuditEvent (spec §3, §6): sorted
// keys come from alphabetically-ordered struct tags plus a deterministic
// map-key sort pass for payload.safe.
type canonicalEvent struct {
	Actor      canonicalActor    `json:"actor"`
	EventID    string            `json:"event_id"`
	EventType  string            `json:"event_type"`
	OccurredAt string            `json:"occurred_at"`
	Payload    canonicalPayload  `json:"payload"`
	Request    canonicalRequest  `json:"request"`
	Resource   canonicalResource `json:"resource"`
	Severity   string            `json:"severity"`
	Summary    string            `json:"summary"`
	TenantID   string            `json:"tenant_id"`
}

type canonicalActor struct {
	ActorID   string   `json:"actor_id"`
	ActorType string   `json:"actor_type"`
	IP        string   `json:"ip,omitempty"`
	Roles     []string `json:"roles"`
	UserAgent string   `json:"user_agent,omitempty"`
}

type canonicalRequest struct {
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	Method         string `json:"method"`
	Path           string `json:"path"`
	RequestID      string `json:"request_id"`
	StatusCode     *int   `json:"status_code,omitempty"`
}

type canonicalResource struct {
	ResourceID   string `json:"resource_id"`
	ResourceType string `json:"resource_type"`
}

type canonicalPayload struct {
	Hashes []string       `json:"hashes"`
	Refs   []string       `json:"refs"`
	Safe   map[string]any `json:"safe"`
}

func canonicalize(e domain.AuditEvent) ([]byte, error) {
	roles := append([]string(nil), e.Actor.Roles...)
	sort.Strings(roles)
	hashes := append([]string(nil), e.Payload.Hashes...)
	sort.Strings(hashes)
	refs := append([]string(nil), e.Payload.Refs...)
	sort.Strings(refs)

	wire := canonicalEvent{
		Actor: canonicalActor{
			ActorID:   e.Actor.ActorID,
			ActorType: e.Actor.ActorType,
			IP:        e.Actor.IP,
			Roles:     roles,
			UserAgent: e.Actor.UserAgent,
		},
		EventID:    e.EventID,
		EventType:  e.EventType,
		OccurredAt: e.OccurredAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Payload: canonicalPayload{
			Hashes: hashes,
			Refs:   refs,
			Safe:   e.Payload.Safe,
		},
		Request: canonicalRequest{
			IdempotencyKey: e.Request.IdempotencyKey,
			Method:         e.Request.Method,
			Path:           e.Request.Path,
			RequestID:      e.Request.RequestID,
			StatusCode:     e.Request.StatusCode,
		},
		Resource: canonicalResource{
			ResourceID:   e.Resource.ResourceID,
			ResourceType: e.Resource.ResourceType,
		},
		Severity: string(e.Severity),
		Summary:  e.Summary,
		TenantID: e.TenantID,
	}

	// json.Marshal already sorts map[string]any keys; struct field order is
	// fixed alphabetically above so the output is byte-stable across runs.
	return json.Marshal(wire)
}
