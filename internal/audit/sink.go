// Package audit implements the audit sink contract (spec §4.1, §6, §8).
// Every mutation in the core emits exactly one AuditEvent; any emission
// failure is fatal to the triggering operation (idiserr.AuditEmitFailed).
package audit

import (
	"context"

	"github.com/smilemakc/idis/internal/domain"
)

// Sink is the single append-only interface every caller emits through. It
// deliberately exposes one operation: implementations (file-backed,
// relational-backed) differ only in where the event lands.
type Sink interface {
	Emit(ctx context.Context, event domain.AuditEvent) error
}

// ValidatePayload rejects any event that places raw free text outside
// Summary: the payload may only carry safe (length/category/id) data,
// tagged hashes, and opaque refs (spec §4.1, §6).
func ValidatePayload(event domain.AuditEvent) error {
	if event.EventType == "" {
		return errMissingEventType
	}
	if event.TenantID == "" {
		return errMissingTenant
	}
	switch event.Severity {
	case domain.AuditLow, domain.AuditMedium, domain.AuditHigh, domain.AuditCritical:
	default:
		return errUnknownSeverity
	}
	for key, val := range event.Payload.Safe {
		if s, ok := val.(string); ok && looksLikeFreeText(s) {
			return newUnsafePayloadError(key)
		}
	}
	return nil
}

// looksLikeFreeText is a conservative heuristic: long, space-separated
// strings in payload.safe are most likely raw justification/free text that
// belongs in Summary instead. Short tokens (ids, categories, enums) pass.
func looksLikeFreeText(s string) bool {
	const maxSafeTokenLen = 64
	if len(s) <= maxSafeTokenLen {
		return false
	}
	spaces := 0
	for _, r := range s {
		if r == ' ' {
			spaces++
		}
	}
	return spaces > 3
}
