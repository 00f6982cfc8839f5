package audit

import (
	"errors"
	"fmt"
)

var (
	errMissingEventType = errors.New("audit: event_type is required")
	errMissingTenant    = errors.New("audit: tenant_id is required")
	errUnknownSeverity  = errors.New("audit: unknown severity")
)

func newUnsafePayloadError(key string) error {
	return fmt.Errorf("audit: payload.safe[%q] looks like raw free text, not a safe category/id value", key)
}
