// Package tenant carries the resolved tenant context through one request
// (spec §3, §5). It is created once by the authentication collaborator and
// threaded through every downstream call; nothing below the transport layer
// re-derives it.
package tenant

import (
	"context"
	"errors"
	"regexp"
	"sort"
)

var (
	errEmptyIdentity = errors.New("tenant: tenant_id and actor_id are required")
	errUnknownRole   = errors.New("tenant: unknown role")
)

// Role is a sealed set of roles known to the policy table (spec §4.2).
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleAnalyst  Role = "ANALYST"
	RoleReviewer Role = "REVIEWER"
	RoleAuditor  Role = "AUDITOR"
	RoleSystem   Role = "SYSTEM"
)

// KnownRoles enumerates every role the rule table may reference. Unknown
// role strings are rejected at ingress (spec §9: enums are sealed sum types).
var KnownRoles = map[Role]struct{}{
	RoleAdmin:    {},
	RoleAnalyst:  {},
	RoleReviewer: {},
	RoleAuditor:  {},
	RoleSystem:   {},
}

// Context is the per-request tenant/actor identity (spec §3).
type Context struct {
	TenantID   string
	ActorID    string
	Roles      map[Role]struct{}
	DataRegion string
	PolicyTags []string
}

// New constructs a Context, rejecting unknown roles (fail closed).
func New(tenantID, actorID string, roles []Role, dataRegion string, policyTags []string) (*Context, error) {
	if tenantID == "" || actorID == "" {
		return nil, errEmptyIdentity
	}
	set := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		if _, known := KnownRoles[r]; !known {
			return nil, errUnknownRole
		}
		set[r] = struct{}{}
	}
	return &Context{
		TenantID:   tenantID,
		ActorID:    actorID,
		Roles:      set,
		DataRegion: dataRegion,
		PolicyTags: append([]string(nil), policyTags...),
	}, nil
}

// HasRole reports whether the context carries the given role.
func (c *Context) HasRole(r Role) bool {
	if c == nil {
		return false
	}
	_, ok := c.Roles[r]
	return ok
}

// RoleSlice returns the roles as a stable-ordered slice, for audit payloads.
func (c *Context) RoleSlice() []string {
	out := make([]string, 0, len(c.Roles))
	for r := range c.Roles {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}

var uuidShape = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// LooksLikeUUID reports whether s has the opaque UUID shape the spec
// requires of every identifier (spec §3, §4.12).
func LooksLikeUUID(s string) bool {
	return uuidShape.MatchString(s)
}

type ctxKey struct{}

// WithContext attaches a tenant Context to a context.Context for the
// duration of one request.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext retrieves the tenant Context attached by WithContext.
func FromContext(ctx context.Context) (*Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(*Context)
	return tc, ok
}
