package policy

import (
	"context"

	"github.com/smilemakc/idis/internal/idiserr"
	"github.com/smilemakc/idis/internal/tenant"
)

// DealAccessResult is the sealed ABAC decision enum (spec §4.2).
type DealAccessResult string

const (
	DealAllowed                 DealAccessResult = "ALLOWED"
	DealDeniedNoAssignment      DealAccessResult = "DENIED_NO_ASSIGNMENT"
	DealDeniedAuditorMutation   DealAccessResult = "DENIED_AUDITOR_MUTATION"
	DealDeniedBreakGlassRequired DealAccessResult = "DENIED_BREAK_GLASS_REQUIRED"
	DealDeniedUnknownDeal       DealAccessResult = "DENIED_UNKNOWN_DEAL"
)

// AssignmentStore resolves per-deal actor assignments. Spec §9 replaces the
// source's module-global `_deal_assignment_store` with an explicit,
// constructor-injected service.
type AssignmentStore interface {
	// IsAssigned reports whether actorID is assigned to dealID within tenantID.
	IsAssigned(tenantID, actorID, dealID string) (bool, error)
	// DealExists reports whether dealID is known within tenantID.
	DealExists(tenantID, dealID string) (bool, error)
}

// BreakGlassValidator validates a presented break-glass token (spec §4.2).
type BreakGlassValidator interface {
	Validate(ctx context.Context, token string, tc *tenant.Context, dealID string) (*BreakGlassClaims, error)
}

// CheckDealAccess implements spec §4.2's check_deal_access: assigned actors
// pass; admins without an assignment pass only with a valid break-glass
// token; auditors never pass for mutations; unknown deals deny.
func CheckDealAccess(
	ctx context.Context,
	assignments AssignmentStore,
	tc *tenant.Context,
	dealID string,
	isMutation bool,
	breakGlassToken string,
	breakGlass BreakGlassValidator,
) (DealAccessResult, *BreakGlassClaims, error) {
	exists, err := assignments.DealExists(tc.TenantID, dealID)
	if err != nil {
		return "", nil, err
	}
	if !exists {
		return DealDeniedUnknownDeal, nil, nil
	}

	if isMutation && tc.HasRole(tenant.RoleAuditor) {
		return DealDeniedAuditorMutation, nil, nil
	}

	assigned, err := assignments.IsAssigned(tc.TenantID, tc.ActorID, dealID)
	if err != nil {
		return "", nil, err
	}
	if assigned {
		return DealAllowed, nil, nil
	}

	if tc.HasRole(tenant.RoleAdmin) {
		if breakGlassToken == "" {
			return DealDeniedBreakGlassRequired, nil, nil
		}
		claims, err := breakGlass.Validate(ctx, breakGlassToken, tc, dealID)
		if err != nil {
			return DealDeniedBreakGlassRequired, nil, nil
		}
		return DealAllowed, claims, nil
	}

	return DealDeniedNoAssignment, nil, nil
}

// ResultToError maps a denied DealAccessResult to an idiserr.Error.
func ResultToError(result DealAccessResult) error {
	switch result {
	case DealAllowed:
		return nil
	case DealDeniedNoAssignment:
		return idiserr.New(idiserr.ABACDeniedNoAssignment, "actor has no assignment for this deal")
	case DealDeniedAuditorMutation:
		return idiserr.New(idiserr.ABACDeniedAuditor, "auditor role may not mutate deal data")
	case DealDeniedBreakGlassRequired:
		return idiserr.New(idiserr.ABACDeniedBreakGlass, "a valid break-glass token is required")
	case DealDeniedUnknownDeal:
		return idiserr.New(idiserr.ABACDeniedUnknownDeal, "unknown deal")
	default:
		return idiserr.New(idiserr.ABACDeniedNoAssignment, "access denied")
	}
}
