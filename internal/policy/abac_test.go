package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/idis/internal/tenant"
)

type fakeAssignments struct {
	assigned map[string]bool
	deals    map[string]bool
}

func (f *fakeAssignments) IsAssigned(_, actorID, dealID string) (bool, error) {
	return f.assigned[actorID+"/"+dealID], nil
}

func (f *fakeAssignments) DealExists(_, dealID string) (bool, error) {
	return f.deals[dealID], nil
}

type fakeBreakGlassValidator struct {
	claims *BreakGlassClaims
	err    error
}

func (f *fakeBreakGlassValidator) Validate(context.Context, string, *tenant.Context, string) (*BreakGlassClaims, error) {
	return f.claims, f.err
}

func TestCheckDealAccess_UnknownDeal_Denies(t *testing.T) {
	store := &fakeAssignments{deals: map[string]bool{}}
	tc := mustContext(t, tenant.RoleAnalyst)

	result, _, err := CheckDealAccess(context.Background(), store, tc, "deal-x", false, "", nil)
	require.NoError(t, err)
	assert.Equal(t, DealDeniedUnknownDeal, result)
}

func TestCheckDealAccess_AssignedActor_Allowed(t *testing.T) {
	store := &fakeAssignments{
		deals:    map[string]bool{"deal-1": true},
		assigned: map[string]bool{"actor-1/deal-1": true},
	}
	tc := mustContext(t, tenant.RoleAnalyst)

	result, _, err := CheckDealAccess(context.Background(), store, tc, "deal-1", true, "", nil)
	require.NoError(t, err)
	assert.Equal(t, DealAllowed, result)
}

func TestCheckDealAccess_AuditorMutation_Denies(t *testing.T) {
	store := &fakeAssignments{
		deals:    map[string]bool{"deal-1": true},
		assigned: map[string]bool{"actor-1/deal-1": true},
	}
	tc := mustContext(t, tenant.RoleAuditor)

	result, _, err := CheckDealAccess(context.Background(), store, tc, "deal-1", true, "", nil)
	require.NoError(t, err)
	assert.Equal(t, DealDeniedAuditorMutation, result)
}

func TestCheckDealAccess_AdminWithoutAssignment_RequiresBreakGlass(t *testing.T) {
	store := &fakeAssignments{deals: map[string]bool{"deal-1": true}}
	tc := mustContext(t, tenant.RoleAdmin)

	result, _, err := CheckDealAccess(context.Background(), store, tc, "deal-1", true, "", nil)
	require.NoError(t, err)
	assert.Equal(t, DealDeniedBreakGlassRequired, result)
}

func TestCheckDealAccess_AdminWithValidBreakGlass_Allowed(t *testing.T) {
	store := &fakeAssignments{deals: map[string]bool{"deal-1": true}}
	tc := mustContext(t, tenant.RoleAdmin)
	validator := &fakeBreakGlassValidator{claims: &BreakGlassClaims{ActorID: "actor-1"}}

	result, claims, err := CheckDealAccess(context.Background(), store, tc, "deal-1", true, "token", validator)
	require.NoError(t, err)
	assert.Equal(t, DealAllowed, result)
	assert.NotNil(t, claims)
}

func TestCheckDealAccess_UnassignedNonAdmin_Denies(t *testing.T) {
	store := &fakeAssignments{deals: map[string]bool{"deal-1": true}}
	tc := mustContext(t, tenant.RoleAnalyst)

	result, _, err := CheckDealAccess(context.Background(), store, tc, "deal-1", false, "", nil)
	require.NoError(t, err)
	assert.Equal(t, DealDeniedNoAssignment, result)
}

func TestResultToError_MapsEveryDeniedResult(t *testing.T) {
	assert.Nil(t, ResultToError(DealAllowed))
	assert.Error(t, ResultToError(DealDeniedNoAssignment))
	assert.Error(t, ResultToError(DealDeniedAuditorMutation))
	assert.Error(t, ResultToError(DealDeniedBreakGlassRequired))
	assert.Error(t, ResultToError(DealDeniedUnknownDeal))
}
