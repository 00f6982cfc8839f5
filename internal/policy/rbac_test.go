package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/idis/internal/tenant"
)

func mustContext(t *testing.T, roles ...tenant.Role) *tenant.Context {
	t.Helper()
	tc, err := tenant.New("tenant-1", "actor-1", roles, "us", nil)
	require.NoError(t, err)
	return tc
}

func TestRuleTable_Check_AllowsPermittedRole(t *testing.T) {
	table := NewRuleTable(map[OperationID]map[Method][]tenant.Role{
		OpClaimCreate: {MethodWrite: {tenant.RoleAnalyst}},
	})
	decision := table.Check(mustContext(t, tenant.RoleAnalyst), OpClaimCreate, MethodWrite)
	assert.True(t, decision.Allow)
}

func TestRuleTable_Check_DeniesUnknownOperation(t *testing.T) {
	table := NewRuleTable(nil)
	decision := table.Check(mustContext(t, tenant.RoleAnalyst), OperationID("unknown.op"), MethodRead)
	assert.False(t, decision.Allow)
	assert.Equal(t, "unknown operation", decision.Details)
}

func TestRuleTable_Check_DeniesEmptyRoleSet(t *testing.T) {
	table := NewRuleTable(map[OperationID]map[Method][]tenant.Role{
		OpClaimGet: {MethodRead: {tenant.RoleAnalyst}},
	})
	decision := table.Check(mustContext(t), OpClaimGet, MethodRead)
	assert.False(t, decision.Allow)
}

func TestRuleTable_Check_AuditorAlwaysDeniedOnMutation(t *testing.T) {
	table := NewRuleTable(map[OperationID]map[Method][]tenant.Role{
		OpClaimCreate: {MethodWrite: {tenant.RoleAuditor, tenant.RoleAnalyst}},
	})
	decision := table.Check(mustContext(t, tenant.RoleAuditor, tenant.RoleAnalyst), OpClaimCreate, MethodWrite)
	assert.False(t, decision.Allow)
	assert.Contains(t, decision.Details, "auditor")
}

func TestRuleTable_Check_DeniesRoleNotInAllowedSet(t *testing.T) {
	table := NewRuleTable(map[OperationID]map[Method][]tenant.Role{
		OpClaimGet: {MethodRead: {tenant.RoleReviewer}},
	})
	decision := table.Check(mustContext(t, tenant.RoleAnalyst), OpClaimGet, MethodRead)
	assert.False(t, decision.Allow)
}
