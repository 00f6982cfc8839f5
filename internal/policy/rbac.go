// Package policy implements RBAC, ABAC, and break-glass access control
// (spec §4.2). The RBAC table is read-mostly, process-wide state (spec §5),
// so its lookups use xsync's lock-light concurrent map rather than a
// sync.RWMutex-guarded one. ABAC reads assignments through its
// AssignmentStore and keeps no cache of its own.
package policy

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/smilemakc/idis/internal/idiserr"
	"github.com/smilemakc/idis/internal/tenant"
)

// Method is an HTTP-shaped verb used only to key the rule table; the core
// does not parse HTTP itself (spec §6).
type Method string

const (
	MethodRead   Method = "READ"
	MethodWrite  Method = "WRITE"
	MethodDelete Method = "DELETE"
)

func (m Method) isMutation() bool { return m == MethodWrite || m == MethodDelete }

// OperationID names one operation in the published inventory (spec §4.2).
type OperationID string

// ruleKey is the (operation, method) key into the rule table.
type ruleKey struct {
	op     OperationID
	method Method
}

// RuleTable is the central operation_id -> permitted-roles map. It is a
// strict superset and subset of the published operation inventory
// (enforced by a build-time test, spec §4.2).
type RuleTable struct {
	rules *xsync.MapOf[ruleKey, map[tenant.Role]struct{}]
}

// NewRuleTable builds a RuleTable from a static rule set, the only mutation
// path the rules ever take (startup-time, per spec §5 shared-resource
// discipline: "Mutations ... go through a dedicated admin path").
func NewRuleTable(rules map[OperationID]map[Method][]tenant.Role) *RuleTable {
	t := &RuleTable{rules: xsync.NewMapOf[ruleKey, map[tenant.Role]struct{}]()}
	for op, byMethod := range rules {
		for method, roles := range byMethod {
			set := make(map[tenant.Role]struct{}, len(roles))
			for _, r := range roles {
				set[r] = struct{}{}
			}
			t.rules.Store(ruleKey{op, method}, set)
		}
	}
	return t
}

// Decision is the result of a policy check (spec §4.2).
type Decision struct {
	Allow   bool
	Code    string
	Details string
}

// Check evaluates RBAC for (operation, method) against the actor's roles.
// Deny-by-default: unknown operation denies, empty role set denies, and the
// auditor role is read-only regardless of any other role held.
func (t *RuleTable) Check(tc *tenant.Context, op OperationID, method Method) Decision {
	if tc == nil || len(tc.Roles) == 0 {
		return Decision{Allow: false, Code: string(idiserr.RBACDenied), Details: "empty role set"}
	}
	if method.isMutation() && tc.HasRole(tenant.RoleAuditor) {
		return Decision{Allow: false, Code: string(idiserr.RBACDenied), Details: "auditor role is read-only regardless of other roles held"}
	}
	allowed, ok := t.rules.Load(ruleKey{op, method})
	if !ok {
		return Decision{Allow: false, Code: string(idiserr.RBACDenied), Details: "unknown operation"}
	}
	for role := range tc.Roles {
		if _, ok := allowed[role]; ok {
			return Decision{Allow: true, Code: "OK"}
		}
	}
	return Decision{Allow: false, Code: string(idiserr.RBACDenied), Details: "role not permitted for operation"}
}

// Operations returns the set of (operation, method) pairs registered in the
// table. The inventory-drift test checks DefaultRules directly and does not
// call it.
func (t *RuleTable) Operations() map[OperationID][]Method {
	out := make(map[OperationID][]Method)
	t.rules.Range(func(k ruleKey, _ map[tenant.Role]struct{}) bool {
		out[k.op] = append(out[k.op], k.method)
		return true
	})
	return out
}
