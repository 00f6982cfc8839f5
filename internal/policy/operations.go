package policy

import "github.com/smilemakc/idis/internal/tenant"

// Published operation inventory (spec §4.2): the rule table built from
// DefaultRules must be an exact match for this set, checked by
// TestDefaultRules_MatchesPublishedInventory.
const (
	OpClaimCreate    OperationID = "claim.create"
	OpClaimGrade     OperationID = "claim.grade"
	OpClaimGet       OperationID = "claim.get"
	OpClaimList      OperationID = "claim.list"
	OpRunStart       OperationID = "run.start"
	OpRunGet         OperationID = "run.get"
	OpDeliverableGen OperationID = "deliverable.generate"
	OpDeliverableGet OperationID = "deliverable.get"
	OpPromptPublish  OperationID = "prompt_registry.publish"
	OpObjectPut      OperationID = "object.put"
	OpObjectGet      OperationID = "object.get"
)

// PublishedOperations lists every OperationID DefaultRules must cover,
// neither more nor less.
var PublishedOperations = []OperationID{
	OpClaimCreate, OpClaimGrade, OpClaimGet, OpClaimList,
	OpRunStart, OpRunGet,
	OpDeliverableGen, OpDeliverableGet,
	OpPromptPublish,
	OpObjectPut, OpObjectGet,
}

// DefaultRules is the central rule table (spec §4.2): analysts and admins
// mutate, reviewers and auditors only read, system accounts may also grade
// claims, generate deliverables and put objects; run.start admits analysts
// and admins only.
func DefaultRules() map[OperationID]map[Method][]tenant.Role {
	readers := []tenant.Role{tenant.RoleAnalyst, tenant.RoleReviewer, tenant.RoleAuditor, tenant.RoleAdmin}
	writers := []tenant.Role{tenant.RoleAnalyst, tenant.RoleAdmin}
	systemWriters := []tenant.Role{tenant.RoleAnalyst, tenant.RoleAdmin, tenant.RoleSystem}

	return map[OperationID]map[Method][]tenant.Role{
		OpClaimCreate: {MethodWrite: writers},
		OpClaimGrade:  {MethodWrite: systemWriters},
		OpClaimGet:    {MethodRead: readers},
		OpClaimList:   {MethodRead: readers},

		OpRunStart: {MethodWrite: writers},
		OpRunGet:   {MethodRead: readers},

		OpDeliverableGen: {MethodWrite: systemWriters},
		OpDeliverableGet: {MethodRead: readers},

		OpPromptPublish: {MethodWrite: []tenant.Role{tenant.RoleAdmin}},

		OpObjectPut: {MethodWrite: systemWriters},
		OpObjectGet: {MethodRead: readers},
	}
}
