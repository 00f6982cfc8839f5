package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smilemakc/idis/internal/tenant"
)

// TestDefaultRules_MatchesPublishedInventory guards the contract spec §4.2
// requires: the rule table is a strict superset and subset of the
// published operation inventory.
func TestDefaultRules_MatchesPublishedInventory(t *testing.T) {
	rules := DefaultRules()

	covered := make(map[OperationID]bool, len(rules))
	for op := range rules {
		covered[op] = true
	}

	published := make(map[OperationID]bool, len(PublishedOperations))
	for _, op := range PublishedOperations {
		published[op] = true
	}

	assert.Equal(t, published, covered, "rule table must cover exactly the published inventory")
}

func TestDefaultRules_AuditorNeverGrantedWrite(t *testing.T) {
	rules := DefaultRules()
	for op, byMethod := range rules {
		for method, roles := range byMethod {
			if method == MethodRead {
				continue
			}
			for _, role := range roles {
				assert.NotEqual(t, tenant.RoleAuditor, role, "operation %q grants auditor a mutating method", op)
			}
		}
	}
}
