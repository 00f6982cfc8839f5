package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smilemakc/idis/internal/domain"
)

func TestNoFreeFacts_FactualWithoutRefs_Fails(t *testing.T) {
	sections := []domain.DeliverableSection{
		{
			Title: "Financials",
			Facts: []domain.DeliverableFact{
				{Text: "revenue grew 40% YoY", IsFactual: true, IsSubjective: false},
			},
		},
	}

	result := NoFreeFacts(sections)
	assert.False(t, result.Passed)
	assert.Len(t, result.Errors, 1)
}

func TestNoFreeFacts_FactualWithClaimRef_Passes(t *testing.T) {
	sections := []domain.DeliverableSection{
		{
			Title: "Financials",
			Facts: []domain.DeliverableFact{
				{Text: "revenue grew 40% YoY", IsFactual: true, IsSubjective: false, ClaimRefs: []string{"claim_1"}},
			},
		},
	}

	result := NoFreeFacts(sections)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Errors)
}

func TestNoFreeFacts_SubjectiveWithoutRefs_Passes(t *testing.T) {
	sections := []domain.DeliverableSection{
		{
			Title: "Analyst Commentary",
			Facts: []domain.DeliverableFact{
				{Text: "the team seems strong", IsFactual: true, IsSubjective: true},
			},
		},
	}

	result := NoFreeFacts(sections)
	assert.True(t, result.Passed)
}

func TestNoFreeFacts_NonFactualWithoutRefs_Passes(t *testing.T) {
	sections := []domain.DeliverableSection{
		{
			Title: "Notes",
			Facts: []domain.DeliverableFact{
				{Text: "see appendix", IsFactual: false, IsSubjective: false},
			},
		},
	}

	result := NoFreeFacts(sections)
	assert.True(t, result.Passed)
}
