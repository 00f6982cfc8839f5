package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smilemakc/idis/internal/domain"
)

func baseOutput() domain.AgentOutput {
	return domain.AgentOutput{
		OutputID: "out_1",
		AgentID:  "agent_1",
		Role:     domain.RoleAdvocate,
		Muhasabah: domain.MuhasabahRecord{
			AgentID:           "agent_1",
			OutputID:          "out_1",
			SupportedClaimIDs: []string{"claim_1"},
			Confidence:        0.5,
		},
	}
}

func TestMuhasabahGate_ValidOutput_Allowed(t *testing.T) {
	decision := MuhasabahGate(baseOutput())
	assert.True(t, decision.Allowed)
}

func TestMuhasabahGate_NoFreeFactsAtRecordLevel_Denied(t *testing.T) {
	out := baseOutput()
	out.Muhasabah.SupportedClaimIDs = nil
	out.Muhasabah.IsSubjective = false

	decision := MuhasabahGate(out)
	assert.False(t, decision.Allowed)
}

func TestMuhasabahGate_OverconfidentWithoutUncertainties_Denied(t *testing.T) {
	out := baseOutput()
	out.Muhasabah.Confidence = 0.95
	out.Muhasabah.Uncertainties = nil

	decision := MuhasabahGate(out)
	assert.False(t, decision.Allowed)
}

func TestMuhasabahGate_OverconfidentWithUncertainties_Allowed(t *testing.T) {
	out := baseOutput()
	out.Muhasabah.Confidence = 0.95
	out.Muhasabah.Uncertainties = []string{"sample size is small"}

	decision := MuhasabahGate(out)
	assert.True(t, decision.Allowed)
}

func TestMuhasabahGate_AgentIDMismatch_Denied(t *testing.T) {
	out := baseOutput()
	out.Muhasabah.AgentID = "someone_else"

	decision := MuhasabahGate(out)
	assert.False(t, decision.Allowed)
}

func TestMuhasabahGate_OutputIDMismatch_Denied(t *testing.T) {
	out := baseOutput()
	out.Muhasabah.OutputID = "different_output"

	decision := MuhasabahGate(out)
	assert.False(t, decision.Allowed)
}

func TestMuhasabahGate_SubjectiveWithoutClaims_Allowed(t *testing.T) {
	out := baseOutput()
	out.Muhasabah.SupportedClaimIDs = nil
	out.Muhasabah.IsSubjective = true

	decision := MuhasabahGate(out)
	assert.True(t, decision.Allowed)
}
