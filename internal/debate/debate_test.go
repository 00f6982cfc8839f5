package debate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/idis/internal/domain"
)

func cleanHandler(role domain.AgentRole, confidence float64) RoleHandler {
	return func(_ context.Context, in RoleInput) (domain.AgentOutput, error) {
		return domain.AgentOutput{
			OutputID:   "out",
			AgentID:    "agent",
			Role:       role,
			RoundNumber: in.Round,
			Content:    map[string]any{"round": in.Round, "step": in.StepIndex},
			Muhasabah: domain.MuhasabahRecord{
				SupportedClaimIDs: []string{"claim_1"},
				Confidence:        confidence,
			},
		}, nil
	}
}

func allHandlers(confidence float64) map[domain.AgentRole]RoleHandler {
	return map[domain.AgentRole]RoleHandler{
		domain.RoleAdvocate:            cleanHandler(domain.RoleAdvocate, confidence),
		domain.RoleSanadBreaker:        cleanHandler(domain.RoleSanadBreaker, confidence),
		domain.RoleContradictionFinder: cleanHandler(domain.RoleContradictionFinder, confidence),
		domain.RoleRiskOfficer:         cleanHandler(domain.RoleRiskOfficer, confidence),
		domain.RoleArbiter:             cleanHandler(domain.RoleArbiter, confidence),
	}
}

func TestRun_ConsensusReached_StopsEarly(t *testing.T) {
	d := &Debate{TenantID: "t1", DealID: "d1", Handlers: allHandlers(0.8)}

	result, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopConsensus, result.StopReason)
	assert.Len(t, result.Rounds, 1)
}

func TestRun_MaxRoundsHardCap(t *testing.T) {
	handlers := allHandlers(0)
	handlers[domain.RoleAdvocate] = func(_ context.Context, in RoleInput) (domain.AgentOutput, error) {
		return domain.AgentOutput{
			Role:        domain.RoleAdvocate,
			RoundNumber: in.Round,
			Content:     map[string]any{"round": in.Round},
			Muhasabah: domain.MuhasabahRecord{
				SupportedClaimIDs: []string{"claim_1"},
				Confidence:        float64(in.Round) * 0.2, // keeps spreading confidence apart
				Uncertainties:     []string{"confidence rises each round"}, // round 5 reaches 1.0, above the 0.80 gate threshold
			},
		}, nil
	}

	d := &Debate{TenantID: "t1", DealID: "d1", Handlers: handlers, Config: Config{MaxRounds: 100}}
	result, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopMaxRounds, result.StopReason)
	assert.Len(t, result.Rounds, MaxRounds)
}

func TestRun_MuhasabahGateRejectsOutput_HaltsWithCriticalDefect(t *testing.T) {
	handlers := allHandlers(0.5)
	handlers[domain.RoleSanadBreaker] = func(_ context.Context, in RoleInput) (domain.AgentOutput, error) {
		return domain.AgentOutput{
			Role: domain.RoleSanadBreaker,
			Muhasabah: domain.MuhasabahRecord{
				IsSubjective:      false,
				SupportedClaimIDs: nil, // violates no-free-facts at record level
			},
		}, nil
	}

	d := &Debate{TenantID: "t1", DealID: "d1", Handlers: handlers}
	result, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopCriticalDefect, result.StopReason)
	require.NotNil(t, result.FailedOutput)
}

func TestRun_CriticalDefectDetector_HaltsImmediately(t *testing.T) {
	handlers := allHandlers(0.5)
	d := &Debate{
		TenantID: "t1", DealID: "d1", Handlers: handlers,
		CriticalDefect: func(out domain.AgentOutput) bool { return out.Role == domain.RoleContradictionFinder },
	}

	result, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopCriticalDefect, result.StopReason)
}

func TestRun_MissingRoleHandler_ReturnsError(t *testing.T) {
	d := &Debate{TenantID: "t1", DealID: "d1", Handlers: map[domain.AgentRole]RoleHandler{}}
	_, err := d.Run(context.Background())
	require.Error(t, err)
}

func TestObserverOrder_IsFixed(t *testing.T) {
	assert.Equal(t, []domain.AgentRole{domain.RoleContradictionFinder, domain.RoleRiskOfficer}, observerOrder)
}
