package validate

import "github.com/smilemakc/idis/internal/domain"

// MuhasabahDecision is the Muhasabah gate's verdict on one agent output
// (spec §4.6).
type MuhasabahDecision struct {
	Allowed bool
	Reason  string
}

// MuhasabahGate evaluates a single AgentOutput. It is always enforced —
// callers have no bypass parameter (spec §4.6).
func MuhasabahGate(out domain.AgentOutput) MuhasabahDecision {
	m := out.Muhasabah

	if err := m.ValidateInvariants(); err != nil {
		return MuhasabahDecision{Allowed: false, Reason: err.Error()}
	}
	if m.AgentID != "" && m.AgentID != out.AgentID {
		return MuhasabahDecision{Allowed: false, Reason: "muhasabah record agent_id does not match the output's agent_id"}
	}
	if m.OutputID != "" && m.OutputID != out.OutputID {
		return MuhasabahDecision{Allowed: false, Reason: "muhasabah record output_id does not match the output's output_id"}
	}
	return MuhasabahDecision{Allowed: true}
}
