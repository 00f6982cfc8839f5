package domain

import "time"

// MuhasabahRecord is the self-audit structure attached to every agent output
// (spec §3, §4.6).
type MuhasabahRecord struct {
	AgentID             string
	OutputID            string
	SupportedClaimIDs   []string
	SupportedCalcIDs    []string
	EvidenceSummary     string
	CounterHypothesis   string
	FalsifiabilityTests []string
	Uncertainties       []string
	FailureModes        []string
	Confidence          float64
	IsSubjective        bool
}

// ValidateInvariants enforces spec §3's two Muhasabah invariants:
// (a) non-subjective records must cite at least one supported claim;
// (b) confidence > 0.80 requires non-empty uncertainties.
func (m *MuhasabahRecord) ValidateInvariants() error {
	if !m.IsSubjective && len(m.SupportedClaimIDs) == 0 {
		return errMuhasabahNoFreeFacts
	}
	if m.Confidence > 0.80 && len(m.Uncertainties) == 0 {
		return errMuhasabahOverconfident
	}
	return nil
}

// AgentRole is the sealed debate role enum (spec §4.9).
type AgentRole string

const (
	RoleAdvocate             AgentRole = "ADVOCATE"
	RoleSanadBreaker         AgentRole = "SANAD_BREAKER"
	RoleContradictionFinder  AgentRole = "CONTRADICTION_FINDER"
	RoleRiskOfficer          AgentRole = "RISK_OFFICER"
	RoleArbiter              AgentRole = "ARBITER"
)

// AgentOutput is a single agent's output with its attached self-audit
// record (spec §3).
type AgentOutput struct {
	OutputID   string
	AgentID    string
	Role       AgentRole
	OutputType string
	Content    map[string]any
	Muhasabah  MuhasabahRecord
	RoundNumber int
	Timestamp  time.Time
}
