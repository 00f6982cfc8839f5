package domain

import "time"

// SourceTier is the six-level evidence tier hierarchy (spec §4.3).
type SourceTier string

const (
	TierAthbatAlNas SourceTier = "ATHBAT_AL_NAS"
	TierThiqahThabit SourceTier = "THIQAH_THABIT"
	TierThiqah       SourceTier = "THIQAH"
	TierSaduq        SourceTier = "SADUQ"
	TierShaykh       SourceTier = "SHAYKH"
	TierMaqbul       SourceTier = "MAQBUL"
)

// TierWeight is the canonical tier -> weight table (spec §4.3 step 1).
var TierWeight = map[SourceTier]float64{
	TierAthbatAlNas:  1.00,
	TierThiqahThabit: 0.90,
	TierThiqah:       0.80,
	TierSaduq:        0.65,
	TierShaykh:       0.50,
	TierMaqbul:       0.40,
}

// PrimaryEligibleTiers are tiers 1-4; tiers 5-6 are support-only.
var PrimaryEligibleTiers = map[SourceTier]struct{}{
	TierAthbatAlNas:  {},
	TierThiqahThabit: {},
	TierThiqah:       {},
	TierSaduq:        {},
}

// NormalizeTier maps an unknown/unrecognized source type to MAQBUL, the
// fail-closed default tier (spec §4.3: "Unknown source types fail closed").
func NormalizeTier(raw string) SourceTier {
	t := SourceTier(raw)
	if _, ok := TierWeight[t]; ok {
		return t
	}
	return TierMaqbul
}

// IsPrimaryEligible reports whether the tier may be the sole backing for a
// claim (tiers 1-4).
func (t SourceTier) IsPrimaryEligible() bool {
	_, ok := PrimaryEligibleTiers[t]
	return ok
}

// EvidenceItem is a pointer to a source artifact (spec §3, §4.3, §4.6 COI).
type EvidenceItem struct {
	EvidenceID         string
	TenantID           string
	SourceSystem       string
	UpstreamOriginID   string
	SourceType         string
	Tier               SourceTier
	DocumentVersion    int
	LatestKnownVersion int

	DocumentationPrecision float64
	TransmissionPrecision  float64
	TemporalPrecision      float64
	CognitivePrecision     float64

	COIPresent    bool
	COISeverity   string // LOW | MEDIUM | HIGH
	COIDisclosed  bool

	CollusionRisk float64
}

// IndependenceKey is the (source_system, upstream_origin_id) pair used by
// Tawatur independence counting (spec §4.3 step 3).
func (e *EvidenceItem) IndependenceKey() string {
	return e.SourceSystem + "\x00" + e.UpstreamOriginID
}

// TransmissionNode records one hop in the provenance chain (spec §3).
type TransmissionNode struct {
	NodeID           string
	NodeType         string
	ActorType        string
	ActorID          string
	InputRefs        []string
	OutputRefs       []string
	Timestamp        time.Time
	PrevNodeID       *string
	UpstreamOriginID *string
	Confidence       *float64
}

// CorroborationStatus is the Tawatur independence classification (spec §3, §4.3).
type CorroborationStatus string

const (
	CorroborationNone      CorroborationStatus = "NONE"
	CorroborationAhad1     CorroborationStatus = "AHAD_1"
	CorroborationAhad2     CorroborationStatus = "AHAD_2"
	CorroborationMutawatir CorroborationStatus = "MUTAWATIR"
)

// GradeExplanationStep renders one step of the deterministic grade derivation
// so auditors can reproduce it (spec §4.3).
type GradeExplanationStep struct {
	Step    string
	ClaimID string
	Impact  string
}

// Sanad binds a claim to its evidence and derived grade (spec §3).
type Sanad struct {
	SanadID                  string
	TenantID                 string
	ClaimID                  string
	DealID                   string
	PrimaryEvidenceID        string
	CorroboratingEvidenceIDs []string // sorted
	TransmissionChain        []TransmissionNode
	ExtractionConfidence     float64
	DhabtScore               *float64
	CorroborationStatus      CorroborationStatus
	SanadGrade               Grade
	GradeExplanation         []GradeExplanationStep
	Defects                  []Defect
	CreatedAt                time.Time
}

// ValidateInvariants enforces spec §3's sanad structural invariants:
// non-empty transmission chain, and every fatal defect implies grade D.
func (s *Sanad) ValidateInvariants() error {
	if len(s.TransmissionChain) == 0 {
		return errSanadEmptyChain
	}
	if err := ValidateChainChronology(s.TransmissionChain); err != nil {
		return err
	}
	for _, d := range s.Defects {
		if d.Severity == SeverityFatal && s.SanadGrade != GradeD {
			return errSanadFatalNotD // fatal defect without grade D; caller should treat as a bug, not silently accept
		}
	}
	return nil
}

// ValidateChainChronology enforces that child timestamps never precede
// their parent's (spec §3: "Chains are ordered").
func ValidateChainChronology(chain []TransmissionNode) error {
	byID := make(map[string]*TransmissionNode, len(chain))
	for i := range chain {
		byID[chain[i].NodeID] = &chain[i]
	}
	for i := range chain {
		node := &chain[i]
		if node.PrevNodeID == nil {
			continue
		}
		parent, ok := byID[*node.PrevNodeID]
		if !ok {
			continue // missing parent is an I'lal chain-break defect, not a chronology error
		}
		if node.Timestamp.Before(parent.Timestamp) {
			return errChainChronology
		}
	}
	return nil
}
