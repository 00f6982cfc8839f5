package sanad

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/idis/internal/domain"
)

func evidence(id, sourceSystem, origin string, tier domain.SourceTier) *domain.EvidenceItem {
	return &domain.EvidenceItem{
		EvidenceID:             id,
		SourceSystem:           sourceSystem,
		UpstreamOriginID:       origin,
		SourceType:             string(tier),
		Tier:                   tier,
		DocumentationPrecision: 0.9,
		TransmissionPrecision:  0.9,
		TemporalPrecision:      0.9,
		CognitivePrecision:     0.9,
	}
}

func TestGrade_CleanDeal_GradeAtLeastB(t *testing.T) {
	engine := NewEngine()
	now := time.Now()
	chain := []domain.TransmissionNode{
		{NodeID: "n1", Timestamp: now.Add(-2 * time.Hour)},
		{NodeID: "n2", PrevNodeID: strPtr("n1"), Timestamp: now.Add(-time.Hour)},
	}

	sanadOut := engine.Grade(GradeInput{
		ClaimID:           "claim_001",
		DealID:            "deal_001",
		TenantID:          "tenant_1",
		Materiality:       domain.MaterialityMedium,
		PrimaryEvidence:   evidence("ev1", "deck", "doc_a", domain.TierThiqahThabit),
		TransmissionChain: chain,
	})

	assert.NoError(t, sanadOut.ValidateInvariants())
	assert.LessOrEqual(t, sanadOut.SanadGrade.Rank(), domain.GradeB.Rank())
	assert.Empty(t, filterFatal(sanadOut.Defects))
}

func TestGrade_ContradictionDeal_ShudhudhAnomalyForcesGradeD(t *testing.T) {
	engine := NewEngine()
	deck := evidence("ev_deck", "deck", "doc_a", domain.TierThiqahThabit)
	model := evidence("ev_model", "model", "doc_b", domain.TierSaduq)

	now := time.Now()
	chain := []domain.TransmissionNode{{NodeID: "n1", Timestamp: now}}

	attestations := []Attestation{
		{Evidence: deck, Value: 5_200_000, Unit: "USD"},
		{Evidence: model, Value: 4_800_000, Unit: "USD"},
	}

	out := engine.Grade(GradeInput{
		ClaimID:           "C1",
		DealID:            "deal_002",
		TenantID:          "tenant_1",
		Materiality:       domain.MaterialityHigh,
		PrimaryEvidence:   deck,
		TransmissionChain: chain,
		Attestations:      attestations,
	})

	require.Len(t, filterByType(out.Defects, domain.DefectShudhudhAnomaly), 1)
	assert.Equal(t, domain.SeverityMajor, filterByType(out.Defects, domain.DefectShudhudhAnomaly)[0].Severity)
}

func TestGrade_ChainBreak_FatalForcesGradeD(t *testing.T) {
	engine := NewEngine()
	primary := evidence("ev1", "deck", "doc_a", domain.TierThiqah)
	now := time.Now()
	chain := []domain.TransmissionNode{
		{NodeID: "n2", PrevNodeID: strPtr("missing-parent"), Timestamp: now},
	}

	out := engine.Grade(GradeInput{
		ClaimID:           "C1",
		DealID:            "deal_007",
		TenantID:          "tenant_1",
		Materiality:       domain.MaterialityMedium,
		PrimaryEvidence:   primary,
		TransmissionChain: chain,
	})

	require.Len(t, filterByType(out.Defects, domain.DefectIlalChainBreak), 1)
	assert.Equal(t, domain.GradeD, out.SanadGrade)
}

func TestGrade_VersionDrift_MajorDowngradesToC(t *testing.T) {
	engine := NewEngine()
	primary := evidence("ev1", "deck", "doc_a", domain.TierThiqahThabit)
	primary.DocumentVersion = 1
	primary.LatestKnownVersion = 2

	now := time.Now()
	chain := []domain.TransmissionNode{{NodeID: "n1", Timestamp: now}}

	out := engine.Grade(GradeInput{
		ClaimID:           "C1",
		DealID:            "deal_008",
		TenantID:          "tenant_1",
		Materiality:       domain.MaterialityMedium,
		PrimaryEvidence:   primary,
		TransmissionChain: chain,
	})

	require.Len(t, filterByType(out.Defects, domain.DefectIlalVersionDrift), 1)
	assert.Equal(t, domain.SeverityMajor, filterByType(out.Defects, domain.DefectIlalVersionDrift)[0].Severity)
	assert.Equal(t, domain.GradeB, out.SanadGrade) // THIQAH_THABIT base A, one MAJOR downgrade -> B
}

func TestGrade_MutawatirUpgradesByOneStep(t *testing.T) {
	engine := NewEngine()
	primary := evidence("ev1", "system_a", "origin_a", domain.TierSaduq)
	corroborating := []*domain.EvidenceItem{
		evidence("ev2", "system_b", "origin_b", domain.TierSaduq),
		evidence("ev3", "system_c", "origin_c", domain.TierSaduq),
	}
	now := time.Now()
	chain := []domain.TransmissionNode{{NodeID: "n1", Timestamp: now}}

	out := engine.Grade(GradeInput{
		ClaimID:               "C1",
		DealID:                "deal_009",
		TenantID:              "tenant_1",
		Materiality:           domain.MaterialityMedium,
		PrimaryEvidence:       primary,
		CorroboratingEvidence: corroborating,
		TransmissionChain:     chain,
	})

	assert.Equal(t, domain.CorroborationMutawatir, out.CorroborationStatus)
	assert.Equal(t, domain.GradeB, out.SanadGrade) // base C upgraded once -> B
}

func TestGrade_UnknownSourceType_FailsClosedToMaqbul(t *testing.T) {
	assert.Equal(t, domain.TierMaqbul, domain.NormalizeTier("totally-unknown-source"))
}

func strPtr(s string) *string { return &s }

func filterFatal(defects []domain.Defect) []domain.Defect {
	return filterBySeverity(defects, domain.SeverityFatal)
}

func filterBySeverity(defects []domain.Defect, sev domain.Severity) []domain.Defect {
	var out []domain.Defect
	for _, d := range defects {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

func filterByType(defects []domain.Defect, t domain.DefectType) []domain.Defect {
	var out []domain.Defect
	for _, d := range defects {
		if d.DefectType == t {
			out = append(out, d)
		}
	}
	return out
}
