package sanad

import (
	"fmt"
	"sort"

	"github.com/smilemakc/idis/internal/domain"
)

// Engine grades a claim's sanad deterministically (spec §4.3).
type Engine struct{}

// NewEngine constructs the grading engine. It holds no state: the grading
// pipeline is a pure function of its inputs, matching spec §4.3's
// deterministic-derivation requirement.
func NewEngine() *Engine { return &Engine{} }

// GradeInput bundles everything the derivation needs for one claim.
type GradeInput struct {
	ClaimID                    string
	DealID                     string
	TenantID                   string
	Materiality                domain.Materiality
	PrimaryEvidence            *domain.EvidenceItem
	CorroboratingEvidence      []*domain.EvidenceItem
	TransmissionChain          []domain.TransmissionNode
	Attestations               []Attestation
	HasPrimaryTierCorroborator bool
}

// Grade runs the full deterministic pipeline: tiering -> Dabt -> Tawatur ->
// Shudhudh -> I'lal -> COI -> grade derivation, in that order (spec §4.3).
func (e *Engine) Grade(in GradeInput) domain.Sanad {
	primaryTier := domain.NormalizeTier(string(in.PrimaryEvidence.SourceType))
	in.PrimaryEvidence.Tier = primaryTier

	var explanation []domain.GradeExplanationStep
	baseGrade := BaseGradeForTier(primaryTier)
	explanation = append(explanation, domain.GradeExplanationStep{
		Step:   "source_tiering",
		Impact: fmt.Sprintf("primary tier %s -> base grade %s", primaryTier, baseGrade),
	})

	if !primaryTier.IsPrimaryEligible() && in.Materiality == domain.MaterialityCritical {
		explanation = append(explanation, domain.GradeExplanationStep{
			Step:   "source_tiering",
			Impact: "support-only tier may not be the sole backing for a CRITICAL claim",
		})
		baseGrade = domain.Worse(baseGrade, domain.GradeC)
	}

	dabt := ComputeDabt(in.PrimaryEvidence)
	dabtCap := DabtCap(dabt)
	explanation = append(explanation, domain.GradeExplanationStep{
		Step:   "dabt",
		Impact: fmt.Sprintf("dabt=%.3f cap=%s", dabt, dabtCap),
	})

	allEvidence := append([]*domain.EvidenceItem{in.PrimaryEvidence}, in.CorroboratingEvidence...)
	corroboration := AssessTawatur(allEvidence)
	explanation = append(explanation, domain.GradeExplanationStep{
		Step:   "tawatur",
		Impact: fmt.Sprintf("corroboration_status=%s", corroboration),
	})

	var defects []domain.Defect
	defects = append(defects, DetectShudhudh(in.ClaimID, in.DealID, in.TenantID, in.Attestations)...)
	defects = append(defects, DetectIlal(in.ClaimID, in.DealID, in.TenantID, in.TransmissionChain, *in.PrimaryEvidence)...)

	coiDefect, coiCapped := DetectCOI(in.ClaimID, in.DealID, in.TenantID, in.PrimaryEvidence, in.HasPrimaryTierCorroborator)
	if coiDefect != nil {
		defects = append(defects, *coiDefect)
	}

	grade := baseGrade

	fatal := false
	for _, d := range defects {
		if d.Severity == domain.SeverityFatal {
			fatal = true
		}
	}
	if fatal {
		grade = domain.GradeD
		explanation = append(explanation, domain.GradeExplanationStep{
			Step:    "fatal_defect",
			ClaimID: in.ClaimID,
			Impact:  "a fatal defect forces grade D and terminates the derivation",
		})
	} else {
		for _, d := range defects {
			if d.Severity == domain.SeverityMajor {
				grade = domain.Downgrade(grade)
				explanation = append(explanation, domain.GradeExplanationStep{
					Step:    "major_defect",
					ClaimID: in.ClaimID,
					Impact:  fmt.Sprintf("%s downgrades by one step (min C) -> %s", d.DefectType, grade),
				})
			}
		}

		if dabtCap.Rank() > grade.Rank() {
			grade = dabtCap
			explanation = append(explanation, domain.GradeExplanationStep{
				Step:   "dabt_cap",
				Impact: fmt.Sprintf("dabt cap applied -> %s", grade),
			})
		}
		if coiCapped && COICapThreshold.Rank() > grade.Rank() {
			grade = COICapThreshold
			explanation = append(explanation, domain.GradeExplanationStep{
				Step:   "coi_cap",
				Impact: fmt.Sprintf("undisclosed high COI caps grade at %s", COICapThreshold),
			})
		}

		hasMajor := false
		for _, d := range defects {
			if d.Severity == domain.SeverityMajor {
				hasMajor = true
			}
		}
		if corroboration == domain.CorroborationMutawatir && !hasMajor {
			grade = domain.Upgrade(grade)
			explanation = append(explanation, domain.GradeExplanationStep{
				Step:   "mutawatir_upgrade",
				Impact: fmt.Sprintf("mutawatir corroboration with no major defects upgrades by one step (max A) -> %s", grade),
			})
		}
	}

	corroboratingIDs := make([]string, 0, len(in.CorroboratingEvidence))
	for _, ev := range in.CorroboratingEvidence {
		corroboratingIDs = append(corroboratingIDs, ev.EvidenceID)
	}
	sort.Strings(corroboratingIDs)

	return domain.Sanad{
		ClaimID:                  in.ClaimID,
		DealID:                   in.DealID,
		TenantID:                 in.TenantID,
		PrimaryEvidenceID:        in.PrimaryEvidence.EvidenceID,
		CorroboratingEvidenceIDs: corroboratingIDs,
		TransmissionChain:        in.TransmissionChain,
		ExtractionConfidence:     0,
		DhabtScore:               &dabt,
		CorroborationStatus:      corroboration,
		SanadGrade:               grade,
		GradeExplanation:         explanation,
		Defects:                  defects,
	}
}
