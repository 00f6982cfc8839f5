package sanad

import (
	"math"

	"github.com/smilemakc/idis/internal/domain"
)

// ReconciliationTolerance is the rounding tolerance applied before a
// value-level mismatch is treated as an anomaly (spec §4.3 step 4).
const ReconciliationTolerance = 0.01 // 1%

// Attestation is one source's claimed value for a single fact, used for
// Shudhudh reconciliation across multiple sources (spec §4.3 step 4).
type Attestation struct {
	Evidence *domain.EvidenceItem
	Value    float64
	Unit     string
	// Window names the period the attested value covers (e.g. a fiscal
	// quarter); a mismatch in reporting windows across
	// sources is a SHUDHUDH_TIME_WINDOW defect rather than a value anomaly.
	Window string
}

// DetectShudhudh reconciles multiple attestations of the same claim value
// and reports the defects found (spec §4.3 step 4). Reconciliation is
// attempted first: matching units and windows within tolerance never
// produce a defect.
func DetectShudhudh(claimID, dealID, tenantID string, attestations []Attestation) []domain.Defect {
	var defects []domain.Defect
	if len(attestations) < 2 {
		return defects
	}

	highest := highestTierAttestation(attestations)

	for _, a := range attestations {
		if a.Evidence == highest.Evidence {
			continue
		}
		if a.Unit != highest.Unit {
			defects = append(defects, domain.NewDefect(
				"", tenantID, claimID, dealID, domain.DefectShudhudhUnitMismatch,
				"attested unit differs across sources and could not be reconciled",
				"normalise units and re-attest",
			))
			continue
		}
		if a.Window != "" && highest.Window != "" && a.Window != highest.Window {
			defects = append(defects, domain.NewDefect(
				"", tenantID, claimID, dealID, domain.DefectShudhudhTimeWindow,
				"attested reporting windows differ across sources",
				"re-attest within a matching reporting window",
			))
			continue
		}
		if !withinTolerance(a.Value, highest.Value) && domain.TierWeight[a.Evidence.Tier] < domain.TierWeight[highest.Evidence.Tier] {
			defects = append(defects, domain.NewDefect(
				"", tenantID, claimID, dealID, domain.DefectShudhudhAnomaly,
				"a lower-tier source contradicts a higher-tier source beyond tolerance",
				"investigate discrepancy and re-verify with the higher-tier source",
			))
		}
	}
	return defects
}

func highestTierAttestation(attestations []Attestation) Attestation {
	best := attestations[0]
	for _, a := range attestations[1:] {
		if domain.TierWeight[a.Evidence.Tier] > domain.TierWeight[best.Evidence.Tier] {
			best = a
		}
	}
	return best
}

func withinTolerance(a, reference float64) bool {
	if reference == 0 {
		return a == 0
	}
	return math.Abs(a-reference)/math.Abs(reference) <= ReconciliationTolerance
}
