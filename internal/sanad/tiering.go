// Package sanad implements the provenance grading engine (spec §4.3):
// source tiering, Dabt precision, Tawatur independence, Shudhudh anomaly
// detection, I'lal hidden-defect detection, COI capping, and the
// deterministic grade derivation that combines them.
package sanad

import "github.com/smilemakc/idis/internal/domain"

// BaseGradeForTier maps a primary source tier's weight to a starting grade
// (spec §4.3: "start from the weight of the primary-source tier mapped to a
// base grade"). Weights are partitioned by tier eligibility: primary-eligible
// tiers (1-4) start at A/A/B/C, support-only tiers (5-6) can never be the
// sole backing for a CRITICAL claim and start no higher than C.
func BaseGradeForTier(tier domain.SourceTier) domain.Grade {
	weight := domain.TierWeight[tier]
	switch {
	case weight >= 0.90:
		return domain.GradeA
	case weight >= 0.70:
		return domain.GradeB
	case weight >= 0.50:
		return domain.GradeC
	default:
		return domain.GradeD
	}
}
