package sanad

import "github.com/smilemakc/idis/internal/domain"

// COICapThreshold is the grade ceiling applied when a HIGH-severity conflict
// of interest is undisclosed and uncured (spec §4.3 step 6).
const COICapThreshold = domain.GradeC

// DetectCOI evaluates conflict-of-interest disclosure for a source. A HIGH,
// undisclosed COI caps the grade at C unless cured by an independent
// primary-tier corroborator; LOW severity requires no cure. Returns the
// defect (if any) and whether the grade should be capped.
func DetectCOI(claimID, dealID, tenantID string, source *domain.EvidenceItem, hasPrimaryTierCorroborator bool) (defect *domain.Defect, capped bool) {
	if !source.COIPresent {
		return nil, false
	}
	if source.COISeverity != "HIGH" {
		return nil, false // LOW severity requires no cure
	}
	if source.COIDisclosed {
		return nil, false
	}
	if hasPrimaryTierCorroborator {
		return nil, false // cured by an independent primary-tier corroborator
	}

	d := domain.NewDefect(
		"", tenantID, claimID, dealID, domain.DefectCOIHighUndisclosed,
		"source has an undisclosed high-severity conflict of interest",
		"obtain an independent primary-tier corroborator or disclose the conflict",
	)
	return &d, true
}
