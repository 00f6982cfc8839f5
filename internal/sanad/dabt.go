package sanad

import "github.com/smilemakc/idis/internal/domain"

// DabtWeights weight the four precision dimensions equally by default
// (spec §4.3 step 2 does not prescribe unequal weights).
var DabtWeights = struct {
	Documentation, Transmission, Temporal, Cognitive float64
}{0.25, 0.25, 0.25, 0.25}

// DabtCapThreshold is the floor below which the achievable grade is capped
// at B (spec §4.3 step 2).
const DabtCapThreshold = 0.50

// ComputeDabt weights documentation/transmission/temporal/cognitive
// precision. Missing dimensions count as zero: spec §4.3 "no silent
// exclusion" — EvidenceItem's zero value already means "missing", so no
// special-casing is needed here beyond reading the fields directly.
func ComputeDabt(e *domain.EvidenceItem) float64 {
	return DabtWeights.Documentation*e.DocumentationPrecision +
		DabtWeights.Transmission*e.TransmissionPrecision +
		DabtWeights.Temporal*e.TemporalPrecision +
		DabtWeights.Cognitive*e.CognitivePrecision
}

// DabtCap returns the grade cap implied by a Dabt score: below threshold,
// the achievable grade is capped at B; otherwise uncapped (A).
func DabtCap(dabt float64) domain.Grade {
	if dabt < DabtCapThreshold {
		return domain.GradeB
	}
	return domain.GradeA
}
