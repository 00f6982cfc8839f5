// Package domain holds the core's persisted entity types (spec §3). Fields
// are plain structs, not dynamic maps: every shape the source system passed
// around as dict[str, Any] gets a concrete Go type here, per spec §9.
package domain

import "time"

// Grade is the four-level provenance grade (spec §3, §4.3).
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// gradeRank orders grades best-to-worst for min()/cap comparisons.
var gradeRank = map[Grade]int{GradeA: 0, GradeB: 1, GradeC: 2, GradeD: 3}

// Rank returns a comparable ordinal for the grade; lower is better.
func (g Grade) Rank() int { return gradeRank[g] }

// Worse returns the worse (higher-rank) of two grades.
func Worse(a, b Grade) Grade {
	if a.Rank() >= b.Rank() {
		return a
	}
	return b
}

// MinGrade returns the worst grade among a non-empty set, and false if empty.
func MinGrade(grades []Grade) (Grade, bool) {
	if len(grades) == 0 {
		return "", false
	}
	worst := grades[0]
	for _, g := range grades[1:] {
		worst = Worse(worst, g)
	}
	return worst, true
}

// Downgrade steps a grade one notch toward D, clamped at minimum C per the
// MAJOR-defect rule (spec §4.3: "downgrade by one step (minimum C)").
func Downgrade(g Grade) Grade {
	switch g {
	case GradeA:
		return GradeB
	case GradeB, GradeC:
		return GradeC
	default:
		return GradeD
	}
}

// Upgrade steps a grade one notch toward A, clamped at maximum A.
func Upgrade(g Grade) Grade {
	switch g {
	case GradeD:
		return GradeC
	case GradeC:
		return GradeB
	default:
		return GradeA
	}
}

// ClaimVerdict is the sealed verdict enum (spec §3).
type ClaimVerdict string

const (
	VerdictVerified     ClaimVerdict = "VERIFIED"
	VerdictInflated     ClaimVerdict = "INFLATED"
	VerdictContradicted ClaimVerdict = "CONTRADICTED"
	VerdictUnverified   ClaimVerdict = "UNVERIFIED"
	VerdictSubjective   ClaimVerdict = "SUBJECTIVE"
	VerdictBlocked      ClaimVerdict = "BLOCKED"
)

// Materiality is the sealed materiality enum (spec §3).
type Materiality string

const (
	MaterialityLow      Materiality = "LOW"
	MaterialityMedium   Materiality = "MEDIUM"
	MaterialityHigh     Materiality = "HIGH"
	MaterialityCritical Materiality = "CRITICAL"
)

// ClaimAction records the downstream action taken on a claim (e.g.
// "REJECT_NO_FREE_FACTS", spec §8 scenario 4).
type ClaimAction string

const (
	ClaimActionNone              ClaimAction = ""
	ClaimActionRejectNoFreeFacts ClaimAction = "REJECT_NO_FREE_FACTS"
	ClaimActionAccept            ClaimAction = "ACCEPT"
	ClaimActionFlagForReview     ClaimAction = "FLAG_FOR_REVIEW"
)

// Claim is a single factual assertion about a deal (spec §3).
type Claim struct {
	ClaimID       string
	TenantID      string
	DealID        string
	ClaimClass    string
	ClaimText     string
	Predicate     *string
	Value         *string
	SanadID       *string
	ClaimGrade    Grade
	ClaimVerdict  ClaimVerdict
	ClaimAction   ClaimAction
	DefectIDs     []string
	Materiality   Materiality
	ICBound       bool
	PrimarySpanID *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidateInvariant enforces spec §3: if ic_bound, either sanad_id or
// primary_span_id must be present.
func (c *Claim) ValidateInvariant() error {
	if c.ICBound {
		hasSanad := c.SanadID != nil && *c.SanadID != ""
		hasSpan := c.PrimarySpanID != nil && *c.PrimarySpanID != ""
		if !hasSanad && !hasSpan {
			return errClaimICBoundMissingEvidence
		}
	}
	return nil
}
