// Package validate implements the output-boundary validators: the
// No-Free-Facts validator (spec §4.5) and the Muhasabah gate (spec §4.6).
// Both are called explicitly by core services at the points spec §4.10 and
// §4.9 name — transport-layer request validation is a separate concern.
package validate

import (
	"fmt"

	"github.com/smilemakc/idis/internal/domain"
)

// NoFreeFactsResult is the outcome of running the No-Free-Facts validator
// over a set of sections (spec §4.5).
type NoFreeFactsResult struct {
	Passed bool
	Errors []string
}

// NoFreeFacts fails any fact that is factual, non-subjective, and carries
// no claim or calc reference — the no-free-facts invariant (spec §4.5,
// §8: "No-Free-Facts ... no factual non-subjective assertion may exist
// without at least one evidence reference").
func NoFreeFacts(sections []domain.DeliverableSection) NoFreeFactsResult {
	var errs []string
	for _, section := range sections {
		for i, fact := range section.Facts {
			if fact.IsFactual && !fact.IsSubjective && len(fact.ClaimRefs) == 0 && len(fact.CalcRefs) == 0 {
				errs = append(errs, fmt.Sprintf("section %q fact %d: factual, non-subjective, and carries no claim or calc reference", section.Title, i))
			}
		}
	}
	return NoFreeFactsResult{Passed: len(errs) == 0, Errors: errs}
}
