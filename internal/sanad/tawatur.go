package sanad

import "github.com/smilemakc/idis/internal/domain"

// MutawatirMinIndependentKeys and MutawatirMaxCollusionRisk are the
// MUTAWATIR thresholds (spec §4.3 step 3).
const (
	MutawatirMinIndependentKeys = 3
	MutawatirMaxCollusionRisk   = 0.30
)

// AssessTawatur classifies independence from the distinct independence keys
// across all corroborating evidence (primary + corroborating), and the
// worst (highest) collusion risk observed among them.
func AssessTawatur(evidence []*domain.EvidenceItem) domain.CorroborationStatus {
	keys := make(map[string]struct{})
	maxRisk := 0.0
	for _, e := range evidence {
		keys[e.IndependenceKey()] = struct{}{}
		if e.CollusionRisk > maxRisk {
			maxRisk = e.CollusionRisk
		}
	}

	independentCount := len(keys)

	if independentCount >= MutawatirMinIndependentKeys && maxRisk < MutawatirMaxCollusionRisk {
		return domain.CorroborationMutawatir
	}

	switch independentCount {
	case 0:
		return domain.CorroborationNone
	case 1:
		return domain.CorroborationAhad1
	default:
		return domain.CorroborationAhad2
	}
}
