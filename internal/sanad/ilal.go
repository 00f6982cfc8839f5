package sanad

import "github.com/smilemakc/idis/internal/domain"

// DetectIlal runs the structural checks on a transmission chain (spec §4.3
// step 5): chain breaks, grafting, chronology, and version drift.
func DetectIlal(claimID, dealID, tenantID string, chain []domain.TransmissionNode, cited domain.EvidenceItem) []domain.Defect {
	var defects []domain.Defect

	byID := make(map[string]*domain.TransmissionNode, len(chain))
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
			defects = append(defects, domain.NewDefect(
				"", tenantID, claimID, dealID, domain.DefectIlalChainBreak,
				"a transmission node references a non-existent parent id",
				"re-establish the missing parent hop or discard the orphaned node",
			))
			continue
		}
		if node.UpstreamOriginID != nil && parent.UpstreamOriginID != nil &&
			*node.UpstreamOriginID != *parent.UpstreamOriginID {
			defects = append(defects, domain.NewDefect(
				"", tenantID, claimID, dealID, domain.DefectIlalChainGrafting,
				"linked hops disagree on upstream_origin_id",
				"re-verify which upstream origin actually produced this hop",
			))
		}
		if node.Timestamp.Before(parent.Timestamp) {
			defects = append(defects, domain.NewDefect(
				"", tenantID, claimID, dealID, domain.DefectIlalChronologyImpossible,
				"child timestamp precedes its parent's",
				"correct the recorded timestamps or re-derive the chain order",
			))
		}
	}

	if cited.DocumentVersion > 0 && cited.LatestKnownVersion > cited.DocumentVersion {
		defects = append(defects, domain.NewDefect(
			"", tenantID, claimID, dealID, domain.DefectIlalVersionDrift,
			"claim cites an old document version while a newer one exists",
			"re-extract the claim from the latest document version",
		))
	}

	return defects
}
