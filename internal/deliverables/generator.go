// Package deliverables assembles the deliverable bundle from an analysis
// bundle, scorecard, and deal context (spec §4.10). Every precondition is
// enforced fail-closed before assembly, matching the fail-closed posture
// the audit sink and break-glass validator use elsewhere in the core.
package deliverables

import (
	"sort"

	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/idiserr"
	"github.com/smilemakc/idis/internal/validate"
)

// AgentReport is one required agent type's report for the bundle.
type AgentReport struct {
	AgentType string
	Sections  []domain.DeliverableSection
}

// Routing is the deal's IC routing decision; only DECLINE produces a
// DeclineLetter (spec §4.10).
type Routing string

const (
	RoutingApprove Routing = "APPROVE"
	RoutingDecline Routing = "DECLINE"
)

// Bundle is the generator's input: the analysis bundle (one report per
// required agent type), a pre-built deliverable skeleton per type, and the
// set of claim/calc ids known to the deal (for the registry precondition).
type Bundle struct {
	DealID         string
	Routing        Routing
	Reports        []AgentReport
	Deliverables   map[domain.DeliverableType]domain.Deliverable
	KnownClaimIDs  map[string]struct{}
	KnownCalcIDs   map[string]struct{}
}

// Generate validates b's preconditions and returns the deliverable bundle.
// All three preconditions are fail-closed (spec §4.10):
//
//  1. the bundle must contain one report for each of the eight required
//     agent types;
//  2. every fact in every section must carry valid refs per the
//     No-Free-Facts validator, unless explicitly subjective;
//  3. every referenced id must be in the deal's claim/calc registry.
func Generate(b Bundle) ([]domain.Deliverable, error) {
	if err := requireAllAgentTypes(b.Reports); err != nil {
		return nil, err
	}

	types := []domain.DeliverableType{
		domain.DeliverableScreeningSnapshot,
		domain.DeliverableICMemo,
		domain.DeliverableTruthDashboard,
		domain.DeliverableQABrief,
	}
	if b.Routing == RoutingDecline {
		types = append(types, domain.DeliverableDeclineLetter)
	}

	var out []domain.Deliverable
	for _, t := range types {
		d, ok := b.Deliverables[t]
		if !ok {
			return nil, idiserr.Newf(idiserr.InvalidInput, "deliverables: no %s supplied for deal %s", t, b.DealID)
		}
		if err := validateNoFreeFacts(d); err != nil {
			return nil, err
		}
		if err := validateRefsKnown(d, b.KnownClaimIDs, b.KnownCalcIDs); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func requireAllAgentTypes(reports []AgentReport) error {
	present := make(map[string]struct{}, len(reports))
	for _, r := range reports {
		present[r.AgentType] = struct{}{}
	}
	var missing []string
	for _, required := range domain.RequiredAgentTypes {
		if _, ok := present[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return idiserr.Newf(idiserr.InvalidInput, "deliverables: missing required agent reports: %v", missing)
	}
	return nil
}

func validateNoFreeFacts(d domain.Deliverable) error {
	result := validate.NoFreeFacts(d.Sections)
	if !result.Passed {
		return idiserr.Newf(idiserr.NoFreeFactsViolation, "deliverables: %s failed no-free-facts: %v", d.Type, result.Errors)
	}
	return nil
}

func validateRefsKnown(d domain.Deliverable, knownClaims, knownCalcs map[string]struct{}) error {
	for _, section := range d.Sections {
		for _, fact := range section.Facts {
			for _, id := range fact.ClaimRefs {
				if _, ok := knownClaims[id]; !ok {
					return idiserr.Newf(idiserr.InvalidInput, "deliverables: %s references unknown claim %q", d.Type, id)
				}
			}
			for _, id := range fact.CalcRefs {
				if _, ok := knownCalcs[id]; !ok {
					return idiserr.Newf(idiserr.InvalidInput, "deliverables: %s references unknown calc %q", d.Type, id)
				}
			}
		}
	}
	for _, row := range d.TruthRows {
		if err := checkRefs(d.Type, row.ClaimRefs, row.CalcRefs, knownClaims, knownCalcs); err != nil {
			return err
		}
	}
	for _, item := range d.QAItems {
		if err := checkRefs(d.Type, item.ClaimRefs, item.CalcRefs, knownClaims, knownCalcs); err != nil {
			return err
		}
	}
	return nil
}

func checkRefs(t domain.DeliverableType, claimRefs, calcRefs []string, knownClaims, knownCalcs map[string]struct{}) error {
	for _, id := range claimRefs {
		if _, ok := knownClaims[id]; !ok {
			return idiserr.Newf(idiserr.InvalidInput, "deliverables: %s references unknown claim %q", t, id)
		}
	}
	for _, id := range calcRefs {
		if _, ok := knownCalcs[id]; !ok {
			return idiserr.Newf(idiserr.InvalidInput, "deliverables: %s references unknown calc %q", t, id)
		}
	}
	return nil
}

// BuildAuditAppendix enumerates every distinct ref across a deliverable's
// sections, rows, and items, sorted by (ref_type, ref_id) (spec §3, §4.10).
func BuildAuditAppendix(d domain.Deliverable) []domain.AuditAppendixEntry {
	seen := make(map[domain.AuditAppendixEntry]struct{})
	add := func(t domain.RefType, ids []string) {
		for _, id := range ids {
			seen[domain.AuditAppendixEntry{RefType: t, RefID: id}] = struct{}{}
		}
	}
	for _, section := range d.Sections {
		for _, fact := range section.Facts {
			add(domain.RefClaim, fact.ClaimRefs)
			add(domain.RefCalc, fact.CalcRefs)
		}
	}
	for _, row := range d.TruthRows {
		add(domain.RefClaim, row.ClaimRefs)
		add(domain.RefCalc, row.CalcRefs)
	}
	for _, item := range d.QAItems {
		add(domain.RefClaim, item.ClaimRefs)
		add(domain.RefCalc, item.CalcRefs)
	}

	entries := make([]domain.AuditAppendixEntry, 0, len(seen))
	for e := range seen {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].RefType != entries[j].RefType {
			return entries[i].RefType < entries[j].RefType
		}
		return entries[i].RefID < entries[j].RefID
	})
	return entries
}
