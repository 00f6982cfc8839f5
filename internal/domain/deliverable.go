package domain

// DeliverableType is the sealed deliverable-kind enum (spec §4.10).
type DeliverableType string

const (
	DeliverableScreeningSnapshot DeliverableType = "SCREENING_SNAPSHOT"
	DeliverableICMemo            DeliverableType = "IC_MEMO"
	DeliverableTruthDashboard    DeliverableType = "TRUTH_DASHBOARD"
	DeliverableQABrief           DeliverableType = "QA_BRIEF"
	DeliverableDeclineLetter     DeliverableType = "DECLINE_LETTER"
)

// RefType distinguishes claim refs from calc refs for ordering (spec §4.10).
type RefType string

const (
	RefClaim RefType = "CLAIM"
	RefCalc  RefType = "CALC"
)

// Ref is one (type, id) reference pair, sortable per spec §4.10's ordering rules.
type Ref struct {
	Type RefType
	ID   string
}

// DeliverableFact is one factual/subjective assertion within a section
// (spec §3, §4.5).
type DeliverableFact struct {
	Text         string
	IsFactual    bool
	IsSubjective bool
	ClaimRefs    []string // kept in the order supplied; Generate does not sort them
	CalcRefs     []string // kept in the order supplied; Generate does not sort them
}

// DeliverableSection groups facts under a heading (spec §3, §4.5).
type DeliverableSection struct {
	Title string
	Facts []DeliverableFact
}

// TruthRow is one row of the TruthDashboard (spec §4.10). Generate keeps
// rows in the order supplied; it does not sort them by (dimension, assertion).
type TruthRow struct {
	Dimension string
	Assertion string
	ClaimRefs []string
	CalcRefs  []string
}

// QAItem is one row of the QABrief (spec §4.10). Generate keeps items in the
// order supplied; it does not sort them by (topic, agent_type, question).
type QAItem struct {
	Topic     string
	AgentType string
	Question  string
	Answer    string
	ClaimRefs []string
	CalcRefs  []string
}

// AuditAppendixEntry is one distinct ref enumerated in the appendix, sorted
// by (ref_type, ref_id) (spec §3, §4.10).
type AuditAppendixEntry struct {
	RefType RefType
	RefID   string
}

// Deliverable is a composite document (spec §3).
type Deliverable struct {
	Type          DeliverableType
	DealID        string
	Sections      []DeliverableSection
	TruthRows     []TruthRow
	QAItems       []QAItem
	AuditAppendix []AuditAppendixEntry
}

// RequiredAgentTypes are the eight agent report types the deliverables
// generator requires one-of-each of (spec §4.10).
var RequiredAgentTypes = []string{
	"FINANCIAL_ANALYST", "LEGAL_ANALYST", "MARKET_ANALYST", "TECH_ANALYST",
	"ADVOCATE", "SANAD_BREAKER", "CONTRADICTION_FINDER", "RISK_OFFICER",
}
