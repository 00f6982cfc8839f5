package domain

import "time"

// RunMode selects the canonical step sequence (spec §4.8).
type RunMode string

const (
	ModeSnapshot RunMode = "SNAPSHOT"
	ModeFull     RunMode = "FULL"
)

// RunStatus is the sealed run-status enum (spec §3, §4.8).
type RunStatus string

const (
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
	RunPartial   RunStatus = "PARTIAL"
	RunBlocked   RunStatus = "BLOCKED"
	RunRunning   RunStatus = "RUNNING"
)

// Run is one pipeline execution (spec §3).
type Run struct {
	RunID    string
	TenantID string
	DealID   string
	Mode     RunMode
	Status   RunStatus
}

// StepStatus is the sealed per-step status enum (spec §3).
type StepStatus string

const (
	StepPending   StepStatus = "PENDING"
	StepRunning   StepStatus = "RUNNING"
	StepCompleted StepStatus = "COMPLETED"
	StepFailed    StepStatus = "FAILED"
	StepBlocked   StepStatus = "BLOCKED"
)

// RunStep is one row of the durable step ledger (spec §3, §4.8).
type RunStep struct {
	StepID        string
	RunID         string
	TenantID      string
	StepName      string
	StepOrder     int
	Status        StepStatus
	StartedAt     time.Time
	FinishedAt    *time.Time
	RetryCount    int
	ResultSummary map[string]any
	ErrorCode     string
	ErrorMessage  string
}

// SnapshotSequence is the canonical SNAPSHOT step order (spec §4.8).
var SnapshotSequence = []string{"INGEST_CHECK", "EXTRACT", "GRADE", "CALC"}

// FullSequence is the canonical FULL step order (spec §4.8).
var FullSequence = []string{
	"INGEST_CHECK", "EXTRACT", "GRADE", "CALC",
	"ENRICHMENT", "DEBATE", "ANALYSIS", "SCORING", "DELIVERABLES",
}

// SequenceFor returns the canonical step name order for a run mode.
func SequenceFor(mode RunMode) []string {
	if mode == ModeFull {
		return FullSequence
	}
	return SnapshotSequence
}
