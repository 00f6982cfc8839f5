package domain

// DefectType enumerates every detectable defect across Shudhudh, I'lal, and
// COI detection (spec §4.3). This is the single canonical severity table
// (spec §9 open question 1): the claims service and the sanad engine both
// import it rather than keeping their own copies.
type DefectType string

const (
	DefectShudhudhAnomaly     DefectType = "SHUDHUDH_ANOMALY"
	DefectShudhudhUnitMismatch DefectType = "SHUDHUDH_UNIT_MISMATCH"
	DefectShudhudhTimeWindow  DefectType = "SHUDHUDH_TIME_WINDOW"
	DefectIlalChainBreak      DefectType = "ILAL_CHAIN_BREAK"
	DefectIlalChainGrafting   DefectType = "ILAL_CHAIN_GRAFTING"
	DefectIlalChronologyImpossible DefectType = "ILAL_CHRONOLOGY_IMPOSSIBLE"
	DefectIlalVersionDrift    DefectType = "ILAL_VERSION_DRIFT"
	DefectCOIHighUndisclosed  DefectType = "COI_HIGH_UNDISCLOSED"
)

// Severity is the sealed defect severity enum (spec §3).
type Severity string

const (
	SeverityFatal Severity = "FATAL"
	SeverityMajor Severity = "MAJOR"
	SeverityMinor Severity = "MINOR"
)

// DefectSeverityTable is the canonical defect_type -> severity mapping. Any
// conflict between this table and a per-service copy is the bug the spec's
// open question flags; there must be exactly one of these in the repo.
var DefectSeverityTable = map[DefectType]Severity{
	DefectShudhudhAnomaly:          SeverityMajor,
	DefectShudhudhUnitMismatch:     SeverityMajor,
	DefectShudhudhTimeWindow:       SeverityMajor,
	DefectIlalChainBreak:           SeverityFatal,
	DefectIlalChainGrafting:        SeverityFatal,
	DefectIlalChronologyImpossible: SeverityFatal,
	DefectIlalVersionDrift:         SeverityMajor,
	DefectCOIHighUndisclosed:       SeverityMajor,
}

// DefectStatus is the sealed defect lifecycle enum (spec §3).
type DefectStatus string

const (
	DefectOpen   DefectStatus = "OPEN"
	DefectCured  DefectStatus = "CURED"
	DefectWaived DefectStatus = "WAIVED"
)

// Defect is a recorded flaw in a claim's provenance (spec §3).
type Defect struct {
	DefectID      string
	TenantID      string
	ClaimID       string
	DealID        string
	DefectType    DefectType
	Severity      Severity
	Description   string
	CureProtocol  string
	Status        DefectStatus
	WaivedBy      *string
	WaiverReason  *string
	CuredBy       *string
	CuredReason   *string
}

// NewDefect constructs a Defect, deriving severity from the canonical table.
func NewDefect(defectID, tenantID, claimID, dealID string, defectType DefectType, description, cureProtocol string) Defect {
	severity, ok := DefectSeverityTable[defectType]
	if !ok {
		severity = SeverityMajor // unknown defect types fail closed to MAJOR, never silently MINOR
	}
	return Defect{
		DefectID:     defectID,
		TenantID:     tenantID,
		ClaimID:      claimID,
		DealID:       dealID,
		DefectType:   defectType,
		Severity:     severity,
		Description:  description,
		CureProtocol: cureProtocol,
		Status:       DefectOpen,
	}
}

// Cure transitions an OPEN defect to CURED. Terminal states accept no
// further transitions (spec §3).
func (d *Defect) Cure(actor, reason string) error {
	if d.Status != DefectOpen {
		return errDefectTerminalState
	}
	if actor == "" {
		return errDefectEmptyActor
	}
	if reason == "" {
		return errDefectEmptyReason
	}
	d.Status = DefectCured
	d.CuredBy = &actor
	d.CuredReason = &reason
	return nil
}

// Waive transitions an OPEN defect to WAIVED. Terminal states accept no
// further transitions (spec §3).
func (d *Defect) Waive(actor, reason string) error {
	if d.Status != DefectOpen {
		return errDefectTerminalState
	}
	if actor == "" {
		return errDefectEmptyActor
	}
	if reason == "" {
		return errDefectEmptyReason
	}
	d.Status = DefectWaived
	d.WaivedBy = &actor
	d.WaiverReason = &reason
	return nil
}
