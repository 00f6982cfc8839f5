package domain

// DeterministicCalculation is a reproducibility-hashed numeric computation
// (spec §3, §4.4). Inputs are an ordered map so canonical serialisation is
// deterministic regardless of insertion order.
type DeterministicCalculation struct {
	CalcID            string
	TenantID          string
	DealID            string
	CalcType          string
	InputNames        []string // declares the canonical ordering of Inputs
	Inputs            map[string]string // decimal values, serialised as strings (see internal/calc)
	FormulaHash       string            // sha256 of formula source
	CodeVersion       string
	Output            string // decimal value, serialised as a string
	ReproducibilityHash string
}

// CalcSanad binds a calculation to its input claims' grades (spec §3, §4.4).
type CalcSanad struct {
	CalcID             string
	InputClaimIDs      []string
	InputGrades        map[string]Grade // input name -> grade, for every input
	MaterialInputNames map[string]struct{}
	InputMinSanadGrade Grade
	CalcGrade          Grade
	Explanation        []CalcGradeExplanationEntry
}

// CalcGradeExplanationEntry documents why one input did or did not
// participate in the calc_grade minimum (spec §4.4).
type CalcGradeExplanationEntry struct {
	InputName string
	ClaimID   string
	Grade     Grade
	Material  bool
	Note      string // e.g. "excluded from calc_grade" for non-material inputs
}
