package calc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/expr-lang/expr/vm"

	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/idiserr"
)

// Run executes calc_type against inputValues with fixed decimal precision,
// rounding half-even at the formula's declared scale, and stamps a
// reproducibility hash over the canonical serialisation of
// (calc_type, inputs sorted by name, output, formula_hash, code_version)
// (spec §4.4).
func (r *Registry) Run(tenantID, dealID, calcType string, inputValues map[string]string) (*domain.DeterministicCalculation, error) {
	f, ok := r.Get(calcType)
	if !ok {
		return nil, idiserr.Newf(idiserr.InvalidInput, "calc: unknown calc_type %q", calcType)
	}

	floatValues := make(map[string]float64, len(inputValues))
	for name, raw := range inputValues {
		v, err := parseDecimal(raw)
		if err != nil {
			return nil, idiserr.Wrap(idiserr.InvalidInput, fmt.Sprintf("calc: input %q", name), err)
		}
		floatValues[name] = v
	}
	if err := f.validateInputs(floatValues); err != nil {
		return nil, err
	}

	env := make(map[string]any, len(floatValues))
	for name, v := range floatValues {
		env[name] = v
	}

	result, err := vm.Run(f.program, env)
	if err != nil {
		return nil, idiserr.Wrap(idiserr.CalcIntegrity, fmt.Sprintf("calc: %s evaluation failed", calcType), err)
	}
	output, ok := toFloat64(result)
	if !ok {
		return nil, idiserr.Newf(idiserr.CalcIntegrity, "calc: %s produced a non-numeric result", calcType)
	}

	names := make([]string, 0, len(inputValues))
	for name := range inputValues {
		names = append(names, name)
	}
	sort.Strings(names)

	calcOut := &domain.DeterministicCalculation{
		TenantID:    tenantID,
		DealID:      dealID,
		CalcType:    calcType,
		InputNames:  names,
		Inputs:      inputValues,
		FormulaHash: f.FormulaHash(),
		CodeVersion: f.CodeVersion,
		Output:      roundHalfEven(output, f.Scale),
	}
	calcOut.ReproducibilityHash = reproducibilityHash(calcOut)
	return calcOut, nil
}

// VerifyInputClaimsExist is the calc engine's extraction gate (spec §4.4,
// optional strict mode): before a calculation executes, every claim cited
// in its inputs must already exist in the deal's claim registry. exists is
// called once per claim id; violation fails closed.
func VerifyInputClaimsExist(inputClaimIDs []string, exists func(claimID string) bool) error {
	ids := make([]string, len(inputClaimIDs))
	copy(ids, inputClaimIDs)
	sort.Strings(ids)
	for _, id := range ids {
		if !exists(id) {
			return idiserr.Newf(idiserr.InvalidInput, "calc: extraction gate: input claim %q not found in claim registry", id)
		}
	}
	return nil
}

// VerifyReproducibility recomputes the reproducibility hash from a
// calculation's stored fields and fails with idiserr.CalcIntegrity on
// mismatch (spec §4.4: "verify_reproducibility(calc) ... raises
// CalcIntegrityError on mismatch").
func VerifyReproducibility(calc *domain.DeterministicCalculation) error {
	want := reproducibilityHash(calc)
	if want != calc.ReproducibilityHash {
		return idiserr.Newf(idiserr.CalcIntegrity,
			"calc: reproducibility hash mismatch for %s (stored %s, recomputed %s)",
			calc.CalcID, calc.ReproducibilityHash, want)
	}
	return nil
}

// reproducibilityHash canonically serialises
// (calc_type, inputs-sorted-by-name, output, formula_hash, code_version)
// and returns its sha256 hex digest.
func reproducibilityHash(calc *domain.DeterministicCalculation) string {
	names := make([]string, len(calc.InputNames))
	copy(names, calc.InputNames)
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(calc.CalcType)
	b.WriteByte('\x00')
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(calc.Inputs[name])
		b.WriteByte('\x1f')
	}
	b.WriteByte('\x00')
	b.WriteString(calc.Output)
	b.WriteByte('\x00')
	b.WriteString(calc.FormulaHash)
	b.WriteByte('\x00')
	b.WriteString(calc.CodeVersion)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// DeriveCalcSanad computes calc_grade = min(grades of material inputs); a
// material input graded D forces calc_grade = D. Non-material inputs are
// recorded in the explanation as excluded from calc_grade (spec §4.4, and
// the universal invariant in spec §8 that a material D input forces D).
func DeriveCalcSanad(calcID string, inputClaimIDs []string, inputGrades map[string]domain.Grade, materialInputNames map[string]struct{}) domain.CalcSanad {
	names := make([]string, 0, len(inputGrades))
	for name := range inputGrades {
		names = append(names, name)
	}
	sort.Strings(names)

	var explanation []domain.CalcGradeExplanationEntry
	grade := domain.GradeA
	seenMaterial := false

	for _, name := range names {
		g := inputGrades[name]
		_, material := materialInputNames[name]
		entry := domain.CalcGradeExplanationEntry{
			InputName: name,
			Grade:     g,
			Material:  material,
		}
		if !material {
			entry.Note = "excluded from calc_grade"
			explanation = append(explanation, entry)
			continue
		}
		seenMaterial = true
		if g == domain.GradeD {
			grade = domain.GradeD
			entry.Note = "material input graded D forces calc_grade = D"
		} else {
			grade = domain.Worse(grade, g)
			entry.Note = "included in calc_grade minimum"
		}
		explanation = append(explanation, entry)
	}
	if !seenMaterial {
		grade = domain.GradeD
	}

	minGrade, ok := domain.MinGrade(gradeValues(inputGrades, names))
	if !ok {
		minGrade = domain.GradeD
	}

	return domain.CalcSanad{
		CalcID:             calcID,
		InputClaimIDs:      inputClaimIDs,
		InputGrades:        inputGrades,
		MaterialInputNames: materialInputNames,
		InputMinSanadGrade: minGrade,
		CalcGrade:          grade,
		Explanation:        explanation,
	}
}

func gradeValues(grades map[string]domain.Grade, orderedNames []string) []domain.Grade {
	out := make([]domain.Grade, 0, len(orderedNames))
	for _, name := range orderedNames {
		out = append(out, grades[name])
	}
	return out
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
