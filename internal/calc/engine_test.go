package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/idiserr"
)

func runwayRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	err := r.Register(Formula{
		CalcType:    "RUNWAY_MONTHS",
		Inputs:      []InputSpec{{Name: "cash", Type: "decimal"}, {Name: "burn", Type: "decimal"}},
		Source:      "burn > 0 ? cash / burn : 0",
		CodeVersion: "v1",
		Scale:       2,
	})
	require.NoError(t, err)
	return r
}

func TestRun_ComputesAndStampsReproducibilityHash(t *testing.T) {
	r := runwayRegistry(t)

	out, err := r.Run("tenant_1", "deal_1", "RUNWAY_MONTHS", map[string]string{
		"cash": "1200000",
		"burn": "100000",
	})
	require.NoError(t, err)
	assert.Equal(t, "12.00", out.Output)
	assert.NotEmpty(t, out.ReproducibilityHash)
	assert.NoError(t, VerifyReproducibility(out))
}

func TestRun_MissingInput_FailsInvalid(t *testing.T) {
	r := runwayRegistry(t)

	_, err := r.Run("tenant_1", "deal_1", "RUNWAY_MONTHS", map[string]string{"cash": "1200000"})
	require.Error(t, err)
	kind, ok := idiserr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_INPUT", string(kind))
}

func TestRun_UnknownCalcType_FailsInvalid(t *testing.T) {
	r := runwayRegistry(t)

	_, err := r.Run("tenant_1", "deal_1", "NOT_REGISTERED", map[string]string{})
	require.Error(t, err)
}

func TestVerifyReproducibility_DetectsTamper(t *testing.T) {
	r := runwayRegistry(t)

	out, err := r.Run("tenant_1", "deal_1", "RUNWAY_MONTHS", map[string]string{
		"cash": "1200000",
		"burn": "100000",
	})
	require.NoError(t, err)

	out.Output = "99.00" // simulate tampering after storage
	err = VerifyReproducibility(out)
	require.Error(t, err)
	kind, ok := idiserr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, "CALC_INTEGRITY", string(kind))
}

func TestRoundHalfEven_BankersRounding(t *testing.T) {
	assert.Equal(t, "2.00", roundHalfEven(2.005, 2)) // classic float representation edge case
	assert.Equal(t, "2", roundHalfEven(2.5, 0))
	assert.Equal(t, "4", roundHalfEven(3.5, 0))
}

func TestDeriveCalcSanad_MaterialGradeDForcesD(t *testing.T) {
	sanad := DeriveCalcSanad(
		"calc_1",
		[]string{"claim_cash", "claim_burn", "claim_note"},
		map[string]domain.Grade{
			"cash": domain.GradeA,
			"burn": domain.GradeD,
			"note": domain.GradeA,
		},
		map[string]struct{}{"cash": {}, "burn": {}},
	)

	assert.Equal(t, domain.GradeD, sanad.CalcGrade)
	noteEntry := findEntry(sanad.Explanation, "note")
	require.NotNil(t, noteEntry)
	assert.False(t, noteEntry.Material)
	assert.Equal(t, "excluded from calc_grade", noteEntry.Note)
}

func TestDeriveCalcSanad_AllMaterialGoodGrades_TakesWorst(t *testing.T) {
	sanad := DeriveCalcSanad(
		"calc_2",
		[]string{"claim_cash", "claim_burn"},
		map[string]domain.Grade{
			"cash": domain.GradeA,
			"burn": domain.GradeB,
		},
		map[string]struct{}{"cash": {}, "burn": {}},
	)

	assert.Equal(t, domain.GradeB, sanad.CalcGrade)
}

func findEntry(entries []domain.CalcGradeExplanationEntry, name string) *domain.CalcGradeExplanationEntry {
	for i := range entries {
		if entries[i].InputName == name {
			return &entries[i]
		}
	}
	return nil
}
