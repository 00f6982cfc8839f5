package calc

import (
	"fmt"
	"math"
	"strconv"
)

// roundHalfEven rounds value to scale decimal places using round-half-to-
// even (banker's rounding), per spec §4.4: "fixed numeric precision
// (decimal arithmetic, rounding half-even at a per-formula-declared
// scale)". The pack carries no arbitrary-precision decimal library
// (documented in DESIGN.md); float64 plus math.RoundToEven on the scaled
// value gives a deterministic, byte-stable result for the magnitudes this
// engine's formulas operate on.
func roundHalfEven(value float64, scale int32) string {
	factor := math.Pow(10, float64(scale))
	rounded := math.RoundToEven(value*factor) / factor
	return strconv.FormatFloat(rounded, 'f', int(scale), 64)
}

// parseDecimal parses a decimal string input into a float64 for formula
// evaluation.
func parseDecimal(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("calc: invalid decimal input %q: %w", s, err)
	}
	return v, nil
}
