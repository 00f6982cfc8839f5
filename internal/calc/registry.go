// Package calc implements the deterministic calculation engine (spec §4.4):
// a formula registry, deterministic execution with a reproducibility hash,
// and input-grade propagation into CalcSanad. Formula expressions are
// compiled once at registration with expr-lang/expr, the same library and
// compile-once-reuse-the-program pattern the teacher's DAG executor uses
// for edge conditions (internal/application/engine/condition_cache.go);
// the registry itself is a plain read-mostly map since formulas register
// at startup and the registry never recompiles on the request path.
package calc

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/smilemakc/idis/internal/idiserr"
)

// InputSpec declares one required input of a formula.
type InputSpec struct {
	Name string
	Type string // "decimal" | "int" | "string" — informational only: Run parses every input as a decimal and does not check it
}

// Formula is one registered calc_type (spec §4.4).
type Formula struct {
	CalcType    string
	Inputs      []InputSpec
	Source      string // formula source text; its sha256 is the formula_hash
	CodeVersion string
	Scale       int32 // decimal places for rounding half-even
	program     *vm.Program
}

// Registry is the process-wide, read-mostly formula registry (spec §4.4,
// §5, §9: "Singleton formula registry ... writes only during startup").
type Registry struct {
	formulas map[string]*Formula
}

// NewRegistry builds an empty Registry. Use Register to populate it at
// startup; ordinary request handling only reads.
func NewRegistry() *Registry {
	return &Registry{formulas: make(map[string]*Formula)}
}

// Register compiles and adds a formula. Compilation happens once, at
// registration time, not per-call — mirroring the teacher's compiled-
// program caching for edge conditions.
func (r *Registry) Register(f Formula) error {
	if f.CalcType == "" {
		return errors.New("calc: calc_type is required")
	}
	if _, exists := r.formulas[f.CalcType]; exists {
		return fmt.Errorf("calc: calc_type %q already registered", f.CalcType)
	}
	program, err := expr.Compile(f.Source, expr.AllowUndefinedVariables())
	if err != nil {
		return fmt.Errorf("calc: formula %q failed to compile: %w", f.CalcType, err)
	}
	f.program = program
	r.formulas[f.CalcType] = &f
	return nil
}

// Get returns the registered formula for calc_type, or false if unknown.
func (r *Registry) Get(calcType string) (*Formula, bool) {
	f, ok := r.formulas[calcType]
	return f, ok
}

// FormulaHash returns the sha256 hex digest of a formula's source text
// (spec §3: "formula_hash (sha256 of formula source)").
func (f *Formula) FormulaHash() string {
	sum := sha256.Sum256([]byte(f.Source))
	return hex.EncodeToString(sum[:])
}

// RequiredInputNames returns the formula's declared input names in
// registration order.
func (f *Formula) RequiredInputNames() []string {
	names := make([]string, len(f.Inputs))
	for i, in := range f.Inputs {
		names[i] = in.Name
	}
	return names
}

// validateInputs checks that exactly the declared inputs are present.
func (f *Formula) validateInputs(values map[string]float64) error {
	declared := make(map[string]struct{}, len(f.Inputs))
	for _, in := range f.Inputs {
		declared[in.Name] = struct{}{}
		if _, ok := values[in.Name]; !ok {
			return idiserr.Invalid(in.Name, fmt.Sprintf("calc: missing required input %q for %s", in.Name, f.CalcType))
		}
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := declared[name]; !ok {
			return idiserr.Invalid(name, fmt.Sprintf("calc: unexpected input %q for %s", name, f.CalcType))
		}
	}
	return nil
}
