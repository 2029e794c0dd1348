// Package cp is a thin constraint-programming façade: integer
// variables with bounds, linear equality constraints, and a weighted
// minimization objective.
//
// The underlying engine is compiled in only under the `cpsat` build
// tag; without it every Solve returns an FfiRequired error and callers
// must fall back to the direct kernels. The façade's contract — new
// variable with bounds and name, add linear equality, minimize a
// weighted sum, solve to (status, values) — is stable regardless of
// the engine.
package cp

import (
	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

// Var is a handle to a model variable.
type Var struct {
	index int
}

// intVar is the stored variable definition.
type intVar struct {
	lo, hi int64
	name   string
}

// linearEq is Σ coeffs[i]·vars[i] == rhs.
type linearEq struct {
	coeffs []int64
	vars   []int
	rhs    int64
}

// objective is Σ weights[i]·vars[i], minimized.
type objective struct {
	weights []int64
	vars    []int
}

// Model is a CP model under construction. Not safe for concurrent
// mutation; build the model, then solve.
type Model struct {
	vars      []intVar
	eqs       []linearEq
	objective *objective
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{}
}

// NewIntVar adds an integer variable with inclusive bounds.
func (m *Model) NewIntVar(lo, hi int64, name string) (Var, error) {
	if lo > hi {
		return Var{}, apperror.InvalidInput("variable lower bound exceeds upper bound").
			WithField(name).
			WithDetails("lo", lo).
			WithDetails("hi", hi)
	}
	m.vars = append(m.vars, intVar{lo: lo, hi: hi, name: name})
	return Var{index: len(m.vars) - 1}, nil
}

// AddLinearEq constrains Σ coeffs[i]·vars[i] == rhs.
func (m *Model) AddLinearEq(coeffs []int64, vars []Var, rhs int64) error {
	if len(coeffs) != len(vars) {
		return apperror.DimensionMismatch(len(vars), len(coeffs))
	}
	indices := make([]int, len(vars))
	for i, v := range vars {
		if v.index < 0 || v.index >= len(m.vars) {
			return apperror.Newf(apperror.CodeIndexOutOfRange, "variable %d not in model", v.index)
		}
		indices[i] = v.index
	}
	m.eqs = append(m.eqs, linearEq{
		coeffs: append([]int64(nil), coeffs...),
		vars:   indices,
		rhs:    rhs,
	})
	return nil
}

// Minimize sets the objective to the weighted sum of vars.
func (m *Model) Minimize(weights []int64, vars []Var) error {
	if len(weights) != len(vars) {
		return apperror.DimensionMismatch(len(vars), len(weights))
	}
	indices := make([]int, len(vars))
	for i, v := range vars {
		if v.index < 0 || v.index >= len(m.vars) {
			return apperror.Newf(apperror.CodeIndexOutOfRange, "variable %d not in model", v.index)
		}
		indices[i] = v.index
	}
	m.objective = &objective{
		weights: append([]int64(nil), weights...),
		vars:    indices,
	}
	return nil
}

// NumVars returns the number of model variables.
func (m *Model) NumVars() int {
	return len(m.vars)
}

// Solve runs the engine. Returns the final status and, when a
// solution exists, one value per variable in declaration order.
func (m *Model) Solve(params types.SolverParams) (types.SolverStatus, []int64, error) {
	return solve(m, params)
}
