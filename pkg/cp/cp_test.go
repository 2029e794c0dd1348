package cp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optigate/pkg/apperror"
)

func TestModelConstruction(t *testing.T) {
	m := NewModel()

	x, err := m.NewIntVar(0, 10, "x")
	require.NoError(t, err)
	y, err := m.NewIntVar(0, 10, "y")
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumVars())

	require.NoError(t, m.AddLinearEq([]int64{1, 1}, []Var{x, y}, 7))
	require.NoError(t, m.Minimize([]int64{3, 1}, []Var{x, y}))
}

func TestModelValidation(t *testing.T) {
	m := NewModel()

	_, err := m.NewIntVar(5, 1, "bad")
	assert.True(t, apperror.Is(err, apperror.CodeInvalidInput))

	x, err := m.NewIntVar(0, 1, "x")
	require.NoError(t, err)

	err = m.AddLinearEq([]int64{1, 2}, []Var{x}, 0)
	assert.True(t, apperror.Is(err, apperror.CodeDimensionMismatch))

	err = m.AddLinearEq([]int64{1}, []Var{{index: 9}}, 0)
	assert.True(t, apperror.Is(err, apperror.CodeIndexOutOfRange))

	err = m.Minimize([]int64{1, 2}, []Var{x})
	assert.True(t, apperror.Is(err, apperror.CodeDimensionMismatch))
}
