//go:build !cpsat

package cp

import (
	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

// solve is the engine-less fallback: the façade compiles but every
// solve reports that the engine was compiled out.
func solve(_ *Model, _ types.SolverParams) (types.SolverStatus, []int64, error) {
	return types.StatusUnknown, nil, apperror.FfiRequired("cp")
}
