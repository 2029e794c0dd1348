package assignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

func TestHungarian(t *testing.T) {
	tests := []struct {
		name            string
		costs           [][]types.Cost
		wantAssignments []types.Index
		wantCost        types.Cost
	}{
		{
			name: "three_by_three",
			costs: [][]types.Cost{
				{10, 5, 13},
				{3, 9, 18},
				{14, 8, 7},
			},
			wantAssignments: []types.Index{1, 0, 2},
			wantCost:        15,
		},
		{
			name: "two_by_two",
			costs: [][]types.Cost{
				{1, 2},
				{3, 4},
			},
			wantAssignments: []types.Index{0, 1},
			wantCost:        5,
		},
		{
			name:            "single_cell",
			costs:           [][]types.Cost{{7}},
			wantAssignments: []types.Index{0},
			wantCost:        7,
		},
		{
			name: "negative_costs",
			costs: [][]types.Cost{
				{-5, 0},
				{0, -5},
			},
			wantAssignments: []types.Index{0, 1},
			wantCost:        -10,
		},
		{
			name: "identity_diagonal",
			costs: [][]types.Cost{
				{0, 9, 9},
				{9, 0, 9},
				{9, 9, 0},
			},
			wantAssignments: []types.Index{0, 1, 2},
			wantCost:        0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			solution, err := Solve(FromCosts(tt.costs))
			require.NoError(t, err)

			assert.Equal(t, types.StatusOptimal, solution.Status)
			assert.Equal(t, tt.wantAssignments, solution.Assignments)
			assert.Equal(t, tt.wantCost, solution.TotalCost)
			require.NotNil(t, solution.Stats.ObjectiveValue)
			assert.Equal(t, float64(tt.wantCost), *solution.Stats.ObjectiveValue)
		})
	}
}

func TestHungarianRectangular(t *testing.T) {
	t.Run("more_agents_than_tasks", func(t *testing.T) {
		// Three agents, two tasks: exactly one agent stays unassigned.
		problem := FromCosts([][]types.Cost{
			{10, 10},
			{1, 10},
			{10, 1},
		})
		solution, err := Solve(problem)
		require.NoError(t, err)

		assert.Equal(t, types.StatusOptimal, solution.Status)
		assert.Equal(t, []types.Index{types.Unassigned, 0, 1}, solution.Assignments)
		assert.Equal(t, types.Cost(2), solution.TotalCost)
	})

	t.Run("more_tasks_than_agents", func(t *testing.T) {
		problem := FromCosts([][]types.Cost{
			{9, 1, 9},
		})
		solution, err := Solve(problem)
		require.NoError(t, err)

		assert.Equal(t, []types.Index{1}, solution.Assignments)
		assert.Equal(t, types.Cost(1), solution.TotalCost)
	})
}

func TestHungarianTieBreaksLowestTask(t *testing.T) {
	// All costs equal: the deterministic tie-break is the identity.
	problem := FromCosts([][]types.Cost{
		{5, 5, 5},
		{5, 5, 5},
		{5, 5, 5},
	})
	solution, err := Solve(problem)
	require.NoError(t, err)
	assert.Equal(t, []types.Index{0, 1, 2}, solution.Assignments)
	assert.Equal(t, types.Cost(15), solution.TotalCost)
}

func TestAuction(t *testing.T) {
	tests := []struct {
		name     string
		costs    [][]types.Cost
		wantCost types.Cost
	}{
		{
			name: "three_by_three",
			costs: [][]types.Cost{
				{10, 5, 13},
				{3, 9, 18},
				{14, 8, 7},
			},
			wantCost: 15,
		},
		{
			name: "two_by_two",
			costs: [][]types.Cost{
				{1, 2},
				{3, 4},
			},
			wantCost: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			solution, err := AuctionSolver{}.Solve(FromCosts(tt.costs), types.DefaultParams())
			require.NoError(t, err)
			assert.Equal(t, types.StatusOptimal, solution.Status)
			assert.Equal(t, tt.wantCost, solution.TotalCost)
		})
	}
}

func TestAuctionFallsBackOnRectangular(t *testing.T) {
	problem := FromCosts([][]types.Cost{
		{4, 1, 3},
		{2, 0, 5},
	})
	solution, err := AuctionSolver{}.Solve(problem, types.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, types.StatusOptimal, solution.Status)
	assert.Equal(t, types.Cost(3), solution.TotalCost)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		problem *Problem
		code    apperror.ErrorCode
	}{
		{"nil_problem", nil, apperror.CodeNilInput},
		{"no_agents", FromCosts(nil), apperror.CodeInvalidInput},
		{"no_tasks", FromCosts([][]types.Cost{{}}), apperror.CodeInvalidInput},
		{
			"ragged_rows",
			&Problem{Costs: [][]types.Cost{{1, 2}, {3}}, NumAgents: 2, NumTasks: 2},
			apperror.CodeDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Solve(tt.problem)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestFromFlat(t *testing.T) {
	problem, err := FromFlat([]types.Cost{1, 2, 3, 4}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, problem.NumAgents)
	assert.Equal(t, 2, problem.NumTasks)
	assert.Equal(t, types.Cost(1), problem.Cost(0, 0))
	assert.Equal(t, types.Cost(4), problem.Cost(1, 1))

	_, err = FromFlat([]types.Cost{1, 2, 3}, 2)
	assert.True(t, apperror.Is(err, apperror.CodeDimensionMismatch))
}

func TestIterationLimitReturnsPartial(t *testing.T) {
	problem := FromCosts([][]types.Cost{
		{10, 5, 13},
		{3, 9, 18},
		{14, 8, 7},
	})
	solution, err := HungarianSolver{}.Solve(problem, types.SolverParams{IterationLimit: 1})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeNoConvergence))
	require.NotNil(t, solution)
	assert.Equal(t, types.StatusIterationLimit, solution.Status)
	assert.Len(t, solution.Assignments, 3)
}

func TestTaskForAgent(t *testing.T) {
	solution := &Solution{Assignments: []types.Index{1, types.Unassigned}}

	task, ok := solution.TaskForAgent(0)
	assert.True(t, ok)
	assert.Equal(t, types.Index(1), task)

	_, ok = solution.TaskForAgent(1)
	assert.False(t, ok)

	_, ok = solution.TaskForAgent(5)
	assert.False(t, ok)
}
