// Package scheduling provides a list-scheduling heuristic over
// interval problems.
//
// # Concepts
//
//   - Interval: a task with an earliest start, latest end, fixed
//     duration, and a resource demand.
//   - Disjunctive: tasks share one machine and may not overlap.
//   - Cumulative: tasks share a capacity and may overlap while their
//     summed demand stays within it.
//
// The heuristic sorts intervals by earliest start (ties to the lower
// id) and places each at the earliest feasible time, which makes the
// schedule deterministic.
package scheduling

import (
	"sort"
	"time"

	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

// Interval is a task to schedule.
type Interval struct {
	// ID identifies the interval in schedules and error messages.
	ID types.Index `json:"id"`
	// EarliestStart is the earliest permitted start time.
	EarliestStart int64 `json:"earliest_start"`
	// LatestEnd is the latest permitted end time.
	LatestEnd int64 `json:"latest_end"`
	// Duration is the fixed processing time.
	Duration int64 `json:"duration"`
	// Demand is the resource consumption while running (cumulative mode).
	Demand int64 `json:"demand"`
}

// NewInterval creates an interval with unit demand.
func NewInterval(id types.Index, earliestStart, latestEnd, duration int64) Interval {
	return Interval{
		ID:            id,
		EarliestStart: earliestStart,
		LatestEnd:     latestEnd,
		Duration:      duration,
		Demand:        1,
	}
}

// WithDemand returns a copy of the interval with the given demand.
func (iv Interval) WithDemand(demand int64) Interval {
	iv.Demand = demand
	return iv
}

// LatestStart is the latest time the interval may begin.
func (iv Interval) LatestStart() int64 {
	return iv.LatestEnd - iv.Duration
}

// EarliestEnd is the earliest time the interval can finish.
func (iv Interval) EarliestEnd() int64 {
	return iv.EarliestStart + iv.Duration
}

// IsFeasible reports whether the interval fits its own window.
func (iv Interval) IsFeasible() bool {
	return iv.EarliestStart+iv.Duration <= iv.LatestEnd
}

// Problem is a scheduling problem instance.
type Problem struct {
	// Intervals are the tasks to place.
	Intervals []Interval `json:"intervals"`
	// Capacity is the shared resource size (cumulative mode).
	Capacity int64 `json:"capacity"`
	// Disjunctive selects single-machine, no-overlap semantics.
	Disjunctive bool `json:"disjunctive"`
}

// Disjunctive creates a single-machine problem.
func Disjunctive(intervals []Interval) *Problem {
	return &Problem{Intervals: intervals, Capacity: 1, Disjunctive: true}
}

// Cumulative creates a shared-capacity problem.
func Cumulative(intervals []Interval, capacity int64) *Problem {
	return &Problem{Intervals: intervals, Capacity: capacity}
}

// Validate checks the problem structure.
func (p *Problem) Validate() error {
	if p == nil {
		return apperror.ErrNilProblem
	}
	if !p.Disjunctive && p.Capacity <= 0 {
		return apperror.InvalidInput("cumulative capacity must be positive").WithField("capacity")
	}
	for i, iv := range p.Intervals {
		if iv.Duration < 0 {
			return apperror.InvalidInput("interval duration must be non-negative").
				WithField("intervals").WithDetails("interval", iv.ID).WithDetails("position", i)
		}
		if !p.Disjunctive && iv.Demand > p.Capacity {
			return apperror.Infeasible("interval demand exceeds resource capacity").
				WithDetails("interval", iv.ID).
				WithDetails("demand", iv.Demand).
				WithDetails("capacity", p.Capacity)
		}
	}
	return nil
}

// ScheduledInterval is an interval with its assigned start time.
type ScheduledInterval struct {
	Interval Interval `json:"interval"`
	Start    int64    `json:"start"`
}

// End is the finish time of the placement.
func (s ScheduledInterval) End() int64 {
	return s.Start + s.Interval.Duration
}

// Solution is the result of a scheduling solve.
type Solution struct {
	// Schedule lists placements in placement order.
	Schedule []ScheduledInterval `json:"schedule"`
	// Makespan is the latest end time across placements.
	Makespan int64 `json:"makespan"`
	// Status is the termination status.
	Status types.SolverStatus `json:"status"`
	// Stats holds run measurements.
	Stats types.SolverStats `json:"stats"`
}

// ListSchedule places intervals with the list heuristic using default
// parameters.
func ListSchedule(problem *Problem) (*Solution, error) {
	return ListScheduleWithParams(problem, types.DefaultParams())
}

// ListScheduleWithParams places intervals under kernel parameters.
//
// The heuristic fails with Infeasible at the first interval whose
// earliest feasible placement would end past its latest end; nothing
// is backtracked.
func ListScheduleWithParams(problem *Problem, params types.SolverParams) (*Solution, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	order := make([]Interval, len(problem.Intervals))
	copy(order, problem.Intervals)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].EarliestStart != order[j].EarliestStart {
			return order[i].EarliestStart < order[j].EarliestStart
		}
		return order[i].ID < order[j].ID
	})

	schedule := make([]ScheduledInterval, 0, len(order))
	var currentTime int64
	var profile *demandProfile
	if !problem.Disjunctive {
		profile = newDemandProfile(problem.Capacity)
	}

	iterations := 0
	for _, iv := range order {
		iterations++
		if params.HasTimeLimit() && time.Since(start).Seconds() > params.TimeLimitSeconds {
			sol := buildSolution(schedule, types.StatusTimeout, start, iterations)
			return sol, apperror.Timeout(time.Since(start).Seconds())
		}

		var at int64
		if problem.Disjunctive {
			at = maxInt64(currentTime, iv.EarliestStart)
		} else {
			at = profile.earliestFit(iv)
		}

		if at+iv.Duration > iv.LatestEnd {
			sol := buildSolution(schedule, types.StatusInfeasible, start, iterations)
			return sol, apperror.Infeasible("interval cannot be scheduled within its time window").
				WithDetails("interval", iv.ID).
				WithDetails("placement", at).
				WithDetails("latest_end", iv.LatestEnd)
		}

		schedule = append(schedule, ScheduledInterval{Interval: iv, Start: at})
		if problem.Disjunctive {
			currentTime = at + iv.Duration
		} else {
			profile.place(iv, at)
		}
	}

	sol := buildSolution(schedule, types.StatusFeasible, start, iterations)
	obj := float64(sol.Makespan)
	sol.Stats.ObjectiveValue = &obj
	return sol, nil
}

func buildSolution(schedule []ScheduledInterval, status types.SolverStatus, start time.Time, iterations int) *Solution {
	var makespan int64
	for _, s := range schedule {
		if s.End() > makespan {
			makespan = s.End()
		}
	}
	return &Solution{
		Schedule: schedule,
		Makespan: makespan,
		Status:   status,
		Stats: types.SolverStats{
			SolveTimeSeconds: time.Since(start).Seconds(),
			Iterations:       iterations,
		},
	}
}

// demandProfile tracks resource usage over time as a sweep of
// placement events.
type demandProfile struct {
	capacity int64
	placed   []ScheduledInterval
}

func newDemandProfile(capacity int64) *demandProfile {
	return &demandProfile{capacity: capacity}
}

// earliestFit finds the earliest start ≥ the interval's earliest start
// at which the demand profile stays within capacity for the whole
// duration. Candidate starts are the interval's own earliest start and
// the end times of already placed intervals.
func (dp *demandProfile) earliestFit(iv Interval) int64 {
	candidates := []int64{iv.EarliestStart}
	for _, p := range dp.placed {
		if p.End() > iv.EarliestStart {
			candidates = append(candidates, p.End())
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	for _, at := range candidates {
		if dp.fits(iv, at) {
			return at
		}
	}
	// Unreachable while capacity ≥ demand: the point past every
	// placed end always fits.
	return candidates[len(candidates)-1]
}

// fits checks capacity over [at, at+duration).
func (dp *demandProfile) fits(iv Interval, at int64) bool {
	// Demand only changes at placement boundaries, so checking each
	// boundary inside the window suffices.
	points := []int64{at}
	for _, p := range dp.placed {
		if p.Start > at && p.Start < at+iv.Duration {
			points = append(points, p.Start)
		}
	}
	for _, point := range points {
		used := int64(0)
		for _, p := range dp.placed {
			if p.Start <= point && point < p.End() {
				used += p.Interval.Demand
			}
		}
		if used+iv.Demand > dp.capacity {
			return false
		}
	}
	return true
}

func (dp *demandProfile) place(iv Interval, at int64) {
	dp.placed = append(dp.placed, ScheduledInterval{Interval: iv, Start: at})
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
