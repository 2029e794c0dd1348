package packs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optigate/pkg/gate"
	"optigate/pkg/types"
)

func meetingSpec(t *testing.T, input MeetingSchedulerInput) *gate.ProblemSpec {
	t.Helper()
	spec, err := gate.NewSpec("meet-1", "acme").
		Objective(gate.MaximizeObjective("weighted_availability")).
		Provenance("test", "", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)).
		Payload(input).
		Build()
	require.NoError(t, err)
	return spec
}

func TestMeetingSchedulerPicksHighestWeightedSlot(t *testing.T) {
	pack := &MeetingSchedulerPack{}
	spec := meetingSpec(t, MeetingSchedulerInput{
		MeetingID: "standup",
		Slots: []MeetingSlot{
			{SlotID: "mon-0900", Start: 540},
			{SlotID: "mon-1400", Start: 840},
		},
		Participants: []MeetingParticipant{
			{ParticipantID: "alice", Weight: 1, Available: []string{"mon-0900", "mon-1400"}},
			{ParticipantID: "bob", Weight: 2, Available: []string{"mon-1400"}},
		},
	})

	plan, report, err := pack.Solve(spec)
	require.NoError(t, err)

	assert.Equal(t, types.StatusOptimal, report.Status)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, "mon-1400", plan.Actions[0].Target)
	assert.Equal(t, 3.0, plan.ObjectiveValue)
}

func TestMeetingSchedulerHonorsRequiredConflicts(t *testing.T) {
	pack := &MeetingSchedulerPack{}
	spec := meetingSpec(t, MeetingSchedulerInput{
		MeetingID: "review",
		Slots: []MeetingSlot{
			{SlotID: "a", Start: 0},
			{SlotID: "b", Start: 60},
		},
		Participants: []MeetingParticipant{
			// "a" would score higher, but the required invitee can
			// only attend "b".
			{ParticipantID: "lead", Weight: 1, Required: true, Available: []string{"b"}},
			{ParticipantID: "team1", Weight: 3, Available: []string{"a"}},
		},
	})

	plan, report, err := pack.Solve(spec)
	require.NoError(t, err)

	assert.Equal(t, "b", plan.Actions[0].Target)

	// required_present must pass; the exclusion shows in the trace.
	for _, result := range report.Invariants {
		if result.Invariant == "required_present" {
			assert.True(t, result.Passed)
		}
	}
	found := false
	for _, entry := range report.Trace {
		if entry.Decision == "excluded slot=a" {
			found = true
		}
	}
	assert.True(t, found, "exclusion decision missing from trace")
}

func TestMeetingSchedulerInfeasible(t *testing.T) {
	pack := &MeetingSchedulerPack{}
	spec := meetingSpec(t, MeetingSchedulerInput{
		MeetingID: "retro",
		Slots:     []MeetingSlot{{SlotID: "x", Start: 0}},
		Participants: []MeetingParticipant{
			{ParticipantID: "ghost", Weight: 1, Required: true, Available: nil},
		},
	})

	plan, report, err := pack.Solve(spec)
	require.NoError(t, err)

	assert.Equal(t, types.StatusInfeasible, report.Status)
	assert.True(t, plan.IsEmpty())

	decision := gate.NewPromotionGate().Evaluate(plan, report, spec.Budgets)
	assert.Equal(t, gate.Reject, decision.Outcome)
}

func TestMeetingSchedulerTieBreaksByslotOrder(t *testing.T) {
	pack := &MeetingSchedulerPack{}
	spec := meetingSpec(t, MeetingSchedulerInput{
		MeetingID: "sync",
		Slots: []MeetingSlot{
			{SlotID: "first", Start: 0},
			{SlotID: "second", Start: 60},
		},
		Participants: []MeetingParticipant{
			{ParticipantID: "p", Weight: 1, Available: []string{"first", "second"}},
		},
	})

	plan, _, err := pack.Solve(spec)
	require.NoError(t, err)
	// Equal scores: the assignment kernel's lowest-index tie-break
	// selects the earlier-listed slot.
	assert.Equal(t, "first", plan.Actions[0].Target)
}

func TestMeetingSchedulerRejectsBadWeights(t *testing.T) {
	pack := &MeetingSchedulerPack{}
	spec := meetingSpec(t, MeetingSchedulerInput{
		MeetingID:    "bad",
		Slots:        []MeetingSlot{{SlotID: "x", Start: 0}},
		Participants: []MeetingParticipant{{ParticipantID: "n", Weight: -1, Available: []string{"x"}}},
	})

	_, _, err := pack.Solve(spec)
	assert.Error(t, err)
}

func TestMeetingSchedulerDeterministic(t *testing.T) {
	pack := &MeetingSchedulerPack{}
	spec := meetingSpec(t, MeetingSchedulerInput{
		MeetingID: "standup",
		Slots: []MeetingSlot{
			{SlotID: "s1", Start: 0}, {SlotID: "s2", Start: 30}, {SlotID: "s3", Start: 60},
		},
		Participants: []MeetingParticipant{
			{ParticipantID: "a", Weight: 1.5, Available: []string{"s1", "s3"}},
			{ParticipantID: "b", Weight: 0.5, Available: []string{"s2", "s3"}},
		},
	})

	probe, err := gate.ProbeDeterminism(func() (*gate.ProposedPlan, *gate.SolverReport, error) {
		return pack.Solve(spec)
	})
	require.NoError(t, err)
	assert.True(t, probe.Stable)
}

func TestMeetingScenarios(t *testing.T) {
	for _, result := range RunAllScenarios(&MeetingSchedulerPack{}) {
		assert.True(t, result.Passed, "scenario %s failed: %v", result.Name, result.Failures)
	}
}
