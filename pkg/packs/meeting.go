package packs

import (
	"math"
	"time"

	"optigate/pkg/apperror"
	"optigate/pkg/assignment"
	"optigate/pkg/gate"
	"optigate/pkg/logger"
	"optigate/pkg/types"
)

// MeetingSlot is one candidate time slot.
type MeetingSlot struct {
	// SlotID identifies the slot (e.g. "tue-1400").
	SlotID string `json:"slot_id"`
	// Start is the slot start in minutes since the scheduling epoch.
	Start int64 `json:"start"`
}

// MeetingParticipant is one invitee with availability.
type MeetingParticipant struct {
	// ParticipantID identifies the invitee.
	ParticipantID string `json:"participant_id"`
	// Weight scales this invitee's availability in the objective.
	Weight float64 `json:"weight"`
	// Required invitees impose a hard no-conflict constraint: slots
	// they cannot attend are excluded entirely.
	Required bool `json:"required"`
	// Available lists the slot ids the invitee can attend.
	Available []string `json:"available"`
}

// MeetingSchedulerInput is the typed input of the meeting-scheduler pack.
type MeetingSchedulerInput struct {
	// MeetingID identifies the meeting being placed.
	MeetingID string `json:"meeting_id"`
	// Slots are the candidate time slots.
	Slots []MeetingSlot `json:"slots"`
	// Participants are the invitees.
	Participants []MeetingParticipant `json:"participants"`
}

// MeetingSchedulerOutput is the typed output of the meeting-scheduler pack.
type MeetingSchedulerOutput struct {
	// SelectedSlot is empty when no slot is feasible.
	SelectedSlot string `json:"selected_slot,omitempty"`
	// Score is the weighted availability achieved.
	Score float64 `json:"score"`
	// Attending lists the participants available in the chosen slot.
	Attending []string `json:"attending"`
	// Missing lists invitees unavailable in the chosen slot.
	Missing []string `json:"missing"`
	// SelectionReason explains the choice.
	SelectionReason string `json:"selection_reason"`
}

// scoreScale converts fractional participant weights into the integer
// cost domain of the assignment kernel.
const scoreScale = 1000

var (
	invSlotSelected = gate.CriticalInvariant("slot_selected",
		"A slot must be selected when at least one feasible slot exists")
	invRequiredPresent = gate.CriticalInvariant("required_present",
		"Every required participant must be available in the selected slot")
	invMajorityPresent = gate.AdvisoryInvariant("majority_present",
		"More than half of the weighted availability should be captured")
)

// MeetingSchedulerPack picks the time slot maximizing weighted
// participant availability, subject to required-participant conflicts.
//
// The choice is encoded as a 1×m assignment: one agent (the meeting)
// against the feasible slots, with cost = maxScore − slotScore, so the
// assignment kernel's deterministic tie-breaking (lowest slot index)
// carries over to slot selection.
type MeetingSchedulerPack struct{}

// Name implements Pack.
func (*MeetingSchedulerPack) Name() string { return "meeting-scheduler" }

// InputSchema implements Pack.
func (*MeetingSchedulerPack) InputSchema() string { return "optigate.meeting_scheduler.input.v1" }

// OutputSchema implements Pack.
func (*MeetingSchedulerPack) OutputSchema() string { return "optigate.meeting_scheduler.output.v1" }

// Invariants implements Pack.
func (*MeetingSchedulerPack) Invariants() []gate.InvariantDef {
	return []gate.InvariantDef{invSlotSelected, invRequiredPresent, invMajorityPresent}
}

// Solve implements Pack.
func (p *MeetingSchedulerPack) Solve(spec *gate.ProblemSpec) (*gate.ProposedPlan, *gate.SolverReport, error) {
	report := gate.NewReport(spec.ProblemID, "meeting-scheduler/assignment")
	start := time.Now()
	log := logger.WithPack(p.Name()).With("problem_id", spec.ProblemID, "tenant", spec.Tenant)

	var input MeetingSchedulerInput
	if err := spec.DecodePayload(&input); err != nil {
		return nil, nil, err
	}
	for _, participant := range input.Participants {
		if math.IsNaN(participant.Weight) || math.IsInf(participant.Weight, 0) || participant.Weight < 0 {
			return nil, nil, apperror.InvalidInput("participant weight must be finite and non-negative").
				WithDetails("participant", participant.ParticipantID)
		}
	}

	output, solveErr := p.pick(input, spec, report)
	if solveErr != nil {
		switch apperror.Code(solveErr) {
		case apperror.CodeInfeasible, apperror.CodeTimeout, apperror.CodeNoConvergence:
			// Translated into report status below.
		default:
			return nil, nil, solveErr
		}
	}
	report.Stats.SolveTimeSeconds = time.Since(start).Seconds()

	if output.SelectedSlot == "" {
		report.Status = types.StatusInfeasible
	} else {
		report.Status = types.StatusOptimal
		obj := output.Score
		report.Stats.ObjectiveValue = &obj
	}

	p.checkInvariants(input, output, report)

	var actions []gate.Action
	if output.SelectedSlot != "" {
		actions = append(actions, gate.Action{
			Kind:     "schedule_meeting",
			Target:   output.SelectedSlot,
			Quantity: output.Score,
			Params: map[string]any{
				"meeting_id":       input.MeetingID,
				"attending":        output.Attending,
				"missing":          output.Missing,
				"selection_reason": output.SelectionReason,
			},
		})
	}

	plan, err := newPlan(spec, report, actions, output.Score)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("meeting scheduled",
		"slot", output.SelectedSlot,
		"score", output.Score,
		"status", report.Status.String())
	return plan, report, nil
}

// pick filters infeasible slots and runs the assignment encoding.
func (p *MeetingSchedulerPack) pick(input MeetingSchedulerInput, spec *gate.ProblemSpec, report *gate.SolverReport) (MeetingSchedulerOutput, error) {
	availability := make(map[string]map[string]bool, len(input.Participants))
	for _, participant := range input.Participants {
		slots := make(map[string]bool, len(participant.Available))
		for _, slotID := range participant.Available {
			slots[slotID] = true
		}
		availability[participant.ParticipantID] = slots
	}

	// A slot is feasible when every required participant can attend.
	type scoredSlot struct {
		slot  MeetingSlot
		score float64
	}
	var feasible []scoredSlot
	for _, slot := range input.Slots {
		blocked := false
		for _, participant := range input.Participants {
			if participant.Required && !availability[participant.ParticipantID][slot.SlotID] {
				blocked = true
				report.AddDecision("excluded slot="+slot.SlotID,
					"required participant %s is unavailable", participant.ParticipantID)
				break
			}
		}
		if blocked {
			continue
		}
		score := 0.0
		for _, participant := range input.Participants {
			if availability[participant.ParticipantID][slot.SlotID] {
				score += participant.Weight
			}
		}
		feasible = append(feasible, scoredSlot{slot: slot, score: score})
	}

	if len(feasible) == 0 {
		report.AddDecision("no slot selected", "no slot satisfies every required participant")
		return MeetingSchedulerOutput{
			Attending:       []string{},
			Missing:         []string{},
			SelectionReason: "no feasible slot",
		}, nil
	}

	// Assignment encoding: cost = maxScore − score, in fixed-point.
	maxScore := 0.0
	for _, s := range feasible {
		if s.score > maxScore {
			maxScore = s.score
		}
	}
	costs := make([]types.Cost, len(feasible))
	for i, s := range feasible {
		costs[i] = types.Cost(math.Round((maxScore - s.score) * scoreScale))
	}
	solution, err := assignment.SolveWithParams(
		assignment.FromCosts([][]types.Cost{costs}),
		spec.Budgets.ToSolverParams(spec.Seed()),
	)
	if err != nil {
		return MeetingSchedulerOutput{SelectionReason: "assignment solve failed"}, err
	}
	report.Stats.Iterations = solution.Stats.Iterations

	chosenIdx, ok := solution.TaskForAgent(0)
	if !ok {
		return MeetingSchedulerOutput{SelectionReason: "assignment left the meeting unplaced"},
			apperror.Internal("assignment returned no slot for a non-empty feasible set")
	}
	chosen := feasible[chosenIdx]

	var attending, missing []string
	for _, participant := range input.Participants {
		if availability[participant.ParticipantID][chosen.slot.SlotID] {
			attending = append(attending, participant.ParticipantID)
		} else {
			missing = append(missing, participant.ParticipantID)
		}
	}
	report.AddDecision("selected slot="+chosen.slot.SlotID,
		"weighted availability %.2f of %.2f attainable", chosen.score, maxScore)

	return MeetingSchedulerOutput{
		SelectedSlot:    chosen.slot.SlotID,
		Score:           chosen.score,
		Attending:       attending,
		Missing:         missing,
		SelectionReason: "slot with highest weighted availability",
	}, nil
}

// checkInvariants evaluates the pack invariants on the output.
func (p *MeetingSchedulerPack) checkInvariants(input MeetingSchedulerInput, output MeetingSchedulerOutput, report *gate.SolverReport) {
	anySlots := len(input.Slots) > 0
	if output.SelectedSlot != "" || !anySlots {
		report.AddInvariant(gate.Pass(invSlotSelected))
	} else if report.Status == types.StatusInfeasible {
		// Infeasibility is a legitimate no-selection outcome.
		report.AddInvariant(gate.Pass(invSlotSelected))
	} else {
		report.AddInvariant(gate.Fail(invSlotSelected, 1.0, "no slot selected: %s", output.SelectionReason))
	}

	requiredMissing := ""
	if output.SelectedSlot != "" {
		missing := make(map[string]bool, len(output.Missing))
		for _, id := range output.Missing {
			missing[id] = true
		}
		for _, participant := range input.Participants {
			if participant.Required && missing[participant.ParticipantID] {
				requiredMissing = participant.ParticipantID
				break
			}
		}
	}
	if requiredMissing == "" {
		report.AddInvariant(gate.Pass(invRequiredPresent))
	} else {
		report.AddInvariant(gate.Fail(invRequiredPresent, 1.0,
			"required participant %s missing from selected slot", requiredMissing))
	}

	totalWeight := 0.0
	for _, participant := range input.Participants {
		totalWeight += participant.Weight
	}
	if output.SelectedSlot == "" || totalWeight == 0 || output.Score > totalWeight/2 {
		report.AddInvariant(gate.Pass(invMajorityPresent))
	} else {
		report.AddInvariant(gate.Fail(invMajorityPresent, 0.4,
			"captured weight %.2f is at most half of total %.2f", output.Score, totalWeight))
	}
}

// Scenarios implements Pack.
func (p *MeetingSchedulerPack) Scenarios() []TestScenario {
	return []TestScenario{
		{
			Name: "picks_best_attended_slot",
			Payload: MeetingSchedulerInput{
				MeetingID: "standup",
				Slots: []MeetingSlot{
					{SlotID: "mon-0900", Start: 540},
					{SlotID: "mon-1400", Start: 840},
				},
				Participants: []MeetingParticipant{
					{ParticipantID: "alice", Weight: 1, Required: true, Available: []string{"mon-0900", "mon-1400"}},
					{ParticipantID: "bob", Weight: 1, Available: []string{"mon-1400"}},
					{ParticipantID: "carol", Weight: 1, Available: []string{"mon-1400"}},
				},
			},
			Objective:   gate.MaximizeObjective("weighted_availability"),
			WantStatus:  types.StatusOptimal,
			WantOutcome: gate.Approve,
			WantActions: 1,
			WantObjective: 3,
		},
		{
			Name: "required_conflict_excludes_slot",
			Payload: MeetingSchedulerInput{
				MeetingID: "review",
				Slots: []MeetingSlot{
					{SlotID: "tue-1000", Start: 600},
					{SlotID: "tue-1500", Start: 900},
				},
				Participants: []MeetingParticipant{
					{ParticipantID: "dave", Weight: 1, Required: true, Available: []string{"tue-1500"}},
					{ParticipantID: "erin", Weight: 5, Available: []string{"tue-1000"}},
				},
			},
			Objective:   gate.MaximizeObjective("weighted_availability"),
			WantStatus:  types.StatusOptimal,
			WantOutcome: gate.NeedsReview, // only 1/6 of the weight attends
			WantActions: 1,
			WantObjective: 1,
		},
		{
			Name: "no_feasible_slot",
			Payload: MeetingSchedulerInput{
				MeetingID: "retro",
				Slots: []MeetingSlot{
					{SlotID: "wed-0900", Start: 540},
				},
				Participants: []MeetingParticipant{
					{ParticipantID: "frank", Weight: 1, Required: true, Available: nil},
				},
			},
			Objective:   gate.MaximizeObjective("weighted_availability"),
			WantStatus:  types.StatusInfeasible,
			WantOutcome: gate.Reject,
			WantActions: 0,
		},
	}
}
