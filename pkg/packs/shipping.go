package packs

import (
	"math"
	"sort"
	"time"

	"optigate/pkg/apperror"
	"optigate/pkg/gate"
	"optigate/pkg/logger"
	"optigate/pkg/types"
)

// CarrierOffer is one shipping option for an order.
type CarrierOffer struct {
	// CarrierID identifies the carrier (e.g. "ups").
	CarrierID string `json:"carrier_id"`
	// ServiceLevel identifies the service (e.g. "ground").
	ServiceLevel string `json:"service_level"`
	// Cost of shipping with this offer.
	Cost float64 `json:"cost"`
	// EstimatedDays until delivery.
	EstimatedDays int `json:"estimated_days"`
}

// ShippingChoiceInput is the typed input of the shipping-choice pack.
type ShippingChoiceInput struct {
	// OrderID identifies the order being shipped.
	OrderID string `json:"order_id"`
	// Candidates are the available offers.
	Candidates []CarrierOffer `json:"candidates"`
	// SLADays is the delivery requirement in days.
	SLADays int `json:"sla_days"`
}

// ShippingChoiceOutput is the typed output of the shipping-choice pack.
type ShippingChoiceOutput struct {
	// SelectedCarrier is empty when no carrier could be chosen.
	SelectedCarrier string `json:"selected_carrier,omitempty"`
	// SelectedService is the chosen service level.
	SelectedService string `json:"selected_service,omitempty"`
	// Cost of the selected offer.
	Cost float64 `json:"cost"`
	// EstimatedDays of the selected offer.
	EstimatedDays int `json:"estimated_days"`
	// MeetsSLA reports whether the selection satisfies the SLA.
	MeetsSLA bool `json:"meets_sla"`
	// Alternatives ranks every offer by ascending cost.
	Alternatives []CarrierOffer `json:"alternatives"`
	// SelectionReason explains the choice in plain language.
	SelectionReason string `json:"selection_reason"`
}

// Shipping-choice invariant definitions and penalty weights.
var (
	invCarrierSelected = gate.CriticalInvariant("carrier_selected",
		"A carrier must be selected for valid orders")
	invCostPositive = gate.CriticalInvariant("cost_positive",
		"Shipping cost must be positive when a carrier is selected")
	invMeetsSLA = gate.AdvisoryInvariant("meets_sla",
		"Selected carrier should meet the SLA requirement")
	invCostReasonable = gate.AdvisoryInvariant("cost_reasonable",
		"Shipping cost should stay within 1.5x of the cheapest alternative")
)

// costReasonableFactor bounds the selected cost relative to the
// cheapest alternative.
const costReasonableFactor = 1.5

// ShippingChoicePack selects the cheapest carrier meeting an SLA, with
// a cost-only fallback when no carrier can meet it.
type ShippingChoicePack struct{}

// Name implements Pack.
func (*ShippingChoicePack) Name() string { return "shipping-choice" }

// InputSchema implements Pack.
func (*ShippingChoicePack) InputSchema() string { return "optigate.shipping_choice.input.v1" }

// OutputSchema implements Pack.
func (*ShippingChoicePack) OutputSchema() string { return "optigate.shipping_choice.output.v1" }

// Invariants implements Pack.
func (*ShippingChoicePack) Invariants() []gate.InvariantDef {
	return []gate.InvariantDef{invCarrierSelected, invCostPositive, invMeetsSLA, invCostReasonable}
}

// Solve implements Pack.
func (p *ShippingChoicePack) Solve(spec *gate.ProblemSpec) (*gate.ProposedPlan, *gate.SolverReport, error) {
	report := gate.NewReport(spec.ProblemID, "shipping-choice/argmin")
	start := time.Now()
	log := logger.WithPack(p.Name()).With("problem_id", spec.ProblemID, "tenant", spec.Tenant)

	var input ShippingChoiceInput
	if err := spec.DecodePayload(&input); err != nil {
		return nil, nil, err
	}
	for _, offer := range input.Candidates {
		if math.IsNaN(offer.Cost) || math.IsInf(offer.Cost, 0) {
			return nil, nil, apperror.InvalidInput("offer cost must be finite").
				WithDetails("carrier", offer.CarrierID)
		}
	}

	output := p.choose(input, report)
	report.Stats.SolveTimeSeconds = time.Since(start).Seconds()
	report.Stats.Iterations = len(input.Candidates)
	if output.SelectedCarrier == "" {
		report.Status = types.StatusInfeasible
	} else {
		report.Status = types.StatusOptimal
		obj := output.Cost
		report.Stats.ObjectiveValue = &obj
	}

	p.checkInvariants(output, report)

	var actions []gate.Action
	if output.SelectedCarrier != "" {
		actions = append(actions, gate.Action{
			Kind:     "select_carrier",
			Target:   output.SelectedCarrier,
			Quantity: output.Cost,
			Params: map[string]any{
				"service_level":    output.SelectedService,
				"estimated_days":   output.EstimatedDays,
				"meets_sla":        output.MeetsSLA,
				"selection_reason": output.SelectionReason,
				"alternatives":     offersAsParams(output.Alternatives),
				"order_id":         input.OrderID,
			},
		})
	}

	plan, err := newPlan(spec, report, actions, output.Cost)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("shipping choice solved",
		"carrier", output.SelectedCarrier,
		"cost", output.Cost,
		"meets_sla", output.MeetsSLA,
		"status", report.Status.String())
	return plan, report, nil
}

// offersAsParams flattens offers into plain maps so plan JSON stays
// byte-stable through decode/re-encode cycles (maps always marshal
// with sorted keys; structs would reorder after a round trip).
func offersAsParams(offers []CarrierOffer) []any {
	out := make([]any, len(offers))
	for i, offer := range offers {
		out[i] = map[string]any{
			"carrier_id":     offer.CarrierID,
			"service_level":  offer.ServiceLevel,
			"cost":           offer.Cost,
			"estimated_days": offer.EstimatedDays,
		}
	}
	return out
}

// choose ranks offers and applies the SLA-then-cost policy.
func (p *ShippingChoicePack) choose(input ShippingChoiceInput, report *gate.SolverReport) ShippingChoiceOutput {
	if len(input.Candidates) == 0 {
		report.AddDecision("no carrier selected", "order %s has no candidate offers", input.OrderID)
		return ShippingChoiceOutput{
			Alternatives:    []CarrierOffer{},
			SelectionReason: "no candidate carriers available",
		}
	}

	// Rank all offers by ascending cost; ties by carrier then service
	// so the ranking is deterministic.
	ranked := make([]CarrierOffer, len(input.Candidates))
	copy(ranked, input.Candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Cost != ranked[j].Cost {
			return ranked[i].Cost < ranked[j].Cost
		}
		if ranked[i].CarrierID != ranked[j].CarrierID {
			return ranked[i].CarrierID < ranked[j].CarrierID
		}
		return ranked[i].ServiceLevel < ranked[j].ServiceLevel
	})

	// Cheapest offer meeting the SLA wins; otherwise cheapest overall.
	for _, offer := range ranked {
		if offer.EstimatedDays <= input.SLADays {
			report.AddDecision(
				"selected carrier="+offer.CarrierID,
				"cheapest offer meeting SLA of %d days: cost=%.2f, eta=%d days",
				input.SLADays, offer.Cost, offer.EstimatedDays)
			return ShippingChoiceOutput{
				SelectedCarrier: offer.CarrierID,
				SelectedService: offer.ServiceLevel,
				Cost:            offer.Cost,
				EstimatedDays:   offer.EstimatedDays,
				MeetsSLA:        true,
				Alternatives:    ranked,
				SelectionReason: "cheapest offer meeting SLA",
			}
		}
	}

	fallback := ranked[0]
	report.AddDecision(
		"selected carrier="+fallback.CarrierID,
		"no offer meets SLA of %d days; falling back to cheapest: cost=%.2f, eta=%d days",
		input.SLADays, fallback.Cost, fallback.EstimatedDays)
	return ShippingChoiceOutput{
		SelectedCarrier: fallback.CarrierID,
		SelectedService: fallback.ServiceLevel,
		Cost:            fallback.Cost,
		EstimatedDays:   fallback.EstimatedDays,
		MeetsSLA:        false,
		Alternatives:    ranked,
		SelectionReason: "no offer meets SLA; cheapest selected",
	}
}

// checkInvariants evaluates every declared invariant; results are
// reported whole, with no short-circuiting.
func (p *ShippingChoicePack) checkInvariants(output ShippingChoiceOutput, report *gate.SolverReport) {
	if output.SelectedCarrier != "" {
		report.AddInvariant(gate.Pass(invCarrierSelected))
	} else {
		report.AddInvariant(gate.Fail(invCarrierSelected, 1.0,
			"no carrier selected: %s", output.SelectionReason))
	}

	switch {
	case output.SelectedCarrier == "":
		report.AddInvariant(gate.Pass(invCostPositive))
	case output.Cost > 0:
		report.AddInvariant(gate.Pass(invCostPositive))
	default:
		report.AddInvariant(gate.Fail(invCostPositive, 1.0,
			"invalid shipping cost: %.2f", output.Cost))
	}

	switch {
	case output.SelectedCarrier == "":
		report.AddInvariant(gate.Pass(invMeetsSLA))
	case output.MeetsSLA:
		report.AddInvariant(gate.Pass(invMeetsSLA))
	default:
		report.AddInvariant(gate.Fail(invMeetsSLA, 0.5,
			"selected carrier does not meet SLA (%d days)", output.EstimatedDays))
	}

	switch {
	case output.SelectedCarrier == "" || len(output.Alternatives) == 0:
		report.AddInvariant(gate.Pass(invCostReasonable))
	default:
		minCost := math.Inf(1)
		for _, alt := range output.Alternatives {
			if alt.Cost < minCost {
				minCost = alt.Cost
			}
		}
		if output.Cost <= minCost*costReasonableFactor {
			report.AddInvariant(gate.Pass(invCostReasonable))
		} else {
			report.AddInvariant(gate.Fail(invCostReasonable, 0.3,
				"selected cost $%.2f is significantly higher than alternative $%.2f",
				output.Cost, minCost))
		}
	}
}

// Scenarios implements Pack.
func (p *ShippingChoicePack) Scenarios() []TestScenario {
	return []TestScenario{
		{
			Name: "ups_ground_meets_sla",
			Payload: ShippingChoiceInput{
				OrderID: "ord-1",
				Candidates: []CarrierOffer{
					{CarrierID: "ups", ServiceLevel: "ground", Cost: 8.99, EstimatedDays: 5},
					{CarrierID: "fedex", ServiceLevel: "express", Cost: 15.99, EstimatedDays: 2},
				},
				SLADays: 7,
			},
			Objective:    gate.MinimizeObjective("shipping_cost"),
			WantStatus:   types.StatusOptimal,
			WantOutcome:  gate.Approve,
			WantActions:  1,
			WantObjective: 8.99,
		},
		{
			Name: "sla_fallback",
			Payload: ShippingChoiceInput{
				OrderID: "ord-2",
				Candidates: []CarrierOffer{
					{CarrierID: "ups", ServiceLevel: "ground", Cost: 8.99, EstimatedDays: 5},
				},
				SLADays: 2,
			},
			Objective:   gate.MinimizeObjective("shipping_cost"),
			WantStatus:  types.StatusOptimal,
			WantOutcome: gate.NeedsReview,
			WantActions: 1,
		},
		{
			Name: "no_candidates",
			Payload: ShippingChoiceInput{
				OrderID:    "ord-3",
				Candidates: nil,
				SLADays:    7,
			},
			Objective:   gate.MinimizeObjective("shipping_cost"),
			WantStatus:  types.StatusInfeasible,
			WantOutcome: gate.Reject,
			WantActions: 0,
		},
	}
}
