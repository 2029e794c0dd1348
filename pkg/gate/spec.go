package gate

import (
	"math"
	"time"

	"github.com/goccy/go-json"

	"optigate/pkg/apperror"
	"optigate/pkg/cache"
)

// Direction of an objective.
type Direction string

const (
	// Minimize drives the objective downward.
	Minimize Direction = "minimize"
	// Maximize drives the objective upward.
	Maximize Direction = "maximize"
)

// ObjectiveSpec names the quantity a solve optimizes.
type ObjectiveSpec struct {
	// Name of the objective (e.g. "cost", "makespan").
	Name string `json:"name"`
	// Direction of optimization.
	Direction Direction `json:"direction"`
}

// MinimizeObjective builds a minimizing objective.
func MinimizeObjective(name string) ObjectiveSpec {
	return ObjectiveSpec{Name: name, Direction: Minimize}
}

// MaximizeObjective builds a maximizing objective.
func MaximizeObjective(name string) ObjectiveSpec {
	return ObjectiveSpec{Name: name, Direction: Maximize}
}

// ConstraintOp is a constraint comparison operator.
type ConstraintOp string

const (
	OpLessEq    ConstraintOp = "le"
	OpGreaterEq ConstraintOp = "ge"
	OpEqual     ConstraintOp = "eq"
)

// ConstraintSpec is one named bound on the solution.
type ConstraintSpec struct {
	// Name of the constrained quantity.
	Name string `json:"name"`
	// Op compares the quantity against Bound.
	Op ConstraintOp `json:"op"`
	// Bound is the numeric limit.
	Bound float64 `json:"bound"`
}

// Provenance records where a spec came from.
type Provenance struct {
	// Caller identifies the requesting system or user.
	Caller string `json:"caller"`
	// ParentRequest links to the surrounding workflow request.
	ParentRequest string `json:"parent_request,omitempty"`
	// Timestamp is when the spec was created.
	Timestamp time.Time `json:"timestamp"`
}

// ProblemSpec is the immutable, tenant-scoped description of one solve.
//
// The pack-specific input travels as an opaque payload that the chosen
// pack decodes; everything else is pack-independent governance data.
type ProblemSpec struct {
	// ProblemID is unique within the tenant.
	ProblemID string `json:"problem_id"`
	// Tenant scopes the spec.
	Tenant string `json:"tenant"`
	// Objective describes what is optimized.
	Objective ObjectiveSpec `json:"objective"`
	// Constraints bound the solution.
	Constraints []ConstraintSpec `json:"constraints,omitempty"`
	// Budgets limit the solve resources.
	Budgets SolveBudgets `json:"budgets"`
	// Provenance records the request origin.
	Provenance Provenance `json:"provenance"`
	// Payload is the pack-specific typed input, encoded opaquely.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ContentHash returns the canonical hash of the spec. Two specs with
// identical content hash identically, independent of process or run.
func (s *ProblemSpec) ContentHash() (string, error) {
	return cache.ContentHash(s)
}

// Seed derives the deterministic solver seed from the spec content.
func (s *ProblemSpec) Seed() uint64 {
	hash, err := s.ContentHash()
	if err != nil {
		return 0
	}
	return cache.SeedFromHash(hash)
}

// DecodePayload unmarshals the opaque payload into a pack input type.
func (s *ProblemSpec) DecodePayload(v any) error {
	if len(s.Payload) == 0 {
		return apperror.InvalidInput("spec has no payload").WithField("payload")
	}
	if err := json.Unmarshal(s.Payload, v); err != nil {
		return apperror.Wrap(err, apperror.CodeInvalidInput, "decode payload")
	}
	return nil
}

// SpecBuilder assembles a ProblemSpec and validates it on Build.
type SpecBuilder struct {
	spec ProblemSpec
	err  error
}

// NewSpec starts a builder for the given problem id and tenant.
func NewSpec(problemID, tenant string) *SpecBuilder {
	return &SpecBuilder{
		spec: ProblemSpec{
			ProblemID: problemID,
			Tenant:    tenant,
			Budgets:   DefaultBudgets(),
		},
	}
}

// Objective sets the objective.
func (b *SpecBuilder) Objective(objective ObjectiveSpec) *SpecBuilder {
	b.spec.Objective = objective
	return b
}

// Constraint appends a constraint.
func (b *SpecBuilder) Constraint(name string, op ConstraintOp, bound float64) *SpecBuilder {
	b.spec.Constraints = append(b.spec.Constraints, ConstraintSpec{Name: name, Op: op, Bound: bound})
	return b
}

// Budgets sets the solve budgets.
func (b *SpecBuilder) Budgets(budgets SolveBudgets) *SpecBuilder {
	b.spec.Budgets = budgets
	return b
}

// Provenance sets the provenance record.
func (b *SpecBuilder) Provenance(caller, parentRequest string, at time.Time) *SpecBuilder {
	b.spec.Provenance = Provenance{Caller: caller, ParentRequest: parentRequest, Timestamp: at.UTC()}
	return b
}

// Payload encodes the pack input into the spec.
func (b *SpecBuilder) Payload(v any) *SpecBuilder {
	data, err := json.Marshal(v)
	if err != nil && b.err == nil {
		b.err = apperror.Wrap(err, apperror.CodeInvalidInput, "encode payload")
	}
	b.spec.Payload = data
	return b
}

// RawPayload sets an already encoded payload.
func (b *SpecBuilder) RawPayload(data json.RawMessage) *SpecBuilder {
	b.spec.Payload = data
	return b
}

// Build validates and returns the immutable spec.
func (b *SpecBuilder) Build() (*ProblemSpec, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.spec.ProblemID == "" {
		return nil, apperror.InvalidInput("problem_id must not be empty").WithField("problem_id")
	}
	if b.spec.Tenant == "" {
		return nil, apperror.InvalidInput("tenant must not be empty").WithField("tenant")
	}
	if b.spec.Objective.Name == "" {
		return nil, apperror.InvalidInput("objective name must not be empty").WithField("objective")
	}
	switch b.spec.Objective.Direction {
	case Minimize, Maximize:
	default:
		return nil, apperror.InvalidInput("objective direction must be minimize or maximize").
			WithField("objective")
	}
	for _, c := range b.spec.Constraints {
		if c.Name == "" {
			return nil, apperror.InvalidInput("constraint name must not be empty").WithField("constraints")
		}
		if math.IsNaN(c.Bound) || math.IsInf(c.Bound, 0) {
			return nil, apperror.InvalidInput("constraint bound must be finite").
				WithField("constraints").WithDetails("constraint", c.Name)
		}
	}
	if err := b.spec.Budgets.Validate(); err != nil {
		return nil, err
	}

	spec := b.spec
	return &spec, nil
}
