package gate

import (
	"bytes"

	"github.com/goccy/go-json"

	"optigate/pkg/cache"
)

// InstabilityPenalty is the confidence multiplier applied when the
// determinism probe observes two different plans for the same spec.
const InstabilityPenalty = 0.5

// SolveFunc is a pack solve bound to a fixed spec.
type SolveFunc func() (*ProposedPlan, *SolverReport, error)

// ProbeResult is the outcome of a determinism probe.
type ProbeResult struct {
	// Stable is true when both runs produced byte-identical plans.
	Stable bool `json:"stable"`
	// FirstHash and SecondHash are the canonical plan encodings'
	// hashes, for diagnostics.
	FirstHash  string `json:"first_hash"`
	SecondHash string `json:"second_hash"`
}

// ProbeDeterminism runs the solve twice and compares the canonical
// encodings of the resulting plans.
//
// Solves are seeded from the spec content hash, so a correctly seeded
// pack must produce byte-identical plans; a mismatch means some
// iteration order or randomness escaped the seed. Callers multiply the
// plan confidence by InstabilityPenalty on mismatch.
func ProbeDeterminism(solve SolveFunc) (*ProbeResult, error) {
	first, _, err := solve()
	if err != nil {
		return nil, err
	}
	second, _, err := solve()
	if err != nil {
		return nil, err
	}

	firstBytes, err := json.Marshal(first)
	if err != nil {
		return nil, err
	}
	secondBytes, err := json.Marshal(second)
	if err != nil {
		return nil, err
	}

	return &ProbeResult{
		Stable:     bytes.Equal(firstBytes, secondBytes),
		FirstHash:  shortDigest(firstBytes),
		SecondHash: shortDigest(secondBytes),
	}, nil
}

func shortDigest(data []byte) string {
	return cache.ShortHash(data)
}

// ApplyProbe folds a probe result into a plan's confidence.
func ApplyProbe(plan *ProposedPlan, probe *ProbeResult) {
	if plan == nil || probe == nil || probe.Stable {
		return
	}
	plan.Confidence *= InstabilityPenalty
}
