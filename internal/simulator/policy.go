package simulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Policy samples action kinds in proportion to their weights. The table is
// cumulative over AllActionKinds order; kinds with zero weight have no span and
// can never be drawn.
type Policy struct {
	kinds      []ActionKind
	cumulative []float64
	total      float64
}

// NewPolicy builds a Policy. Weights must be finite and non-negative with a
// positive sum. They need not sum to 1.
func NewPolicy(weights map[ActionKind]float64) (*Policy, error) {
	p := &Policy{}
	for kind := range weights {
		if _, err := ParseActionKind(string(kind)); err != nil {
			return nil, err
		}
	}
	for _, kind := range AllActionKinds {
		w, ok := weights[kind]
		if !ok {
			continue
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("weight for %s must be a finite non-negative number", kind)
		}
		if w == 0 {
			continue
		}
		p.total += w
		p.kinds = append(p.kinds, kind)
		p.cumulative = append(p.cumulative, p.total)
	}
	if p.total <= 0 {
		return nil, errors.New("at least one action kind needs a positive weight")
	}
	return p, nil
}

// Sample draws one kind with a single uniform draw.
func (p *Policy) Sample(rng *rand.Rand) ActionKind {
	r := rng.Float64() * p.total
	for i, c := range p.cumulative {
		if r < c {
			return p.kinds[i]
		}
	}
	// r can only reach total through rounding.
	return p.kinds[len(p.kinds)-1]
}

// Probability returns the normalized weight of kind.
func (p *Policy) Probability(kind ActionKind) float64 {
	prev := 0.0
	for i, k := range p.kinds {
		if k == kind {
			return (p.cumulative[i] - prev) / p.total
		}
		prev = p.cumulative[i]
	}
	return 0
}

// uniformDuration draws uniformly from [lo, hi].
func uniformDuration(rng *rand.Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rng.Int63n(int64(hi-lo)+1))
}

// sampleDelay draws the inter-action delay from [minSeconds, maxSeconds].
func sampleDelay(rng *rand.Rand, minSeconds, maxSeconds float64) time.Duration {
	return uniformDuration(rng, secondsToDuration(minSeconds), secondsToDuration(maxSeconds))
}

// uniformInt draws uniformly from [lo, hi].
func uniformInt(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}
