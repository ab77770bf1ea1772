// File: internal/browser/humanoid/noise.go
package humanoid

import (
	"math/bits"
	"math/rand"
)

// PinkNoiseGenerator produces 1/f noise with the Voss-McCartney row scheme:
// row k is refreshed every 2^k samples, so low rows jitter quickly and high
// rows drift slowly. Output is in [-1, 1].
type PinkNoiseGenerator struct {
	rng     *rand.Rand
	rows    []float64
	sum     float64
	counter uint32
}

// NewPinkNoiseGenerator creates a generator with the given number of rows (12 if n <= 0).
func NewPinkNoiseGenerator(rng *rand.Rand, n int) *PinkNoiseGenerator {
	if n <= 0 {
		n = 12
	}
	p := &PinkNoiseGenerator{rng: rng, rows: make([]float64, n)}
	for i := range p.rows {
		p.rows[i] = p.white()
		p.sum += p.rows[i]
	}
	return p
}

func (p *PinkNoiseGenerator) white() float64 {
	return p.rng.Float64()*2.0 - 1.0
}

// Next returns the next sample.
func (p *PinkNoiseGenerator) Next() float64 {
	p.counter++
	if k := bits.TrailingZeros32(p.counter); k < len(p.rows) {
		fresh := p.white()
		p.sum += fresh - p.rows[k]
		p.rows[k] = fresh
	}
	return (p.sum + p.white()) / float64(len(p.rows)+1)
}
