package metrics

import (
	"math"

	"github.com/san-kum/softsim/internal/softbody"
)

// Stability is the fraction of observed steps in which every particle
// position was finite and within threshold of the origin on each axis.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(bodies []*softbody.Body, t float64) {
	s.samples++
	for _, b := range bodies {
		for _, p := range b.Particles() {
			if !s.inBounds(p.Position[0]) || !s.inBounds(p.Position[1]) || !s.inBounds(p.Position[2]) {
				s.violations++
				return
			}
		}
	}
}

func (s *Stability) inBounds(v float64) bool {
	return !math.IsNaN(v) && math.Abs(v) <= s.threshold
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
