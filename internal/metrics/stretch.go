package metrics

import (
	"math"

	"github.com/san-kum/softsim/internal/softbody"
)

// MaxStretch returns the largest relative deviation |d-rest|/rest over the
// distance links of b. Links with a zero rest length are ignored.
func MaxStretch(b *softbody.Body) float64 {
	particles := b.Particles()
	worst := 0.0
	for _, l := range b.DistanceLinks() {
		if l.RestLength == 0 {
			continue
		}
		d := particles[l.J].Position.Sub(particles[l.I].Position).Len()
		worst = math.Max(worst, math.Abs(d-l.RestLength)/l.RestLength)
	}
	return worst
}

// ConstraintError tracks the worst link stretch seen across all bodies.
type ConstraintError struct {
	name    string
	current float64
	max     float64
}

func NewConstraintError() *ConstraintError {
	return &ConstraintError{name: "constraint_error"}
}

func (c *ConstraintError) Name() string { return c.name }

func (c *ConstraintError) Observe(bodies []*softbody.Body, t float64) {
	c.current = 0
	for _, b := range bodies {
		c.current = math.Max(c.current, MaxStretch(b))
	}
	c.max = math.Max(c.max, c.current)
}

// Current is the stretch at the last observed step.
func (c *ConstraintError) Current() float64 { return c.current }

func (c *ConstraintError) Value() float64 { return c.max }

func (c *ConstraintError) Reset() {
	c.current = 0
	c.max = 0
}
