package metrics

import (
	"math"

	"github.com/san-kum/softsim/internal/softbody"
)

type MaxVelocity struct {
	name string
	dt   float64
	max  float64
}

func NewMaxVelocity(dt float64) *MaxVelocity {
	return &MaxVelocity{name: "max_velocity", dt: dt}
}

func (m *MaxVelocity) Name() string { return m.name }

func (m *MaxVelocity) Observe(bodies []*softbody.Body, t float64) {
	if m.dt <= 0 {
		return
	}
	for _, b := range bodies {
		for _, p := range b.Particles() {
			m.max = math.Max(m.max, p.Velocity.Len()/m.dt)
		}
	}
}

func (m *MaxVelocity) Value() float64 { return m.max }

func (m *MaxVelocity) Reset() { m.max = 0 }
