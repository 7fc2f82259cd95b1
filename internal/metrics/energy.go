package metrics

import (
	"github.com/san-kum/softsim/internal/softbody"
)

// KineticEnergy averages the total kinetic energy of the movable particles
// over the run. Velocities are recovered from the Verlet displacement, so
// the step size must be known.
type KineticEnergy struct {
	name        string
	dt          float64
	samples     int
	totalEnergy float64
}

func NewKineticEnergy(dt float64) *KineticEnergy {
	return &KineticEnergy{
		name: "kinetic_energy",
		dt:   dt,
	}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(bodies []*softbody.Body, t float64) {
	if e.dt <= 0 {
		return
	}
	e.totalEnergy += TotalKineticEnergy(bodies, e.dt)
	e.samples++
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *KineticEnergy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// TotalKineticEnergy sums 0.5*m*|v|^2 over every movable particle.
func TotalKineticEnergy(bodies []*softbody.Body, dt float64) float64 {
	ke := 0.0
	for _, b := range bodies {
		for _, p := range b.Particles() {
			if p.Pinned() {
				continue
			}
			v := p.Position.Sub(p.PrevPosition).Mul(1 / dt)
			ke += 0.5 * v.Dot(v) / p.InvMass
		}
	}
	return ke
}
