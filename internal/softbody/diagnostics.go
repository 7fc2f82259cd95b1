package softbody

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// UpdateCenterOfMass shifts the current center of mass into the previous
// slot and recomputes it. Movable particles are weighted by mass; a body
// with no movable particles uses the plain mean.
func (b *Body) UpdateCenterOfMass() {
	b.prevCenterOfMass = b.centerOfMass

	var sum mgl64.Vec3
	var total float64
	for i := range b.particles {
		p := &b.particles[i]
		if p.InvMass == 0 {
			continue
		}
		m := 1 / p.InvMass
		sum = sum.Add(p.Position.Mul(m))
		total += m
	}
	if total > 0 {
		b.centerOfMass = sum.Mul(1 / total)
		return
	}

	sum = mgl64.Vec3{}
	for i := range b.particles {
		sum = sum.Add(b.particles[i].Position)
	}
	b.centerOfMass = sum.Mul(1 / float64(len(b.particles)))
}

func (b *Body) CenterOfMass() mgl64.Vec3     { return b.centerOfMass }
func (b *Body) PrevCenterOfMass() mgl64.Vec3 { return b.prevCenterOfMass }

// Arrow is a velocity marker for one particle.
type Arrow struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
	Scale     float64
	Visible   bool
}

// VelocityArrows returns one arrow per particle, scaled so the fastest
// particle gets maxScale. All arrows are hidden when nothing moves.
func (b *Body) VelocityArrows(maxScale float64) []Arrow {
	arrows := make([]Arrow, len(b.particles))

	maxVel := 0.0
	for i := range b.particles {
		v := b.particles[i].Position.Sub(b.particles[i].PrevPosition).Len()
		if v > maxVel {
			maxVel = v
		}
	}

	for i := range b.particles {
		p := &b.particles[i]
		dir := p.Position.Sub(p.PrevPosition)
		vel := dir.Len()

		arrows[i].Origin = p.Position
		arrows[i].Direction = dir
		if math.IsNaN(vel) || maxVel == 0 || math.IsNaN(maxVel) {
			continue
		}
		arrows[i].Scale = vel / maxVel * maxScale
		arrows[i].Visible = true
	}
	return arrows
}
