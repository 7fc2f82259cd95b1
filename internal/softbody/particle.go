package softbody

import "github.com/go-gl/mathgl/mgl64"

// Particle is a point mass. Positions are in the body's local frame.
type Particle struct {
	Position     mgl64.Vec3
	PrevPosition mgl64.Vec3
	// Velocity is Position-PrevPosition, refreshed every integration step.
	// Diagnostic only, motion is driven by the position history.
	Velocity mgl64.Vec3
	// InvMass of 0 pins the particle.
	InvMass float64
}

// NewParticle returns a particle at rest at pos.
func NewParticle(pos mgl64.Vec3, invMass float64) Particle {
	return Particle{
		Position:     pos,
		PrevPosition: pos,
		InvMass:      invMass,
	}
}

func (p *Particle) Pinned() bool { return p.InvMass == 0 }

// DistanceLink keeps particles I and J RestLength apart.
type DistanceLink struct {
	I, J       int
	RestLength float64
}

// AnchorLink attaches particle P to a fixed Target.
type AnchorLink struct {
	P      int
	Target mgl64.Vec3
}
