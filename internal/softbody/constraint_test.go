package softbody

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func vec3Near(a, b mgl64.Vec3, tol float64) bool {
	return a.ApproxEqualThreshold(b, tol)
}

func TestDistanceConstraint_EqualMasses(t *testing.T) {
	particles := []Particle{
		NewParticle(mgl64.Vec3{0, 0, 0}, 1),
		NewParticle(mgl64.Vec3{3, 0, 0}, 1),
	}
	c := NewDistanceConstraint(particles, []DistanceLink{{I: 0, J: 1, RestLength: 1}})
	c.Apply()

	if !vec3Near(particles[0].Position, mgl64.Vec3{1, 0, 0}, 1e-12) {
		t.Errorf("particle 0 = %v, want (1,0,0)", particles[0].Position)
	}
	if !vec3Near(particles[1].Position, mgl64.Vec3{2, 0, 0}, 1e-12) {
		t.Errorf("particle 1 = %v, want (2,0,0)", particles[1].Position)
	}
}

func TestDistanceConstraint_MassProportional(t *testing.T) {
	particles := []Particle{
		NewParticle(mgl64.Vec3{0, 0, 0}, 0),
		NewParticle(mgl64.Vec3{0, 2, 0}, 1),
	}
	c := NewDistanceConstraint(particles, []DistanceLink{{I: 0, J: 1, RestLength: 1}})
	c.Apply()

	if particles[0].Position != (mgl64.Vec3{0, 0, 0}) {
		t.Errorf("pinned particle moved to %v", particles[0].Position)
	}
	if !vec3Near(particles[1].Position, mgl64.Vec3{0, 1, 0}, 1e-12) {
		t.Errorf("free particle = %v, want (0,1,0)", particles[1].Position)
	}
}

func TestDistanceConstraint_HeavierMovesLess(t *testing.T) {
	particles := []Particle{
		NewParticle(mgl64.Vec3{0, 0, 0}, 0.25),
		NewParticle(mgl64.Vec3{2, 0, 0}, 0.75),
	}
	c := NewDistanceConstraint(particles, []DistanceLink{{I: 0, J: 1, RestLength: 1}})
	c.Apply()

	moved0 := particles[0].Position.Len()
	moved1 := particles[1].Position.Sub(mgl64.Vec3{2, 0, 0}).Len()
	if math.Abs(moved0-0.25) > 1e-12 || math.Abs(moved1-0.75) > 1e-12 {
		t.Errorf("displacements = %f, %f, want 0.25, 0.75", moved0, moved1)
	}
}

func TestDistanceConstraint_Degenerate(t *testing.T) {
	tests := []struct {
		name      string
		particles []Particle
	}{
		{"coincident", []Particle{
			NewParticle(mgl64.Vec3{1, 1, 1}, 1),
			NewParticle(mgl64.Vec3{1, 1, 1}, 1),
		}},
		{"both pinned", []Particle{
			NewParticle(mgl64.Vec3{0, 0, 0}, 0),
			NewParticle(mgl64.Vec3{5, 0, 0}, 0),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := []mgl64.Vec3{tt.particles[0].Position, tt.particles[1].Position}
			c := NewDistanceConstraint(tt.particles, []DistanceLink{{I: 0, J: 1, RestLength: 1}})
			c.Apply()

			for i, p := range tt.particles {
				if p.Position != before[i] {
					t.Errorf("particle %d moved from %v to %v", i, before[i], p.Position)
				}
				for _, v := range p.Position {
					if math.IsNaN(v) {
						t.Fatalf("particle %d has NaN position", i)
					}
				}
			}
		})
	}
}

func TestDistanceConstraint_ConvergesMonotonically(t *testing.T) {
	particles := []Particle{
		NewParticle(mgl64.Vec3{0, 0, 0}, 1),
		NewParticle(mgl64.Vec3{4, 3, 0}, 1),
	}
	const rest = 2.0
	c := NewDistanceConstraint(particles, []DistanceLink{{I: 0, J: 1, RestLength: rest}})

	prevErr := math.Inf(1)
	converged := false
	for pass := 0; pass < 50; pass++ {
		c.Apply()
		errNow := math.Abs(particles[1].Position.Sub(particles[0].Position).Len() - rest)
		if errNow > prevErr {
			t.Fatalf("pass %d: error grew from %g to %g", pass, prevErr, errNow)
		}
		prevErr = errNow
		if errNow < 1e-4 {
			converged = true
			break
		}
	}
	if !converged {
		t.Errorf("did not converge, residual %g", prevErr)
	}
}

func TestDistanceConstraint_ChainConverges(t *testing.T) {
	particles := []Particle{
		NewParticle(mgl64.Vec3{0, 0, 0}, 1),
		NewParticle(mgl64.Vec3{0.5, 0, 0}, 1),
		NewParticle(mgl64.Vec3{3, 0, 0}, 1),
	}
	links := []DistanceLink{
		{I: 0, J: 1, RestLength: 1},
		{I: 1, J: 2, RestLength: 1},
	}
	c := NewDistanceConstraint(particles, links)

	for pass := 0; pass < 50; pass++ {
		c.Apply()
	}

	for _, l := range links {
		d := particles[l.J].Position.Sub(particles[l.I].Position).Len()
		if math.Abs(d-l.RestLength) > 1e-4 {
			t.Errorf("link %d-%d length %f, want %f", l.I, l.J, d, l.RestLength)
		}
	}
}

func TestDistanceConstraint_SatisfiedIsStable(t *testing.T) {
	particles := []Particle{
		NewParticle(mgl64.Vec3{0, 0, 0}, 1),
		NewParticle(mgl64.Vec3{0, 0, 1}, 1),
	}
	c := NewDistanceConstraint(particles, []DistanceLink{{I: 0, J: 1, RestLength: 1}})
	for i := 0; i < 10; i++ {
		c.Apply()
	}
	if particles[1].Position != (mgl64.Vec3{0, 0, 1}) {
		t.Errorf("satisfied link moved particle to %v", particles[1].Position)
	}
}

func TestPointConstraint_Snap(t *testing.T) {
	tests := []struct {
		name   string
		start  mgl64.Vec3
		target mgl64.Vec3
	}{
		{"near", mgl64.Vec3{1, 2, 3.1}, mgl64.Vec3{1, 2, 3}},
		{"far", mgl64.Vec3{500, -300, 20}, mgl64.Vec3{1, 2, 3}},
		{"on target", mgl64.Vec3{1, 2, 3}, mgl64.Vec3{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			particles := []Particle{NewParticle(tt.start, 2)}
			c := NewPointConstraint(particles, []AnchorLink{{P: 0, Target: tt.target}})
			c.Apply()
			if !vec3Near(particles[0].Position, tt.target, 1e-9) {
				t.Errorf("position = %v, want %v", particles[0].Position, tt.target)
			}
		})
	}
}

func TestPointConstraint_PinnedIgnored(t *testing.T) {
	particles := []Particle{NewParticle(mgl64.Vec3{0, 0, 0}, 0)}
	c := NewPointConstraint(particles, []AnchorLink{{P: 0, Target: mgl64.Vec3{1, 1, 1}}})
	c.Apply()
	if particles[0].Position != (mgl64.Vec3{}) {
		t.Errorf("pinned particle moved to %v", particles[0].Position)
	}
}

func TestConstraint_NeverTouchesInvMass(t *testing.T) {
	particles := []Particle{
		NewParticle(mgl64.Vec3{0, 0, 0}, 0.5),
		NewParticle(mgl64.Vec3{2, 0, 0}, 2),
	}
	cs := []Constraint{
		NewDistanceConstraint(particles, []DistanceLink{{I: 0, J: 1, RestLength: 1}}),
		NewPointConstraint(particles, []AnchorLink{{P: 1, Target: mgl64.Vec3{0, 3, 0}}}),
	}
	for _, c := range cs {
		c.Apply()
	}
	if particles[0].InvMass != 0.5 || particles[1].InvMass != 2 {
		t.Errorf("inverse masses changed: %f, %f", particles[0].InvMass, particles[1].InvMass)
	}
}
