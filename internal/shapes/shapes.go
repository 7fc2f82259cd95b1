// Package shapes generates body definitions for common soft structures.
//
// Every generator lays particles out at rest, so each link's rest length is
// its initial length.
package shapes

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/softsim/internal/softbody"
)

const DefaultMass = 1.0

type builder struct {
	def softbody.BodyDef
}

func (b *builder) particle(pos mgl64.Vec3) int {
	b.def.Particles = append(b.def.Particles, softbody.NewParticle(pos, 1/DefaultMass))
	return len(b.def.Particles) - 1
}

func (b *builder) link(i, j int) {
	d := b.def.Particles[j].Position.Sub(b.def.Particles[i].Position).Len()
	b.def.DistanceLinks = append(b.def.DistanceLinks, softbody.DistanceLink{I: i, J: j, RestLength: d})
}

func (b *builder) anchor(i int) {
	b.def.AnchorLinks = append(b.def.AnchorLinks, softbody.AnchorLink{P: i, Target: b.def.Particles[i].Position})
}

// Cloth builds a cols x rows sheet in the xy plane hanging down from y=0,
// with structural and shear links. pinCorners anchors the two top corners.
func Cloth(cols, rows int, spacing float64, pinCorners bool) softbody.BodyDef {
	cols = max(cols, 2)
	rows = max(rows, 2)

	b := &builder{def: softbody.BodyDef{Name: "cloth"}}
	halfWidth := float64(cols-1) * spacing / 2
	idx := func(c, r int) int { return r*cols + c }

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			b.particle(mgl64.Vec3{float64(c)*spacing - halfWidth, -float64(r) * spacing, 0})
		}
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c+1 < cols {
				b.link(idx(c, r), idx(c+1, r))
			}
			if r+1 < rows {
				b.link(idx(c, r), idx(c, r+1))
			}
			if c+1 < cols && r+1 < rows {
				b.link(idx(c, r), idx(c+1, r+1))
				b.link(idx(c+1, r), idx(c, r+1))
			}
		}
	}

	if pinCorners {
		b.anchor(idx(0, 0))
		b.anchor(idx(cols-1, 0))
	}
	return b.def
}

// Rope builds a horizontal chain of segments+1 particles starting at the
// origin, anchored at its first particle.
func Rope(segments int, length float64) softbody.BodyDef {
	segments = max(segments, 1)

	b := &builder{def: softbody.BodyDef{Name: "rope"}}
	step := length / float64(segments)
	for i := 0; i <= segments; i++ {
		b.particle(mgl64.Vec3{float64(i) * step, 0, 0})
	}
	for i := 0; i < segments; i++ {
		b.link(i, i+1)
	}
	b.anchor(0)
	return b.def
}

// Jelly builds an n x n x n lattice cube of edge size, braced along
// structural, face-diagonal and body-diagonal directions.
func Jelly(n int, size float64) softbody.BodyDef {
	n = max(n, 2)

	b := &builder{def: softbody.BodyDef{Name: "jelly"}}
	step := size / float64(n-1)
	idx := func(x, y, z int) int { return (z*n+y)*n + x }

	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				b.particle(mgl64.Vec3{float64(x) * step, float64(y) * step, float64(z) * step})
			}
		}
	}

	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				for _, o := range forwardNeighbours {
					nx, ny, nz := x+o[0], y+o[1], z+o[2]
					if nx < 0 || ny < 0 || nz < 0 || nx >= n || ny >= n || nz >= n {
						continue
					}
					b.link(idx(x, y, z), idx(nx, ny, nz))
				}
			}
		}
	}
	return b.def
}

// forwardNeighbours holds one of each +/- offset pair in {-1,0,1}^3 so every
// lattice link is generated once.
var forwardNeighbours = func() [][3]int {
	var out [][3]int
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dz > 0 || (dz == 0 && dy > 0) || (dz == 0 && dy == 0 && dx > 0) {
					out = append(out, [3]int{dx, dy, dz})
				}
			}
		}
	}
	return out
}()

// Translate moves every particle and anchor target of def by offset.
func Translate(def *softbody.BodyDef, offset mgl64.Vec3) {
	for i := range def.Particles {
		p := &def.Particles[i]
		p.Position = p.Position.Add(offset)
		p.PrevPosition = p.PrevPosition.Add(offset)
	}
	for i := range def.AnchorLinks {
		def.AnchorLinks[i].Target = def.AnchorLinks[i].Target.Add(offset)
	}
}

// SetMass gives every movable particle the same mass.
func SetMass(def *softbody.BodyDef, mass float64) {
	if mass <= 0 {
		return
	}
	for i := range def.Particles {
		if def.Particles[i].InvMass > 0 {
			def.Particles[i].InvMass = 1 / mass
		}
	}
}
