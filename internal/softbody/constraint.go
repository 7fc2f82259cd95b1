package softbody

// Constraint corrects particle positions towards a geometric relation.
// Apply performs exactly one pass; callers repeat it for stiffer results.
type Constraint interface {
	Apply()
}

// DistanceConstraint projects every distance link once per pass, in stored
// order. Corrections are split by inverse mass so heavier particles move less.
type DistanceConstraint struct {
	particles []Particle
	links     []DistanceLink
}

// NewDistanceConstraint shares the particle slice; links must already be
// validated against it.
func NewDistanceConstraint(particles []Particle, links []DistanceLink) *DistanceConstraint {
	return &DistanceConstraint{particles: particles, links: links}
}

func (c *DistanceConstraint) Links() []DistanceLink { return c.links }

func (c *DistanceConstraint) Apply() {
	for _, l := range c.links {
		pi := &c.particles[l.I]
		pj := &c.particles[l.J]

		w := pi.InvMass + pj.InvMass
		if w == 0 {
			continue
		}

		d := pj.Position.Sub(pi.Position)
		dist := d.Len()
		if dist == 0 {
			// direction undefined
			continue
		}

		diff := (dist - l.RestLength) / dist
		if pi.InvMass > 0 {
			pi.Position = pi.Position.Add(d.Mul(diff * pi.InvMass / w))
		}
		if pj.InvMass > 0 {
			pj.Position = pj.Position.Sub(d.Mul(diff * pj.InvMass / w))
		}
	}
}

// PointConstraint snaps anchored particles onto their targets in a single
// pass. Pinned particles stay where they are.
type PointConstraint struct {
	particles []Particle
	anchors   []AnchorLink
}

func NewPointConstraint(particles []Particle, anchors []AnchorLink) *PointConstraint {
	return &PointConstraint{particles: particles, anchors: anchors}
}

func (c *PointConstraint) Anchors() []AnchorLink { return c.anchors }

func (c *PointConstraint) Apply() {
	for _, a := range c.anchors {
		p := &c.particles[a.P]
		if p.InvMass <= 0 {
			continue
		}
		d := p.Position.Sub(a.Target)
		p.Position = p.Position.Sub(d)
	}
}
