package softbody

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const DefaultProxyRadius = 0.3

// Gravity is added to a body's acceleration when BodyDef.UseGravity is set.
var Gravity = mgl64.Vec3{0, -9.81, 0}

// State is the lifecycle phase of a body.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateSimulating
	StateDragging
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateSimulating:
		return "simulating"
	case StateDragging:
		return "dragging"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DragPolicy selects what drag mode suspends.
type DragPolicy int

const (
	// DragFreezeAll suspends integration and constraint solving.
	DragFreezeAll DragPolicy = iota
	// DragFreezeIntegration suspends integration only, so links keep
	// propagating externally applied moves.
	DragFreezeIntegration
)

func (p DragPolicy) String() string {
	switch p {
	case DragFreezeAll:
		return "freeze_all"
	case DragFreezeIntegration:
		return "freeze_integration"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

func ParseDragPolicy(s string) (DragPolicy, error) {
	switch s {
	case "", "freeze_all":
		return DragFreezeAll, nil
	case "freeze_integration":
		return DragFreezeIntegration, nil
	default:
		return DragFreezeAll, fmt.Errorf("unknown drag policy: %s", s)
	}
}

// BoneUpdater is notified after every integration step.
type BoneUpdater interface {
	UpdateBones(particles []Particle)
}

type noBones struct{}

func (noBones) UpdateBones([]Particle) {}

// BodyDef describes a body before construction.
type BodyDef struct {
	Name          string
	Particles     []Particle
	DistanceLinks []DistanceLink
	AnchorLinks   []AnchorLink
	Acceleration  mgl64.Vec3
	UseGravity    bool
	ProxyRadius   float64
	ProxyOffset   mgl64.Vec3
	DragPolicy    DragPolicy
}

// Body is a deformable body: particles, the two aggregate constraints built
// from its links, and one collision proxy per particle.
type Body struct {
	name          string
	particles     []Particle
	distanceLinks []DistanceLink
	anchorLinks   []AnchorLink
	constraints   []Constraint

	acceleration mgl64.Vec3
	dragMode     bool
	dragPolicy   DragPolicy
	initialized  bool
	started      bool

	proxies     []Proxy
	proxyRadius float64
	proxyOffset mgl64.Vec3

	centerOfMass     mgl64.Vec3
	prevCenterOfMass mgl64.Vec3

	bones BoneUpdater
}

// New validates def and returns an uninitialized body owning copies of its
// arrays. Call Initialize before stepping.
func New(def BodyDef) (*Body, error) {
	if err := validate(def); err != nil {
		return nil, err
	}

	particles := make([]Particle, len(def.Particles))
	copy(particles, def.Particles)
	distanceLinks := make([]DistanceLink, len(def.DistanceLinks))
	copy(distanceLinks, def.DistanceLinks)
	anchorLinks := make([]AnchorLink, len(def.AnchorLinks))
	copy(anchorLinks, def.AnchorLinks)

	acc := def.Acceleration
	if def.UseGravity {
		acc = acc.Add(Gravity)
	}

	return &Body{
		name:          def.Name,
		particles:     particles,
		distanceLinks: distanceLinks,
		anchorLinks:   anchorLinks,
		acceleration:  acc,
		dragPolicy:    def.DragPolicy,
		proxyRadius:   def.ProxyRadius,
		proxyOffset:   def.ProxyOffset,
		bones:         noBones{},
	}, nil
}

func validate(def BodyDef) error {
	n := len(def.Particles)
	if n == 0 {
		return ErrNoParticles
	}
	for i, p := range def.Particles {
		if p.InvMass < 0 || math.IsNaN(p.InvMass) {
			return fmt.Errorf("particle %d: %w", i, ErrNegativeInvMass)
		}
	}
	for k, l := range def.DistanceLinks {
		if l.I < 0 || l.I >= n || l.J < 0 || l.J >= n {
			return &LinkError{Kind: "distance", Index: k, Err: ErrIndexOutOfRange}
		}
		if l.RestLength < 0 || math.IsNaN(l.RestLength) {
			return &LinkError{Kind: "distance", Index: k, Err: ErrNegativeRestLength}
		}
	}
	for k, a := range def.AnchorLinks {
		if a.P < 0 || a.P >= n {
			return &LinkError{Kind: "anchor", Index: k, Err: ErrIndexOutOfRange}
		}
	}
	if def.ProxyRadius < 0 {
		return fmt.Errorf("softbody: negative proxy radius %f", def.ProxyRadius)
	}
	return nil
}

// Initialize cold-starts every particle, allocates the proxies and builds
// the distance and anchor constraints. Calling it again restarts the body
// from its current positions.
func (b *Body) Initialize() {
	for i := range b.particles {
		p := &b.particles[i]
		p.PrevPosition = p.Position
		p.Velocity = mgl64.Vec3{}
	}

	b.proxies = make([]Proxy, len(b.particles))
	for i := range b.proxies {
		b.proxies[i].Radius = b.proxyRadius
	}
	b.syncProxies()

	b.constraints = []Constraint{
		NewDistanceConstraint(b.particles, b.distanceLinks),
		NewPointConstraint(b.particles, b.anchorLinks),
	}

	b.UpdateCenterOfMass()
	b.prevCenterOfMass = b.centerOfMass
	b.initialized = true
}

// Integrate advances every particle by one Verlet step. It does nothing to
// particles while the body is dragging; proxies are still synced.
func (b *Body) Integrate(dt float64) {
	if !b.initialized {
		return
	}
	if !b.dragMode {
		dt2 := dt * dt
		for i := range b.particles {
			p := &b.particles[i]
			if p.InvMass == 0 {
				p.PrevPosition = p.Position
				p.Velocity = mgl64.Vec3{}
				continue
			}
			next := p.Position.
				Add(p.Position.Sub(p.PrevPosition)).
				Add(b.acceleration.Mul(dt2 * p.InvMass))
			p.PrevPosition = p.Position
			p.Position = next
			p.Velocity = p.Position.Sub(p.PrevPosition)
		}
	}
	b.syncProxies()
	b.bones.UpdateBones(b.particles)
}

// SolveConstraints runs one distance pass followed by one anchor pass.
// Anchors run last so they have the final say next to pinned geometry.
func (b *Body) SolveConstraints() {
	if !b.initialized {
		return
	}
	if !b.dragMode || b.dragPolicy == DragFreezeIntegration {
		for _, c := range b.constraints {
			c.Apply()
		}
	}
	b.syncProxies()
}

func (b *Body) SetDragMode(active bool) {
	b.dragMode = active
	if !active {
		b.started = true
	}
}

func (b *Body) IsDragging() bool { return b.dragMode }

func (b *Body) State() State {
	switch {
	case !b.initialized:
		return StateUninitialized
	case b.dragMode:
		return StateDragging
	case b.started:
		return StateSimulating
	default:
		return StateReady
	}
}

// MoveParticle overwrites a particle position on behalf of the drag layer.
// The previous position is kept, so releasing the drag carries the implied
// velocity of the last move.
func (b *Body) MoveParticle(i int, pos mgl64.Vec3) error {
	if i < 0 || i >= len(b.particles) {
		return fmt.Errorf("move particle %d: %w", i, ErrIndexOutOfRange)
	}
	b.particles[i].Position = pos
	if i < len(b.proxies) {
		b.proxies[i].Center = pos.Add(b.proxyOffset)
	}
	return nil
}

// Validate checks the structural invariants of an initialized body.
func (b *Body) Validate() error {
	if !b.initialized {
		return ErrNotInitialized
	}
	if len(b.proxies) != len(b.particles) {
		return fmt.Errorf("%d particles, %d proxies: %w", len(b.particles), len(b.proxies), ErrLengthMismatch)
	}
	return nil
}

func (b *Body) Name() string { return b.name }

// Particles returns the body's particle array. Callers must treat it as
// read-only and use MoveParticle to reposition particles.
func (b *Body) Particles() []Particle { return b.particles }

func (b *Body) Particle(i int) Particle { return b.particles[i] }

func (b *Body) NumParticles() int { return len(b.particles) }

// Positions appends the current particle positions to dst.
func (b *Body) Positions(dst []mgl64.Vec3) []mgl64.Vec3 {
	for i := range b.particles {
		dst = append(dst, b.particles[i].Position)
	}
	return dst
}

func (b *Body) DistanceLinks() []DistanceLink { return b.distanceLinks }
func (b *Body) AnchorLinks() []AnchorLink     { return b.anchorLinks }
func (b *Body) Constraints() []Constraint     { return b.constraints }

func (b *Body) Acceleration() mgl64.Vec3     { return b.acceleration }
func (b *Body) SetAcceleration(a mgl64.Vec3) { b.acceleration = a }
func (b *Body) DragPolicy() DragPolicy       { return b.dragPolicy }
func (b *Body) SetDragPolicy(p DragPolicy)   { b.dragPolicy = p }

func (b *Body) SetBoneUpdater(u BoneUpdater) {
	if u == nil {
		u = noBones{}
	}
	b.bones = u
}
