package softbody_test

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/softsim/internal/softbody"
)

// hanging pair: a pinned particle with a free one below it
func pairDef() softbody.BodyDef {
	return softbody.BodyDef{
		Name: "pair",
		Particles: []softbody.Particle{
			softbody.NewParticle(mgl64.Vec3{0, 0, 0}, 0),
			softbody.NewParticle(mgl64.Vec3{0, -1, 0}, 1),
		},
		DistanceLinks: []softbody.DistanceLink{{I: 0, J: 1, RestLength: 1}},
		UseGravity:    true,
		ProxyRadius:   0.3,
	}
}

func mustBody(def softbody.BodyDef) *softbody.Body {
	b, err := softbody.New(def)
	Expect(err).NotTo(HaveOccurred())
	b.Initialize()
	return b
}

func positions(b *softbody.Body) []mgl64.Vec3 {
	return b.Positions(nil)
}

type countingBones struct{ calls int }

func (c *countingBones) UpdateBones([]softbody.Particle) { c.calls++ }

var _ = Describe("Body", func() {
	Describe("construction", func() {
		It("rejects an empty definition", func() {
			_, err := softbody.New(softbody.BodyDef{})
			Expect(err).To(MatchError(softbody.ErrNoParticles))
		})

		It("rejects negative inverse mass", func() {
			def := pairDef()
			def.Particles[1].InvMass = -1
			_, err := softbody.New(def)
			Expect(errors.Is(err, softbody.ErrNegativeInvMass)).To(BeTrue())
		})

		It("rejects out of range distance links", func() {
			def := pairDef()
			def.DistanceLinks = append(def.DistanceLinks, softbody.DistanceLink{I: 0, J: 2, RestLength: 1})
			_, err := softbody.New(def)

			var linkErr *softbody.LinkError
			Expect(errors.As(err, &linkErr)).To(BeTrue())
			Expect(linkErr.Kind).To(Equal("distance"))
			Expect(linkErr.Index).To(Equal(1))
			Expect(errors.Is(err, softbody.ErrIndexOutOfRange)).To(BeTrue())
		})

		It("rejects out of range anchors", func() {
			def := pairDef()
			def.AnchorLinks = []softbody.AnchorLink{{P: -1}}
			_, err := softbody.New(def)
			Expect(errors.Is(err, softbody.ErrIndexOutOfRange)).To(BeTrue())
		})

		It("rejects negative rest lengths", func() {
			def := pairDef()
			def.DistanceLinks[0].RestLength = -0.5
			_, err := softbody.New(def)
			Expect(errors.Is(err, softbody.ErrNegativeRestLength)).To(BeTrue())
		})

		It("adds gravity to the acceleration", func() {
			def := pairDef()
			def.Acceleration = mgl64.Vec3{1, 0, 0}
			b, err := softbody.New(def)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Acceleration()).To(Equal(mgl64.Vec3{1, -9.81, 0}))
		})

		It("copies the definition arrays", func() {
			def := pairDef()
			b := mustBody(def)
			def.Particles[1].Position = mgl64.Vec3{9, 9, 9}
			Expect(b.Particle(1).Position).To(Equal(mgl64.Vec3{0, -1, 0}))
		})
	})

	Describe("lifecycle", func() {
		It("starts uninitialized and ignores stepping", func() {
			b, err := softbody.New(pairDef())
			Expect(err).NotTo(HaveOccurred())
			Expect(b.State()).To(Equal(softbody.StateUninitialized))
			Expect(b.Validate()).To(MatchError(softbody.ErrNotInitialized))

			b.Integrate(0.1)
			b.SolveConstraints()
			Expect(b.Particle(1).Position).To(Equal(mgl64.Vec3{0, -1, 0}))
		})

		It("cold starts on initialize", func() {
			def := pairDef()
			def.Particles[1].PrevPosition = mgl64.Vec3{5, 5, 5}
			def.Particles[1].Velocity = mgl64.Vec3{1, 1, 1}
			b := mustBody(def)

			Expect(b.State()).To(Equal(softbody.StateReady))
			Expect(b.Validate()).To(Succeed())
			for _, p := range b.Particles() {
				Expect(p.PrevPosition).To(Equal(p.Position))
				Expect(p.Velocity).To(Equal(mgl64.Vec3{}))
			}
		})

		It("builds the distance constraint before the anchor constraint", func() {
			b := mustBody(pairDef())
			cs := b.Constraints()
			Expect(cs).To(HaveLen(2))
			Expect(cs[0]).To(BeAssignableToTypeOf(&softbody.DistanceConstraint{}))
			Expect(cs[1]).To(BeAssignableToTypeOf(&softbody.PointConstraint{}))
		})

		It("moves between simulating and dragging", func() {
			b := mustBody(pairDef())
			b.SetDragMode(false)
			Expect(b.State()).To(Equal(softbody.StateSimulating))
			b.SetDragMode(true)
			Expect(b.State()).To(Equal(softbody.StateDragging))
			Expect(b.IsDragging()).To(BeTrue())
			b.SetDragMode(false)
			Expect(b.State()).To(Equal(softbody.StateSimulating))
		})
	})

	Describe("Integrate", func() {
		It("applies the Verlet rule scaled by inverse mass", func() {
			b := mustBody(softbody.BodyDef{
				Particles: []softbody.Particle{
					softbody.NewParticle(mgl64.Vec3{}, 1),
					softbody.NewParticle(mgl64.Vec3{}, 0.5),
				},
				Acceleration: mgl64.Vec3{0, -10, 0},
			})

			b.Integrate(0.1)
			Expect(b.Particle(0).Position.Y()).To(BeNumerically("~", -0.1, 1e-12))
			Expect(b.Particle(1).Position.Y()).To(BeNumerically("~", -0.05, 1e-12))
			Expect(b.Particle(0).Velocity.Y()).To(BeNumerically("~", -0.1, 1e-12))

			b.Integrate(0.1)
			Expect(b.Particle(0).Position.Y()).To(BeNumerically("~", -0.3, 1e-12))
			Expect(b.Particle(0).PrevPosition.Y()).To(BeNumerically("~", -0.1, 1e-12))
		})

		It("is deterministic", func() {
			a := mustBody(pairDef())
			c := mustBody(pairDef())
			for i := 0; i < 200; i++ {
				a.Integrate(1.0 / 60)
				c.Integrate(1.0 / 60)
				for k := 0; k < 4; k++ {
					a.SolveConstraints()
					c.SolveConstraints()
				}
			}
			Expect(positions(a)).To(Equal(positions(c)))
		})

		It("notifies the bone updater", func() {
			b := mustBody(pairDef())
			bones := &countingBones{}
			b.SetBoneUpdater(bones)
			b.Integrate(0.01)
			b.SetDragMode(true)
			b.Integrate(0.01)
			Expect(bones.calls).To(Equal(2))
		})
	})

	Describe("pinned particles", func() {
		It("never move under integration or solving", func() {
			def := pairDef()
			def.AnchorLinks = []softbody.AnchorLink{{P: 0, Target: mgl64.Vec3{3, 3, 3}}}
			b := mustBody(def)
			for i := 0; i < 100; i++ {
				b.Integrate(1.0 / 30)
				b.SolveConstraints()
				b.SolveConstraints()
			}
			Expect(b.Particle(0).Position).To(Equal(mgl64.Vec3{0, 0, 0}))
		})
	})

	Describe("SolveConstraints", func() {
		It("runs anchors after distances", func() {
			b := mustBody(softbody.BodyDef{
				Particles: []softbody.Particle{
					softbody.NewParticle(mgl64.Vec3{0, 0, 0}, 1),
					softbody.NewParticle(mgl64.Vec3{4, 0, 0}, 1),
				},
				DistanceLinks: []softbody.DistanceLink{{I: 0, J: 1, RestLength: 1}},
				AnchorLinks:   []softbody.AnchorLink{{P: 0, Target: mgl64.Vec3{0, 0, 0}}},
			})
			b.SolveConstraints()
			Expect(b.Particle(0).Position.ApproxEqualThreshold(mgl64.Vec3{}, 1e-12)).To(BeTrue())
			Expect(b.Particle(1).Position.X()).To(BeNumerically("~", 2.5, 1e-12))
		})
	})

	Describe("drag mode", func() {
		It("freezes every particle by default", func() {
			b := mustBody(pairDef())
			b.Integrate(0.05)
			before := positions(b)

			b.SetDragMode(true)
			for i := 0; i < 20; i++ {
				b.Integrate(0.05)
				b.SolveConstraints()
			}
			Expect(positions(b)).To(Equal(before))
		})

		It("keeps solving under the freeze_integration policy", func() {
			def := pairDef()
			def.DragPolicy = softbody.DragFreezeIntegration
			b := mustBody(def)
			b.SetDragMode(true)

			Expect(b.MoveParticle(1, mgl64.Vec3{0, -3, 0})).To(Succeed())
			b.Integrate(0.05)
			Expect(b.Particle(1).Position).To(Equal(mgl64.Vec3{0, -3, 0}))

			b.SolveConstraints()
			Expect(b.Particle(1).Position.Y()).To(BeNumerically("~", -1, 1e-12))
		})

		It("rejects moves of missing particles", func() {
			b := mustBody(pairDef())
			err := b.MoveParticle(7, mgl64.Vec3{})
			Expect(errors.Is(err, softbody.ErrIndexOutOfRange)).To(BeTrue())
		})
	})

	Describe("collision proxies", func() {
		It("track particles after every step", func() {
			def := pairDef()
			def.ProxyOffset = mgl64.Vec3{0, 0.5, 0}
			b := mustBody(def)

			check := func() {
				proxies := b.Proxies()
				Expect(proxies).To(HaveLen(b.NumParticles()))
				for i, p := range b.Particles() {
					Expect(proxies[i].Center).To(Equal(p.Position.Add(def.ProxyOffset)))
					Expect(proxies[i].Radius).To(Equal(0.3))
				}
			}

			check()
			for i := 0; i < 10; i++ {
				b.Integrate(0.02)
				check()
				b.SolveConstraints()
				check()
			}
			b.SetDragMode(true)
			Expect(b.MoveParticle(1, mgl64.Vec3{2, 2, 2})).To(Succeed())
			check()
		})
	})
})
