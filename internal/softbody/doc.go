// Package softbody implements position-based deformable bodies.
//
// A [Body] owns a fixed set of [Particle] point masses connected by two
// kinds of geometric constraints:
//
//   - [DistanceConstraint]: keeps particle pairs at a rest length
//   - [PointConstraint]: snaps particles onto fixed anchor points
//
// Bodies are advanced with Verlet integration, where velocity is implied by
// the previous position, and corrected by one or more constraint passes:
//
//	body, _ := softbody.New(def)
//	body.Initialize()
//	body.Integrate(dt)
//	for i := 0; i < iterations; i++ {
//	    body.SolveConstraints()
//	}
//
// # Drag Mode
//
// While a body is in drag mode integration is suspended so an external agent
// can move particles with [Body.MoveParticle]. Whether constraint solving is
// also suspended is controlled by the body's [DragPolicy].
//
// # Thread Safety
//
// A Body is NOT safe for concurrent use. Different bodies share no state and
// may be stepped from different goroutines.
package softbody
