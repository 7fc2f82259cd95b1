package sim

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/softsim/internal/softbody"
)

var (
	// ErrNoBodies indicates a run with nothing to simulate.
	ErrNoBodies = errors.New("sim: no bodies registered")

	// ErrInvalidState indicates a particle position became NaN or Inf.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")
)

type Metric interface {
	Name() string
	Observe(bodies []*softbody.Body, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(bodies []*softbody.Body, t float64)
}

// Collider is the external collision subsystem. It runs after the solve
// phase and reads proxy positions from the bodies.
type Collider interface {
	Collide(bodies []*softbody.Body)
}

type Config struct {
	Dt       float64
	Duration float64
	// Iterations is the number of solve passes per tick.
	Iterations    int
	Seed          int64
	Parallel      bool
	ValidateState bool
	// RecordEvery keeps one frame out of every RecordEvery steps.
	RecordEvery int
}

func DefaultConfig() Config {
	return Config{
		Dt:            1.0 / 60,
		Duration:      5.0,
		Iterations:    8,
		ValidateState: true,
		RecordEvery:   1,
	}
}

// Frame holds the particle positions of every body at one instant.
type Frame struct {
	Time      float64
	Positions [][]mgl64.Vec3
}

type Result struct {
	Frames     []Frame
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}

// SimError reports where a run went wrong.
type SimError struct {
	Step    int
	Time    float64
	Body    string
	Message string
	Wrapped error
}

func (e SimError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("step %d (t=%.4f) body %s: %s", e.Step, e.Time, e.Body, e.Message)
	}
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

func (e SimError) Unwrap() error {
	return e.Wrapped
}
