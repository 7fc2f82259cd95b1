package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/softsim/internal/softbody"
)

// Scheduler owns a set of bodies and drives the two-phase tick: integrate
// every body, then solve every body one or more times, then hand the
// updated proxies to the collider.
type Scheduler struct {
	bodies    []*softbody.Body
	collider  Collider
	metrics   []Metric
	observers []Observer
	logger    *log.Logger
	parallel  bool
}

func New() *Scheduler {
	return &Scheduler{
		bodies:    make([]*softbody.Body, 0),
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    log.Default(),
	}
}

func (s *Scheduler) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Scheduler) AddObserver(o Observer) { s.observers = append(s.observers, o) }
func (s *Scheduler) SetCollider(c Collider) { s.collider = c }
func (s *Scheduler) SetParallel(p bool)     { s.parallel = p }

func (s *Scheduler) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *Scheduler) Bodies() []*softbody.Body { return s.bodies }

// Add registers a body, initializing it if needed.
func (s *Scheduler) Add(b *softbody.Body) error {
	if b.State() == softbody.StateUninitialized {
		b.Initialize()
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("add body %q: %w", b.Name(), err)
	}
	s.bodies = append(s.bodies, b)
	return nil
}

// IntegrateAll is phase A of a tick.
func (s *Scheduler) IntegrateAll(ctx context.Context, dt float64) error {
	return forEachBody(ctx, s.bodies, s.parallel, func(b *softbody.Body) {
		b.Integrate(dt)
	})
}

// SolveAll is phase B of a tick: iterations constraint passes per body.
func (s *Scheduler) SolveAll(ctx context.Context, iterations int) error {
	return forEachBody(ctx, s.bodies, s.parallel, func(b *softbody.Body) {
		for i := 0; i < iterations; i++ {
			b.SolveConstraints()
		}
	})
}

// Tick runs both phases, refreshes centers of mass and calls the collider.
// No body is solved before every body has been integrated.
func (s *Scheduler) Tick(ctx context.Context, dt float64, iterations int) error {
	if err := s.IntegrateAll(ctx, dt); err != nil {
		return err
	}
	if err := s.SolveAll(ctx, iterations); err != nil {
		return err
	}
	for _, b := range s.bodies {
		b.UpdateCenterOfMass()
	}
	if s.collider != nil {
		s.collider.Collide(s.bodies)
	}
	return nil
}

func (s *Scheduler) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(s.bodies) == 0 {
		return nil, ErrNoBodies
	}

	steps := stepCount(cfg)
	recordEvery := max(cfg.RecordEvery, 1)
	iterations := max(cfg.Iterations, 1)

	result := &Result{
		Frames:  make([]Frame, 0, steps/recordEvery+1),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	s.logger.Debug("run started", "bodies", len(s.bodies), "steps", steps, "iterations", iterations, "parallel", s.parallel)

	t := 0.0
	result.Frames = append(result.Frames, s.snapshot(t))

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := s.Tick(ctx, cfg.Dt, iterations); err != nil {
			return result, err
		}
		t += cfg.Dt
		result.StepsTaken++

		for _, m := range s.metrics {
			m.Observe(s.bodies, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(s.bodies, t)
		}

		if cfg.ValidateState {
			if err := s.checkState(i, t); err != nil {
				s.logger.Warn("stopping run", "err", err)
				result.Errors = append(result.Errors, err)
				result.Frames = append(result.Frames, s.snapshot(t))
				break
			}
		}

		if (i+1)%recordEvery == 0 || i == steps-1 {
			result.Frames = append(result.Frames, s.snapshot(t))
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.logger.Debug("run finished", "steps", result.StepsTaken, "frames", len(result.Frames), "errors", len(result.Errors))
	return result, nil
}

// RunWithCallback steps until the duration elapses, ctx ends or callback
// returns false. The frame handed to callback is only valid during the call.
func (s *Scheduler) RunWithCallback(ctx context.Context, cfg Config, callback func(Frame) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}
	if len(s.bodies) == 0 {
		return ErrNoBodies
	}

	pool := NewFramePool()
	iterations := max(cfg.Iterations, 1)
	steps := stepCount(cfg)

	for step := 0; step < steps; step++ {
		t := float64(step) * cfg.Dt
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame := pool.Capture(s.bodies, t)
		keepGoing := callback(frame)
		pool.Release(frame)
		if !keepGoing {
			return nil
		}

		if err := s.Tick(ctx, cfg.Dt, iterations); err != nil {
			return err
		}
		if cfg.ValidateState {
			if err := s.checkState(step, t+cfg.Dt); err != nil {
				return err
			}
		}
	}
	return nil
}

// stepCount is the number of whole steps that fit in the run duration.
func stepCount(cfg Config) int {
	return int(cfg.Duration/cfg.Dt + 1e-9)
}

func (s *Scheduler) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.Iterations < 0 {
		return fmt.Errorf("iterations must not be negative, got %d", cfg.Iterations)
	}
	return nil
}

func (s *Scheduler) snapshot(t float64) Frame {
	f := Frame{Time: t, Positions: make([][]mgl64.Vec3, len(s.bodies))}
	for i, b := range s.bodies {
		f.Positions[i] = b.Positions(make([]mgl64.Vec3, 0, b.NumParticles()))
	}
	return f
}

// checkState reports the first particle whose position is not finite.
func (s *Scheduler) checkState(step int, t float64) error {
	for _, b := range s.bodies {
		for i, p := range b.Particles() {
			for _, v := range p.Position {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return SimError{
						Step:    step,
						Time:    t,
						Body:    b.Name(),
						Message: fmt.Sprintf("particle %d position %v", i, p.Position),
						Wrapped: ErrInvalidState,
					}
				}
			}
		}
	}
	return nil
}
