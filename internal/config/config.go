package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/softsim/internal/shapes"
	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/softbody"
)

const (
	DefaultDt          = 1.0 / 60
	DefaultDuration    = 5.0
	DefaultIterations  = 8
	DefaultRecordEvery = 1
	DefaultSpacing     = 0.25
	DefaultSegments    = 12
	DefaultLength      = 3.0
	DefaultJellySize   = 1.0
	DefaultJellyN      = 4
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Scene         string       `yaml:"scene"`
	Dt            float64      `yaml:"dt"`
	Duration      float64      `yaml:"duration"`
	Iterations    int          `yaml:"iterations"`
	Seed          int64        `yaml:"seed"`
	Parallel      bool         `yaml:"parallel"`
	ValidateState bool         `yaml:"validate_state"`
	RecordEvery   int          `yaml:"record_every"`
	DragPolicy    string       `yaml:"drag_policy,omitempty"`
	Bodies        []BodyConfig `yaml:"bodies"`
}

// BodyConfig describes one body of a scene. Shape picks the generator; the
// size fields that do not apply to it are ignored. Vectors are [x, y, z].
// Cols and Rows size a cloth, Segments a rope and Resolution the particles
// per edge of a jelly cube. A nil Radius means DefaultProxyRadius.
type BodyConfig struct {
	Name         string    `yaml:"name,omitempty"`
	Shape        string    `yaml:"shape"`
	Cols         int       `yaml:"cols,omitempty"`
	Rows         int       `yaml:"rows,omitempty"`
	Segments     int       `yaml:"segments,omitempty"`
	Resolution   int       `yaml:"resolution,omitempty"`
	Size         float64   `yaml:"size,omitempty"`
	Spacing      float64   `yaml:"spacing,omitempty"`
	Length       float64   `yaml:"length,omitempty"`
	Mass         float64   `yaml:"mass,omitempty"`
	Pin          bool      `yaml:"pin"`
	UseGravity   bool      `yaml:"use_gravity"`
	Radius       *float64  `yaml:"radius,omitempty"`
	ProxyOffset  []float64 `yaml:"proxy_offset,omitempty"`
	Acceleration []float64 `yaml:"acceleration,omitempty"`
	Position     []float64 `yaml:"position,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Scene:         "cloth",
		Dt:            DefaultDt,
		Duration:      DefaultDuration,
		Iterations:    DefaultIterations,
		ValidateState: true,
		RecordEvery:   DefaultRecordEvery,
		Bodies: []BodyConfig{
			{Shape: "cloth", Cols: 10, Rows: 10, Spacing: DefaultSpacing, Pin: true, UseGravity: true},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Bodies = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, c.Duration)
	}
	if c.Iterations < 0 {
		return fmt.Errorf("%w: iterations must not be negative", ErrInvalidConfig)
	}
	if c.RecordEvery < 0 {
		return fmt.Errorf("%w: record_every must not be negative", ErrInvalidConfig)
	}
	if _, err := softbody.ParseDragPolicy(c.DragPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(c.Bodies) == 0 {
		return fmt.Errorf("%w: scene has no bodies", ErrInvalidConfig)
	}
	for i, b := range c.Bodies {
		if err := b.validate(); err != nil {
			return fmt.Errorf("%w: body %d: %v", ErrInvalidConfig, i, err)
		}
	}
	return nil
}

func (b BodyConfig) validate() error {
	switch b.Shape {
	case "cloth", "rope", "jelly":
	default:
		return fmt.Errorf("unknown shape %q", b.Shape)
	}
	if b.Mass < 0 {
		return fmt.Errorf("negative mass %f", b.Mass)
	}
	if b.Radius != nil && *b.Radius < 0 {
		return fmt.Errorf("negative radius %f", *b.Radius)
	}
	for name, v := range map[string][]float64{
		"proxy_offset": b.ProxyOffset,
		"acceleration": b.Acceleration,
		"position":     b.Position,
	} {
		if len(v) != 0 && len(v) != 3 {
			return fmt.Errorf("%s needs 3 components, got %d", name, len(v))
		}
	}
	return nil
}

// SimConfig returns the run parameters for the scheduler.
func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Dt:            c.Dt,
		Duration:      c.Duration,
		Iterations:    c.Iterations,
		Seed:          c.Seed,
		Parallel:      c.Parallel,
		ValidateState: c.ValidateState,
		RecordEvery:   c.RecordEvery,
	}
}

// BuildBodies creates one uninitialized body per BodyConfig.
func (c *Config) BuildBodies() ([]*softbody.Body, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	policy, _ := softbody.ParseDragPolicy(c.DragPolicy)

	bodies := make([]*softbody.Body, 0, len(c.Bodies))
	for i, bc := range c.Bodies {
		def := bc.definition()
		def.DragPolicy = policy
		def.Name = bc.Name
		if def.Name == "" {
			def.Name = fmt.Sprintf("%s-%d", bc.Shape, i)
		}
		b, err := softbody.New(def)
		if err != nil {
			return nil, fmt.Errorf("body %s: %w", def.Name, err)
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}

func (b BodyConfig) definition() softbody.BodyDef {
	var def softbody.BodyDef
	switch b.Shape {
	case "cloth":
		def = shapes.Cloth(orInt(b.Cols, 10), orInt(b.Rows, 10), orFloat(b.Spacing, DefaultSpacing), b.Pin)
	case "rope":
		def = shapes.Rope(orInt(b.Segments, DefaultSegments), orFloat(b.Length, DefaultLength))
		if !b.Pin {
			def.AnchorLinks = nil
		}
	case "jelly":
		def = shapes.Jelly(orInt(b.Resolution, DefaultJellyN), orFloat(b.Size, DefaultJellySize))
		if b.Pin {
			pinTop(&def)
		}
	}

	if b.Mass > 0 {
		shapes.SetMass(&def, b.Mass)
	}
	shapes.Translate(&def, vec(b.Position))
	def.UseGravity = b.UseGravity
	def.Acceleration = vec(b.Acceleration)
	def.ProxyOffset = vec(b.ProxyOffset)
	def.ProxyRadius = softbody.DefaultProxyRadius
	if b.Radius != nil {
		def.ProxyRadius = *b.Radius
	}
	return def
}

// pinTop anchors every particle on the highest layer.
func pinTop(def *softbody.BodyDef) {
	top := def.Particles[0].Position.Y()
	for _, p := range def.Particles {
		top = max(top, p.Position.Y())
	}
	for i, p := range def.Particles {
		if p.Position.Y() == top {
			def.AnchorLinks = append(def.AnchorLinks, softbody.AnchorLink{P: i, Target: p.Position})
		}
	}
}

func vec(v []float64) mgl64.Vec3 {
	if len(v) != 3 {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{v[0], v[1], v[2]}
}

func ptr[T any](v T) *T { return &v }

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orFloat(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
