package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/metrics"
	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/softbody"
	"github.com/san-kum/softsim/internal/storage"
)

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep runs one scene, taken from a preset or a scene file, with
// optional overrides. Zero overrides keep the scene's values.
type ScenarioStep struct {
	Name       string  `yaml:"name"`
	Preset     string  `yaml:"preset,omitempty"`
	Config     string  `yaml:"config,omitempty"`
	Dt         float64 `yaml:"dt,omitempty"`
	Duration   float64 `yaml:"duration,omitempty"`
	Iterations int     `yaml:"iterations,omitempty"`
	DragPolicy string  `yaml:"drag_policy,omitempty"`
	Save       bool    `yaml:"save"`
}

type StepResult struct {
	Name   string
	RunID  string
	Result *sim.Result
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &scenario, nil
}

// Resolve returns the scene config of a step with its overrides applied.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		c, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = c
	case s.Preset != "":
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q", s.Preset)
		}
	default:
		return nil, fmt.Errorf("step needs a preset or a config")
	}

	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.Iterations > 0 {
		cfg.Iterations = s.Iterations
	}
	if s.DragPolicy != "" {
		cfg.DragPolicy = s.DragPolicy
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewScheduler registers bodies with a scheduler configured from cfg and
// attaches the standard metrics.
func NewScheduler(cfg *config.Config, bodies []*softbody.Body, logger *log.Logger) (*sim.Scheduler, error) {
	s := sim.New()
	s.SetLogger(logger)
	s.SetParallel(cfg.Parallel)
	for _, b := range bodies {
		if err := s.Add(b); err != nil {
			return nil, err
		}
	}
	for _, m := range metrics.Standard(cfg.Dt) {
		s.AddMetric(m)
	}
	return s, nil
}

// RunScenario executes all steps in order. Steps marked save are written to
// store, which may be nil when nothing is saved.
func RunScenario(ctx context.Context, scenario *Scenario, store *storage.Store, logger *log.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step%d", i+1)
		}
		logger.Info("running step", "step", i+1, "of", len(scenario.Steps), "name", name)

		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		bodies, err := cfg.BuildBodies()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		s, err := NewScheduler(cfg, bodies, logger)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := s.Run(ctx, cfg.SimConfig())
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Name: name, Result: result}
		if step.Save {
			if store == nil {
				return results, fmt.Errorf("step %d: save requested without a store", i+1)
			}
			sr.RunID, err = store.Save(name, cfg.SimConfig(), bodies, result)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}

	return results, nil
}

// MonteCarloConfig defines Monte Carlo simulation parameters
type MonteCarloConfig struct {
	Scene *config.Config
	// Perturbation bounds the random offset added to each coordinate of
	// every movable particle before the run.
	Perturbation float64
	NumTrials    int
	Seed         int64
}

// MonteCarloResult holds the outcome of one trial
type MonteCarloResult struct {
	TrialID    int
	Steps      int
	MaxStretch float64
	Stable     bool // Did every position stay finite and bounded?
}

// RunMonteCarlo runs the scene NumTrials times, each from randomly jittered
// starting positions. A zero Seed seeds from the clock.
func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, logger *log.Logger) ([]MonteCarloResult, error) {
	if mc.NumTrials <= 0 {
		return nil, fmt.Errorf("monte carlo needs at least one trial")
	}
	results := make([]MonteCarloResult, 0, mc.NumTrials)

	rng := rand.New(rand.NewSource(mc.Seed))
	if mc.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for trial := 0; trial < mc.NumTrials; trial++ {
		bodies, err := mc.Scene.BuildBodies()
		if err != nil {
			return nil, err
		}
		for _, b := range bodies {
			if err := jitter(b, rng, mc.Perturbation); err != nil {
				return nil, err
			}
		}

		s, err := NewScheduler(mc.Scene, bodies, logger)
		if err != nil {
			return nil, err
		}
		result, err := s.Run(ctx, mc.Scene.SimConfig())
		if err != nil {
			return nil, err
		}

		results = append(results, MonteCarloResult{
			TrialID:    trial,
			Steps:      result.StepsTaken,
			MaxStretch: result.Metrics["constraint_error"],
			Stable:     len(result.Errors) == 0 && result.Metrics["stability"] == 1,
		})

		if (trial+1)%10 == 0 {
			logger.Info("monte carlo progress", "done", trial+1, "trials", mc.NumTrials)
		}
	}

	return results, nil
}

// jitter offsets every movable particle of an uninitialized body.
func jitter(b *softbody.Body, rng *rand.Rand, amount float64) error {
	for i, p := range b.Particles() {
		if p.Pinned() {
			continue
		}
		offset := mgl64.Vec3{
			(rng.Float64() - 0.5) * 2 * amount,
			(rng.Float64() - 0.5) * 2 * amount,
			(rng.Float64() - 0.5) * 2 * amount,
		}
		if err := b.MoveParticle(i, p.Position.Add(offset)); err != nil {
			return err
		}
	}
	return nil
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
