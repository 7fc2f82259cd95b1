package automation

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/storage"
)

var quiet = log.New(io.Discard)

const scenarioYAML = `name: smoke
description: two short runs
steps:
  - name: short-rope
    preset: rope
    duration: 0.1
    save: true
  - preset: cloth
    duration: 0.05
    iterations: 2
    drag_policy: freeze_integration
`

func TestLoadAndRunScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0644); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Name != "smoke" || len(sc.Steps) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}

	st := storage.New(filepath.Join(dir, "runs"))
	results, err := RunScenario(context.Background(), sc, st, quiet)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].RunID == "" {
		t.Error("saved step has no run id")
	}
	if results[1].RunID != "" || results[1].Name != "step2" {
		t.Errorf("unexpected second result %+v", results[1])
	}
	if results[1].Result.StepsTaken != 3 {
		t.Errorf("expected 3 steps, got %d", results[1].Result.StepsTaken)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Scene != "short-rope" {
		t.Errorf("unexpected stored runs %+v", runs)
	}
}

func TestLoadScenarioEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("name: empty\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenario(path); err == nil {
		t.Error("expected error for scenario without steps")
	}
}

func TestStepResolve(t *testing.T) {
	tests := []struct {
		name    string
		step    ScenarioStep
		wantErr bool
	}{
		{"preset", ScenarioStep{Preset: "jelly"}, false},
		{"override", ScenarioStep{Preset: "jelly", Iterations: 3}, false},
		{"unknown preset", ScenarioStep{Preset: "blob"}, true},
		{"nothing", ScenarioStep{}, true},
		{"bad policy", ScenarioStep{Preset: "rope", DragPolicy: "never"}, true},
		{"missing file", ScenarioStep{Config: "/nonexistent/scene.yaml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.step.Resolve()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.step.Iterations > 0 && cfg.Iterations != tt.step.Iterations {
				t.Errorf("override not applied: %d", cfg.Iterations)
			}
		})
	}
}

func TestRunScenarioSaveWithoutStore(t *testing.T) {
	sc := &Scenario{Steps: []ScenarioStep{{Preset: "rope", Duration: 0.05, Save: true}}}
	if _, err := RunScenario(context.Background(), sc, nil, quiet); err == nil {
		t.Error("expected error when saving without a store")
	}
}

func TestMonteCarloDeterministic(t *testing.T) {
	scene := config.GetPreset("rope")
	scene.Duration = 0.2

	mc := &MonteCarloConfig{Scene: scene, Perturbation: 0.05, NumTrials: 3, Seed: 7}
	a, err := RunMonteCarlo(context.Background(), mc, quiet)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	b, err := RunMonteCarlo(context.Background(), mc, quiet)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(a) != 3 {
		t.Fatalf("expected 3 trials, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("trial %d differs between seeded runs: %+v vs %+v", i, a[i], b[i])
		}
	}
	if a[0].MaxStretch == a[1].MaxStretch {
		t.Error("trials were not perturbed differently")
	}

	stable, unstable := MonteCarloStats(a)
	if stable != 3 || unstable != 0 {
		t.Errorf("expected 3 stable trials, got %d/%d", stable, unstable)
	}
}

func TestMonteCarloNoTrials(t *testing.T) {
	mc := &MonteCarloConfig{Scene: config.GetPreset("rope")}
	if _, err := RunMonteCarlo(context.Background(), mc, quiet); err == nil {
		t.Error("expected error for zero trials")
	}
}
