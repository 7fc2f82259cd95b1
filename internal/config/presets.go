package config

import "sort"

var Presets = map[string]*Config{
	"cloth": {
		Scene: "cloth", Dt: 1.0 / 60, Duration: 10.0, Iterations: 8, ValidateState: true, RecordEvery: 2,
		Bodies: []BodyConfig{
			{Name: "cloth", Shape: "cloth", Cols: 12, Rows: 12, Spacing: 0.25, Pin: true, UseGravity: true},
		},
	},
	"rope": {
		Scene: "rope", Dt: 1.0 / 60, Duration: 10.0, Iterations: 10, ValidateState: true, RecordEvery: 1,
		Bodies: []BodyConfig{
			{Name: "rope", Shape: "rope", Segments: 16, Length: 4.0, Pin: true, UseGravity: true},
		},
	},
	"jelly": {
		Scene: "jelly", Dt: 1.0 / 60, Duration: 5.0, Iterations: 12, ValidateState: true, RecordEvery: 1,
		Bodies: []BodyConfig{
			{Name: "jelly", Shape: "jelly", Resolution: 4, Size: 1.0, Pin: true, UseGravity: true, Radius: ptr(0.15)},
		},
	},
	"mixed": {
		Scene: "mixed", Dt: 1.0 / 60, Duration: 8.0, Iterations: 8, ValidateState: true, RecordEvery: 2,
		Parallel: true, DragPolicy: "freeze_integration",
		Bodies: []BodyConfig{
			{Name: "curtain", Shape: "cloth", Cols: 8, Rows: 8, Spacing: 0.25, Pin: true, UseGravity: true, Position: []float64{-2, 2, 0}},
			{Name: "rope", Shape: "rope", Segments: 10, Length: 2.5, Pin: true, UseGravity: true, Position: []float64{1, 2, 0}},
			{Name: "block", Shape: "jelly", Resolution: 3, Size: 0.6, Mass: 0.5, UseGravity: true, Position: []float64{0, 3, 0}},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	c.Bodies = append([]BodyConfig(nil), cfg.Bodies...)
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
