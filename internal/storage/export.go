package storage

import (
	"encoding/json"
	"io"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/softsim/internal/sim"
)

type ExportFrame struct {
	Time      float64        `json:"time"`
	Positions [][]mgl64.Vec3 `json:"positions"`
}

type ExportData struct {
	RunMetadata
	Steps  int           `json:"steps"`
	Frames []ExportFrame `json:"frames"`
}

// ExportJSON writes a run's metadata and recorded frames as indented JSON.
func ExportJSON(w io.Writer, meta *RunMetadata, frames []sim.Frame) error {
	data := ExportData{
		RunMetadata: *meta,
		Steps:       len(frames),
		Frames:      make([]ExportFrame, len(frames)),
	}
	for i, f := range frames {
		data.Frames[i] = ExportFrame{Time: f.Time, Positions: f.Positions}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
