package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/softbody"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
)

var frameHeader = []string{"time", "body", "particle", "x", "y", "z"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// BodyMetadata keeps enough topology to redraw a stored body.
type BodyMetadata struct {
	Name      string   `json:"name"`
	Particles int      `json:"particles"`
	Links     [][2]int `json:"links"`
	Anchors   []int    `json:"anchors"`
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Scene       string             `json:"scene"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Iterations  int                `json:"iterations"`
	RecordEvery int                `json:"record_every"`
	StepsTaken  int                `json:"steps_taken"`
	Bodies      []BodyMetadata     `json:"bodies"`
	Metrics     map[string]float64 `json:"metrics"`
	Errors      []string           `json:"errors,omitempty"`
}

// Describe captures the topology of bodies for RunMetadata.
func Describe(bodies []*softbody.Body) []BodyMetadata {
	out := make([]BodyMetadata, len(bodies))
	for i, b := range bodies {
		m := BodyMetadata{Name: b.Name(), Particles: b.NumParticles()}
		for _, l := range b.DistanceLinks() {
			m.Links = append(m.Links, [2]int{l.I, l.J})
		}
		for _, a := range b.AnchorLinks() {
			m.Anchors = append(m.Anchors, a.P)
		}
		out[i] = m
	}
	return out
}

// Save writes a run under <base>/<scene>_<unix> and returns its ID.
func (s *Store) Save(scene string, cfg sim.Config, bodies []*softbody.Body, result *sim.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", scene, now.Unix())
	runDir := filepath.Join(s.baseDir, runID)
	for n := 2; ; n++ {
		if _, err := os.Stat(runDir); os.IsNotExist(err) {
			break
		}
		runID = fmt.Sprintf("%s_%d_%d", scene, now.Unix(), n)
		runDir = filepath.Join(s.baseDir, runID)
	}

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Scene:       scene,
		Timestamp:   now,
		Seed:        cfg.Seed,
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		Iterations:  cfg.Iterations,
		RecordEvery: cfg.RecordEvery,
		StepsTaken:  result.StepsTaken,
		Bodies:      Describe(bodies),
		Metrics:     result.Metrics,
	}
	for _, err := range result.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, framesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteFramesCSV(csvFile, result.Frames); err != nil {
		return "", err
	}
	return runID, nil
}

// WriteFramesCSV writes one row per particle per frame.
func WriteFramesCSV(out io.Writer, frames []sim.Frame) error {
	w := csv.NewWriter(out)
	if err := w.Write(frameHeader); err != nil {
		return err
	}

	for _, f := range frames {
		t := strconv.FormatFloat(f.Time, 'f', 6, 64)
		for bi, body := range f.Positions {
			for pi, p := range body {
				row := []string{
					t,
					strconv.Itoa(bi),
					strconv.Itoa(pi),
					strconv.FormatFloat(p[0], 'f', 6, 64),
					strconv.FormatFloat(p[1], 'f', 6, 64),
					strconv.FormatFloat(p[2], 'f', 6, 64),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every stored run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadFrames(runID string) ([]sim.Frame, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, framesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadFramesCSV(file)
}

// ReadFramesCSV parses the output of WriteFramesCSV. A row for body 0,
// particle 0 starts a new frame.
func ReadFramesCSV(in io.Reader) ([]sim.Frame, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(frameHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.Frame{}, nil
	}

	frames := make([]sim.Frame, 0)
	for line, rec := range records[1:] {
		vals, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("frames.csv line %d: %w", line+2, err)
		}
		t, bi, pi := vals[0], int(vals[1]), int(vals[2])
		pos := mgl64.Vec3{vals[3], vals[4], vals[5]}

		if bi == 0 && pi == 0 {
			frames = append(frames, sim.Frame{Time: t})
		}
		if len(frames) == 0 {
			return nil, fmt.Errorf("frames.csv line %d: %w", line+2, errOrphanRow)
		}
		f := &frames[len(frames)-1]
		for len(f.Positions) <= bi {
			f.Positions = append(f.Positions, nil)
		}
		f.Positions[bi] = append(f.Positions[bi], pos)
	}
	return frames, nil
}

var errOrphanRow = errors.New("row before first frame start")

func parseRow(rec []string) ([6]float64, error) {
	var vals [6]float64
	for i, field := range rec {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return vals, err
		}
		vals[i] = v
	}
	return vals, nil
}
