package viz

import (
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/softsim/internal/shapes"
	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/softbody"
)

func testModel(t *testing.T) Model {
	t.Helper()
	build := func() ([]*softbody.Body, error) {
		a := shapes.Rope(2, 2)
		a.UseGravity = true
		ra, err := softbody.New(a)
		if err != nil {
			return nil, err
		}
		rb, err := softbody.New(shapes.Rope(1, 1))
		if err != nil {
			return nil, err
		}
		return []*softbody.Body{ra, rb}, nil
	}
	m, err := NewModel("ropes", build, sim.Config{Dt: 0.01, Iterations: 4}, log.New(io.Discard))
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return m
}

func send(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelTick(t *testing.T) {
	m := testModel(t)
	m = send(m, TickMsg(time.Now()))
	m = send(m, TickMsg(time.Now()))

	if m.Time() < 0.019 || m.Time() > 0.021 {
		t.Errorf("expected t=0.02, got %f", m.Time())
	}
	if y := m.Bodies()[0].Particle(2).Position.Y(); y >= 0 {
		t.Errorf("free end did not fall: %f", y)
	}

	m = send(m, key(" "))
	if m.Running() {
		t.Fatal("expected paused")
	}
	before := m.Time()
	m = send(m, TickMsg(time.Now()))
	if m.Time() != before {
		t.Error("paused model advanced")
	}
}

func TestModelSelectionWraps(t *testing.T) {
	m := testModel(t)

	// bodies have 3 and 2 particles
	want := [][2]int{{0, 1}, {0, 2}, {1, 0}, {1, 1}, {0, 0}}
	for i, w := range want {
		m = send(m, key("tab"))
		if b, p := m.Selection(); b != w[0] || p != w[1] {
			t.Errorf("step %d: selection (%d, %d), want %v", i, b, p, w)
		}
	}

	m = send(m, key("shift+tab"))
	if b, p := m.Selection(); b != 1 || p != 1 {
		t.Errorf("reverse selection (%d, %d), want (1, 1)", b, p)
	}
}

func TestModelDrag(t *testing.T) {
	m := testModel(t)
	m = send(m, key("tab"))
	start := m.Bodies()[0].Particle(1).Position

	m = send(m, key("right"))
	if m.Bodies()[0].Particle(1).Position != start {
		t.Fatal("particle moved without drag mode")
	}

	m = send(m, key("d"))
	if !m.Bodies()[0].IsDragging() {
		t.Fatal("expected drag mode")
	}
	m = send(m, key("right"))
	m = send(m, key("up"))
	got := m.Bodies()[0].Particle(1).Position
	if !got.ApproxEqualThreshold(start.Add(mgl64.Vec3{defaultNudge, defaultNudge, 0}), 1e-12) {
		t.Errorf("expected dragged position, got %v", got)
	}
	if m.Bodies()[0].State() != softbody.StateDragging {
		t.Errorf("expected dragging state, got %v", m.Bodies()[0].State())
	}

	// integration is frozen while dragging
	m = send(m, TickMsg(time.Now()))
	if m.Bodies()[0].Particle(1).Position != got {
		t.Error("dragged body integrated")
	}

	m = send(m, key("d"))
	if m.Bodies()[0].State() != softbody.StateSimulating {
		t.Errorf("expected simulating after release, got %v", m.Bodies()[0].State())
	}
}

func TestModelReset(t *testing.T) {
	m := testModel(t)
	m = send(m, TickMsg(time.Now()))
	m = send(m, key("tab"))
	m = send(m, key("r"))
	if m.Time() != 0 {
		t.Errorf("expected t=0 after reset, got %f", m.Time())
	}
	if b, p := m.Selection(); b != 0 || p != 0 {
		t.Errorf("expected selection reset, got (%d, %d)", b, p)
	}
}

func TestModelView(t *testing.T) {
	m := testModel(t)
	for i := 0; i < 3; i++ {
		m = send(m, TickMsg(time.Now()))
	}
	view := m.View()
	for _, want := range []string{"ROPES", "RUNNING", "rope #0"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m = send(m, key("?"))
	if !strings.Contains(m.View(), "KEYBOARD SHORTCUTS") {
		t.Error("help overlay not shown")
	}
}

func TestModelQuit(t *testing.T) {
	m := testModel(t)
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
