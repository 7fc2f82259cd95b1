package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/softsim/internal/metrics"
	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/softbody"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	defaultNudge    = 0.1
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model runs a scene live. The selected particle can be dragged around with
// the arrow keys once its body is put in drag mode.
type Model struct {
	title      string
	build      sim.SceneBuilder
	cfg        sim.Config
	logger     *log.Logger
	sched      *sim.Scheduler
	bodies     []*softbody.Body
	t          float64
	canvas     *Canvas
	proj       Projection
	running    bool
	body       int
	particle   int
	nudge      float64
	errHistory []float64
	theme      int
	showHelp   bool
	err        error
}

// NewModel builds the scene and a scheduler for it.
func NewModel(title string, build sim.SceneBuilder, cfg sim.Config, logger *log.Logger) (Model, error) {
	m := Model{
		title:   title,
		build:   build,
		cfg:     cfg,
		logger:  logger,
		canvas:  NewCanvas(width, height),
		running: true,
		nudge:   defaultNudge,
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) reset() error {
	bodies, err := m.build()
	if err != nil {
		return err
	}
	s := sim.New()
	if m.logger != nil {
		s.SetLogger(m.logger)
	}
	s.SetParallel(m.cfg.Parallel)
	for _, b := range bodies {
		if err := s.Add(b); err != nil {
			return err
		}
	}

	m.sched = s
	m.bodies = s.Bodies()
	m.t = 0
	m.body, m.particle = 0, 0
	m.errHistory = make([]float64, 0, historyCapacity)
	m.err = nil
	m.proj = FitProjection(PointsOf(ViewsOf(m.bodies)), m.canvas.SubWidth(), m.canvas.SubHeight(), 0.25)
	return nil
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
		case "tab":
			m.selectNext(1)
		case "shift+tab":
			m.selectNext(-1)
		case "d":
			b := m.selected()
			b.SetDragMode(!b.IsDragging())
		case "up", "k":
			m.drag(mgl64.Vec3{0, m.nudge, 0})
		case "down", "j":
			m.drag(mgl64.Vec3{0, -m.nudge, 0})
		case "left", "h":
			m.drag(mgl64.Vec3{-m.nudge, 0, 0})
		case "right", "l":
			m.drag(mgl64.Vec3{m.nudge, 0, 0})
		case "+", "=":
			m.nudge *= 2
		case "-", "_":
			m.nudge /= 2
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

// step advances the scene by one tick and records the link stretch.
func (m *Model) step() {
	if err := m.sched.Tick(context.Background(), m.cfg.Dt, max(m.cfg.Iterations, 1)); err != nil {
		m.err = err
		m.running = false
		return
	}
	m.t += m.cfg.Dt

	worst := 0.0
	for _, b := range m.bodies {
		worst = max(worst, metrics.MaxStretch(b))
	}
	if len(m.errHistory) == historyCapacity {
		m.errHistory = m.errHistory[1:]
	}
	m.errHistory = append(m.errHistory, worst)
}

func (m *Model) selected() *softbody.Body { return m.bodies[m.body] }

// selectNext walks the particles of every body in order, wrapping around.
func (m *Model) selectNext(dir int) {
	m.particle += dir
	for m.particle < 0 {
		m.body = (m.body - 1 + len(m.bodies)) % len(m.bodies)
		m.particle += m.bodies[m.body].NumParticles()
	}
	for m.particle >= m.bodies[m.body].NumParticles() {
		m.particle -= m.bodies[m.body].NumParticles()
		m.body = (m.body + 1) % len(m.bodies)
	}
}

// drag moves the selected particle by delta. It only acts in drag mode.
func (m *Model) drag(delta mgl64.Vec3) {
	b := m.selected()
	if !b.IsDragging() {
		return
	}
	pos := b.Particle(m.particle).Position.Add(delta)
	if err := b.MoveParticle(m.particle, pos); err != nil {
		m.err = err
	}
}

// Time is the simulated time since the last reset.
func (m Model) Time() float64 { return m.t }

// Selection returns the selected body and particle indices.
func (m Model) Selection() (int, int) { return m.body, m.particle }

func (m Model) Bodies() []*softbody.Body { return m.bodies }

func (m Model) Running() bool { return m.running }

func (m *Model) draw() {
	views := ViewsOf(m.bodies)
	m.proj.Include(PointsOf(views))
	m.canvas.Clear()
	DrawScene(m.canvas, m.proj, views)

	p := m.selected().Particle(m.particle).Position
	if finite(p) {
		x, y := m.proj.Project(p)
		m.canvas.DrawCross(x, y, 2)
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	st := Themes[m.theme].styles()
	m.draw()
	canvasView := st.canvas.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.title)) + "\n")

	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	b := m.selected()
	if b.IsDragging() {
		status += " / DRAG"
	}
	s.WriteString(status + "\n\n")

	if len(m.errHistory) > 1 {
		chart := asciigraph.Plot(m.errHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Link stretch"))
		s.WriteString(st.graph.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.t))
	stretch := 0.0
	if len(m.errHistory) > 0 {
		stretch = m.errHistory[len(m.errHistory)-1]
	}
	row("Stretch", fmt.Sprintf("%.4f", stretch))
	row("Bodies", fmt.Sprintf("%d", len(m.bodies)))
	row("Iterations", fmt.Sprintf("%d", max(m.cfg.Iterations, 1)))

	s.WriteString("\nSELECTED\n")
	p := b.Particle(m.particle)
	s.WriteString(st.active.Render(fmt.Sprintf("> %s #%d", b.Name(), m.particle)) + "\n")
	row("Position", fmt.Sprintf("%.2f %.2f %.2f", p.Position.X(), p.Position.Y(), p.Position.Z()))
	row("State", b.State().String())
	row("Step", fmt.Sprintf("%.3f", m.nudge))

	if m.err != nil {
		s.WriteString("\n" + st.warn.Render(m.err.Error()) + "\n")
	}

	s.WriteString(st.help.Render("─────────────────────\nSP:Pause R:Reset Q:Quit\nTAB:Select D:Drag ←↑↓→:Move\nT:Theme ?:Help"))
	statsView := st.stats.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Rebuild the scene        ║
║  Q        - Quit                     ║
║  Tab      - Next particle            ║
║  S-Tab    - Previous particle        ║
║  D        - Toggle drag mode         ║
║  Arrows   - Move selected particle   ║
║  + / -    - Double/halve drag step   ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}
