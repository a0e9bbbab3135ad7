// Package monitor is a terminal dashboard over a gaze server's event
// stream: session status, dwell progress, calibration and recent events.
package monitor

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

const maxLog = 12

// Model is the root Bubble Tea model. It only changes through Update, so
// value receivers are enough.
type Model struct {
	width  int
	height int
	server string
	now    func() time.Time

	connected bool
	connErr   error

	sessionID   string
	status      gaze.Status
	calibration *gaze.CalibrationProgress
	dwellTarget string
	dwellProg   float64
	activations int
	lastActive  string
	log         []gaze.Event
}

// New creates a model for the given server address.
func New(server string) Model {
	return Model{server: server, now: time.Now}
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c", "esc":
			return m, tea.Quit
		case "c", "C":
			m.log = nil
		}
		return m, nil

	case TickMsg:
		return m, tickCmd()

	case ConnMsg:
		m.connected = msg.Connected
		m.connErr = msg.Err
		return m, nil

	case EventMsg:
		return m.apply(gaze.Event(msg)), nil
	}

	return m, nil
}

func (m Model) apply(e gaze.Event) Model {
	if e.SessionID != "" {
		m.sessionID = e.SessionID
	}

	switch e.Kind {
	case gaze.EventStatus:
		if e.Status != nil {
			m.status = *e.Status
		}
		// status is periodic; keep it out of the log
		return m

	case gaze.EventDwellStart:
		m.dwellTarget = e.TargetID
		m.dwellProg = 0
		return m

	case gaze.EventDwellProgress:
		m.dwellTarget = e.TargetID
		m.dwellProg = e.Progress
		return m

	case gaze.EventDwellReset:
		m.dwellTarget = ""
		m.dwellProg = 0

	case gaze.EventActivated:
		m.dwellTarget = ""
		m.dwellProg = 0
		m.activations++
		m.lastActive = e.TargetID

	case gaze.EventCalibrationProgress, gaze.EventCalibrationComplete:
		if e.Calibration != nil {
			c := *e.Calibration
			m.calibration = &c
		}

	case gaze.EventSessionActive:
		m.status.Active = true

	case gaze.EventSessionInactive:
		m.status.Active = false
		m.dwellTarget = ""
		m.dwellProg = 0
	}

	m.log = append(m.log, e)
	if len(m.log) > maxLog {
		m.log = m.log[len(m.log)-maxLog:]
	}
	return m
}

func (m Model) View() string {
	if m.width == 0 {
		return "Connecting to " + m.server + "..."
	}

	header := m.renderHeader()
	left := lipgloss.JoinVertical(lipgloss.Left, m.renderSession(), m.renderDwell(), m.renderCalibration())
	right := m.renderLog()
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	footer := StyleFooter.Render("q quit  c clear log")

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderHeader() string {
	conn := StyleError.Render("● disconnected")
	if m.connected {
		conn = StyleOK.Render("● connected")
	} else if m.connErr != nil {
		conn = StyleError.Render("● " + m.connErr.Error())
	}
	title := fmt.Sprintf("go-gaze monitor  %s  ", m.server)
	return StyleHeader.Width(m.width).Render(title + conn)
}

func (m Model) renderSession() string {
	active := StyleWarn.Render("inactive")
	if m.status.Active {
		active = StyleOK.Render("active")
	}
	face := StyleWarn.Render("no face")
	if m.status.FaceDetected {
		face = StyleOK.Render("face detected")
	}
	stable := StyleWarn.Render("unstable")
	if m.status.Stable {
		stable = StyleOK.Render("stable")
	}

	lines := []string{
		StylePanelTitle.Render("Session"),
		row("id", orDash(m.sessionID)),
		row("state", active+"  "+face+"  "+stable),
		row("gaze", formatPoint(m.status.LastPrediction)),
		row("reference", formatPoint(m.status.Reference)),
	}
	if sp := m.status.Stabilized; sp != nil {
		lines = append(lines, row("dispersion", fmt.Sprintf("%.1f × %.1f px", sp.DispersionX, sp.DispersionY)))
	}
	return StylePanel.Width(m.panelWidth()).Render(strings.Join(lines, "\n"))
}

func (m Model) renderDwell() string {
	lines := []string{
		StylePanelTitle.Render("Dwell"),
		row("target", orDash(m.dwellTarget)),
		row("progress", ProgressBar(m.dwellProg, 24)),
		row("activations", fmt.Sprintf("%d (last %s)", m.activations, orDash(m.lastActive))),
	}
	return StylePanel.Width(m.panelWidth()).Render(strings.Join(lines, "\n"))
}

func (m Model) renderCalibration() string {
	lines := []string{StylePanelTitle.Render("Calibration")}
	c := m.calibration
	switch {
	case c == nil:
		lines = append(lines, StyleLabel.Render("waiting for progress"))
	case c.Complete:
		lines = append(lines, StyleOK.Render(fmt.Sprintf("complete (%d points)", c.TotalPoints)))
	default:
		frac := 0.0
		if c.TotalPoints > 0 {
			frac = float64(c.CurrentIndex) / float64(c.TotalPoints)
		}
		lines = append(lines,
			row("point", fmt.Sprintf("%d/%d %s", c.CurrentIndex+1, c.TotalPoints, c.Name)),
			row("cycle", fmt.Sprintf("%d/%d", c.CurrentCycle, c.TotalCycles)),
			row("samples", fmt.Sprintf("%d/%d %s", c.Samples, c.SampleMax, c.State)),
			row("overall", ProgressBar(frac, 24)),
		)
	}
	return StylePanel.Width(m.panelWidth()).Render(strings.Join(lines, "\n"))
}

func (m Model) renderLog() string {
	lines := []string{StylePanelTitle.Render("Events")}
	now := m.now()
	for i := len(m.log) - 1; i >= 0; i-- {
		lines = append(lines, describe(m.log[i], now))
	}
	w := m.width - m.panelWidth() - 2
	if w < 20 {
		w = 20
	}
	return StylePanel.Width(w).Render(strings.Join(lines, "\n"))
}

func (m Model) panelWidth() int {
	w := m.width / 2
	if w < 36 {
		w = 36
	}
	return w
}

// describe renders one log line.
func describe(e gaze.Event, now time.Time) string {
	age := now.Sub(e.Time).Round(time.Second)
	if age < 0 {
		age = 0
	}
	prefix := StyleLabel.Render(fmt.Sprintf("%4s ago ", age))

	var text string
	switch e.Kind {
	case gaze.EventActivated:
		text = StyleOK.Render("activated " + e.TargetID)
		if e.Error != "" {
			text += " " + StyleError.Render(e.Error)
		}
	case gaze.EventDwellReset:
		text = StyleWarn.Render("dwell reset " + e.TargetID)
	case gaze.EventCalibrationSample:
		text = fmt.Sprintf("sample %s at %s", e.Sample, formatPoint(e.Point))
	case gaze.EventReferenceSet:
		text = "reference set at " + formatPoint(e.Point)
	default:
		text = string(e.Kind)
	}
	return prefix + StyleValue.Render(text)
}

// ProgressBar renders frac in [0, 1] as a bar of width cells.
func ProgressBar(frac float64, width int) string {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac*float64(width) + 0.5)
	return StyleBarFill.Render(strings.Repeat("█", filled)) +
		StyleBarEmpty.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %3.0f%%", frac*100)
}

func row(label, value string) string {
	return StyleLabel.Render(fmt.Sprintf("%-12s", label)) + value
}

func formatPoint(p *gaze.Point) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("(%.0f, %.0f)", p.X, p.Y)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
