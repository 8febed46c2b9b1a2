// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"popdetect/internal/session"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// thresholdStep is the change applied by one +/- key press.
const thresholdStep = 0.05

// maxListedPops bounds the bucket times shown under the counters.
const maxListedPops = 8

var popStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0443E")).Bold(true)

type tickMsg time.Time

// MonitorModel periodically reads the capture status and renders it. It never writes to the
// capture; the threshold keys go through setThreshold.
type MonitorModel struct {
	status       func() session.Status
	setThreshold func(float64) error
	interval     time.Duration

	last  session.Status
	level progress.Model
	err   error
}

// NewMonitorModel creates a monitor refreshing every interval. setThreshold may be nil, which
// disables the threshold keys.
func NewMonitorModel(status func() session.Status, setThreshold func(float64) error, interval time.Duration) MonitorModel {
	return MonitorModel{
		status:       status,
		setThreshold: setThreshold,
		interval:     interval,
		level:        progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

func (m MonitorModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m MonitorModel) Init() tea.Cmd {
	return m.tick()
}

func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.last = m.status()
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.level.Width = min(max(msg.Width-20, 10), 60)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))):
			return m, tea.Quit
		case key.Matches(msg, key.NewBinding(key.WithKeys("+", "=", "up"))):
			m.adjustThreshold(thresholdStep)
		case key.Matches(msg, key.NewBinding(key.WithKeys("-", "down"))):
			m.adjustThreshold(-thresholdStep)
		}
	}
	return m, nil
}

func (m *MonitorModel) adjustThreshold(delta float64) {
	if m.setThreshold == nil {
		return
	}
	next := math.Round((m.last.Threshold+delta)*100) / 100
	next = math.Min(1, math.Max(0, next))
	if err := m.setThreshold(next); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.last.Threshold = next
}

func (m MonitorModel) View() string {
	var sb strings.Builder
	st := m.last

	sb.WriteString(titleStyle.Render("Live Pop Monitor"))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Captured:  %.1f seconds\n", st.Seconds)
	fmt.Fprintf(&sb, "Threshold: %.2f\n", st.Threshold)
	fmt.Fprintf(&sb, "Level:     %s %.2f\n", m.level.ViewAs(math.Min(1, st.Level)), st.Level)
	fmt.Fprintf(&sb, "Peak:      %.2f\n", st.Peak)
	sb.WriteString(popStyle.Render(fmt.Sprintf("Detected Pops: %d", st.Pops)))
	sb.WriteString("\n")

	if n := len(st.Buckets); n > 0 {
		from := max(0, n-maxListedPops)
		times := make([]string, 0, n-from)
		for _, t := range st.Buckets[from:] {
			times = append(times, fmt.Sprintf("%.1fs", t))
		}
		sb.WriteString(dimStyle.Render("Latest: " + strings.Join(times, ", ")))
		sb.WriteString("\n")
	}
	if st.Dropped > 0 {
		fmt.Fprintf(&sb, "Dropped blocks: %d\n", st.Dropped)
	}
	if m.err != nil {
		fmt.Fprintf(&sb, "Error: %v\n", m.err)
	}

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("+/-: Threshold • q: Stop capture"))
	return sb.String()
}

// RunMonitor shows the monitor until the user quits or ctx is done. Quitting returns nil so the
// caller can finish the capture normally.
func RunMonitor(ctx context.Context, model MonitorModel) error {
	model.last = model.status()
	p := tea.NewProgram(model, tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
