// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// PlaybackModel shows whether a file is playing and lets the user pause and restart it.
type PlaybackModel struct {
	title    string
	toggle   func() (bool, error)
	playing  func() bool
	interval time.Duration

	isPlaying bool
	err       error
}

// NewPlaybackModel creates a playback view. toggle starts or stops playback and reports the new
// state; playing is polled every interval so the view notices when the file ends.
func NewPlaybackModel(title string, toggle func() (bool, error), playing func() bool, interval time.Duration) PlaybackModel {
	return PlaybackModel{
		title:    title,
		toggle:   toggle,
		playing:  playing,
		interval: interval,
	}
}

func (m PlaybackModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m PlaybackModel) Init() tea.Cmd {
	return m.tick()
}

func (m PlaybackModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.isPlaying = m.playing()
		return m, m.tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))):
			return m, tea.Quit
		case key.Matches(msg, key.NewBinding(key.WithKeys(" ", "p", "enter"))):
			playing, err := m.toggle()
			m.isPlaying = playing
			m.err = err
		}
	}
	return m, nil
}

func (m PlaybackModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Playback"))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "File:  %s\n", m.title)
	if m.isPlaying {
		sb.WriteString("State: playing\n")
	} else {
		sb.WriteString(dimStyle.Render("State: stopped"))
		sb.WriteString("\n")
	}
	if m.err != nil {
		fmt.Fprintf(&sb, "Error: %v\n", m.err)
	}
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("space/p: Play/Stop • q: Quit"))
	return sb.String()
}

// RunPlayback shows the playback view until the user quits or ctx is done.
func RunPlayback(ctx context.Context, model PlaybackModel) error {
	model.isPlaying = model.playing()
	p := tea.NewProgram(model, tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
