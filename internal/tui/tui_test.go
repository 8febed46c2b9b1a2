// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"popdetect/internal/audio"
	"popdetect/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDevices() ([]audio.Device, error) {
	return []audio.Device{
		{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 44100},
		{ID: 1, Name: "USB Mic", MaxInputChannels: 1, DefaultSampleRate: 48000},
	}, nil
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive feeds msgs through Update and returns the final model and the last command.
func drive(t *testing.T, m tea.Model, msgs ...tea.Msg) (tea.Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		m, cmd = m.Update(msg)
	}
	return m, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestDevicePickerSelection(t *testing.T) {
	m := NewDeviceListModel(testDevices, true)
	msg := m.Init()()
	require.IsType(t, devicesMsg{}, msg)

	final, cmd := drive(t, m,
		tea.WindowSizeMsg{Width: 80, Height: 30},
		msg,
		keyMsg("enter"), // Speakers has no input; stays on the list.
		keyMsg("down"),
		keyMsg("enter"), // USB Mic: config screen, default 48000 preselected.
		keyMsg("down"),  // 88200
		keyMsg("enter"),
	)
	assert.True(t, isQuit(cmd))

	sel, ok := final.(DeviceListModel).Selection()
	require.True(t, ok)
	assert.Equal(t, Selection{DeviceID: 1, DeviceName: "USB Mic", SampleRate: 88200}, sel)
}

func TestDevicePickerQuitWithoutSelection(t *testing.T) {
	m := NewDeviceListModel(testDevices, true)
	final, cmd := drive(t, m, tea.WindowSizeMsg{Width: 80, Height: 30}, m.Init()(), keyMsg("q"))
	assert.True(t, isQuit(cmd))
	_, ok := final.(DeviceListModel).Selection()
	assert.False(t, ok)
}

func TestDeviceListBrowseOnly(t *testing.T) {
	m := NewDeviceListModel(testDevices, false)
	final, cmd := drive(t, m,
		tea.WindowSizeMsg{Width: 80, Height: 30},
		m.Init()(),
		keyMsg("down"),
		keyMsg("enter"),
		keyMsg("enter"),
	)
	assert.False(t, isQuit(cmd))
	view := final.View()
	assert.Contains(t, view, "Capture Configuration")
	assert.Contains(t, view, "▶ 48000 Hz")

	final, _ = drive(t, final, keyMsg("esc"))
	assert.Contains(t, final.View(), "[1] USB Mic (Input)")
}

func TestDeviceListFetchError(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) { return nil, errors.New("no host API") }, true)
	final, _ := drive(t, m, m.Init()())
	assert.Contains(t, final.View(), "Error: no host API")
}

func TestMonitorRefreshAndThreshold(t *testing.T) {
	calls := 0
	status := func() session.Status {
		calls++
		return session.Status{Seconds: 2.5, Pops: 2, Buckets: []float64{0.5, 2.0}, Threshold: 0.4, Level: 0.3, Dropped: 1}
	}
	var thresholds []float64
	set := func(v float64) error {
		thresholds = append(thresholds, v)
		return nil
	}

	m := NewMonitorModel(status, set, 10*time.Millisecond)
	require.NotNil(t, m.Init())

	final, cmd := drive(t, m, tickMsg(time.Now()))
	assert.Equal(t, 1, calls)
	assert.NotNil(t, cmd, "tick should schedule the next refresh")

	view := final.View()
	for _, want := range []string{"Captured:  2.5 seconds", "Detected Pops: 2", "Latest: 0.5s, 2.0s", "Dropped blocks: 1"} {
		assert.True(t, strings.Contains(view, want), "view missing %q:\n%s", want, view)
	}

	final, _ = drive(t, final, keyMsg("+"), keyMsg("+"), keyMsg("-"))
	assert.Equal(t, []float64{0.45, 0.5, 0.45}, thresholds)
	assert.Contains(t, final.View(), "Threshold: 0.45")

	_, cmd = drive(t, final, keyMsg("q"))
	assert.True(t, isQuit(cmd))
}

func TestMonitorThresholdClampAndError(t *testing.T) {
	status := func() session.Status { return session.Status{Threshold: 0.98} }
	var got float64
	m := NewMonitorModel(status, func(v float64) error { got = v; return nil }, time.Second)
	final, _ := drive(t, m, tickMsg(time.Now()), keyMsg("+"))
	assert.Equal(t, 1.0, got)

	failing := NewMonitorModel(status, func(float64) error { return errors.New("rejected") }, time.Second)
	final, _ = drive(t, failing, tickMsg(time.Now()), keyMsg("-"))
	assert.Contains(t, final.View(), "Error: rejected")

	readOnly := NewMonitorModel(status, nil, time.Second)
	final, _ = drive(t, readOnly, tickMsg(time.Now()), keyMsg("+"))
	assert.Contains(t, final.View(), "Threshold: 0.98")
}

func TestPlaybackToggle(t *testing.T) {
	playing := false
	var toggles int
	toggle := func() (bool, error) {
		toggles++
		playing = !playing
		return playing, nil
	}
	m := NewPlaybackModel("take.wav", toggle, func() bool { return playing }, 10*time.Millisecond)
	require.NotNil(t, m.Init())

	final, _ := drive(t, m, keyMsg("p"))
	assert.Equal(t, 1, toggles)
	assert.Contains(t, final.View(), "State: playing")
	assert.Contains(t, final.View(), "File:  take.wav")

	// The file ends on its own; the next tick notices.
	playing = false
	final, cmd := drive(t, final, tickMsg(time.Now()))
	assert.NotNil(t, cmd)
	assert.Contains(t, final.View(), "State: stopped")

	final, _ = drive(t, final, keyMsg("enter"), keyMsg("p"))
	assert.Equal(t, 3, toggles)
	assert.Contains(t, final.View(), "State: stopped")

	_, cmd = drive(t, final, keyMsg("q"))
	assert.True(t, isQuit(cmd))
}

func TestPlaybackToggleError(t *testing.T) {
	toggle := func() (bool, error) { return false, errors.New("nothing to play") }
	m := NewPlaybackModel("empty.wav", toggle, func() bool { return false }, time.Second)
	final, _ := drive(t, m, keyMsg("p"))
	assert.Contains(t, final.View(), "Error: nothing to play")
	assert.Contains(t, final.View(), "State: stopped")
}
