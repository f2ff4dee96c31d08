package tui

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"flight-tui/binding"
	"flight-tui/config"
	"flight-tui/loop"
	"flight-tui/model"
	"flight-tui/player"
)

type harness struct {
	loop      *loop.Loop
	saved     []config.Config
	chimes    []player.State
	lastSaved chan string
}

func (h *harness) Play(s player.State) { h.chimes = append(h.chimes, s) }

func newTestModel(t *testing.T, cfg config.Config) (Model, *harness) {
	t.Helper()
	h := &harness{loop: loop.New(), lastSaved: make(chan string, 8)}
	reg := player.NewRegistry(model.DemoFlights, h.loop, time.Hour)
	m := NewModel(Options{
		Catalog:  model.DemoFlights,
		Registry: reg,
		Loop:     h.loop,
		Config:   cfg,
		Chime:    h,
		Logger:   log.New(io.Discard, "", 0),
		SaveConfig: func(c config.Config) error {
			h.saved = append(h.saved, c)
			return nil
		},
		SaveLastFlight: func(name string) error {
			h.lastSaved <- name
			return nil
		},
	})
	t.Cleanup(func() { m.shared.Shutdown() })
	return m, h
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	m, _ = update(t, m, msg)
	return m
}

// drainUntil runs posted closures until cond holds. The closures only touch
// the shared state, so running them directly is the same as delivering them
// to Update as runMsg.
func drainUntil(t *testing.T, l *loop.Loop, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		l.Drain()
		if cond() {
			return
		}
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("condition never held: %v", err)
		}
	}
}

func TestPlayAndStopKeys(t *testing.T) {
	m, h := newTestModel(t, config.DefaultConfig())
	e := m.selected()
	if e.Flight.Name != model.DefaultFlight {
		t.Fatalf("cursor should start on the last flight, got %s", e.Flight.Name)
	}

	m = press(t, m, " ")
	if !e.Controller.Pending() {
		t.Fatal("space should start an acquisition")
	}
	drainUntil(t, h.loop, func() bool { return !e.Controller.Pending() })

	s := e.Controller.Session()
	if s == nil || s.State() != player.StatePlaying {
		t.Fatal("expected a playing session")
	}
	if !e.Commands.Has(binding.StopName) {
		t.Fatal("stop command should be shown while playing")
	}
	if view := m.View(); !strings.Contains(view, "⏸") || !strings.Contains(view, "■") {
		t.Fatalf("view should show pause and stop buttons:\n%s", view)
	}

	m = press(t, m, "s")
	if s.State() != player.StateStopped || e.Commands.Has(binding.StopName) {
		t.Fatal("s should stop and hide the stop command")
	}
	if want := []player.State{player.StatePlaying, player.StateStopped}; len(h.chimes) != 2 || h.chimes[0] != want[0] || h.chimes[1] != want[1] {
		t.Fatalf("expected chimes %v, got %v", want, h.chimes)
	}

	// stop without a stop command does nothing
	m = press(t, m, "s")
	if s.State() != player.StateStopped {
		t.Fatal("unexpected state change")
	}
}

func TestRunMsgExecutesClosure(t *testing.T) {
	m, _ := newTestModel(t, config.DefaultConfig())
	ran := false
	update(t, m, runMsg(func() { ran = true }))
	if !ran {
		t.Fatal("runMsg should run its closure")
	}
}

func TestCursorBounds(t *testing.T) {
	m, _ := newTestModel(t, config.DefaultConfig())
	m = press(t, m, "up")
	if m.cursor != 0 {
		t.Fatalf("cursor moved above the list: %d", m.cursor)
	}
	for range model.DemoFlights {
		m = press(t, m, "down")
	}
	if m.cursor != len(model.DemoFlights)-1 {
		t.Fatalf("cursor should stop at the last entry, got %d", m.cursor)
	}
}

func TestZoomBuildsVisualizationOnce(t *testing.T) {
	m, h := newTestModel(t, config.DefaultConfig())
	e := m.selected()

	m = press(t, m, "z")
	drainUntil(t, h.loop, e.Zoom.Constructed)

	if m.shared.view == nil || m.shared.view.flight != model.DefaultFlight {
		t.Fatal("zoom should move the view to the selected flight")
	}
	if !strings.Contains(m.shared.statusMessage, e.Flight.Title) {
		t.Fatalf("status should name the flight, got %q", m.shared.statusMessage)
	}
	res := e.Zoom.Resource()

	m = press(t, m, "z")
	if e.Zoom.Resource() != res {
		t.Fatal("second zoom should reuse the visualization")
	}
	if !strings.Contains(m.View(), "╭") {
		t.Fatal("view should contain the mini map")
	}
}

func TestLanguageToggle(t *testing.T) {
	m, h := newTestModel(t, config.DefaultConfig())
	if !strings.Contains(m.View(), "Camera flights") {
		t.Fatal("expected english title")
	}

	m = press(t, m, "L")
	if !strings.Contains(m.View(), "Kameraflüge") {
		t.Fatal("expected german title")
	}
	if !strings.Contains(m.View(), "Abspielen") {
		t.Fatal("selected row should show the german play title")
	}

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc should quit")
	}
	if len(h.saved) != 1 || h.saved[0].Language != "de" {
		t.Fatalf("language should be saved, got %+v", h.saved)
	}
}

func TestAutoPlayResumesLastFlight(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AutoPlay = true
	cfg.LastFlight = "rhine-valley"
	m, h := newTestModel(t, cfg)

	e := m.selected()
	if e.Flight.Name != "rhine-valley" {
		t.Fatalf("cursor should be on the last flight, got %s", e.Flight.Name)
	}

	m, _ = update(t, m, m.Init()())
	drainUntil(t, h.loop, func() bool {
		s := e.Controller.Session()
		return s != nil && s.State() == player.StatePlaying
	})

	if e.Controller.Owned() {
		t.Fatal("the list entry adopts the autoplayed session without owning it")
	}

	// a second autoPlayMsg does nothing
	m, _ = update(t, m, autoPlayMsg{})
	s := e.Controller.Session()

	m.shared.Shutdown()
	if s.State() != player.StateDestroyed {
		t.Fatal("shutdown should destroy every session")
	}
}

func TestQuitDisposesEverything(t *testing.T) {
	m, h := newTestModel(t, config.DefaultConfig())

	m = press(t, m, " ")
	e := m.selected()
	drainUntil(t, h.loop, func() bool { return e.Controller.Session() != nil })
	s := e.Controller.Session()

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("esc should return tea.Quit")
	}
	for _, e := range m.shared.Entries {
		if !e.Controller.Disposed() {
			t.Fatalf("%s not disposed", e.Flight.Name)
		}
		if e.Commands.Has(binding.ToggleName) {
			t.Fatalf("%s still shows its toggle", e.Flight.Name)
		}
	}
	if s.State() != player.StateDestroyed {
		t.Fatal("owned session should be destroyed")
	}
	if len(h.saved) != 1 || h.saved[0].LastFlight != model.DefaultFlight {
		t.Fatalf("expected one save with the last flight, got %+v", h.saved)
	}

	m.shared.Shutdown()
	if len(h.saved) != 1 {
		t.Fatal("shutdown must run once")
	}
}

func TestPlayingSavesLastFlight(t *testing.T) {
	m, h := newTestModel(t, config.DefaultConfig())
	m = press(t, m, "down")
	e := m.selected()
	if e.Flight.Name == model.DefaultFlight {
		t.Fatal("cursor should have moved off the default flight")
	}

	m = press(t, m, " ")
	drainUntil(t, h.loop, func() bool { return e.Controller.Session() != nil })

	select {
	case name := <-h.lastSaved:
		if name != e.Flight.Name {
			t.Fatalf("expected %s to be saved, got %s", e.Flight.Name, name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("last flight was not saved")
	}

	// pausing and resuming the same flight does not save again
	m = press(t, m, " ")
	m = press(t, m, " ")
	select {
	case name := <-h.lastSaved:
		t.Fatalf("unexpected second save of %s", name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRemoveOwningEntryDestroysSession(t *testing.T) {
	m, h := newTestModel(t, config.DefaultConfig())
	e := m.selected()
	idx := m.cursor

	m = press(t, m, " ")
	drainUntil(t, h.loop, func() bool { return e.Controller.Session() != nil })
	s := e.Controller.Session()
	if !e.Controller.Owned() {
		t.Fatal("the entry created the session and should own it")
	}

	m = press(t, m, "d")
	if len(m.shared.Entries) != len(model.DemoFlights)-1 {
		t.Fatalf("expected %d entries, got %d", len(model.DemoFlights)-1, len(m.shared.Entries))
	}
	if !e.Controller.Disposed() || e.Commands.Has(binding.ToggleName) || e.Commands.Has(binding.StopName) {
		t.Fatalf("removed entry should be disposed, got %v", e.Commands.Names())
	}
	if s.State() != player.StateDestroyed {
		t.Fatal("removing the owner should destroy its session")
	}
	if _, ok := m.shared.Registry.Lookup(model.DefaultFlight); ok {
		t.Fatal("registry still holds the session")
	}
	if !strings.Contains(m.shared.statusMessage, e.Flight.Title) {
		t.Fatalf("status should name the removed flight, got %q", m.shared.statusMessage)
	}

	m = press(t, m, "a")
	again := m.selected()
	if m.cursor != idx || again == nil || again.Flight.Name != model.DefaultFlight {
		t.Fatalf("restored entry should be back at %d under the cursor", idx)
	}
	if again == e {
		t.Fatal("restoring should bind a fresh entry")
	}
	want := []string{binding.ZoomName, binding.ToggleName}
	if got := again.Commands.Names(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if again.Controller.Session() != nil || again.Controller.Pending() {
		t.Fatal("restored entry should be idle")
	}

	m = press(t, m, "a")
	if len(m.shared.Entries) != len(model.DemoFlights) {
		t.Fatal("nothing left to restore")
	}
	if m.shared.statusMessage != "Nothing to restore" {
		t.Fatalf("unexpected status %q", m.shared.statusMessage)
	}
}

func TestRemoveAdoptingEntryKeepsSession(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AutoPlay = true
	cfg.LastFlight = "harbour-loop"
	m, h := newTestModel(t, cfg)
	e := m.selected()

	m, _ = update(t, m, m.Init()())
	drainUntil(t, h.loop, func() bool {
		s := e.Controller.Session()
		return s != nil && s.State() == player.StatePlaying
	})
	s := e.Controller.Session()

	m = press(t, m, "d")
	if s.State() != player.StatePlaying {
		t.Fatal("an adopter must not destroy the session it lets go")
	}

	m = press(t, m, "a")
	again := m.selected()
	if again.Controller.Session() != s || again.Controller.Owned() {
		t.Fatal("restored entry should adopt the live session")
	}
	if !again.Commands.Has(binding.StopName) {
		t.Fatal("restored entry should show stop for the playing session")
	}
}

func TestRemoveLastEntries(t *testing.T) {
	m, _ := newTestModel(t, config.DefaultConfig())
	for range model.DemoFlights {
		m = press(t, m, "d")
	}
	if len(m.shared.Entries) != 0 || m.cursor != 0 {
		t.Fatalf("expected an empty list, got %d entries, cursor %d", len(m.shared.Entries), m.cursor)
	}
	if !strings.Contains(m.View(), "No flights") {
		t.Fatal("empty list should say so")
	}
	m = press(t, m, "d")
	m = press(t, m, " ")

	m = press(t, m, "a")
	if len(m.shared.Entries) != 1 || m.selected() == nil {
		t.Fatal("restore should bring back one entry")
	}
}
