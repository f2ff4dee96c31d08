package binding

import (
	"context"
	"errors"
	"io"
	"log"
	"reflect"
	"testing"
	"time"

	"flight-tui/command"
	"flight-tui/loop"
	"flight-tui/model"
	"flight-tui/player"
)

func newRegistryBinder(t *testing.T) (*loop.Loop, *player.Registry, *Binder) {
	t.Helper()
	l := loop.New()
	reg := player.NewRegistry(model.DemoFlights, l, time.Hour)
	b := NewBinder(reg, l, WithLogger(log.New(io.Discard, "", 0)))
	t.Cleanup(func() {
		reg.Close()
		l.Drain()
	})
	return l, reg, b
}

// drainUntil runs the loop until cond holds.
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

// Two controllers for one flight share a single session.
func TestControllersShareOneSession(t *testing.T) {
	l, reg, b := newRegistryBinder(t)
	set1, set2 := command.NewSet(), command.NewSet()
	c1 := b.Attach(model.DefaultFlight, set1)
	c2 := b.Attach(model.DefaultFlight, set2)

	c1.Toggle()
	drainUntil(t, l, func() bool { return !c1.Pending() })

	s := c1.Session()
	if s == nil || s.State() != player.StatePlaying {
		t.Fatalf("expected a playing session, got %v", s)
	}
	if c2.Session() != s {
		t.Fatal("second controller should adopt the same session")
	}
	if !c1.Owned() || c2.Owned() {
		t.Fatalf("expected c1 owner only, got %v %v", c1.Owned(), c2.Owned())
	}
	want := []string{ToggleName, StopName}
	if !reflect.DeepEqual(set1.Names(), want) || !reflect.DeepEqual(set2.Names(), want) {
		t.Fatalf("both sets should show play and stop, got %v %v", set1.Names(), set2.Names())
	}

	// state changes from either side reach both
	c2.Toggle()
	if s.State() != player.StatePaused {
		t.Fatalf("expected paused, got %v", s.State())
	}
	if toggleOf(t, set1).Icon != IconPlay || toggleOf(t, set2).Icon != IconPlay {
		t.Fatal("both toggles should offer play")
	}

	c1.Dispose()
	if s.State() != player.StateDestroyed {
		t.Fatal("owner dispose should destroy the session")
	}
	if c2.Session() != nil {
		t.Fatal("adopter should release the destroyed session")
	}
	if want := []string{ToggleName}; !reflect.DeepEqual(set2.Names(), want) {
		t.Fatalf("expected %v, got %v", want, set2.Names())
	}
	if _, ok := reg.Lookup(model.DefaultFlight); ok {
		t.Fatal("registry should have forgotten the session")
	}
}

func TestConcurrentTogglesYieldOneOwner(t *testing.T) {
	l, _, b := newRegistryBinder(t)
	c1 := b.Attach("rhine-valley", command.NewSet())
	c2 := b.Attach("rhine-valley", command.NewSet())

	c1.Toggle()
	c2.Toggle()
	drainUntil(t, l, func() bool { return !c1.Pending() && !c2.Pending() })

	if c1.Session() == nil || c1.Session() != c2.Session() {
		t.Fatal("both controllers should hold the same session")
	}
	if c1.Owned() == c2.Owned() {
		t.Fatalf("exactly one owner expected, got %v %v", c1.Owned(), c2.Owned())
	}
	if c1.Session().State() != player.StatePlaying {
		t.Fatalf("expected playing, got %v", c1.Session().State())
	}
}

func TestUnknownFlightFails(t *testing.T) {
	l := loop.New()
	var got error
	reg := player.NewRegistry(model.DemoFlights, l, time.Hour)
	b := NewBinder(reg, l,
		WithLogger(log.New(io.Discard, "", 0)),
		WithErrorHook(func(_ string, err error) { got = err }),
	)
	set := command.NewSet()
	c := b.Attach("nowhere", set)

	c.Toggle()
	drainUntil(t, l, func() bool { return !c.Pending() })

	if !errors.Is(got, player.ErrUnknownFlight) {
		t.Fatalf("expected ErrUnknownFlight, got %v", got)
	}
	if set.Len() != 1 || c.Session() != nil {
		t.Fatal("failed acquisition must leave the set alone")
	}
}
