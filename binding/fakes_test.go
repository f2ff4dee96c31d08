package binding

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"flight-tui/command"
	"flight-tui/event"
	"flight-tui/loop"
	"flight-tui/player"
)

// fakeSession is a scriptable player.Session that records every call.
type fakeSession struct {
	id     string
	entity string
	state  player.State
	calls  []string

	stateChanged event.Emitter[player.State]
	destroyed    event.Emitter[struct{}]
}

var _ player.Session = (*fakeSession)(nil)

var sessionSeq int

func newFakeSession(entity string) *fakeSession {
	sessionSeq++
	return &fakeSession{id: fmt.Sprintf("s%d", sessionSeq), entity: entity}
}

func (s *fakeSession) ID() string          { return s.id }
func (s *fakeSession) EntityID() string    { return s.entity }
func (s *fakeSession) State() player.State { return s.state }

func (s *fakeSession) set(st player.State) {
	if s.state == st || s.state == player.StateDestroyed {
		return
	}
	s.state = st
	s.stateChanged.Emit(st)
}

func (s *fakeSession) Play() {
	s.calls = append(s.calls, "play")
	s.set(player.StatePlaying)
}

func (s *fakeSession) Pause() {
	s.calls = append(s.calls, "pause")
	if s.state == player.StatePlaying {
		s.set(player.StatePaused)
	}
}

func (s *fakeSession) Stop() {
	s.calls = append(s.calls, "stop")
	s.set(player.StateStopped)
}

func (s *fakeSession) Destroy() {
	s.calls = append(s.calls, "destroy")
	if s.state == player.StateDestroyed {
		return
	}
	s.state = player.StateDestroyed
	s.destroyed.Emit(struct{}{})
	s.stateChanged.Clear()
	s.destroyed.Clear()
}

func (s *fakeSession) OnStateChanged(fn func(player.State)) func() {
	return s.stateChanged.Subscribe(fn)
}

func (s *fakeSession) OnDestroyed(fn func()) func() {
	return s.destroyed.Subscribe(func(struct{}) { fn() })
}

func (s *fakeSession) listeners() int {
	return s.stateChanged.Len() + s.destroyed.Len()
}

type acquireResult struct {
	acq player.Acquisition
	err error
}

// fakeRegistry blocks every Acquire until the test hands it a result.
type fakeRegistry struct {
	mu       sync.Mutex
	acquires int
	live     map[string]player.Session
	results  chan acquireResult
	changed  event.Emitter[player.Change]
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		live:    make(map[string]player.Session),
		results: make(chan acquireResult),
	}
}

func (r *fakeRegistry) Acquire(ctx context.Context, entityID string) (player.Acquisition, error) {
	r.mu.Lock()
	r.acquires++
	r.mu.Unlock()

	select {
	case res := <-r.results:
		return res.acq, res.err
	case <-ctx.Done():
		return player.Acquisition{}, ctx.Err()
	}
}

func (r *fakeRegistry) Lookup(entityID string) (player.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.live[entityID]
	return s, ok
}

func (r *fakeRegistry) OnChanged(fn func(string, player.Session)) func() {
	return r.changed.Subscribe(func(c player.Change) { fn(c.EntityID, c.Session) })
}

func (r *fakeRegistry) acquireCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquires
}

func (r *fakeRegistry) broadcast(entityID string, s player.Session) {
	r.changed.Emit(player.Change{EntityID: entityID, Session: s})
}

// resolve hands the next pending Acquire its result and runs the
// continuation on the loop.
func (r *fakeRegistry) resolve(t *testing.T, l *loop.Loop, acq player.Acquisition, err error) {
	t.Helper()
	select {
	case r.results <- acquireResult{acq: acq, err: err}:
	case <-time.After(time.Second):
		t.Fatal("no acquisition was waiting")
	}
	settle(t, l)
}

// settle waits for something to be posted and drains the loop.
func settle(t *testing.T, l *loop.Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("nothing was posted to the loop: %v", err)
	}
	l.Drain()
}

type harness struct {
	loop   *loop.Loop
	reg    *fakeRegistry
	binder *Binder
	errs   []error
	states []player.State
}

func newHarness() *harness {
	h := &harness{loop: loop.New(), reg: newFakeRegistry()}
	h.binder = NewBinder(h.reg, h.loop,
		WithLogger(log.New(io.Discard, "", 0)),
		WithErrorHook(func(_ string, err error) { h.errs = append(h.errs, err) }),
		WithStateHook(func(_ string, s player.State) { h.states = append(h.states, s) }),
	)
	return h
}

// assertCommandInvariants checks name uniqueness and that the stop command is
// present exactly when the held session is playing or paused.
func assertCommandInvariants(t *testing.T, c *Controller, set *command.Set) {
	t.Helper()
	seen := map[string]bool{}
	for _, name := range set.Names() {
		if seen[name] {
			t.Fatalf("duplicate command %q in %v", name, set.Names())
		}
		seen[name] = true
	}

	active := c.Session() != nil && c.Session().State().IsActive()
	if set.Has(StopName) != active {
		t.Fatalf("stop present=%v but session active=%v (commands %v)", set.Has(StopName), active, set.Names())
	}
}
