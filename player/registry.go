package player

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
	"weak"

	"flight-tui/event"
	"flight-tui/loop"
	"flight-tui/model"

	"golang.org/x/sync/singleflight"
)

var (
	ErrUnknownFlight  = errors.New("unknown flight")
	ErrInvalidFlight  = errors.New("invalid flight")
	ErrRegistryClosed = errors.New("registry closed")
)

// FlightSource resolves flight names. model.Catalog satisfies it.
type FlightSource interface {
	Flight(name string) (model.Flight, bool)
}

// Change is broadcast whenever a session is assigned to, or removed from, an
// entity. Session is nil on removal.
type Change struct {
	EntityID string
	Session  Session
}

// SessionStatus describes a live session.
type SessionStatus struct {
	EntityID string        `json:"entityId"`
	ID       string        `json:"id"`
	State    string        `json:"state"`
	Position time.Duration `json:"position"`
	Duration time.Duration `json:"duration"`
}

// Registry holds at most one live FlightPlayer per flight. Sessions are kept
// through weak pointers so the registry never keeps a dropped session alive.
// Acquire may be called from any goroutine; broadcasts are delivered on the
// loop behind exec.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]weak.Pointer[FlightPlayer]
	closed   bool

	group   singleflight.Group
	changed event.Emitter[Change]

	flights FlightSource
	exec    loop.Executor
	tick    time.Duration
}

// NewRegistry creates a registry for the flights in src.
func NewRegistry(src FlightSource, exec loop.Executor, tick time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]weak.Pointer[FlightPlayer]),
		flights:  src,
		exec:     exec,
		tick:     tick,
	}
}

func (r *Registry) live(entityID string) *FlightPlayer {
	r.mu.Lock()
	defer r.mu.Unlock()

	wp, ok := r.sessions[entityID]
	if !ok {
		return nil
	}
	p := wp.Value()
	if p == nil {
		delete(r.sessions, entityID)
		return nil
	}
	return p
}

// Acquire returns the live session of entityID, creating one if needed.
// Concurrent calls for the same entity share one creation; only one caller
// receives Created == true.
func (r *Registry) Acquire(ctx context.Context, entityID string) (Acquisition, error) {
	if err := ctx.Err(); err != nil {
		return Acquisition{}, err
	}

	ch := r.group.DoChan(entityID, func() (any, error) {
		if p := r.live(entityID); p != nil {
			return p, nil
		}
		return r.create(entityID)
	})

	select {
	case <-ctx.Done():
		return Acquisition{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Acquisition{}, res.Err
		}
		p := res.Val.(*FlightPlayer)
		return Acquisition{Session: p, Created: p.claim()}, nil
	}
}

func (r *Registry) create(entityID string) (*FlightPlayer, error) {
	flight, ok := r.flights.Flight(entityID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlight, entityID)
	}
	if err := flight.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFlight, err)
	}

	p := NewFlightPlayer(flight, r.exec, r.tick)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	r.sessions[entityID] = weak.Make(p)
	r.mu.Unlock()

	p.OnDestroyed(func() { r.forget(entityID, p) })

	log.Printf("session %s created for %s", p.ID(), entityID)
	r.exec.Post(func() {
		if p.State() == StateDestroyed {
			return
		}
		r.changed.Emit(Change{EntityID: entityID, Session: p})
	})
	return p, nil
}

// forget runs on the loop when p is destroyed.
func (r *Registry) forget(entityID string, p *FlightPlayer) {
	r.mu.Lock()
	wp, ok := r.sessions[entityID]
	if ok && wp.Value() == p {
		delete(r.sessions, entityID)
	} else {
		ok = false
	}
	r.mu.Unlock()

	if ok {
		log.Printf("session %s for %s destroyed", p.ID(), entityID)
		r.changed.Emit(Change{EntityID: entityID})
	}
}

// Lookup returns the live session of entityID.
func (r *Registry) Lookup(entityID string) (Session, bool) {
	p := r.live(entityID)
	if p == nil {
		return nil, false
	}
	return p, true
}

// Player returns the live FlightPlayer of entityID.
func (r *Registry) Player(entityID string) (*FlightPlayer, bool) {
	p := r.live(entityID)
	return p, p != nil
}

// OnChanged subscribes fn to session assignments. Listeners run on the loop.
func (r *Registry) OnChanged(fn func(entityID string, s Session)) func() {
	return r.changed.Subscribe(func(c Change) { fn(c.EntityID, c.Session) })
}

func (r *Registry) snapshot() []*FlightPlayer {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*FlightPlayer, 0, len(r.sessions))
	for id, wp := range r.sessions {
		p := wp.Value()
		if p == nil {
			delete(r.sessions, id)
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID() < out[j].EntityID() })
	return out
}

// Status lists the live sessions ordered by entity. Loop-confined.
func (r *Registry) Status() []SessionStatus {
	players := r.snapshot()
	out := make([]SessionStatus, 0, len(players))
	for _, p := range players {
		out = append(out, SessionStatus{
			EntityID: p.EntityID(),
			ID:       p.ID(),
			State:    p.State().String(),
			Position: p.Position(),
			Duration: p.Duration(),
		})
	}
	return out
}

// Close destroys every live session and refuses further creations.
// Loop-confined.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	for _, p := range r.snapshot() {
		p.Stop()
		p.Destroy()
	}
}
