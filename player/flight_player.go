package player

import (
	"context"
	"sync/atomic"
	"time"

	"flight-tui/event"
	"flight-tui/loop"
	"flight-tui/model"

	"github.com/google/uuid"
)

// DefaultTick is the clock resolution of a FlightPlayer.
const DefaultTick = 100 * time.Millisecond

// FlightPlayer plays a camera flight. It is confined to the loop behind exec:
// every method and every listener runs there. While playing, a clock
// goroutine posts ticks to the loop.
type FlightPlayer struct {
	id     string
	flight model.Flight
	exec   loop.Executor
	tick   time.Duration

	state    State
	position time.Duration
	clockGen uint64
	cancel   context.CancelFunc
	claimed  atomic.Bool

	stateChanged event.Emitter[State]
	destroyed    event.Emitter[struct{}]
}

var _ Session = (*FlightPlayer)(nil)

// NewFlightPlayer creates a stopped player for flight.
func NewFlightPlayer(flight model.Flight, exec loop.Executor, tick time.Duration) *FlightPlayer {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &FlightPlayer{
		id:     uuid.NewString(),
		flight: flight,
		exec:   exec,
		tick:   tick,
		state:  StateStopped,
	}
}

func (p *FlightPlayer) ID() string           { return p.id }
func (p *FlightPlayer) EntityID() string     { return p.flight.Name }
func (p *FlightPlayer) Flight() model.Flight { return p.flight }
func (p *FlightPlayer) State() State         { return p.state }

// Position returns the elapsed playback time.
func (p *FlightPlayer) Position() time.Duration { return p.position }

// Duration returns the total playback time of the flight.
func (p *FlightPlayer) Duration() time.Duration { return p.flight.Duration() }

// claim hands ownership to the first caller only.
func (p *FlightPlayer) claim() bool {
	return p.claimed.CompareAndSwap(false, true)
}

func (p *FlightPlayer) OnStateChanged(fn func(State)) func() {
	return p.stateChanged.Subscribe(fn)
}

func (p *FlightPlayer) OnDestroyed(fn func()) func() {
	return p.destroyed.Subscribe(func(struct{}) { fn() })
}

func (p *FlightPlayer) setState(s State) {
	if p.state == s {
		return
	}
	p.state = s
	p.stateChanged.Emit(s)
}

// Play starts or resumes playback.
func (p *FlightPlayer) Play() {
	if p.state == StateDestroyed || p.state == StatePlaying {
		return
	}
	if p.position >= p.Duration() {
		p.position = 0
	}
	p.startClock()
	p.setState(StatePlaying)
}

// Pause halts playback and keeps the position.
func (p *FlightPlayer) Pause() {
	if p.state != StatePlaying {
		return
	}
	p.stopClock()
	p.setState(StatePaused)
}

// Stop halts playback and rewinds.
func (p *FlightPlayer) Stop() {
	if p.state == StateDestroyed || p.state == StateStopped {
		return
	}
	p.stopClock()
	p.position = 0
	p.setState(StateStopped)
}

// Destroy ends the session for good. Destroyed listeners run once, then every
// listener is dropped.
func (p *FlightPlayer) Destroy() {
	if p.state == StateDestroyed {
		return
	}
	p.stopClock()
	p.state = StateDestroyed
	p.destroyed.Emit(struct{}{})
	p.stateChanged.Clear()
	p.destroyed.Clear()
}

func (p *FlightPlayer) startClock() {
	p.stopClock()
	p.clockGen++
	gen := p.clockGen

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	go func() {
		ticker := time.NewTicker(p.tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.exec.Post(func() { p.advance(gen) })
			}
		}
	}()
}

func (p *FlightPlayer) stopClock() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.clockGen++
}

// advance moves the position by one tick. Ticks from an older clock are
// dropped.
func (p *FlightPlayer) advance(gen uint64) {
	if gen != p.clockGen || p.state != StatePlaying {
		return
	}
	p.position += p.tick

	total := p.Duration()
	if p.position < total {
		return
	}
	if p.flight.Loop && total > 0 {
		p.position %= total
		return
	}
	p.position = total
	p.stopClock()
	p.setState(StateStopped)
	p.position = 0
}
