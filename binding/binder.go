// Package binding keeps a list entry's commands in sync with the playback
// session of its flight, and binds lazily built resources to a command.
//
// Everything here runs on a single loop (see package loop). The only
// suspension points are session acquisition and resource construction; their
// continuations are posted back to the loop and re-check the binding before
// touching anything.
package binding

import (
	"context"
	"errors"
	"log"

	"flight-tui/loop"
	"flight-tui/player"
)

// Command names, icons and i18n title keys.
const (
	ToggleName = "play"
	StopName   = "stop"
	ZoomName   = "flight.zoom"

	IconPlay  = "mdi-play"
	IconPause = "mdi-pause"
	IconStop  = "mdi-square"
	IconZoom  = "mdi-magnify"

	TitlePlay  = "flight.playTooltip"
	TitlePause = "flight.pauseTooltip"
	TitleStop  = "flight.stopTooltip"
	TitleZoom  = "flight.zoom"
)

var (
	ErrNoSession  = errors.New("registry returned no session")
	ErrNoResource = errors.New("factory returned no resource")
)

// Registry is the session authority a Binder acquires from and listens to.
// *player.Registry satisfies it.
type Registry interface {
	Acquire(ctx context.Context, entityID string) (player.Acquisition, error)
	Lookup(entityID string) (player.Session, bool)
	OnChanged(fn func(entityID string, s player.Session)) func()
}

// Binder creates controllers and lazy resources that share a registry, a
// loop and host hooks.
type Binder struct {
	registry Registry
	exec     loop.Executor
	logger   *log.Logger
	onState  func(entityID string, s player.State)
	onError  func(entityID string, err error)
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(b *Binder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithStateHook is called on the loop for every state change a controller
// observes, including destruction.
func WithStateHook(fn func(entityID string, s player.State)) Option {
	return func(b *Binder) { b.onState = fn }
}

// WithErrorHook is called on the loop when an acquisition, a construction or
// a focus fails. Surfacing it is up to the host.
func WithErrorHook(fn func(entityID string, err error)) Option {
	return func(b *Binder) { b.onError = fn }
}

// NewBinder creates a binder. All bindings it creates must be used from the
// loop behind exec.
func NewBinder(reg Registry, exec loop.Executor, opts ...Option) *Binder {
	b := &Binder{
		registry: reg,
		exec:     exec,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Binder) stateChanged(entityID string, s player.State) {
	if b.onState != nil {
		b.onState(entityID, s)
	}
}

func (b *Binder) fail(entityID string, err error) {
	b.logger.Printf("binding %s: %v", entityID, err)
	if b.onError != nil {
		b.onError(entityID, err)
	}
}
