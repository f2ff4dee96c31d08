package binding

import (
	"context"

	"flight-tui/command"
	"flight-tui/loop"
	"flight-tui/player"
)

type phase int

const (
	phaseIdle phase = iota
	phaseAcquiring
	phaseBound
	phaseDisposed
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseAcquiring:
		return "acquiring"
	case phaseBound:
		return "bound"
	case phaseDisposed:
		return "disposed"
	}
	return "unknown"
}

// Controller binds one entity's command set to its playback session.
type Controller struct {
	b        *Binder
	entityID string
	set      *command.Set

	toggle         *command.Command
	stop           *command.Command
	insertedToggle bool

	phase   phase
	pending bool
	// playOnResolve records that the pending acquisition was started by the
	// user asking to play, and that nothing has overridden that since.
	playOnResolve bool
	session       player.Session
	owned         bool

	unsubscribeRegistry func()
	unsubscribeSession  []func()
}

// Bind attaches a controller for entityID to set and returns its disposer.
func (b *Binder) Bind(entityID string, set *command.Set) func() {
	return b.Attach(entityID, set).Dispose
}

// Attach is Bind returning the controller itself.
func (b *Binder) Attach(entityID string, set *command.Set) *Controller {
	c := &Controller{
		b:        b,
		entityID: entityID,
		set:      set,
	}
	c.toggle = &command.Command{
		Name:   ToggleName,
		Icon:   IconPlay,
		Title:  TitlePlay,
		Invoke: c.Toggle,
	}
	c.stop = &command.Command{
		Name:   StopName,
		Icon:   IconStop,
		Title:  TitleStop,
		Invoke: c.Stop,
	}

	if set.Insert(c.toggle) {
		c.insertedToggle = true
	} else {
		b.logger.Printf("binding %s: command %q already present, leaving it in place", entityID, ToggleName)
	}

	// Subscribe before anything can start an acquisition.
	c.unsubscribeRegistry = b.registry.OnChanged(c.registryChanged)

	if s, ok := b.registry.Lookup(entityID); ok && s != nil && s.State() != player.StateDestroyed {
		c.attach(s, false)
		b.logger.Printf("binding %s: adopted existing session %s", entityID, s.ID())
	}
	return c
}

// EntityID returns the bound entity.
func (c *Controller) EntityID() string { return c.entityID }

// Session returns the held session, owned or adopted.
func (c *Controller) Session() player.Session { return c.session }

// Owned reports whether the held session is destroyed on disposal.
func (c *Controller) Owned() bool { return c.owned }

// Pending reports whether an acquisition is in flight.
func (c *Controller) Pending() bool { return c.pending }

// Disposed reports whether Dispose has run.
func (c *Controller) Disposed() bool { return c.phase == phaseDisposed }

// Toggle is the play command: it acquires a session on first use, then
// switches between playing and paused.
func (c *Controller) Toggle() {
	switch {
	case c.phase == phaseDisposed:
		return
	case c.session != nil:
		c.playOnResolve = false
		if c.session.State() == player.StatePlaying {
			c.session.Pause()
		} else {
			c.session.Play()
		}
	case c.pending:
		c.b.logger.Printf("binding %s: acquisition already pending", c.entityID)
	default:
		c.acquire()
	}
}

// Stop is the stop command.
func (c *Controller) Stop() {
	if c.phase == phaseDisposed || c.session == nil {
		return
	}
	c.playOnResolve = false
	c.session.Stop()
}

func (c *Controller) acquire() {
	c.pending = true
	c.playOnResolve = true
	c.phase = phaseAcquiring

	reg := c.b.registry
	entityID := c.entityID
	loop.Async(c.b.exec, func() (player.Acquisition, error) {
		return reg.Acquire(context.Background(), entityID)
	}, c.acquired)
}

// acquired is the continuation of acquire. Anything may have happened on the
// loop in between: disposal, adoption, or another session replacing ours.
func (c *Controller) acquired(acq player.Acquisition, err error) {
	c.pending = false
	play := c.playOnResolve
	c.playOnResolve = false

	if c.phase == phaseDisposed {
		if err == nil && acq.Session != nil && acq.Created {
			c.b.logger.Printf("binding %s: session %s arrived after disposal, discarding", c.entityID, acq.Session.ID())
			discard(acq.Session)
		}
		return
	}

	if err == nil && (acq.Session == nil || acq.Session.State() == player.StateDestroyed) {
		err = ErrNoSession
	}
	if err != nil {
		if c.session == nil {
			c.phase = phaseIdle
		}
		c.b.fail(c.entityID, err)
		return
	}

	switch c.session {
	case nil:
		c.attach(acq.Session, acq.Created)
		acq.Session.Play()
	case acq.Session:
		// Adopted through the broadcast while we were waiting.
		if acq.Created {
			c.owned = true
		}
		if play && acq.Session.State() != player.StatePlaying {
			acq.Session.Play()
		}
	default:
		c.b.logger.Printf("binding %s: already bound to %s, dropping %s", c.entityID, c.session.ID(), acq.Session.ID())
		if acq.Created {
			discard(acq.Session)
		}
	}
}

func discard(s player.Session) {
	s.Stop()
	s.Destroy()
}

func (c *Controller) registryChanged(entityID string, s player.Session) {
	if entityID != c.entityID || s == nil || c.phase == phaseDisposed {
		return
	}
	if c.session != nil || s.State() == player.StateDestroyed {
		return
	}
	c.attach(s, false)
	c.b.logger.Printf("binding %s: adopted session %s", c.entityID, s.ID())
}

func (c *Controller) attach(s player.Session, owned bool) {
	c.detach()
	c.session = s
	c.owned = owned
	c.phase = phaseBound
	c.unsubscribeSession = append(c.unsubscribeSession,
		s.OnStateChanged(c.stateChanged),
		s.OnDestroyed(c.destroyed),
	)
	c.apply(s.State())
}

func (c *Controller) detach() {
	for _, unsubscribe := range c.unsubscribeSession {
		unsubscribe()
	}
	c.unsubscribeSession = nil
}

func (c *Controller) stateChanged(s player.State) {
	if c.phase == phaseDisposed {
		return
	}
	c.apply(s)
	c.b.stateChanged(c.entityID, s)
}

// apply maps a session state onto the command set. Anything that is not
// playing or paused is shown as stopped.
func (c *Controller) apply(s player.State) {
	switch s {
	case player.StatePlaying:
		c.set.Insert(c.stop)
		c.toggle.Icon = IconPause
		c.toggle.Title = TitlePause
		c.toggle.Active = true
	case player.StatePaused:
		c.set.Insert(c.stop)
		c.resetToggle()
	default:
		c.removeStop()
		c.resetToggle()
	}
}

func (c *Controller) resetToggle() {
	c.toggle.Icon = IconPlay
	c.toggle.Title = TitlePlay
	c.toggle.Active = false
}

func (c *Controller) removeStop() {
	if cmd, ok := c.set.Get(StopName); ok && cmd == c.stop {
		c.set.Remove(StopName)
	}
}

func (c *Controller) destroyed() {
	if c.phase == phaseDisposed {
		return
	}
	c.detach()
	c.session = nil
	c.owned = false
	if c.pending {
		c.phase = phaseAcquiring
	} else {
		c.phase = phaseIdle
	}
	c.removeStop()
	c.resetToggle()
	c.b.stateChanged(c.entityID, player.StateDestroyed)
}

// Dispose tears the binding down. It is safe to call at any time and more
// than once. An owned session is stopped and destroyed; an adopted one is
// only let go.
func (c *Controller) Dispose() {
	if c.phase == phaseDisposed {
		return
	}
	c.phase = phaseDisposed

	if c.unsubscribeRegistry != nil {
		c.unsubscribeRegistry()
		c.unsubscribeRegistry = nil
	}
	c.detach()

	if c.session != nil && c.owned {
		discard(c.session)
	}
	c.session = nil
	c.owned = false

	c.removeStop()
	if c.insertedToggle {
		if cmd, ok := c.set.Get(ToggleName); ok && cmd == c.toggle {
			c.set.Remove(ToggleName)
		}
	}
}
