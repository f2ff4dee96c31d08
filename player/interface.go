package player

// State is the playback state of a session.
type State int

const (
	StateStopped State = iota
	StatePaused
	StatePlaying
	StateDestroyed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// IsActive returns true if playback is playing or paused.
func (s State) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}

// Session defines the interface for a playback session bound to one entity.
// All methods must be called on the loop the session was created for.
type Session interface {
	ID() string
	EntityID() string
	State() State

	Play()
	Pause()
	Stop()
	Destroy()

	// OnStateChanged and OnDestroyed return their unsubscribe function.
	OnStateChanged(fn func(State)) func()
	OnDestroyed(fn func()) func()
}

// Acquisition is the result of Registry.Acquire. Created is true for the one
// caller that owns the session and must destroy it.
type Acquisition struct {
	Session Session
	Created bool
}
