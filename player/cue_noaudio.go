//go:build noaudio

package player

// Cue is silent in builds without audio support.
type Cue struct{}

func NewCue() (*Cue, error) { return &Cue{}, nil }

func (c *Cue) Play(State) {}

func (c *Cue) Close() {}
