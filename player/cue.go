//go:build !noaudio

package player

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Cue plays a short tone whenever playback changes state.
type Cue struct {
	mu         sync.Mutex
	otoContext *oto.Context
	active     []*oto.Player
}

// NewCue opens the default audio device.
func NewCue() (*Cue, error) {
	op := &oto.NewContextOptions{
		SampleRate:   cueSampleRate,
		ChannelCount: cueChannels,
		Format:       oto.FormatSignedInt16LE,
	}

	otoContext, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}

	<-ready
	return &Cue{otoContext: otoContext}, nil
}

// Play sounds the tone for s. Unknown states are silent.
func (c *Cue) Play(s State) {
	if c == nil || c.otoContext == nil {
		return
	}
	freq, ok := cueFrequency(s)
	if !ok {
		return
	}

	p := c.otoContext.NewPlayer(bytes.NewReader(tone(freq, cueLength, cueVolume)))
	p.Play()

	c.mu.Lock()
	c.active = append(c.active, p)
	c.mu.Unlock()

	go c.reap(p)
}

// reap closes p once the tone has finished.
func (c *Cue) reap(p *oto.Player) {
	for p.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	p.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, a := range c.active {
		if a == p {
			c.active = append(c.active[:i], c.active[i+1:]...)
			break
		}
	}
}

// Close stops any tone still playing.
func (c *Cue) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.active {
		p.Pause()
	}
}
