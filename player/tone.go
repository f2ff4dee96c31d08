package player

import (
	"math"
	"time"
)

const (
	cueSampleRate = 48000
	cueChannels   = 2
	cueLength     = 120 * time.Millisecond
	cueVolume     = 0.25
)

func cueFrequency(s State) (float64, bool) {
	switch s {
	case StatePlaying:
		return 880, true
	case StatePaused:
		return 660, true
	case StateStopped:
		return 440, true
	}
	return 0, false
}

// tone renders a sine wave as interleaved signed 16-bit little endian PCM
// with a linear fade out so the cue does not click.
func tone(freq float64, length time.Duration, volume float64) []byte {
	const frameSize = 2 * cueChannels

	frames := int(length.Seconds() * cueSampleRate)
	buf := make([]byte, frames*frameSize)
	for i := 0; i < frames; i++ {
		fade := 1 - float64(i)/float64(frames)
		v := math.Sin(2*math.Pi*freq*float64(i)/cueSampleRate) * volume * fade
		sample := int16(v * math.MaxInt16)
		for ch := 0; ch < cueChannels; ch++ {
			off := i*frameSize + ch*2
			buf[off] = byte(sample)
			buf[off+1] = byte(sample >> 8)
		}
	}
	return buf
}
