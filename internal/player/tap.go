package player

import "github.com/gopxl/beep/v2"

// Tap forwards samples from its inner streamer unchanged while copying
// each one into the wave ring for the visualizer.
type Tap struct {
	inner beep.Streamer
	wave  *WaveBuffer
}

// NewTap wraps inner with a tap into wave.
func NewTap(inner beep.Streamer, wave *WaveBuffer) *Tap {
	return &Tap{inner: inner, wave: wave}
}

func (t *Tap) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = t.inner.Stream(samples)
	if n > 0 {
		t.wave.PushFrames(samples[:n])
	}
	return n, ok
}

func (t *Tap) Err() error {
	return t.inner.Err()
}
