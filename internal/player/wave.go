package player

import "sync"

// WaveBuffer is the bounded sample ring feeding the visualizer. The tap
// is its single writer; the UI snapshots it concurrently. The mutex is
// held only around one push batch or one snapshot copy.
type WaveBuffer struct {
	mu      sync.Mutex
	cap     int
	samples []float32
}

// NewWaveBuffer creates a ring holding at most cap samples.
func NewWaveBuffer(cap int) *WaveBuffer {
	if cap < 1 {
		cap = 1
	}
	return &WaveBuffer{cap: cap, samples: make([]float32, 0, cap)}
}

// PushFrames appends both channels of each frame, dropping the oldest
// samples once the ring is full.
func (w *WaveBuffer) PushFrames(frames [][2]float64) {
	if len(frames) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, frame := range frames {
		w.samples = append(w.samples, float32(frame[0]), float32(frame[1]))
	}
	if overflow := len(w.samples) - w.cap; overflow > 0 {
		w.samples = append(w.samples[:0], w.samples[overflow:]...)
	}
}

// Snapshot copies the current ring contents.
func (w *WaveBuffer) Snapshot() []float32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]float32, len(w.samples))
	copy(out, w.samples)
	return out
}

// Len returns the number of buffered samples.
func (w *WaveBuffer) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.samples)
}
