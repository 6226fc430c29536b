package player

import (
	"testing"

	"github.com/Illogicalll/sctui-sub000/internal/config"
)

// rampStreamer produces a deterministic sequence of frames.
type rampStreamer struct {
	total int
	pos   int
}

func (r *rampStreamer) Stream(samples [][2]float64) (int, bool) {
	if r.pos >= r.total {
		return 0, false
	}
	n := 0
	for n < len(samples) && r.pos < r.total {
		v := float64(r.pos) / float64(r.total)
		samples[n] = [2]float64{v, -v}
		r.pos++
		n++
	}
	return n, true
}

func (r *rampStreamer) Err() error { return nil }

// The tap must forward exactly the frames its inner streamer produces.
func TestTapTransparency(t *testing.T) {
	const total = 1000

	want := make([][2]float64, 0, total)
	plain := &rampStreamer{total: total}
	buf := make([][2]float64, 64)
	for {
		n, ok := plain.Stream(buf)
		want = append(want, buf[:n]...)
		if !ok {
			break
		}
	}

	tapped := NewTap(&rampStreamer{total: total}, NewWaveBuffer(config.WaveBufferCap))
	got := make([][2]float64, 0, total)
	for {
		n, ok := tapped.Stream(buf)
		got = append(got, buf[:n]...)
		if !ok {
			break
		}
	}

	if len(got) != len(want) {
		t.Fatalf("tapped stream produced %d frames, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("frame %d = %v, want %v", i, got[i], want[i])
		}
	}
}

// The wave ring never exceeds its capacity, whatever flows through.
func TestTapBound(t *testing.T) {
	wave := NewWaveBuffer(config.WaveBufferCap)
	tapped := NewTap(&rampStreamer{total: 50000}, wave)

	buf := make([][2]float64, 512)
	for {
		if _, ok := tapped.Stream(buf); !ok {
			break
		}
		if wave.Len() > config.WaveBufferCap {
			t.Fatalf("wave buffer grew to %d, cap %d", wave.Len(), config.WaveBufferCap)
		}
	}

	if wave.Len() != config.WaveBufferCap {
		t.Errorf("wave buffer = %d samples after long stream, want full %d", wave.Len(), config.WaveBufferCap)
	}
}

// The ring keeps the most recent samples, dropping from the front.
func TestWaveBufferKeepsNewest(t *testing.T) {
	w := NewWaveBuffer(4)

	w.PushFrames([][2]float64{{1, 2}, {3, 4}})
	w.PushFrames([][2]float64{{5, 6}})

	got := w.Snapshot()
	want := []float32{3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("snapshot = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot = %v, want %v", got, want)
		}
	}
}

func TestWaveBufferSnapshotIsCopy(t *testing.T) {
	w := NewWaveBuffer(8)
	w.PushFrames([][2]float64{{1, 1}})

	snap := w.Snapshot()
	snap[0] = 99

	if w.Snapshot()[0] == 99 {
		t.Error("snapshot must not alias the ring")
	}
}
