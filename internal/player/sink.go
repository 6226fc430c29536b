package player

import (
	"math"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// audioSink is the sink surface the engine, facade, and pump drive.
// Satisfied by *Sink; tests substitute fakes.
type audioSink interface {
	Append(beep.Streamer)
	Pause()
	Play()
	Stop()
	Level() float64
	SetLevel(level float64)
}

// streamQueue plays its streamers in order and streams silence while it
// has none, so a sink stays attached to the mixer between appends.
type streamQueue struct {
	streamers []beep.Streamer
}

func (q *streamQueue) add(s beep.Streamer) {
	q.streamers = append(q.streamers, s)
}

func (q *streamQueue) Stream(samples [][2]float64) (n int, ok bool) {
	filled := 0
	for filled < len(samples) {
		if len(q.streamers) == 0 {
			for i := filled; i < len(samples); i++ {
				samples[i] = [2]float64{}
			}
			break
		}
		sn, sok := q.streamers[0].Stream(samples[filled:])
		if !sok {
			q.streamers = q.streamers[1:]
		}
		filled += sn
	}
	return len(samples), true
}

func (q *streamQueue) Err() error {
	return nil
}

// Sink is an ordered queue of PCM streamers drained by the audio
// device. Sinks are short-lived: one per track start or seek. A stopped
// sink detaches from the mixer on the next device pull.
type Sink struct {
	queue *streamQueue
	ctrl  *beep.Ctrl
	vol   *effects.Volume

	// level is the linear gain in [0, 2]; guarded by the speaker lock
	// along with ctrl and vol.
	level   float64
	stopped bool
}

// NewSink creates a sink at the given volume level and attaches it to
// the output mixer.
func NewSink(out *Output, level float64) *Sink {
	queue := &streamQueue{}
	ctrl := &beep.Ctrl{Streamer: queue}
	vol := &effects.Volume{Streamer: ctrl, Base: 2}

	s := &Sink{queue: queue, ctrl: ctrl, vol: vol}
	s.applyLevel(clampLevel(level))
	out.attach(s)
	return s
}

// Stream implements beep.Streamer. Returning false after Stop makes the
// mixer drop the sink.
func (s *Sink) Stream(samples [][2]float64) (int, bool) {
	if s.stopped {
		return 0, false
	}
	return s.vol.Stream(samples)
}

func (s *Sink) Err() error {
	return nil
}

// Append enqueues a streamer after everything already queued.
func (s *Sink) Append(st beep.Streamer) {
	speaker.Lock()
	s.queue.add(st)
	speaker.Unlock()
}

// Pause suspends playback, holding queued audio.
func (s *Sink) Pause() {
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
}

// Play resumes a paused sink.
func (s *Sink) Play() {
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
}

// Stop silences the sink and detaches it from the mixer.
func (s *Sink) Stop() {
	speaker.Lock()
	s.stopped = true
	speaker.Unlock()
}

// Level returns the current linear gain.
func (s *Sink) Level() float64 {
	speaker.Lock()
	defer speaker.Unlock()
	return s.level
}

// SetLevel sets the linear gain, clamped to [0, 2].
func (s *Sink) SetLevel(level float64) {
	speaker.Lock()
	s.applyLevel(clampLevel(level))
	speaker.Unlock()
}

// applyLevel maps the linear gain onto the exponential volume effect:
// with Base 2, Volume = log2(level) gives an effective gain of exactly
// level. Callers hold the speaker lock.
func (s *Sink) applyLevel(level float64) {
	s.level = level
	if level <= 0 {
		s.vol.Silent = true
		return
	}
	s.vol.Silent = false
	s.vol.Volume = math.Log2(level)
}

func clampLevel(level float64) float64 {
	return math.Min(math.Max(level, 0), 2)
}
