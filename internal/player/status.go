package player

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Illogicalll/sctui-sub000/internal/api"
)

// Status is the shared playback state read by the UI and the segment
// pump. Flags are atomic; the timing fields and current track sit
// behind a short mutex.
type Status struct {
	isPlaying atomic.Bool
	isSeeking atomic.Bool

	mu          sync.Mutex
	elapsedBase time.Duration
	lastStart   time.Time // zero unless playing
	track       api.Track
	hasTrack    bool
}

// NewStatus returns an idle status.
func NewStatus() *Status {
	return &Status{}
}

// IsPlaying reports whether audio is running.
func (s *Status) IsPlaying() bool {
	return s.isPlaying.Load()
}

// IsSeeking reports whether a seek is in flight.
func (s *Status) IsSeeking() bool {
	return s.isSeeking.Load()
}

// BeginSeek attempts to claim the seek gate. It returns false when a
// seek is already in flight, in which case the new request is dropped.
func (s *Status) BeginSeek() bool {
	return !s.isSeeking.Swap(true)
}

// EndSeek releases the seek gate.
func (s *Status) EndSeek() {
	s.isSeeking.Store(false)
}

// Elapsed returns the playback position in milliseconds: the base
// accumulated across pauses plus wall time since the last start while
// playing.
func (s *Status) Elapsed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := s.elapsedBase
	if s.isPlaying.Load() && !s.lastStart.IsZero() {
		elapsed += time.Since(s.lastStart)
	}
	return elapsed.Milliseconds()
}

// CurrentTrack returns the playing track, if any.
func (s *Status) CurrentTrack() (api.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track, s.hasTrack
}

// CurrentURN returns the playing track's URN, or "".
func (s *Status) CurrentURN() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasTrack {
		return ""
	}
	return s.track.URN
}

// StartAt records that track is now playing from positionMS.
func (s *Status) StartAt(track api.Track, positionMS int64) {
	s.mu.Lock()
	s.track = track
	s.hasTrack = true
	s.elapsedBase = time.Duration(positionMS) * time.Millisecond
	s.lastStart = time.Now()
	s.mu.Unlock()
	s.isPlaying.Store(true)
}

// MarkPaused folds the running interval into the base. Idempotent: a
// second pause finds no running interval to fold.
func (s *Status) MarkPaused() {
	s.mu.Lock()
	if !s.lastStart.IsZero() {
		s.elapsedBase += time.Since(s.lastStart)
		s.lastStart = time.Time{}
	}
	s.mu.Unlock()
	s.isPlaying.Store(false)
}

// MarkResumed restarts the running interval.
func (s *Status) MarkResumed() {
	s.mu.Lock()
	s.lastStart = time.Now()
	s.mu.Unlock()
	s.isPlaying.Store(true)
}

// MarkStopped freezes elapsed at positionMS with playback off.
func (s *Status) MarkStopped(positionMS int64) {
	s.mu.Lock()
	s.elapsedBase = time.Duration(positionMS) * time.Millisecond
	s.lastStart = time.Time{}
	s.mu.Unlock()
	s.isPlaying.Store(false)
}

// MarkFailed clears the playing flag and drops the running interval,
// leaving elapsed at the accumulated base; used when a track change
// fails mid-way.
func (s *Status) MarkFailed() {
	s.mu.Lock()
	s.lastStart = time.Time{}
	s.mu.Unlock()
	s.isPlaying.Store(false)
}
