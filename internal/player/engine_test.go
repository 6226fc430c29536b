package player

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/Illogicalll/sctui-sub000/internal/api"
	"github.com/Illogicalll/sctui-sub000/internal/auth"
	"github.com/Illogicalll/sctui-sub000/internal/hls"
)

// fakeSink records the operations the engine drives against a sink. The
// crossfade task and the pump touch it concurrently with test reads.
type fakeSink struct {
	mu      sync.Mutex
	level   float64
	appends int
	stopped bool
	ramps   []float64
}

func (f *fakeSink) Append(beep.Streamer) {
	f.mu.Lock()
	f.appends++
	f.mu.Unlock()
}

func (f *fakeSink) Pause() {}
func (f *fakeSink) Play()  {}

func (f *fakeSink) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeSink) Level() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

func (f *fakeSink) SetLevel(level float64) {
	f.mu.Lock()
	f.level = level
	f.ramps = append(f.ramps, level)
	f.mu.Unlock()
}

func (f *fakeSink) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeSink) appendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appends
}

func (f *fakeSink) rampCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ramps)
}

// engineHarness is an Engine with the sink and decode seams replaced by
// fakes, so PlayFromPosition can run without an audio device or real
// media bytes.
type engineHarness struct {
	engine *Engine
	status *Status
	slot   *sinkSlot

	mu      sync.Mutex
	created []*fakeSink
	skips   []int64
}

func newEngineHarness(t *testing.T) *engineHarness {
	t.Helper()

	out := &Output{sampleRate: outputSampleRate, mixer: &beep.Mixer{}}
	status := NewStatus()
	slot := &sinkSlot{}
	store := auth.NewStore(
		auth.Token{AccessToken: "tok", ObtainedAt: time.Now().Unix()},
		filepath.Join(t.TempDir(), "token.json"),
	)

	h := &engineHarness{status: status, slot: slot}

	e := NewEngine(out, &http.Client{}, store, auth.Credentials{}, slot, status, NewWaveBuffer(64))
	e.newSink = func(level float64) audioSink {
		fs := &fakeSink{level: level}
		h.mu.Lock()
		h.created = append(h.created, fs)
		h.mu.Unlock()
		return fs
	}
	e.decode = func(data []byte, out *Output, skipMS int64) (beep.Streamer, error) {
		h.mu.Lock()
		h.skips = append(h.skips, skipMS)
		h.mu.Unlock()
		return &rampStreamer{total: 8}, nil
	}
	h.engine = e
	return h
}

func (h *engineHarness) sinks() []*fakeSink {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*fakeSink, len(h.created))
	copy(out, h.created)
	return out
}

func (h *engineHarness) firstSkip() (int64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.skips) == 0 {
		return 0, false
	}
	return h.skips[0], true
}

// killPumps supersedes every live generation so background workers
// stand down before the test's servers shut.
func (h *engineHarness) killPumps() {
	h.engine.generation.Add(1)
}

func engineTrack(urn string) api.Track {
	return api.Track{Title: urn, URN: urn, DurationMS: 20000, Access: "playable"}
}

func serverManifest(base string, segments int, durationMS int64) *hls.Manifest {
	m := &hls.Manifest{}
	var cursor int64
	for i := 0; i < segments; i++ {
		m.Segments = append(m.Segments, hls.Segment{
			URL:        fmt.Sprintf("%s/seg%d.m4s", base, i),
			DurationMS: durationMS,
		})
		m.SegmentStartMS = append(m.SegmentStartMS, cursor)
		cursor += durationMS
	}
	m.TotalDurationMS = cursor
	return m
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// A seek within the same track: one generation bump, the old sink ramps
// to silence on a detached task while the replacement takes over at the
// captured volume, and the leading PCM run is discarded to land on the
// requested millisecond.
func TestPlayFromPositionSeek(t *testing.T) {
	h := newEngineHarness(t)
	defer h.killPumps()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("media"))
	}))
	defer srv.Close()

	track := engineTrack("urn:A")
	h.engine.current = NewCachedTrack(track.URN, serverManifest(srv.URL, 4, 5000), nil)

	old := &fakeSink{level: 1.5}
	h.slot.set(old)
	h.status.StartAt(track, 0)
	genBefore := h.engine.generation.Load()

	h.engine.PlayFromPosition(track, 12000)

	if got := h.engine.generation.Load(); got != genBefore+1 {
		t.Errorf("generation = %d, want exactly one bump from %d", got, genBefore)
	}

	sinks := h.sinks()
	if len(sinks) != 1 {
		t.Fatalf("created %d sinks, want 1", len(sinks))
	}
	replacement := sinks[0]
	if replacement.Level() != 1.5 {
		t.Errorf("replacement level = %v, want captured 1.5", replacement.Level())
	}
	if h.slot.get() != audioSink(replacement) {
		t.Error("replacement sink not installed in the slot")
	}
	if replacement.appendCount() < 1 {
		t.Error("first segment was not appended to the replacement sink")
	}

	// Position 12000 on 4x5000ms lands in segment 2 at offset 2000.
	if skip, ok := h.firstSkip(); !ok || skip != 2000 {
		t.Errorf("first decode skip = %d (%v), want 2000", skip, ok)
	}

	waitFor(t, "old sink crossfade stop", old.isStopped)
	if old.Level() != 0 {
		t.Errorf("old sink level after crossfade = %v, want 0", old.Level())
	}
	if old.rampCount() < 2 {
		t.Errorf("old sink ramped %d times, want a stepped fade", old.rampCount())
	}

	if e := h.status.Elapsed(); e < 12000 || e > 12500 {
		t.Errorf("elapsed = %d right after seek, want ~12000", e)
	}
	if !h.status.IsPlaying() {
		t.Error("status should be playing after a seek")
	}
}

// A track change hard-cuts the old sink (no ramp) and promotes the
// preload slot: with manifest, init, and first segment already warm, no
// network request is issued.
func TestPlayFromPositionTrackChangePromotesPreload(t *testing.T) {
	h := newEngineHarness(t)
	defer h.killPumps()

	var gets atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		w.Write([]byte("media"))
	}))
	defer srv.Close()

	trackA := engineTrack("urn:A")
	trackB := engineTrack("urn:B")

	h.status.StartAt(trackA, 0)
	old := &fakeSink{level: 0.8}
	h.slot.set(old)

	preloaded := NewCachedTrack(trackB.URN, serverManifest(srv.URL, 1, 20000), nil)
	preloaded.PutSegment(0, []byte("warm"))
	h.engine.preload = preloaded
	genBefore := h.engine.generation.Load()

	h.engine.PlayFromPosition(trackB, 0)

	if got := h.engine.generation.Load(); got != genBefore+1 {
		t.Errorf("generation = %d, want exactly one bump from %d", got, genBefore)
	}
	if !old.isStopped() {
		t.Error("old sink should be hard-cut on a track change")
	}
	if old.rampCount() != 0 {
		t.Errorf("old sink ramped %d times on a track change, want 0", old.rampCount())
	}

	if h.engine.preload != nil {
		t.Error("preload slot should be cleared after promotion")
	}
	if h.engine.current != preloaded {
		t.Error("promoted preload should become the current cache")
	}
	if n := gets.Load(); n != 0 {
		t.Errorf("network GETs = %d during hot swap, want 0", n)
	}

	sinks := h.sinks()
	if len(sinks) != 1 {
		t.Fatalf("created %d sinks, want 1", len(sinks))
	}
	if sinks[0].Level() != 0.8 {
		t.Errorf("replacement level = %v, want captured 0.8", sinks[0].Level())
	}
	if sinks[0].appendCount() != 1 {
		t.Errorf("replacement appends = %d, want the first segment only", sinks[0].appendCount())
	}

	if skip, ok := h.firstSkip(); !ok || skip != 0 {
		t.Errorf("first decode skip = %d (%v), want 0", skip, ok)
	}
	if urn := h.status.CurrentURN(); urn != "urn:B" {
		t.Errorf("current URN = %q, want urn:B", urn)
	}
}

func TestEnsureCachedPromotionAndReuse(t *testing.T) {
	h := newEngineHarness(t)

	trackB := engineTrack("urn:B")
	preloaded := NewCachedTrack(trackB.URN, serverManifest("http://127.0.0.1:0", 1, 20000), nil)
	h.engine.preload = preloaded

	got, err := h.engine.ensureCached(trackB)
	if err != nil {
		t.Fatalf("ensureCached: %v", err)
	}
	if got != preloaded {
		t.Error("ensureCached should hand back the preloaded cache")
	}
	if h.engine.preload != nil {
		t.Error("preload slot should be empty after promotion")
	}
	if h.engine.current != preloaded {
		t.Error("promoted cache should be current")
	}

	// A second acquisition for the same track reuses the current slot
	// without resolving anything.
	again, err := h.engine.ensureCached(trackB)
	if err != nil {
		t.Fatalf("ensureCached (reuse): %v", err)
	}
	if again != preloaded {
		t.Error("valid current cache should be reused")
	}
}

// A failed seek leaves everything as it was: same generation, same
// sink, still playing from the old audio.
func TestSeekFailureKeepsPlayback(t *testing.T) {
	h := newEngineHarness(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	defer srv.Close()

	track := engineTrack("urn:A")
	h.engine.current = NewCachedTrack(track.URN, serverManifest(srv.URL, 4, 5000), nil)

	old := &fakeSink{level: 1.0}
	h.slot.set(old)
	h.status.StartAt(track, 0)
	genBefore := h.engine.generation.Load()

	h.engine.PlayFromPosition(track, 7000)

	if got := h.engine.generation.Load(); got != genBefore {
		t.Errorf("generation = %d after failed seek, want unchanged %d", got, genBefore)
	}
	if h.slot.get() != audioSink(old) {
		t.Error("old sink should stay installed after a failed seek")
	}
	if old.isStopped() {
		t.Error("old sink should keep playing after a failed seek")
	}
	if !h.status.IsPlaying() {
		t.Error("status should still be playing after a failed seek")
	}
	if len(h.sinks()) != 0 {
		t.Error("no replacement sink should be built when the fetch fails")
	}
}

// A failed track change stops playback cleanly: the old sink is already
// cut, and the playing flag falls.
func TestTrackChangeFailureStopsCleanly(t *testing.T) {
	h := newEngineHarness(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	defer srv.Close()

	trackA := engineTrack("urn:A")
	trackB := engineTrack("urn:B")

	h.status.StartAt(trackA, 0)
	old := &fakeSink{level: 1.0}
	h.slot.set(old)

	// Preloaded manifest for B, but its segment fetch will fail.
	h.engine.preload = NewCachedTrack(trackB.URN, serverManifest(srv.URL, 2, 10000), nil)
	genBefore := h.engine.generation.Load()

	h.engine.PlayFromPosition(trackB, 0)

	if got := h.engine.generation.Load(); got != genBefore+1 {
		t.Errorf("generation = %d, want one bump from %d", got, genBefore)
	}
	if !old.isStopped() {
		t.Error("old sink should be cut before the fetch on a track change")
	}
	if h.status.IsPlaying() {
		t.Error("playing flag should fall when a track change fails")
	}
}
