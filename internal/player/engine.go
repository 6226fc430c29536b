package player

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog/log"

	"github.com/Illogicalll/sctui-sub000/internal/api"
	"github.com/Illogicalll/sctui-sub000/internal/auth"
	"github.com/Illogicalll/sctui-sub000/internal/config"
	"github.com/Illogicalll/sctui-sub000/internal/hls"
)

// Engine orchestrates playback: it owns the per-track cache and the
// preloaded-next slot, issues generation IDs, manages the crossfade,
// and spawns segment pumps. All methods run on the facade's command
// loop, so the caches need no locking of their own.
type Engine struct {
	out      *Output
	client   *http.Client
	resolver *hls.Resolver
	token    *auth.Store
	creds    auth.Credentials

	// generation is the universal cancel signal: bumped on every new
	// track and every seek, checked by workers before side effects.
	generation atomic.Uint64

	current *CachedTrack
	preload *CachedTrack

	slot   *sinkSlot
	status *Status
	wave   *WaveBuffer

	// Pluggable: sink construction and segment decoding, so tests can
	// drive the state machine without an audio device.
	newSink func(level float64) audioSink
	decode  func(data []byte, out *Output, skipMS int64) (beep.Streamer, error)
}

// NewEngine wires an engine onto the shared output, status, and wave
// ring.
func NewEngine(out *Output, client *http.Client, token *auth.Store, creds auth.Credentials, slot *sinkSlot, status *Status, wave *WaveBuffer) *Engine {
	e := &Engine{
		out:      out,
		client:   client,
		resolver: hls.NewResolver(client),
		token:    token,
		creds:    creds,
		slot:     slot,
		status:   status,
		wave:     wave,
	}
	e.newSink = func(level float64) audioSink { return NewSink(out, level) }
	e.decode = decodeSegment
	return e
}

// PreloadNext resolves and warms the cache for the track expected to
// play next: manifest, init bytes, and the first segment. Best-effort:
// a failed resolve leaves the preload slot untouched; a failed
// first-segment fetch still installs the entry, without that segment.
func (e *Engine) PreloadNext(track api.Track) {
	if e.preload != nil && e.preload.URN == track.URN {
		return
	}

	cached, err := e.resolveTrack(track)
	if err != nil {
		log.Debug().Err(err).Str("urn", track.URN).Msg("preload failed")
		return
	}

	if len(cached.Manifest.Segments) > 0 {
		if bytes, err := fetchSegment(e.client, cached.Manifest.Segments[0].URL, e.token.Access()); err == nil {
			cached.PutSegment(0, bytes)
		}
	}

	e.preload = cached
}

// PlayFromPosition is the central state transition: a track change when
// track differs from what is playing, a seek otherwise. On a seek the
// old sink keeps playing until the new one is installed, then fades out
// over the crossfade window; on a track change the old sink is cut
// immediately. A failure mid-way leaves a seek's playback untouched and
// stops playback cleanly on a track change.
func (e *Engine) PlayFromPosition(track api.Track, positionMS int64) {
	isSeek := e.status.CurrentURN() == track.URN

	level := 1.0
	if s := e.slot.get(); s != nil {
		level = s.Level()
	}

	// On a track change the old audio must cut now, so the generation
	// bumps immediately. On a seek the bump waits until the replacement
	// sink is ready, keeping the old pump alive in the meantime.
	plannedGen := e.generation.Load() + 1
	if !isSeek {
		e.generation.Add(1)
		if s := e.slot.get(); s != nil {
			s.Stop()
		}
	}

	cached, err := e.ensureCached(track)
	if err != nil {
		log.Warn().Err(err).Str("urn", track.URN).Msg("resolve track failed")
		e.failPlay(isSeek)
		return
	}

	segIdx, offsetMS := cached.Manifest.Locate(positionMS)

	media, err := segmentThroughCache(e.client, cached, segIdx, e.token.Access())
	if err != nil {
		log.Warn().Err(err).Int("segment", segIdx).Msg("first segment fetch failed")
		e.failPlay(isSeek)
		return
	}

	newSink := e.newSink(level)

	combined := combineInitAndSegment(cached.InitBytes, media)
	streamer, err := e.decode(combined, e.out, offsetMS)
	if err != nil {
		log.Warn().Err(err).Int("segment", segIdx).Msg("first segment decode failed")
		newSink.Stop()
		e.failPlay(isSeek)
		return
	}
	newSink.Append(NewTap(streamer, e.wave))

	genForPump := plannedGen
	if isSeek {
		genForPump = e.generation.Add(1)
	}

	var oldSink audioSink
	if isSeek {
		oldSink = e.slot.take()
	}
	e.slot.set(newSink)

	if oldSink != nil {
		go crossfadeStop(oldSink, level)
	}

	e.status.StartAt(track, positionMS)

	spawnPump(pumpParams{
		client:     e.client,
		generation: &e.generation,
		boundGen:   genForPump,
		cached:     cached,
		startIndex: segIdx,
		slot:       e.slot,
		wave:       e.wave,
		status:     e.status,
		out:        e.out,
		token:      e.token.Access(),
		decode:     e.decode,
	})
}

// failPlay applies the failure semantics: a failed seek leaves the old
// playback running; a failed track change stops cleanly.
func (e *Engine) failPlay(isSeek bool) {
	if !isSeek {
		e.status.MarkFailed()
	}
}

// ensureCached acquires the CachedTrack for track: the preload slot if
// it matches, the current slot while still valid, or a fresh resolve.
func (e *Engine) ensureCached(track api.Track) (*CachedTrack, error) {
	if e.preload != nil && e.preload.URN == track.URN {
		e.current = e.preload
		e.preload = nil
		return e.current, nil
	}

	if e.current != nil && e.current.ValidFor(track.URN, time.Now()) {
		return e.current, nil
	}

	cached, err := e.resolveTrack(track)
	if err != nil {
		return nil, err
	}
	e.current = cached
	return cached, nil
}

// resolveTrack fetches a track's manifest and init bytes into a fresh
// CachedTrack.
func (e *Engine) resolveTrack(track api.Track) (*CachedTrack, error) {
	_ = auth.TryRefresh(e.client, e.creds, e.token)
	access := e.token.Access()

	streamURL, err := e.resolver.StreamURL(track.URN, access)
	if err != nil {
		return nil, fmt.Errorf("resolve stream URL: %w", err)
	}

	manifest, err := e.resolver.Fetch(streamURL, access)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}

	var initBytes []byte
	if manifest.InitURL != "" {
		initBytes, err = fetchSegment(e.client, manifest.InitURL, access)
		if err != nil {
			return nil, fmt.Errorf("fetch init segment: %w", err)
		}
	}

	return NewCachedTrack(track.URN, manifest, initBytes), nil
}

// crossfadeStop ramps the outgoing sink from fromLevel to silence over
// the crossfade window, then stops it. The replacement sink is already
// audible through the mixer while this runs.
func crossfadeStop(old audioSink, fromLevel float64) {
	steps := config.CrossfadeSteps
	stepDur := config.CrossfadeDuration / time.Duration(steps)
	if stepDur < time.Millisecond {
		stepDur = time.Millisecond
	}

	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		old.SetLevel(fromLevel * (1 - t))
		time.Sleep(stepDur)
	}
	old.Stop()
}
