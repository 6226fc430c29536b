package player

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog/log"

	"github.com/Illogicalll/sctui-sub000/internal/config"
)

// prefetchWait is how long the pump backs off when it is already far
// enough ahead of the audio clock.
const prefetchWait = 50 * time.Millisecond

// sinkSlot holds the live sink. The facade installs, pauses, and stops
// through it; pumps append through it, re-verifying their generation
// inside the lock.
type sinkSlot struct {
	mu   sync.Mutex
	sink audioSink
}

func (s *sinkSlot) get() audioSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

func (s *sinkSlot) set(sink audioSink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

func (s *sinkSlot) take() audioSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	sink := s.sink
	s.sink = nil
	return sink
}

// pumpParams carries everything a segment pump needs. The pump is bound
// to boundGen; once the shared counter moves past it, the pump must not
// touch the sink or any shared state again.
type pumpParams struct {
	client     *http.Client
	generation *atomic.Uint64
	boundGen   uint64
	cached     *CachedTrack
	startIndex int
	slot       *sinkSlot
	wave       *WaveBuffer
	status     *Status
	out        *Output
	token      string
	decode     func(data []byte, out *Output, skipMS int64) (beep.Streamer, error)
}

// spawnPump starts the background worker that keeps the sink fed with
// upcoming segments.
func spawnPump(p pumpParams) {
	go runPump(p)
}

// runPump walks segments startIndex+1..end in order, staying within
// PrefetchSegments of the segment currently playing. It terminates
// silently on generation supersession, fetch or decode failure, a
// missing sink, or the end of the manifest.
func runPump(p pumpParams) {
	manifest := p.cached.Manifest

	next := p.startIndex + 1
	for next < len(manifest.Segments) {
		if p.generation.Load() != p.boundGen {
			return
		}

		current, _ := manifest.Locate(p.status.Elapsed())
		if next > current+config.PrefetchSegments {
			time.Sleep(prefetchWait)
			continue
		}

		media, err := segmentThroughCache(p.client, p.cached, next, p.token)
		if err != nil {
			log.Debug().Err(err).Int("segment", next).Msg("pump fetch failed")
			return
		}

		combined := combineInitAndSegment(p.cached.InitBytes, media)
		streamer, err := p.decode(combined, p.out, 0)
		if err != nil {
			log.Debug().Err(err).Int("segment", next).Msg("pump decode failed")
			return
		}
		tapped := NewTap(streamer, p.wave)

		if p.generation.Load() != p.boundGen {
			return
		}
		p.slot.mu.Lock()
		if p.generation.Load() != p.boundGen || p.slot.sink == nil {
			p.slot.mu.Unlock()
			return
		}
		p.slot.sink.Append(tapped)
		p.slot.mu.Unlock()

		next++
	}
}

// segmentThroughCache serves segment idx from the track cache, fetching
// and inserting on a miss.
func segmentThroughCache(client *http.Client, cached *CachedTrack, idx int, token string) ([]byte, error) {
	if bytes, ok := cached.GetSegment(idx); ok {
		return bytes, nil
	}

	bytes, err := fetchSegment(client, cached.Manifest.Segments[idx].URL, token)
	if err != nil {
		return nil, err
	}
	cached.PutSegment(idx, bytes)
	return bytes, nil
}

// fetchSegment downloads media bytes. Streaming endpoints take the
// OAuth authorization scheme rather than Bearer; any non-2xx status is
// fatal for the segment.
func fetchSegment(client *http.Client, url, token string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create segment request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "OAuth "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch segment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("segment HTTP %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func combineInitAndSegment(initBytes, segmentBytes []byte) []byte {
	combined := make([]byte, 0, len(initBytes)+len(segmentBytes))
	combined = append(combined, initBytes...)
	return append(combined, segmentBytes...)
}
