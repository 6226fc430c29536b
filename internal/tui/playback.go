package tui

import (
	"github.com/Illogicalll/sctui-sub000/internal/api"
	"github.com/Illogicalll/sctui-sub000/internal/queue"
)

// advanceWindowMS is how close to the end a track counts as finished.
const advanceWindowMS = 50

// preloadFraction of the duration at which the next track preloads.
const preloadFraction = 0.8

// activeTracks is the list the automatic queue indexes into.
func (m *Model) activeTracks() []api.Track {
	if m.source == queue.SourceLikes {
		return m.likes
	}
	return m.playbackTracks
}

// playFromList starts tracks[idx] and makes that list the playback
// source. The automatic queue regenerates lazily from the new position.
func (m *Model) playFromList(tracks []api.Track, idx int, source queue.Source) {
	if idx >= len(tracks) || !tracks[idx].Playable() {
		return
	}
	m.source = source
	m.currentIndex = idx
	if source != queue.SourceLikes {
		m.playbackTracks = tracks
	}
	m.queue.Auto = nil
	m.player.Play(tracks[idx])
}

// queuedFromCurrent captures what is playing now for the history stack.
func (m *Model) queuedFromCurrent() (queue.QueuedTrack, bool) {
	track, ok := m.player.CurrentTrack()
	if !ok {
		return queue.QueuedTrack{}, false
	}
	return queue.QueuedTrack{
		Track:    track,
		Source:   m.source,
		Index:    m.currentIndex,
		Snapshot: snapshotTracks(m.activeTracks()),
	}, true
}

// playQueued restores a queue or history entry: its snapshot becomes
// the active list so index-based continuation stays coherent.
func (m *Model) playQueued(entry queue.QueuedTrack) {
	m.source = entry.Source
	m.currentIndex = entry.Index
	if entry.Source != queue.SourceLikes && entry.Snapshot != nil {
		m.playbackTracks = entry.Snapshot
	}
	m.queue.Auto = nil
	m.player.Play(entry.Track)
}

// nextUp returns the track that would play after the current one:
// repeat-current, front of the manual queue, then front of the
// automatic queue (built lazily from the current position).
func (m *Model) nextUp() (api.Track, bool) {
	if m.queue.Repeat {
		if m.currentIndex >= 0 {
			tracks := m.activeTracks()
			if m.currentIndex < len(tracks) {
				return tracks[m.currentIndex], true
			}
		}
		if track, ok := m.player.CurrentTrack(); ok {
			return track, true
		}
		return api.Track{}, false
	}

	if entry, ok := m.queue.PeekManual(); ok {
		return entry.Track, true
	}

	if m.currentIndex >= 0 {
		if len(m.queue.Auto) == 0 {
			m.queue.Auto = queue.BuildAuto(m.currentIndex, m.activeTracks(), m.queue.Shuffle)
		}
		if idx, ok := m.queue.PeekAuto(); ok {
			tracks := m.activeTracks()
			if idx < len(tracks) {
				return tracks[idx], true
			}
		}
	}

	return api.Track{}, false
}

// onTick runs every 200 ms: it refreshes nothing itself (views read the
// player directly) but drives preload and the idempotent auto-advance.
func (m *Model) onTick() {
	if !m.player.IsPlaying() {
		m.preloadedFor = ""
		return
	}

	current, ok := m.player.CurrentTrack()
	if !ok || current.URN == "" {
		return
	}

	progress := m.player.Elapsed()

	m.maybePreload(current, progress)
	m.maybeAdvance(current, progress)
}

// maybePreload warms the next track once playback crosses 80% of the
// duration. The preloadedFor token keeps it to one preload per track.
func (m *Model) maybePreload(current api.Track, progress int64) {
	threshold := int64(float64(current.DurationMS) * preloadFraction)
	inWindow := progress >= threshold && progress < current.DurationMS-100

	if !inWindow {
		if m.preloadedFor != current.URN {
			m.preloadedFor = ""
		}
		return
	}
	if m.preloadedFor == current.URN {
		return
	}

	next, ok := m.nextUp()
	if !ok || next.URN == current.URN || !next.Playable() {
		return
	}

	m.player.PreloadNext(next)
	m.preloadedFor = current.URN
}

// maybeAdvance fires the end-of-track transition once elapsed reaches
// duration minus the advance window. The endHandledFor token makes it
// fire at most once per track observation.
func (m *Model) maybeAdvance(current api.Track, progress int64) {
	atEnd := current.DurationMS > 0 && progress >= current.DurationMS-advanceWindowMS

	if !atEnd {
		m.endHandledFor = ""
		return
	}
	if m.endHandledFor == current.URN {
		return
	}
	m.endHandledFor = current.URN

	if m.queue.Repeat {
		tracks := m.activeTracks()
		if m.currentIndex >= 0 && m.currentIndex < len(tracks) {
			m.player.Play(tracks[m.currentIndex])
		} else {
			m.player.Play(current)
		}
		return
	}

	m.advanceToNext()
}

// advanceToNext moves to the next queued track, pushing the finishing
// track onto history; also used for a user skip.
func (m *Model) advanceToNext() {
	if entry, ok := m.queue.PopManual(); ok {
		if prev, prevOK := m.queuedFromCurrent(); prevOK {
			m.queue.PushHistory(prev)
		}
		m.playQueued(entry)
		return
	}

	if len(m.queue.Auto) == 0 && m.currentIndex >= 0 {
		m.queue.Auto = queue.BuildAuto(m.currentIndex, m.activeTracks(), m.queue.Shuffle)
	}

	if idx, ok := m.queue.PopAuto(); ok {
		tracks := m.activeTracks()
		if idx < len(tracks) {
			if prev, prevOK := m.queuedFromCurrent(); prevOK {
				m.queue.PushHistory(prev)
			}
			m.currentIndex = idx
			m.player.Play(tracks[idx])
			return
		}
	}

	// Nothing queued: stop.
	m.player.Pause()
	m.currentIndex = -1
}

// skipNext is the user-initiated next-track action.
func (m *Model) skipNext() {
	m.advanceToNext()
}

// skipPrev replays the most recent history entry.
func (m *Model) skipPrev() {
	entry, ok := m.queue.PopHistory()
	if !ok {
		return
	}
	m.playQueued(entry)
}
