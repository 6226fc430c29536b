// Package queue tracks what plays next: the manual queue, the
// generated automatic queue, and playback history.
package queue

import (
	"math/rand"

	"github.com/Illogicalll/sctui-sub000/internal/api"
)

// Source tags where a queued track came from.
type Source int

const (
	SourceLikes Source = iota
	SourcePlaylist
	SourceAlbum
	SourceFollowingPublished
	SourceFollowingLikes
)

func (s Source) String() string {
	switch s {
	case SourceLikes:
		return "likes"
	case SourcePlaylist:
		return "playlist"
	case SourceAlbum:
		return "album"
	case SourceFollowingPublished:
		return "following"
	case SourceFollowingLikes:
		return "following likes"
	default:
		return "unknown"
	}
}

// QueuedTrack is one manual-queue or history entry. Snapshot captures
// the backing list at enqueue time so later catalog refreshes cannot
// shift indices under the running queue.
type QueuedTrack struct {
	Track    api.Track
	Source   Source
	Index    int
	Snapshot []api.Track
}

// State holds the three queues plus the playback modes that shape the
// automatic queue.
type State struct {
	Manual  []QueuedTrack
	Auto    []int
	History []QueuedTrack
	Shuffle bool
	Repeat  bool
}

// BuildAuto enumerates the indices to play after currentIdx: sequential
// from the next index, or a shuffled permutation when shuffle is on.
// The current index and unplayable tracks are excluded either way.
func BuildAuto(currentIdx int, tracks []api.Track, shuffle bool) []int {
	if len(tracks) == 0 {
		return nil
	}

	if shuffle {
		var indices []int
		for i, t := range tracks {
			if i != currentIdx && t.Playable() {
				indices = append(indices, i)
			}
		}
		rand.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		return indices
	}

	var indices []int
	for i := currentIdx + 1; i < len(tracks); i++ {
		if tracks[i].Playable() {
			indices = append(indices, i)
		}
	}
	return indices
}

// PushNext prepends a track to the manual queue ("play next").
func (s *State) PushNext(t QueuedTrack) {
	s.Manual = append([]QueuedTrack{t}, s.Manual...)
}

// Enqueue appends a track to the manual queue ("add to queue").
func (s *State) Enqueue(t QueuedTrack) {
	s.Manual = append(s.Manual, t)
}

// PopManual removes and returns the front of the manual queue.
func (s *State) PopManual() (QueuedTrack, bool) {
	if len(s.Manual) == 0 {
		return QueuedTrack{}, false
	}
	t := s.Manual[0]
	s.Manual = s.Manual[1:]
	return t, true
}

// PeekManual returns the front of the manual queue without removing it.
func (s *State) PeekManual() (QueuedTrack, bool) {
	if len(s.Manual) == 0 {
		return QueuedTrack{}, false
	}
	return s.Manual[0], true
}

// PopAuto removes and returns the front of the automatic queue.
func (s *State) PopAuto() (int, bool) {
	if len(s.Auto) == 0 {
		return 0, false
	}
	i := s.Auto[0]
	s.Auto = s.Auto[1:]
	return i, true
}

// PeekAuto returns the front of the automatic queue without removing it.
func (s *State) PeekAuto() (int, bool) {
	if len(s.Auto) == 0 {
		return 0, false
	}
	return s.Auto[0], true
}

// PushHistory records a finished or skipped-away track.
func (s *State) PushHistory(t QueuedTrack) {
	s.History = append(s.History, t)
}

// PopHistory removes and returns the most recent history entry.
func (s *State) PopHistory() (QueuedTrack, bool) {
	if len(s.History) == 0 {
		return QueuedTrack{}, false
	}
	t := s.History[len(s.History)-1]
	s.History = s.History[:len(s.History)-1]
	return t, true
}
