package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Illogicalll/sctui-sub000/internal/api"
	"github.com/Illogicalll/sctui-sub000/internal/queue"
)

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.confirmQuit {
		switch key {
		case "y", "enter":
			return m, tea.Quit
		default:
			m.confirmQuit = false
		}
		return m, nil
	}

	if m.searching {
		return m.handleSearchKey(msg)
	}

	if m.showHelp || m.showQueue {
		switch key {
		case "esc", "q", "?":
			m.showHelp = false
			m.showQueue = false
		}
		return m, nil
	}

	switch key {
	case "esc":
		if m.browsingTracks() {
			m.playbackTracks = nil
			return m, nil
		}
		m.confirmQuit = true

	case "tab", "right":
		m.tab = (m.tab + 1) % tabCount
		m.playbackTracks = nil

	case "left":
		m.tab = (m.tab + tabCount - 1) % tabCount
		m.playbackTracks = nil

	case "up":
		m.moveCursor(-1)

	case "down":
		m.moveCursor(1)

	case "enter":
		return m.handleEnter()

	case " ":
		if m.player.IsPlaying() {
			m.player.Pause()
		} else {
			m.player.Resume()
		}

	case "shift+right":
		m.skipNext()

	case "shift+left":
		m.skipPrev()

	case "alt+right":
		m.player.FastForward()

	case "alt+left":
		m.player.Rewind()

	case "+", "=":
		m.player.VolumeUp()

	case "-", "_":
		m.player.VolumeDown()

	case "s":
		m.queue.Shuffle = !m.queue.Shuffle
		m.queue.Auto = nil

	case "r":
		m.queue.Repeat = !m.queue.Repeat

	case "l":
		if track, ok := m.selectedOrPlayingTrack(); ok {
			return m, m.toggleLike(track)
		}

	case "a":
		m.enqueueSelected(false)

	case "n":
		m.enqueueSelected(true)

	case "/":
		m.tab = tabSearch
		m.searching = true
		m.searchInput = ""

	case "q":
		m.showQueue = true

	case "?":
		m.showHelp = true
	}

	return m, nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
	case "enter":
		m.searching = false
		if m.searchInput != "" {
			return m, m.runSearch(m.searchInput)
		}
	case "backspace":
		if len(m.searchInput) > 0 {
			m.searchInput = m.searchInput[:len(m.searchInput)-1]
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.searchInput += string(msg.Runes)
		}
	}
	return m, nil
}

// browsingTracks reports whether a playlist/album/artist track list is
// open on top of the current tab.
func (m *Model) browsingTracks() bool {
	return m.tab != tabLikes && m.tab != tabSearch && len(m.playbackTracks) > 0
}

func (m *Model) listLen() int {
	if m.browsingTracks() {
		return len(m.playbackTracks)
	}
	switch m.tab {
	case tabLikes:
		return len(m.likes)
	case tabPlaylists:
		return len(m.playlists)
	case tabAlbums:
		return len(m.albums)
	case tabFollowing:
		return len(m.following)
	case tabSearch:
		return len(m.searchResults)
	}
	return 0
}

func (m *Model) moveCursor(delta int) {
	n := m.listLen()
	if n == 0 {
		return
	}
	c := m.cursors[m.tab] + delta
	if c < 0 {
		c = 0
	}
	if c >= n {
		c = n - 1
	}
	m.cursors[m.tab] = c
}

func (m *Model) handleEnter() (tea.Model, tea.Cmd) {
	cursor := m.cursors[m.tab]

	if m.browsingTracks() {
		m.playFromList(m.playbackTracks, cursor, m.sourceForTab())
		return m, nil
	}

	switch m.tab {
	case tabLikes:
		m.playFromList(m.likes, cursor, queue.SourceLikes)

	case tabPlaylists:
		if cursor < len(m.playlists) {
			return m, m.loadCollection(m.playlists[cursor].TracksURI, queue.SourcePlaylist)
		}

	case tabAlbums:
		if cursor < len(m.albums) {
			return m, m.loadCollection(m.albums[cursor].TracksURI, queue.SourceAlbum)
		}

	case tabFollowing:
		if cursor < len(m.following) {
			return m, m.loadArtistTracks(m.following[cursor].URN)
		}

	case tabSearch:
		if cursor < len(m.searchResults) {
			// Search results are one-offs: no automatic continuation.
			t := m.searchResults[cursor]
			if t.Playable() {
				m.currentIndex = -1
				m.queue.Auto = nil
				m.player.Play(t)
			}
		}
	}

	return m, nil
}

func (m *Model) sourceForTab() queue.Source {
	switch m.tab {
	case tabPlaylists:
		return queue.SourcePlaylist
	case tabAlbums:
		return queue.SourceAlbum
	case tabFollowing:
		return queue.SourceFollowingPublished
	default:
		return queue.SourceLikes
	}
}

// selectedOrPlayingTrack picks the engagement target: the highlighted
// track when a track list is showing, else whatever is playing.
func (m *Model) selectedOrPlayingTrack() (api.Track, bool) {
	var tracks []api.Track
	switch {
	case m.browsingTracks():
		tracks = m.playbackTracks
	case m.tab == tabLikes:
		tracks = m.likes
	case m.tab == tabSearch:
		tracks = m.searchResults
	default:
		return m.player.CurrentTrack()
	}

	cursor := m.cursors[m.tab]
	if cursor >= len(tracks) {
		return m.player.CurrentTrack()
	}
	return tracks[cursor], true
}

// enqueueSelected puts the selected track on the manual queue, at the
// front for "play next".
func (m *Model) enqueueSelected(front bool) {
	var (
		tracks []api.Track
		source queue.Source
	)
	switch {
	case m.browsingTracks():
		tracks, source = m.playbackTracks, m.sourceForTab()
	case m.tab == tabLikes:
		tracks, source = m.likes, queue.SourceLikes
	case m.tab == tabSearch:
		tracks, source = m.searchResults, queue.SourceLikes
	default:
		return
	}

	cursor := m.cursors[m.tab]
	if cursor >= len(tracks) || !tracks[cursor].Playable() {
		return
	}

	entry := queue.QueuedTrack{
		Track:    tracks[cursor],
		Source:   source,
		Index:    cursor,
		Snapshot: snapshotTracks(tracks),
	}
	if m.tab == tabSearch {
		// Search results are one-offs: no automatic continuation.
		entry.Index = -1
	}
	if front {
		m.queue.PushNext(entry)
	} else {
		m.queue.Enqueue(entry)
	}
}

func snapshotTracks(tracks []api.Track) []api.Track {
	out := make([]api.Track, len(tracks))
	copy(out, tracks)
	return out
}
