// Package tui renders the terminal interface and drives playback from
// user input: library tabs, search, queueing, and the periodic tick
// that handles preload and auto-advance.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/Illogicalll/sctui-sub000/internal/api"
	"github.com/Illogicalll/sctui-sub000/internal/queue"
)

// tickRate drives the playback status refresh and auto-advance checks.
const tickRate = 200 * time.Millisecond

// Tabs
const (
	tabLikes = iota
	tabPlaylists
	tabAlbums
	tabFollowing
	tabSearch
	tabCount
)

// Messages
type (
	tickMsg time.Time

	likesMsg     []api.Track
	playlistsMsg []api.Playlist
	albumsMsg    []api.Album
	followingMsg []api.Artist
	searchMsg    []api.Track
	tracksMsg    struct {
		source queue.Source
		tracks []api.Track
	}
	errMsg struct{ err error }

	likeToggledMsg struct {
		urn   string
		liked bool
	}

	reauthMsg struct{}
)

// PlayerControl is what the UI needs from the playback facade.
type PlayerControl interface {
	Play(api.Track)
	PreloadNext(api.Track)
	Pause()
	Resume()
	VolumeUp()
	VolumeDown()
	FastForward()
	Rewind()
	IsPlaying() bool
	IsSeeking() bool
	Elapsed() int64
	CurrentTrack() (api.Track, bool)
	Volume() float64
	WaveSnapshot() []float32
}

// Model is the root Bubble Tea model.
type Model struct {
	player  PlayerControl
	catalog *api.Client
	reauth  <-chan struct{}

	width  int
	height int

	tab     int
	cursors [tabCount]int

	likes         []api.Track
	playlists     []api.Playlist
	albums        []api.Album
	following     []api.Artist
	searchResults []api.Track

	// playbackTracks is the opened playlist/album/artist track list;
	// the likes tab plays straight from likes.
	playbackTracks []api.Track

	queue        queue.State
	source       queue.Source
	currentIndex int // index into the active track list, -1 when idle

	// Idempotency tokens so preload and advance fire at most once per
	// track observation.
	preloadedFor  string
	endHandledFor string

	searchInput string
	searching   bool

	showQueue   bool
	showHelp    bool
	confirmQuit bool
	needReauth  bool

	statusLine string
}

// NewModel builds the root model.
func NewModel(p PlayerControl, catalog *api.Client, reauth <-chan struct{}) *Model {
	return &Model{
		player:       p,
		catalog:      catalog,
		reauth:       reauth,
		width:        80,
		height:       24,
		currentIndex: -1,
		source:       queue.SourceLikes,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tick(),
		m.loadLikes(),
		m.loadPlaylists(),
		m.loadAlbums(),
		m.loadFollowing(),
		m.watchReauth(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) watchReauth() tea.Cmd {
	return func() tea.Msg {
		if m.reauth == nil {
			return nil
		}
		<-m.reauth
		return reauthMsg{}
	}
}

func (m *Model) loadLikes() tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.catalog.LikedTracks()
		if err != nil {
			return errMsg{err}
		}
		return likesMsg(tracks)
	}
}

func (m *Model) loadPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.catalog.Playlists()
		if err != nil {
			return errMsg{err}
		}
		return playlistsMsg(playlists)
	}
}

func (m *Model) loadAlbums() tea.Cmd {
	return func() tea.Msg {
		albums, err := m.catalog.Albums()
		if err != nil {
			return errMsg{err}
		}
		return albumsMsg(albums)
	}
}

func (m *Model) loadFollowing() tea.Cmd {
	return func() tea.Msg {
		artists, err := m.catalog.Following()
		if err != nil {
			return errMsg{err}
		}
		return followingMsg(artists)
	}
}

func (m *Model) loadCollection(tracksURI string, source queue.Source) tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.catalog.CollectionTracks(tracksURI)
		if err != nil {
			return errMsg{err}
		}
		return tracksMsg{source: source, tracks: tracks}
	}
}

func (m *Model) loadArtistTracks(urn string) tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.catalog.ArtistTracks(urn)
		if err != nil {
			return errMsg{err}
		}
		return tracksMsg{source: queue.SourceFollowingPublished, tracks: tracks}
	}
}

// toggleLike flips the like state of track through the engagement
// endpoints.
func (m *Model) toggleLike(track api.Track) tea.Cmd {
	return func() tea.Msg {
		id, err := api.TrackIDFromURN(track.URN)
		if err != nil {
			return errMsg{err}
		}
		if track.Liked {
			if err := m.catalog.UnlikeTrack(id); err != nil {
				return errMsg{err}
			}
			return likeToggledMsg{urn: track.URN, liked: false}
		}
		if err := m.catalog.LikeTrack(id); err != nil {
			return errMsg{err}
		}
		return likeToggledMsg{urn: track.URN, liked: true}
	}
}

func (m *Model) runSearch(q string) tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.catalog.SearchTracks(q)
		if err != nil {
			return errMsg{err}
		}
		return searchMsg(tracks)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.onTick()
		return m, tick()

	case likesMsg:
		m.likes = append(m.likes, msg...)

	case playlistsMsg:
		m.playlists = append(m.playlists, msg...)

	case albumsMsg:
		m.albums = append(m.albums, msg...)

	case followingMsg:
		m.following = append(m.following, msg...)

	case searchMsg:
		m.searchResults = []api.Track(msg)
		m.cursors[tabSearch] = 0

	case tracksMsg:
		m.playbackTracks = msg.tracks
		m.cursors[m.tab] = 0
		m.statusLine = ""

	case likeToggledMsg:
		m.applyLiked(msg.urn, msg.liked)
		if msg.liked {
			m.statusLine = "liked"
		} else {
			m.statusLine = "unliked"
		}

	case errMsg:
		log.Warn().Err(msg.err).Msg("catalog fetch failed")
		m.statusLine = "fetch failed: " + msg.err.Error()

	case reauthMsg:
		m.needReauth = true
	}

	return m, nil
}

// applyLiked updates every cached copy of a track's like state.
func (m *Model) applyLiked(urn string, liked bool) {
	for _, list := range [][]api.Track{m.likes, m.playbackTracks, m.searchResults} {
		for i := range list {
			if list[i].URN == urn {
				list[i].Liked = liked
			}
		}
	}
}
