package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Illogicalll/sctui-sub000/internal/auth"
)

const apiBase = "https://api.soundcloud.com"

// Listing endpoints. Page size 40 matches what the UI shows per fetch.
const (
	likedTracksURL    = apiBase + "/me/likes/tracks?limit=40&access=playable,preview,blocked&linked_partitioning=true"
	myPlaylistsURL    = apiBase + "/me/playlists?linked_partitioning=true&limit=40&show_tracks=false"
	likedPlaylistsURL = apiBase + "/me/likes/playlists?limit=40&linked_partitioning=true"
	followingURL      = apiBase + "/me/followings?limit=40&linked_partitioning=true"
)

// Client fetches catalog listings page by page. Each listing remembers
// its next_href cursor, so repeated calls append further pages and an
// exhausted listing returns an empty slice.
type Client struct {
	http  *http.Client
	token *auth.Store
	creds auth.Credentials

	likesCursor     pageCursor
	playlistsCursor pageCursor
	albumsCursor    pageCursor
	followingCursor pageCursor
}

// pageCursor tracks linked_partitioning pagination for one listing.
type pageCursor struct {
	nextHref     string
	firstFetched bool
}

// advance returns the URL for the next page, or "" when exhausted.
func (c *pageCursor) advance(firstPageURL string) string {
	if !c.firstFetched {
		c.firstFetched = true
		return firstPageURL
	}
	return c.nextHref
}

// New creates a catalog client sharing the process HTTP client and
// token store.
func New(httpClient *http.Client, token *auth.Store, creds auth.Credentials) *Client {
	return &Client{http: httpClient, token: token, creds: creds}
}

// trackJSON mirrors the fields of a catalog track object we consume.
type trackJSON struct {
	Title          string `json:"title"`
	MetadataArtist string `json:"metadata_artist"`
	User           struct {
		Username string `json:"username"`
	} `json:"user"`
	Duration      int64  `json:"duration"`
	PlaybackCount int64  `json:"playback_count"`
	ArtworkURL    string `json:"artwork_url"`
	StreamURL     string `json:"stream_url"`
	Access        string `json:"access"`
	URN           string `json:"urn"`
}

func (t trackJSON) toTrack() Track {
	artists := t.MetadataArtist
	if artists == "" {
		artists = t.User.Username
	}
	return Track{
		Title:         t.Title,
		Artists:       artists,
		Duration:      FormatDuration(t.Duration),
		DurationMS:    t.Duration,
		PlaybackCount: FormatPlaybackCount(t.PlaybackCount),
		ArtworkURL:    t.ArtworkURL,
		StreamURL:     t.StreamURL,
		Access:        t.Access,
		URN:           t.URN,
	}
}

type trackPage struct {
	Collection []trackJSON `json:"collection"`
	NextHref   string      `json:"next_href"`
}

// LikedTracks returns the next page of the user's liked tracks.
func (c *Client) LikedTracks() ([]Track, error) {
	pageURL := c.likesCursor.advance(likedTracksURL)
	if pageURL == "" {
		return nil, nil
	}

	var page trackPage
	if err := c.getJSON(pageURL, &page); err != nil {
		return nil, fmt.Errorf("liked tracks: %w", err)
	}
	c.likesCursor.nextHref = page.NextHref

	tracks := make([]Track, 0, len(page.Collection))
	for _, t := range page.Collection {
		track := t.toTrack()
		track.Liked = true
		tracks = append(tracks, track)
	}
	return tracks, nil
}

type playlistJSON struct {
	Title      string `json:"title"`
	TrackCount int64  `json:"track_count"`
	Duration   int64  `json:"duration"`
	CreatedAt  string `json:"created_at"`
	TracksURI  string `json:"tracks_uri"`
	User       struct {
		Username string `json:"username"`
	} `json:"user"`
	ReleaseYear  int64  `json:"release_year"`
	PlaylistType string `json:"playlist_type"`
}

type playlistPage struct {
	Collection []playlistJSON `json:"collection"`
	NextHref   string         `json:"next_href"`
}

// Playlists returns the next page of the user's own playlists.
func (c *Client) Playlists() ([]Playlist, error) {
	pageURL := c.playlistsCursor.advance(myPlaylistsURL)
	if pageURL == "" {
		return nil, nil
	}

	var page playlistPage
	if err := c.getJSON(pageURL, &page); err != nil {
		return nil, fmt.Errorf("playlists: %w", err)
	}
	c.playlistsCursor.nextHref = page.NextHref

	playlists := make([]Playlist, 0, len(page.Collection))
	for _, p := range page.Collection {
		playlists = append(playlists, Playlist{
			Title:      p.Title,
			TrackCount: fmt.Sprintf("%d", p.TrackCount),
			Duration:   FormatDuration(p.Duration),
			CreatedAt:  p.CreatedAt,
			TracksURI:  p.TracksURI,
		})
	}
	return playlists, nil
}

// Albums returns the next page of the user's liked albums.
func (c *Client) Albums() ([]Album, error) {
	pageURL := c.albumsCursor.advance(likedPlaylistsURL)
	if pageURL == "" {
		return nil, nil
	}

	var page playlistPage
	if err := c.getJSON(pageURL, &page); err != nil {
		return nil, fmt.Errorf("albums: %w", err)
	}
	c.albumsCursor.nextHref = page.NextHref

	albums := make([]Album, 0, len(page.Collection))
	for _, p := range page.Collection {
		year := ""
		if p.ReleaseYear > 0 {
			year = fmt.Sprintf("%d", p.ReleaseYear)
		}
		albums = append(albums, Album{
			Title:       p.Title,
			Artists:     p.User.Username,
			ReleaseYear: year,
			Duration:    FormatDuration(p.Duration),
			TrackCount:  fmt.Sprintf("%d", p.TrackCount),
			TracksURI:   p.TracksURI,
		})
	}
	return albums, nil
}

type artistJSON struct {
	Username string `json:"username"`
	URN      string `json:"urn"`
}

type artistPage struct {
	Collection []artistJSON `json:"collection"`
	NextHref   string       `json:"next_href"`
}

// Following returns the next page of artists the user follows.
func (c *Client) Following() ([]Artist, error) {
	pageURL := c.followingCursor.advance(followingURL)
	if pageURL == "" {
		return nil, nil
	}

	var page artistPage
	if err := c.getJSON(pageURL, &page); err != nil {
		return nil, fmt.Errorf("following: %w", err)
	}
	c.followingCursor.nextHref = page.NextHref

	artists := make([]Artist, 0, len(page.Collection))
	for _, a := range page.Collection {
		artists = append(artists, Artist{Name: a.Username, URN: a.URN})
	}
	return artists, nil
}

// CollectionTracks fetches every track behind a playlist or album
// tracks_uri, following pagination to the end.
func (c *Client) CollectionTracks(tracksURI string) ([]Track, error) {
	pageURL := tracksURI
	if strings.HasPrefix(pageURL, "/") {
		pageURL = apiBase + pageURL
	}
	if !strings.Contains(pageURL, "linked_partitioning") {
		sep := "?"
		if strings.Contains(pageURL, "?") {
			sep = "&"
		}
		pageURL += sep + "linked_partitioning=true&limit=200"
	}

	var tracks []Track
	for pageURL != "" {
		var page trackPage
		if err := c.getJSON(pageURL, &page); err != nil {
			return nil, fmt.Errorf("collection tracks: %w", err)
		}
		for _, t := range page.Collection {
			tracks = append(tracks, t.toTrack())
		}
		pageURL = page.NextHref
	}
	return tracks, nil
}

// ArtistTracks fetches a followed artist's published tracks.
func (c *Client) ArtistTracks(artistURN string) ([]Track, error) {
	return c.userTracks(artistURN, "tracks")
}

// ArtistLikedTracks fetches the tracks a followed artist has liked.
func (c *Client) ArtistLikedTracks(artistURN string) ([]Track, error) {
	return c.userTracks(artistURN, "likes/tracks")
}

func (c *Client) userTracks(userURN, suffix string) ([]Track, error) {
	pageURL := fmt.Sprintf(
		"%s/users/%s/%s?linked_partitioning=true&limit=200&access=playable,preview,blocked",
		apiBase, url.PathEscape(userURN), suffix,
	)

	var page trackPage
	if err := c.getJSON(pageURL, &page); err != nil {
		return nil, fmt.Errorf("artist tracks: %w", err)
	}

	tracks := make([]Track, 0, len(page.Collection))
	for _, t := range page.Collection {
		tracks = append(tracks, t.toTrack())
	}
	return tracks, nil
}

// SearchTracks queries the catalog for tracks matching q.
func (c *Client) SearchTracks(q string) ([]Track, error) {
	pageURL := fmt.Sprintf(
		"%s/tracks?q=%s&limit=40&access=playable,preview,blocked&linked_partitioning=true",
		apiBase, url.QueryEscape(q),
	)

	var page trackPage
	if err := c.getJSON(pageURL, &page); err != nil {
		return nil, fmt.Errorf("search tracks: %w", err)
	}

	tracks := make([]Track, 0, len(page.Collection))
	for _, t := range page.Collection {
		tracks = append(tracks, t.toTrack())
	}
	return tracks, nil
}

// LikeTrack adds a track to the user's likes.
func (c *Client) LikeTrack(trackID int64) error {
	return c.engage(http.MethodPost, fmt.Sprintf("%s/likes/tracks/%d", apiBase, trackID))
}

// UnlikeTrack removes a track from the user's likes.
func (c *Client) UnlikeTrack(trackID int64) error {
	return c.engage(http.MethodDelete, fmt.Sprintf("%s/likes/tracks/%d", apiBase, trackID))
}

func (c *Client) engage(method, u string) error {
	_ = auth.TryRefresh(c.http, c.creds, c.token)

	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token.Access())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// getJSON performs an authenticated GET and decodes the JSON body,
// refreshing the bearer credential first if it has expired.
func (c *Client) getJSON(u string, out any) error {
	_ = auth.TryRefresh(c.http, c.creds, c.token)

	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token.Access())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
