// Package api is the SoundCloud catalog client: paginated listings of
// the user's likes, playlists, albums, and followed artists, plus search
// and engagement calls.
package api

import (
	"fmt"
	"strconv"
	"strings"
)

// Track is one playable catalog entry. Immutable once constructed,
// except Liked, which the UI keeps in sync with engagement calls.
type Track struct {
	Title         string
	Artists       string
	Duration      string
	DurationMS    int64
	PlaybackCount string
	ArtworkURL    string
	StreamURL     string
	Access        string
	URN           string
	Liked         bool
}

// Playable reports whether the catalog marks this track streamable.
func (t Track) Playable() bool {
	return t.Access == "" || t.Access == "playable"
}

// TrackIDFromURN extracts the numeric id from a track URN like
// "soundcloud:tracks:123456", as the engagement endpoints take ids
// rather than URNs.
func TrackIDFromURN(urn string) (int64, error) {
	idx := strings.LastIndex(urn, ":")
	if idx < 0 || idx == len(urn)-1 {
		return 0, fmt.Errorf("malformed track URN %q", urn)
	}
	id, err := strconv.ParseInt(urn[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed track URN %q: %w", urn, err)
	}
	return id, nil
}

// Playlist is a user playlist listing entry.
type Playlist struct {
	Title      string
	TrackCount string
	Duration   string
	CreatedAt  string
	TracksURI  string
}

// Album is a liked album listing entry.
type Album struct {
	Title       string
	Artists     string
	ReleaseYear string
	Duration    string
	TrackCount  string
	TracksURI   string
}

// Artist is a followed user.
type Artist struct {
	Name string
	URN  string
}

// FormatPlaybackCount renders a play count the way the track list shows
// it (1.23K, 4.56M, ...).
func FormatPlaybackCount(n int64) string {
	switch {
	case n < 1_000:
		return fmt.Sprintf("%d", n)
	case n < 1_000_000:
		return fmt.Sprintf("%.2fK", float64(n)/1_000)
	case n < 1_000_000_000:
		return fmt.Sprintf("%.2fM", float64(n)/1_000_000)
	case n < 1_000_000_000_000:
		return fmt.Sprintf("%.2fB", float64(n)/1_000_000_000)
	default:
		return fmt.Sprintf("%.2fT", float64(n)/1_000_000_000_000)
	}
}

// FormatDuration renders a millisecond duration as MM:SS, or HH:MM:SS
// past the hour.
func FormatDuration(ms int64) string {
	sec := ms / 1000
	hours := sec / 3600
	minutes := (sec % 3600) / 60
	seconds := sec % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
