package hls

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"

	"github.com/grafov/m3u8"
	"github.com/rs/zerolog/log"
)

const streamsEndpoint = "https://api.soundcloud.com/tracks/%s/streams"

// maxIndirections bounds master -> media playlist hops.
const maxIndirections = 5

// Resolver errors callers may branch on.
var (
	ErrNoStream      = errors.New("no HLS stream URL available")
	ErrEmptyPlaylist = errors.New("media playlist contained no segments")
	ErrTooManyHops   = errors.New("too many playlist indirections")
)

// streamsResponse lists the bitrate variants the catalog offers for a
// track. Preference order: AAC 160, AAC 96, MP3 128.
type streamsResponse struct {
	HLSAAC160URL string `json:"hls_aac_160_url"`
	HLSAAC96URL  string `json:"hls_aac_96_url"`
	HLSMP3128URL string `json:"hls_mp3_128_url"`
}

func (r streamsResponse) pick() string {
	for _, u := range []string{r.HLSAAC160URL, r.HLSAAC96URL, r.HLSMP3128URL} {
		if u != "" {
			return u
		}
	}
	return ""
}

// Resolver fetches and parses adaptive playlists.
type Resolver struct {
	client *http.Client
}

// NewResolver creates a Resolver sharing the given HTTP client.
func NewResolver(client *http.Client) *Resolver {
	return &Resolver{client: client}
}

// StreamURL queries the streams endpoint for trackURN and picks the
// preferred variant.
func (r *Resolver) StreamURL(trackURN, accessToken string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf(streamsEndpoint, url.PathEscape(trackURN)), nil)
	if err != nil {
		return "", fmt.Errorf("create streams request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch streams endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("streams endpoint HTTP %d", resp.StatusCode)
	}

	var streams streamsResponse
	if err := json.NewDecoder(resp.Body).Decode(&streams); err != nil {
		return "", fmt.Errorf("parse streams response: %w", err)
	}

	chosen := streams.pick()
	if chosen == "" {
		return "", ErrNoStream
	}
	return chosen, nil
}

// Fetch downloads and parses the playlist at playlistURL, following
// master playlists to their highest-bandwidth variant, and builds the
// segment timeline.
func (r *Resolver) Fetch(playlistURL, accessToken string) (*Manifest, error) {
	current, err := url.Parse(playlistURL)
	if err != nil {
		return nil, fmt.Errorf("invalid playlist URL: %w", err)
	}

	for hop := 0; hop < maxIndirections; hop++ {
		content, err := r.download(current.String(), accessToken)
		if err != nil {
			return nil, err
		}

		playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(content), true)
		if err != nil {
			return nil, fmt.Errorf("parse playlist: %w", err)
		}

		switch listType {
		case m3u8.MEDIA:
			return buildManifest(playlist.(*m3u8.MediaPlaylist), current)

		case m3u8.MASTER:
			master := playlist.(*m3u8.MasterPlaylist)
			variant := bestVariant(master)
			if variant == nil {
				return nil, fmt.Errorf("master playlist contained no variants")
			}
			next, err := url.Parse(variant.URI)
			if err != nil {
				return nil, fmt.Errorf("resolve variant URL %q: %w", variant.URI, err)
			}
			current = current.ResolveReference(next)
			log.Debug().Str("variant", current.String()).Uint32("bandwidth", variant.Bandwidth).Msg("following master playlist")

		default:
			return nil, fmt.Errorf("unrecognized playlist type")
		}
	}

	return nil, ErrTooManyHops
}

func (r *Resolver) download(u, accessToken string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create playlist request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("playlist %s HTTP %d", u, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func bestVariant(master *m3u8.MasterPlaylist) *m3u8.Variant {
	var best *m3u8.Variant
	for _, v := range master.Variants {
		if v == nil {
			continue
		}
		if best == nil || v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	return best
}

// buildManifest converts a parsed media playlist into a Manifest,
// resolving segment and init URLs against base and computing cumulative
// start offsets. Durations round to the nearest millisecond and clamp
// to at least 1 ms so the timeline is strictly increasing.
func buildManifest(media *m3u8.MediaPlaylist, base *url.URL) (*Manifest, error) {
	manifest := &Manifest{}

	if media.Map != nil && media.Map.URI != "" {
		initURL, err := resolveRef(base, media.Map.URI)
		if err != nil {
			return nil, fmt.Errorf("resolve init segment URL: %w", err)
		}
		manifest.InitURL = initURL
	}

	var cursor int64
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}

		if manifest.InitURL == "" && seg.Map != nil && seg.Map.URI != "" {
			initURL, err := resolveRef(base, seg.Map.URI)
			if err != nil {
				return nil, fmt.Errorf("resolve init segment URL: %w", err)
			}
			manifest.InitURL = initURL
		}

		segURL, err := resolveRef(base, seg.URI)
		if err != nil {
			return nil, fmt.Errorf("resolve segment URL %q: %w", seg.URI, err)
		}

		durationMS := int64(math.Round(seg.Duration * 1000))
		if durationMS < 1 {
			durationMS = 1
		}

		manifest.SegmentStartMS = append(manifest.SegmentStartMS, cursor)
		cursor += durationMS
		manifest.Segments = append(manifest.Segments, Segment{URL: segURL, DurationMS: durationMS})
	}

	if len(manifest.Segments) == 0 {
		return nil, ErrEmptyPlaylist
	}

	manifest.TotalDurationMS = cursor
	if manifest.TotalDurationMS < 1 {
		manifest.TotalDurationMS = 1
	}
	return manifest, nil
}

func resolveRef(base *url.URL, ref string) (string, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(parsed).String(), nil
}
