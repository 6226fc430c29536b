package hls

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStreamsResponsePreference(t *testing.T) {
	tests := []struct {
		name string
		resp streamsResponse
		want string
	}{
		{"aac160 preferred", streamsResponse{"https://x/160", "https://x/96", "https://x/128"}, "https://x/160"},
		{"aac96 fallback", streamsResponse{"", "https://x/96", "https://x/128"}, "https://x/96"},
		{"mp3 last", streamsResponse{"", "", "https://x/128"}, "https://x/128"},
		{"none", streamsResponse{}, ""},
	}

	for _, tt := range tests {
		if got := tt.resp.pick(); got != tt.want {
			t.Errorf("%s: pick() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

const mediaPlaylist = `#EXTM3U
#EXT-X-VERSION:7
#EXT-X-TARGETDURATION:5
#EXT-X-MAP:URI="init.mp4"
#EXTINF:4.9996,
seg0.m4s
#EXTINF:5.0004,
seg1.m4s
#EXTINF:0.0001,
seg2.m4s
#EXT-X-ENDLIST
`

func TestFetchMediaPlaylist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, mediaPlaylist)
	}))
	defer srv.Close()

	r := NewResolver(srv.Client())
	m, err := r.Fetch(srv.URL+"/playlist.m3u8", "tok")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(m.Segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(m.Segments))
	}
	if m.InitURL != srv.URL+"/init.mp4" {
		t.Errorf("InitURL = %q", m.InitURL)
	}
	if m.Segments[0].URL != srv.URL+"/seg0.m4s" {
		t.Errorf("segment URL = %q", m.Segments[0].URL)
	}

	// 4.9996s rounds to 5000ms, 5.0004s to 5000ms, 0.0001s clamps to 1ms
	wantDur := []int64{5000, 5000, 1}
	wantStart := []int64{0, 5000, 10000}
	for i := range m.Segments {
		if m.Segments[i].DurationMS != wantDur[i] {
			t.Errorf("segment %d duration = %d, want %d", i, m.Segments[i].DurationMS, wantDur[i])
		}
		if m.SegmentStartMS[i] != wantStart[i] {
			t.Errorf("segment %d start = %d, want %d", i, m.SegmentStartMS[i], wantStart[i])
		}
	}
	if m.TotalDurationMS != 10001 {
		t.Errorf("TotalDurationMS = %d, want 10001", m.TotalDurationMS)
	}
}

func TestFetchFollowsMasterToHighestBandwidth(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=96000,CODECS="mp4a.40.2"
low/media.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=160000,CODECS="mp4a.40.2"
high/media.m3u8
`)
	})
	mux.HandleFunc("/high/media.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-TARGETDURATION:5\n#EXTINF:5.0,\nseg0.m4s\n#EXT-X-ENDLIST\n")
	})
	mux.HandleFunc("/low/media.m3u8", func(w http.ResponseWriter, r *http.Request) {
		t.Error("low-bandwidth variant should not be fetched")
	})

	r := NewResolver(srv.Client())
	m, err := r.Fetch(srv.URL+"/master.m3u8", "tok")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if m.Segments[0].URL != srv.URL+"/high/seg0.m4s" {
		t.Errorf("segment URL = %q, want high variant", m.Segments[0].URL)
	}
}

func TestFetchBoundsIndirections(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// A master playlist pointing at itself never reaches a media
	// playlist.
	mux.HandleFunc("/loop.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1000\nloop.m3u8\n")
	})

	r := NewResolver(srv.Client())
	if _, err := r.Fetch(srv.URL+"/loop.m3u8", "tok"); !errors.Is(err, ErrTooManyHops) {
		t.Errorf("err = %v, want ErrTooManyHops", err)
	}
}

func TestFetchEmptyPlaylist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-TARGETDURATION:5\n#EXT-X-ENDLIST\n")
	}))
	defer srv.Close()

	r := NewResolver(srv.Client())
	if _, err := r.Fetch(srv.URL+"/empty.m3u8", "tok"); !errors.Is(err, ErrEmptyPlaylist) {
		t.Errorf("err = %v, want ErrEmptyPlaylist", err)
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	r := NewResolver(srv.Client())
	if _, err := r.Fetch(srv.URL+"/x.m3u8", "tok"); err == nil {
		t.Error("expected error on HTTP 403")
	}
}
