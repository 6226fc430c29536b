package player

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Illogicalll/sctui-sub000/internal/hls"
)

// A repeated fetch through the cache must not hit the network again.
func TestSegmentThroughCacheHitsNetworkOnce(t *testing.T) {
	var gets atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		w.Write([]byte("segment-bytes"))
	}))
	defer srv.Close()

	manifest := &hls.Manifest{
		Segments:        []hls.Segment{{URL: srv.URL + "/seg0.m4s", DurationMS: 5000}},
		SegmentStartMS:  []int64{0},
		TotalDurationMS: 5000,
	}
	cached := NewCachedTrack("soundcloud:tracks:1", manifest, nil)

	for i := 0; i < 3; i++ {
		bytes, err := segmentThroughCache(srv.Client(), cached, 0, "tok")
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if string(bytes) != "segment-bytes" {
			t.Fatalf("fetch %d returned %q", i, bytes)
		}
	}

	if n := gets.Load(); n != 1 {
		t.Errorf("network GETs = %d, want 1", n)
	}
}

func TestFetchSegmentSendsOAuthScheme(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	if _, err := fetchSegment(srv.Client(), srv.URL, "secret"); err != nil {
		t.Fatalf("fetchSegment: %v", err)
	}
	if gotAuth != "OAuth secret" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "OAuth secret")
	}
}

func TestFetchSegmentStatusFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	if _, err := fetchSegment(srv.Client(), srv.URL, "tok"); err == nil {
		t.Error("expected error on HTTP 401")
	}
}

func TestCombineInitAndSegment(t *testing.T) {
	got := combineInitAndSegment([]byte("init"), []byte("media"))
	if string(got) != "initmedia" {
		t.Errorf("combined = %q", got)
	}

	if got := combineInitAndSegment(nil, []byte("media")); string(got) != "media" {
		t.Errorf("combined without init = %q", got)
	}
}

// Once a pump's generation is superseded the mismatch is permanent: the
// counter only moves forward.
func TestGenerationSupersessionIsPermanent(t *testing.T) {
	var generation atomic.Uint64
	bound := generation.Add(1)

	if generation.Load() != bound {
		t.Fatal("freshly bound generation should match")
	}

	generation.Add(1)
	for i := 0; i < 5; i++ {
		if generation.Load() == bound {
			t.Fatal("superseded generation matched again")
		}
		generation.Add(1)
	}
}

func TestSinkSlotTake(t *testing.T) {
	slot := &sinkSlot{}

	if slot.get() != nil {
		t.Error("empty slot should hold nil")
	}
	if slot.take() != nil {
		t.Error("take on empty slot should return nil")
	}

	s := &Sink{}
	slot.set(s)
	if slot.get() != s {
		t.Error("get should return the installed sink")
	}
	if slot.take() != s {
		t.Error("take should return the installed sink")
	}
	if slot.get() != nil {
		t.Error("slot should be empty after take")
	}
}
