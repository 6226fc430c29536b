package player

import (
	"testing"
	"time"

	"github.com/Illogicalll/sctui-sub000/internal/hls"
)

func TestSegmentCacheLRUEviction(t *testing.T) {
	c := NewSegmentCache(3)

	c.Insert(0, []byte("a"))
	c.Insert(1, []byte("b"))
	c.Insert(2, []byte("c"))
	c.Insert(3, []byte("d")) // evicts 0

	if _, ok := c.Get(0); ok {
		t.Error("segment 0 should have been evicted")
	}
	for _, idx := range []int{1, 2, 3} {
		if _, ok := c.Get(idx); !ok {
			t.Errorf("segment %d should be cached", idx)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
}

func TestSegmentCacheGetPromotesRecency(t *testing.T) {
	c := NewSegmentCache(3)

	c.Insert(0, []byte("a"))
	c.Insert(1, []byte("b"))
	c.Insert(2, []byte("c"))

	// Touch 0 so 1 becomes the LRU entry.
	if _, ok := c.Get(0); !ok {
		t.Fatal("segment 0 missing")
	}
	c.Insert(3, []byte("d"))

	if _, ok := c.Get(1); ok {
		t.Error("segment 1 should have been evicted")
	}
	if _, ok := c.Get(0); !ok {
		t.Error("segment 0 should have survived after its touch")
	}
}

func TestSegmentCacheReinsertUpdatesValue(t *testing.T) {
	c := NewSegmentCache(2)

	c.Insert(0, []byte("old"))
	c.Insert(0, []byte("new"))
	if c.Len() != 1 {
		t.Fatalf("Len = %d after re-insert, want 1", c.Len())
	}
	if got, _ := c.Get(0); string(got) != "new" {
		t.Errorf("Get(0) = %q, want %q", got, "new")
	}
}

func TestCachedTrackValidity(t *testing.T) {
	manifest := &hls.Manifest{TotalDurationMS: 1}
	c := NewCachedTrack("soundcloud:tracks:1", manifest, nil)

	now := time.Now()
	if !c.ValidFor("soundcloud:tracks:1", now) {
		t.Error("fresh cache should be valid for its own track")
	}
	if c.ValidFor("soundcloud:tracks:2", now) {
		t.Error("cache should not be valid for a different track")
	}
	if c.ValidFor("soundcloud:tracks:1", now.Add(31*time.Minute)) {
		t.Error("cache past the TTL should be invalid")
	}
}
