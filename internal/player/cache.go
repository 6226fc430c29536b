package player

import (
	"container/list"
	"sync"
	"time"

	"github.com/Illogicalll/sctui-sub000/internal/config"
	"github.com/Illogicalll/sctui-sub000/internal/hls"
)

// SegmentCache is a bounded LRU mapping segment index -> immutable
// bytes. Both lookups and insertions refresh recency; eviction removes
// the least recently touched index.
type SegmentCache struct {
	cap   int
	order *list.List            // front = least recently used
	items map[int]*list.Element // index -> order element
	data  map[int][]byte
}

// NewSegmentCache creates a cache holding at most cap segments.
func NewSegmentCache(cap int) *SegmentCache {
	if cap < 1 {
		cap = 1
	}
	return &SegmentCache{
		cap:   cap,
		order: list.New(),
		items: make(map[int]*list.Element),
		data:  make(map[int][]byte),
	}
}

// Get returns the cached bytes for idx, promoting its recency.
func (c *SegmentCache) Get(idx int) ([]byte, bool) {
	el, ok := c.items[idx]
	if !ok {
		return nil, false
	}
	c.order.MoveToBack(el)
	return c.data[idx], true
}

// Insert stores bytes for idx, promoting recency and evicting the
// least-recently-used entry while over capacity.
func (c *SegmentCache) Insert(idx int, bytes []byte) {
	if el, ok := c.items[idx]; ok {
		c.order.MoveToBack(el)
		c.data[idx] = bytes
		return
	}

	c.items[idx] = c.order.PushBack(idx)
	c.data[idx] = bytes

	for c.order.Len() > c.cap {
		front := c.order.Front()
		evict := front.Value.(int)
		c.order.Remove(front)
		delete(c.items, evict)
		delete(c.data, evict)
	}
}

// Len returns the number of cached segments.
func (c *SegmentCache) Len() int {
	return c.order.Len()
}

// CachedTrack bundles everything needed to stream one track: its
// manifest, init bytes, and segment cache. Valid for the same track for
// ManifestTTL after it was fetched.
type CachedTrack struct {
	URN       string
	FetchedAt time.Time
	Manifest  *hls.Manifest
	InitBytes []byte

	mu       sync.Mutex
	segments *SegmentCache
}

// NewCachedTrack builds a CachedTrack with an empty segment cache.
func NewCachedTrack(urn string, manifest *hls.Manifest, initBytes []byte) *CachedTrack {
	return &CachedTrack{
		URN:       urn,
		FetchedAt: time.Now(),
		Manifest:  manifest,
		InitBytes: initBytes,
		segments:  NewSegmentCache(config.SegmentCacheCap),
	}
}

// ValidFor reports whether this cache entry can serve urn at time now.
func (c *CachedTrack) ValidFor(urn string, now time.Time) bool {
	return c.URN == urn && now.Sub(c.FetchedAt) < config.ManifestTTL
}

// GetSegment returns cached segment bytes, if present.
func (c *CachedTrack) GetSegment(idx int) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.segments.Get(idx)
}

// PutSegment caches segment bytes.
func (c *CachedTrack) PutSegment(idx int, bytes []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.segments.Insert(idx, bytes)
}
