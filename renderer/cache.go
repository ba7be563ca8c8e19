package renderer

import (
	"container/list"
	"sync/atomic"

	"github.com/hnimtadd/termcore/terminal"
)

// MinCacheEntries floors the cache capacity so small windows still
// keep a useful amount of scrollback rows warm.
const MinCacheEntries = 80

// Key identifies one cached row rendering. RowID is the grid's stable
// per-row identity, re-minted when a row is recycled for new content.
// SelSig folds the selection's shape on the row into the key, so a
// selected and an unselected rendering of the same row coexist and
// reverting a selection re-uses the old entry. The screen type keeps
// primary and alternate renderings apart across screen switches.
type Key struct {
	Screen terminal.ScreenType
	RowID  uint64
	SelSig uint64
}

type entry struct {
	key      Key
	vertices []Vertex
}

// Stats is a point-in-time counter snapshot.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
}

// Cache is an LRU of row vertex lists. It is not safe for concurrent
// use; the renderer owns it and touches it only during a frame build.
type Cache struct {
	entries  map[Key]*list.Element
	lru      *list.List
	capacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func NewCache(visibleRows int) *Cache {
	c := &Cache{
		entries: make(map[Key]*list.Element),
		lru:     list.New(),
	}
	c.Resize(visibleRows)
	return c
}

// Resize adjusts capacity to a new viewport height and evicts any
// overflow, oldest first.
func (c *Cache) Resize(visibleRows int) {
	c.capacity = max(MinCacheEntries, visibleRows*10)
	c.evictOverflow()
}

// Capacity returns the current entry limit.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Get returns the cached vertices for key and marks the entry as most
// recently used.
func (c *Cache) Get(key Key) ([]Vertex, bool) {
	el, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.lru.MoveToFront(el)
	c.hits.Add(1)
	return el.Value.(*entry).vertices, true
}

// Put inserts or replaces the vertices for key.
func (c *Cache) Put(key Key, vertices []Vertex) {
	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).vertices = vertices
		c.lru.MoveToFront(el)
		return
	}
	c.entries[key] = c.lru.PushFront(&entry{key: key, vertices: vertices})
	c.evictOverflow()
}

// Invalidate drops the entry for key if present.
func (c *Cache) Invalidate(key Key) {
	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
}

// Clear drops every entry. Counters survive.
func (c *Cache) Clear() {
	clear(c.entries)
	c.lru.Init()
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   len(c.entries),
	}
}

func (c *Cache) evictOverflow() {
	for len(c.entries) > c.capacity {
		oldest := c.lru.Back()
		if oldest == nil {
			return
		}
		c.removeElement(oldest)
		c.evictions.Add(1)
	}
}

func (c *Cache) removeElement(el *list.Element) {
	ent := el.Value.(*entry)
	delete(c.entries, ent.key)
	c.lru.Remove(el)
	ent.vertices = nil
}
