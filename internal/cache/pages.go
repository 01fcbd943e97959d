package cache

import (
	"fmt"
	"sync"
	"time"

	"contas/internal/core"
)

// PageEntry is one cached page of a bill's expenses. VersionTag is the bill
// version the page was read at.
type PageEntry struct {
	Results    []core.Expense
	TotalPages int
	VersionTag uint64
}

// PageCache caches expense pages per (bill, page). Every write to a bill
// must call InvalidateBill so readers never see a stale page.
type PageCache struct {
	entries *LRUCache[PageEntry]

	mu       sync.Mutex
	versions map[int64]uint64
}

func NewPageCache(maxSize int, ttl time.Duration) *PageCache {
	return &PageCache{
		entries:  NewLRUCache[PageEntry](maxSize, ttl),
		versions: make(map[int64]uint64),
	}
}

func pageKey(billID int64, page int) string {
	return fmt.Sprintf("%d:%d", billID, page)
}

func billPrefix(billID int64) string {
	return fmt.Sprintf("%d:", billID)
}

// Version returns the current version of a bill's pages.
func (c *PageCache) Version(billID int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[billID]
}

// Get returns the page only when it was stored at the bill's current version.
func (c *PageCache) Get(billID int64, page int) (PageEntry, bool) {
	entry, ok := c.entries.Get(pageKey(billID, page))
	if !ok || entry.VersionTag != c.Version(billID) {
		return PageEntry{}, false
	}
	return entry, true
}

// Set stores a page read at version. A page read before the latest
// invalidation is discarded.
func (c *PageCache) Set(billID int64, page int, entry PageEntry) {
	if entry.VersionTag != c.Version(billID) {
		return
	}
	c.entries.Set(pageKey(billID, page), entry)
}

// InvalidateBill bumps the bill version and drops its pages.
func (c *PageCache) InvalidateBill(billID int64) uint64 {
	c.mu.Lock()
	c.versions[billID]++
	v := c.versions[billID]
	c.mu.Unlock()
	c.entries.DeletePrefix(billPrefix(billID))
	return v
}

func (c *PageCache) CleanExpired() int { return c.entries.CleanExpired() }

func (c *PageCache) Size() int { return c.entries.Size() }
