package parango

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/parangodev/parango/content"
)

// EntryCache is an in-memory cache of the indexed entries of every
// collection, with TTL.
type EntryCache struct {
	mu      sync.RWMutex
	entries map[content.Collection][]content.Entry
	tags    map[content.Collection][]string
	fetched time.Time
	ttl     time.Duration
	store   *Store
}

// NewEntryCache creates an EntryCache backed by the given Store.
func NewEntryCache(s *Store, ttl time.Duration) *EntryCache {
	return &EntryCache{store: s, ttl: ttl}
}

func (c *EntryCache) valid() bool {
	return c.entries != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *EntryCache) Invalidate() {
	c.mu.Lock()
	c.entries = nil
	c.tags = nil
	c.mu.Unlock()
}

func (c *EntryCache) load() error {
	if c.valid() {
		return nil
	}
	entries := make(map[content.Collection][]content.Entry, len(content.Collections))
	tags := make(map[content.Collection][]string, len(content.Collections))
	for _, coll := range content.Collections {
		list, err := c.store.ListEntries(coll, "")
		if err != nil {
			return err
		}
		t, err := c.store.ListTags(coll)
		if err != nil {
			return err
		}
		entries[coll] = list
		tags[coll] = t
	}
	c.entries = entries
	c.tags = tags
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns the cached maps after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *EntryCache) ensureLoaded() (map[content.Collection][]content.Entry, map[content.Collection][]string, error) {
	c.mu.RLock()
	if c.valid() {
		entries, tags := c.entries, c.tags
		c.mu.RUnlock()
		return entries, tags, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return nil, nil, err
	}
	return c.entries, c.tags, nil
}

// List returns the entries of coll, optionally filtered by tag. The
// returned slice is shared; callers must not modify it.
func (c *EntryCache) List(coll content.Collection, tag string) ([]content.Entry, error) {
	entries, _, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	list := entries[coll]
	if tag == "" {
		return list, nil
	}
	normalized := normalizeTag(tag)
	var filtered []content.Entry
	for _, e := range list {
		for _, t := range e.Tags {
			if normalizeTag(t) == normalized {
				filtered = append(filtered, e)
				break
			}
		}
	}
	return filtered, nil
}

// Tags returns all unique tags of coll.
func (c *EntryCache) Tags(coll content.Collection) ([]string, error) {
	_, tags, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	return tags[coll], nil
}

// Get returns a single entry of coll by slug, or ErrNotFound.
func (c *EntryCache) Get(coll content.Collection, slug string) (content.Entry, error) {
	entries, _, err := c.ensureLoaded()
	if err != nil {
		return content.Entry{}, err
	}
	for _, e := range entries[coll] {
		if e.Slug == slug {
			return e, nil
		}
	}
	return content.Entry{}, ErrNotFound
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

func uniqueSorted(vals []string) []string {
	set := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		if v = normalizeTag(v); v != "" {
			set[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
