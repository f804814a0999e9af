// Package acl implements the permission resolution engine: the policy
// cache, the root-to-leaf resolver, access and compliance checks over
// resolved permission sets, and the grant/revoke mutation service.
package acl

import (
	"os"
	"sync"
	"time"

	"github.com/datahaven/aclfs/internal/logger"
	"github.com/datahaven/aclfs/pkg/aclspec"
	"github.com/datahaven/aclfs/pkg/metrics"
)

// Cache holds parsed policy files keyed by directory, invalidated on
// modification time changes.
//
// Every Get stats the directory's policy file and reloads only when the
// on-disk mtime differs from the cached one. This turns a bulk scan of N
// files across a tree of depth D from O(N*D) file reads into O(unique
// directories) reads.
//
// Parse failures are converted here, at the loader boundary, into an
// empty cached rule set: a corrupt policy file contributes zero rules
// (fail-closed) and never blocks resolution of paths governed by sibling
// or ancestor directories. The failure is logged and counted; the entry
// is cached at the broken file's mtime so the document is not re-parsed
// on every query.
//
// Thread Safety:
// All operations are protected by RWMutex. Concurrent Gets of a fresh
// entry take only the read lock.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	metrics metrics.ACLMetrics
}

// cacheEntry is one directory's cached policy state.
type cacheEntry struct {
	ruleSet *aclspec.RuleSet
	modTime time.Time

	// parseFailed marks entries cached empty because the on-disk
	// document was unreadable or malformed.
	parseFailed bool
}

// NewCache creates an empty policy cache. metrics may be nil.
func NewCache(m metrics.ACLMetrics) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		metrics: m,
	}
}

// Get returns the parsed policy file governing dir, loading or reloading
// it when the on-disk file is new or changed.
//
// Returns (nil, nil) when the directory carries no policy file. Never
// returns a parse error; see the type comment for the fail-closed
// contract.
func (c *Cache) Get(dir string) (*aclspec.RuleSet, error) {
	info, err := os.Stat(aclspec.Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			c.remove(dir)
			return nil, nil
		}
		// Unreadable stat is treated like a parse failure: zero rules.
		logger.Warn("Failed to stat policy file in %s: %v", dir, err)
		return nil, nil
	}

	c.mu.RLock()
	entry, ok := c.entries[dir]
	c.mu.RUnlock()

	if ok && entry.modTime.Equal(info.ModTime()) {
		if c.metrics != nil {
			c.metrics.RecordCacheHit()
		}
		return entry.ruleSet, nil
	}

	return c.load(dir, info.ModTime())
}

// load parses the directory's policy file and replaces the cache entry.
func (c *Cache) load(dir string, modTime time.Time) (*aclspec.RuleSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have loaded this entry while we waited for
	// the write lock.
	if entry, ok := c.entries[dir]; ok && entry.modTime.Equal(modTime) {
		if c.metrics != nil {
			c.metrics.RecordCacheHit()
		}
		return entry.ruleSet, nil
	}

	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
	}

	rs, err := aclspec.Load(dir)
	if err != nil {
		logger.Warn("Policy file in %s contributes no rules: %v", dir, err)
		if c.metrics != nil {
			c.metrics.RecordParseFailure(dir)
		}
		rs = aclspec.NewRuleSet(dir)
		rs.ModTime = modTime
		c.entries[dir] = &cacheEntry{ruleSet: rs, modTime: modTime, parseFailed: true}
		c.updateGauge()
		return rs, nil
	}
	if rs == nil {
		// File vanished between stat and read.
		delete(c.entries, dir)
		c.updateGauge()
		return nil, nil
	}

	c.entries[dir] = &cacheEntry{ruleSet: rs, modTime: rs.ModTime}
	c.updateGauge()

	return rs, nil
}

// Invalidate drops the cache entry for a directory. Called by the
// mutation service after a successful rewrite.
func (c *Cache) Invalidate(dir string) {
	c.remove(dir)
}

// Len returns the number of cached policy files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every cache entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.updateGauge()
}

func (c *Cache) remove(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[dir]; ok {
		delete(c.entries, dir)
		c.updateGauge()
	}
}

// updateGauge reports the current entry count. Must be called with c.mu
// held.
func (c *Cache) updateGauge() {
	if c.metrics != nil {
		c.metrics.SetCachedPolicies(len(c.entries))
	}
}
