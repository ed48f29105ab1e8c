// Package registry holds the live presence state: who was last seen where,
// and when. Entries expire after a configurable TTL; absence is only ever
// established by expiry, never by an explicit sign-off.
package registry

import (
	"hash/fnv"
	"sync"
	"time"
)

// shardCount spreads keys over independent locks so hellos for unrelated
// sites and users never contend. Must be a power of two.
const shardCount = 32

// Key identifies a presence entry. One entry per user per site.
type Key struct {
	SiteID string
	UserID string
}

// Entry records the latest hello for a key.
type Entry struct {
	DisplayName string
	LastSeen    time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[Key]Entry
}

// Registry is a sharded, concurrency-safe map of live presence entries.
type Registry struct {
	ttl    time.Duration
	shards [shardCount]*shard
}

// New creates a Registry with the given TTL.
func New(ttl time.Duration) *Registry {
	r := &Registry{ttl: ttl}
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[Key]Entry)}
	}
	return r
}

// TTL returns the configured presence window.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

func (r *Registry) shardFor(key Key) *shard {
	h := fnv.New32a()
	h.Write([]byte(key.SiteID))
	h.Write([]byte{0})
	h.Write([]byte(key.UserID))
	return r.shards[h.Sum32()&(shardCount-1)]
}

// RecordHello upserts the entry for (site, user). Always succeeds;
// concurrent hellos for the same key resolve last-write-wins on LastSeen.
func (r *Registry) RecordHello(siteID, userID, displayName string, now time.Time) {
	key := Key{SiteID: siteID, UserID: userID}
	s := r.shardFor(key)

	s.mu.Lock()
	current, exists := s.entries[key]
	if !exists || now.After(current.LastSeen) {
		s.entries[key] = Entry{DisplayName: displayName, LastSeen: now}
	}
	s.mu.Unlock()
}

// IsPresent reports whether the user counts as present at the site: an entry
// exists and its last hello is within the TTL.
func (r *Registry) IsPresent(siteID, userID string, now time.Time) bool {
	key := Key{SiteID: siteID, UserID: userID}
	s := r.shardFor(key)

	s.mu.RLock()
	entry, exists := s.entries[key]
	s.mu.RUnlock()

	return exists && now.Sub(entry.LastSeen) <= r.ttl
}

// ListPresent returns the ids of all users currently present at the site.
func (r *Registry) ListPresent(siteID string, now time.Time) []string {
	var present []string
	for _, s := range r.shards {
		s.mu.RLock()
		for key, entry := range s.entries {
			if key.SiteID == siteID && now.Sub(entry.LastSeen) <= r.ttl {
				present = append(present, key.UserID)
			}
		}
		s.mu.RUnlock()
	}
	return present
}

// PurgeStale deletes all entries past the TTL and returns the removed keys
// so the caller can notify affected sites.
func (r *Registry) PurgeStale(now time.Time) []Key {
	var removed []Key
	for _, s := range r.shards {
		s.mu.Lock()
		for key, entry := range s.entries {
			if now.Sub(entry.LastSeen) > r.ttl {
				delete(s.entries, key)
				removed = append(removed, key)
			}
		}
		s.mu.Unlock()
	}
	return removed
}
