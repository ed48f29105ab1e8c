package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHelloAndIsPresent(t *testing.T) {
	r := New(10 * time.Minute)
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	r.RecordHello("hq", "alice", "Alice", now)

	assert.True(t, r.IsPresent("hq", "alice", now))
	assert.True(t, r.IsPresent("hq", "alice", now.Add(10*time.Minute)), "presence at exactly the TTL boundary still counts")
	assert.False(t, r.IsPresent("hq", "alice", now.Add(10*time.Minute+time.Second)))
	assert.False(t, r.IsPresent("hq", "bob", now))
	assert.False(t, r.IsPresent("branch", "alice", now), "presence is per site")
}

func TestRecordHelloRefreshesWindow(t *testing.T) {
	r := New(10 * time.Minute)
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	r.RecordHello("hq", "alice", "Alice", now)
	r.RecordHello("hq", "alice", "Alice", now.Add(8*time.Minute))

	assert.True(t, r.IsPresent("hq", "alice", now.Add(15*time.Minute)))
}

func TestRecordHelloLastWriteWins(t *testing.T) {
	r := New(10 * time.Minute)
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	r.RecordHello("hq", "alice", "Alice", now.Add(time.Minute))
	// A hello carrying an older timestamp must not move LastSeen backwards.
	r.RecordHello("hq", "alice", "Alice", now)

	assert.True(t, r.IsPresent("hq", "alice", now.Add(11*time.Minute)))
}

func TestListPresent(t *testing.T) {
	r := New(10 * time.Minute)
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	r.RecordHello("hq", "alice", "Alice", now)
	r.RecordHello("hq", "bob", "Bob", now.Add(-20*time.Minute))
	r.RecordHello("branch", "carol", "Carol", now)

	present := r.ListPresent("hq", now)
	assert.ElementsMatch(t, []string{"alice"}, present)
}

func TestPurgeStale(t *testing.T) {
	r := New(10 * time.Minute)
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	r.RecordHello("hq", "alice", "Alice", now)
	r.RecordHello("hq", "bob", "Bob", now.Add(-30*time.Minute))
	r.RecordHello("branch", "carol", "Carol", now.Add(-30*time.Minute))

	removed := r.PurgeStale(now)
	require.Len(t, removed, 2)
	assert.ElementsMatch(t, []Key{
		{SiteID: "hq", UserID: "bob"},
		{SiteID: "branch", UserID: "carol"},
	}, removed)

	assert.True(t, r.IsPresent("hq", "alice", now))
	assert.Empty(t, r.PurgeStale(now), "second purge finds nothing")
}

func TestConcurrentHellos(t *testing.T) {
	r := New(10 * time.Minute)
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i)
			for j := 0; j < 100; j++ {
				r.RecordHello("hq", user, user, now.Add(time.Duration(j)*time.Second))
				r.IsPresent("hq", user, now)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.ListPresent("hq", now), 50)
}
