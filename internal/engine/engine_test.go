package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhumita77/blinkdb-project/internal/persistence"
)

func newTestEngine(t *testing.T, capacity int) *Engine {
	dir := t.TempDir()
	log := persistence.NewLog(filepath.Join(dir, "flush_data.txt"))
	e := New(Config{Capacity: capacity, Log: log})
	t.Cleanup(func() { require.NoError(t, e.Close()) })
	return e
}

func TestSetAndGet(t *testing.T) {
	e := newTestEngine(t, 10)

	e.Set("foo", "bar")
	v, ok := e.Get("foo")
	require.True(t, ok)
	assert.Equal(t, "bar", v)

	_, ok = e.Get("missing")
	assert.False(t, ok)
}

func TestSetOverwritesExistingKey(t *testing.T) {
	e := newTestEngine(t, 10)

	e.Set("foo", "bar")
	e.Set("foo", "baz")

	v, ok := e.Get("foo")
	require.True(t, ok)
	assert.Equal(t, "baz", v)
	assert.Equal(t, 1, e.Len())
}

// TestCapacityEviction covers inserting one key past capacity, which
// must evict the least-recently-used resident key.
func TestCapacityEviction(t *testing.T) {
	e := newTestEngine(t, 3)

	e.Set("a", "1")
	e.Set("b", "2")
	e.Set("c", "3")
	e.Set("d", "4")

	assert.Equal(t, 3, e.Len())
	_, resident := e.values["a"]
	assert.False(t, resident, "a should have been evicted")
	_, marked := e.evicted["a"]
	assert.True(t, marked, "a should be marked evicted")
}

// TestGetEvictedKeyMissingFromDiskReturnsAbsent covers the weaker half of
// scenario 3: since eviction never forces a synchronous flush, a key
// evicted before any flush has a stale marker and GET reports absent.
func TestGetEvictedKeyMissingFromDiskReturnsAbsent(t *testing.T) {
	e := newTestEngine(t, 3)

	e.Set("a", "1")
	e.Set("b", "2")
	e.Set("c", "3")
	e.Set("d", "4") // evicts a; a was never flushed

	_, ok := e.Get("a")
	assert.False(t, ok)
	_, marked := e.evicted["a"]
	assert.False(t, marked, "stale eviction marker should have been dropped")
}

// TestGetEvictedKeyRestoresFromDisk covers the other half of scenario 3:
// if a key was already on disk at the moment it was evicted, GET finds
// it there and reinstates it as resident.
func TestGetEvictedKeyRestoresFromDisk(t *testing.T) {
	e := newTestEngine(t, 3)

	e.Set("a", "1")
	e.Set("b", "2")
	e.Set("c", "3")
	e.flushIfDirty() // a, b, c now durable on disk

	e.Set("d", "4") // evicts a, which is still findable on disk
	_, marked := e.evicted["a"]
	require.True(t, marked)

	v, ok := e.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, 3, e.Len())
	_, stillMarked := e.evicted["a"]
	assert.False(t, stillMarked)
}

// TestDelScrubsEvictionMarker covers the documented fix for the
// original's bug where deleting an evicted key left its marker in
// place, making it resurrectable from disk after deletion.
func TestDelScrubsEvictionMarker(t *testing.T) {
	e := newTestEngine(t, 3)

	e.Set("a", "1")
	e.Set("b", "2")
	e.Set("c", "3")
	e.flushIfDirty()
	e.Set("d", "4") // evicts a
	_, marked := e.evicted["a"]
	require.True(t, marked)

	deleted := e.Del("a")
	assert.True(t, deleted)

	_, ok := e.Get("a")
	assert.False(t, ok, "a must stay absent even though its value is still on disk")
}

func TestDelResidentKey(t *testing.T) {
	e := newTestEngine(t, 10)
	e.Set("foo", "bar")

	assert.True(t, e.Del("foo"))
	_, ok := e.Get("foo")
	assert.False(t, ok)
}

func TestDelUnknownKeyReturnsFalse(t *testing.T) {
	e := newTestEngine(t, 10)
	assert.False(t, e.Del("never-set"))
}

func TestFlushWritesResidentSetAndClearsDirty(t *testing.T) {
	e := newTestEngine(t, 10)
	e.Set("foo", "bar")
	require.True(t, e.dirty)

	e.flushIfDirty()
	assert.False(t, e.dirty)

	value, found, err := e.log.Lookup("foo")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "bar", value)
}

func TestFlushNoOpWhenNotDirty(t *testing.T) {
	e := newTestEngine(t, 10)
	e.flushIfDirty() // nothing set, nothing to do
	assert.False(t, e.dirty)
}

// TestLoadFromDiskRespectsCapacity covers spec invariant 1: a restart
// must never produce a resident set larger than capacity, even when the
// persistence log on disk holds more records than that.
func TestLoadFromDiskRespectsCapacity(t *testing.T) {
	dir := t.TempDir()
	log := persistence.NewLog(filepath.Join(dir, "flush_data.txt"))
	require.NoError(t, log.Rewrite([]persistence.Record{
		{Key: "a", Value: "1"},
		{Key: "b", Value: "2"},
		{Key: "c", Value: "3"},
	}))

	e := New(Config{Capacity: 2, Log: log})
	defer e.Close()

	assert.Equal(t, 2, e.Len())
}

// TestCloseFlushesDirtyState covers spec property 4: a mutation followed
// by Close and a fresh Engine over the same log must see the mutation.
func TestCloseFlushesDirtyState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flush_data.txt")

	log1 := persistence.NewLog(path)
	e1 := New(Config{Capacity: 10, Log: log1})
	e1.Set("foo", "bar")
	require.NoError(t, e1.Close())

	log2 := persistence.NewLog(path)
	e2 := New(Config{Capacity: 10, Log: log2})
	defer e2.Close()

	v, ok := e2.Get("foo")
	require.True(t, ok)
	assert.Equal(t, "bar", v)
}

func TestClearPersistenceRemovesLogButKeepsResidentKeys(t *testing.T) {
	e := newTestEngine(t, 10)
	e.Set("foo", "bar")
	e.flushIfDirty()

	require.NoError(t, e.ClearPersistence())

	v, ok := e.Get("foo")
	assert.True(t, ok, "resident key survives clearing the persistence log")
	assert.Equal(t, "bar", v)

	_, found, err := e.log.Lookup("foo")
	require.NoError(t, err)
	assert.False(t, found)
}
