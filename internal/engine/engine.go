// Package engine implements the bounded, LRU-governed resident key/value
// set and its disk overflow tier. It is the only package that mutates
// store state; command handlers and the server only ever call through it.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/madhumita77/blinkdb-project/internal/persistence"
	"github.com/madhumita77/blinkdb-project/internal/timingwheel"
)

const (
	// DefaultCapacity is the resident set size used when Config.Capacity
	// is zero.
	DefaultCapacity = 10000
	// DefaultFlushInterval is the background flush period used when
	// Config.FlushInterval is zero.
	DefaultFlushInterval = 10 * time.Second

	wheelResolution = time.Second
)

// Config controls an Engine's capacity and persistence behavior.
type Config struct {
	Capacity      int
	FlushInterval time.Duration
	Log           *persistence.Log
}

// Engine is the bounded resident set plus its disk overflow tier. A zero
// Engine is not usable; construct one with New.
//
// The resident set, the LRU ordering, and the eviction marker set are
// mutated together under mu: every externally visible operation
// (Set/Get/Del) takes the lock for its whole duration, so a GET that
// restores a key from disk is never observed mid-restore by a concurrent
// caller.
type Engine struct {
	mu sync.Mutex

	capacity int
	log      *persistence.Log

	values  map[string]string
	lru     *lruList
	evicted map[string]struct{}
	dirty   bool

	scheduler  *timingwheel.Scheduler
	flushTicks int
	cancel     context.CancelFunc
	done       chan struct{}
}

// New constructs an Engine, loads any existing persistence log into the
// resident set (subject to the same capacity enforcement as Set), and
// starts its background flush worker.
func New(cfg Config) *Engine {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticks := int(interval / wheelResolution)
	if ticks < 1 {
		ticks = 1
	}

	e := &Engine{
		capacity:   capacity,
		log:        cfg.Log,
		values:     make(map[string]string),
		lru:        newLRUList(),
		evicted:    make(map[string]struct{}),
		scheduler:  timingwheel.NewScheduler(wheelResolution),
		flushTicks: ticks,
		done:       make(chan struct{}),
	}

	e.loadFromDisk()

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.scheduleFlush()

	go func() {
		defer close(e.done)
		e.scheduler.Run(ctx)
	}()

	return e
}

// loadFromDisk replays the persistence log into the resident set at
// startup. Records beyond capacity spill straight into the eviction
// marker set, the same as they would via repeated Set calls, so a
// restart never produces a resident set larger than capacity.
func (e *Engine) loadFromDisk() {
	if e.log == nil {
		return
	}
	cur, err := e.log.Scan()
	if err != nil {
		klog.Errorf("engine: scanning persistence log at startup: %v", err)
		return
	}
	defer cur.Close()

	n := 0
	for {
		rec, ok, err := cur.Next()
		if err != nil {
			klog.Errorf("engine: reading persistence log at startup: %v", err)
			return
		}
		if !ok {
			break
		}
		e.insertResident(rec.Key, rec.Value)
		n++
	}
	if n > 0 {
		klog.V(1).Infof("engine: loaded %d records from persistence log", n)
	}
}

// insertResident adds or updates key in the resident set and pushes it to
// the front of the LRU order, evicting the current tail if this pushes
// the resident set over capacity. It does not touch the dirty flag;
// callers decide whether the change needs to be reflected on disk.
func (e *Engine) insertResident(key, value string) {
	delete(e.evicted, key)
	e.values[key] = value
	e.lru.touchFront(key)
	if e.lru.len() <= e.capacity {
		return
	}
	evictKey, ok := e.lru.evictTail()
	if !ok {
		return
	}
	delete(e.values, evictKey)
	e.evicted[evictKey] = struct{}{}
}

// Set inserts or overwrites key, evicting the least-recently-used
// resident key to disk-overflow status if this pushes the resident set
// past capacity. Always succeeds.
func (e *Engine) Set(key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.insertResident(key, value)
	e.dirty = true
}

// Get returns key's value and whether it was found. A resident hit moves
// the key to the front of the LRU order. A key marked evicted triggers a
// synchronous disk lookup: on a hit the key is reinserted into the
// resident set (which may itself evict a different key); on a miss the
// marker is stale and is dropped, and Get reports absent. Get always
// takes the engine's single mutex for its full duration — there is no
// separate read-mode path — because a resident miss on an evicted key
// always needs to mutate state (the disk-restore or marker-drop), so the
// usual reader/writer split would buy nothing but an upgrade dance.
func (e *Engine) Get(key string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if v, ok := e.values[key]; ok {
		e.lru.touchFront(key)
		return v, true
	}

	if _, marked := e.evicted[key]; !marked {
		return "", false
	}

	if e.log == nil {
		delete(e.evicted, key)
		return "", false
	}
	value, found, err := e.log.Lookup(key)
	if err != nil {
		klog.Errorf("engine: disk restore lookup for %q failed: %v", key, err)
		return "", false
	}
	if !found {
		delete(e.evicted, key)
		return "", false
	}
	e.insertResident(key, value)
	return value, true
}

// Del removes key from the resident set and scrubs any eviction marker
// for it, so a subsequent Get reports absent regardless of what the
// persistence log still contains. Returns whether key was known (either
// resident or only marked evicted).
func (e *Engine) Del(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, wasResident := e.values[key]
	if wasResident {
		delete(e.values, key)
		e.lru.remove(key)
	}
	_, wasEvicted := e.evicted[key]
	if wasEvicted {
		delete(e.evicted, key)
	}

	if !wasResident && !wasEvicted {
		return false
	}
	e.dirty = true
	return true
}

// ClearPersistence deletes the backing persistence log entirely. It does
// not touch the resident set or the eviction marker set, so keys that
// are still resident remain visible; keys that were only on disk become
// unreachable, and stale eviction markers for them will self-correct the
// next time they're looked up.
func (e *Engine) ClearPersistence() error {
	if e.log == nil {
		return nil
	}
	return e.log.Remove()
}

// scheduleFlush arranges for flushIfDirty to run after flushTicks ticks,
// and for itself to be rescheduled from within that callback. It must
// only be called from the scheduler's own goroutine (or, as here, before
// that goroutine starts), matching timingwheel.Scheduler's concurrency
// contract.
func (e *Engine) scheduleFlush() {
	e.scheduler.Schedule(e.flushTicks, func() {
		e.flushIfDirty()
		e.scheduleFlush()
	})
}

// flushIfDirty rewrites the persistence log from the current resident
// set if anything has changed since the last successful flush. The
// dirty flag is cleared at snapshot time, under the lock, rather than
// after the disk write completes — any mutation that lands while the
// write is in flight sets dirty again correctly, and a failed write
// re-marks dirty so the next tick retries. The disk write itself runs
// without the lock held.
func (e *Engine) flushIfDirty() {
	if e.log == nil {
		return
	}

	e.mu.Lock()
	if !e.dirty {
		e.mu.Unlock()
		return
	}
	snapshot := make([]persistence.Record, 0, len(e.values))
	for k, v := range e.values {
		snapshot = append(snapshot, persistence.Record{Key: k, Value: v})
	}
	e.dirty = false
	e.mu.Unlock()

	if err := e.log.Rewrite(snapshot); err != nil {
		klog.Errorf("engine: flush failed, will retry next tick: %v", err)
		e.mu.Lock()
		e.dirty = true
		e.mu.Unlock()
	}
}

// Close stops the background flush worker and, if the resident set has
// unflushed changes, performs one last synchronous flush before
// returning.
func (e *Engine) Close() error {
	e.cancel()
	<-e.done
	e.scheduler.Wait()

	e.mu.Lock()
	dirty := e.dirty
	var snapshot []persistence.Record
	if dirty {
		snapshot = make([]persistence.Record, 0, len(e.values))
		for k, v := range e.values {
			snapshot = append(snapshot, persistence.Record{Key: k, Value: v})
		}
		e.dirty = false
	}
	e.mu.Unlock()

	if !dirty || e.log == nil {
		return nil
	}
	if err := e.log.Rewrite(snapshot); err != nil {
		return fmt.Errorf("engine: final flush on close: %w", err)
	}
	return nil
}

// Len reports the current resident set size. Used by tests.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.values)
}
