package hlscache

import "sync"

// inflightEntry is the one-shot completion primitive a waiter blocks
// on: a result slot plus a close-to-broadcast channel (spec.md §8
// "map segmentKey -> completion primitive").
type inflightEntry struct {
	done chan struct{}
	err  error
}

func newInflightEntry() *inflightEntry {
	return &inflightEntry{done: make(chan struct{})}
}

func (e *inflightEntry) finish(err error) {
	e.err = err
	close(e.done)
}

// inflightRegistry serialises concurrent generations of the same key
// to at most one in-progress run. Insertion, lookup and removal are
// atomic with respect to each other via a single mutex (spec.md §8).
type inflightRegistry struct {
	mu      sync.Mutex
	entries map[string]*inflightEntry
}

func newInflightRegistry() *inflightRegistry {
	return &inflightRegistry{entries: make(map[string]*inflightEntry)}
}

// start either returns an existing in-flight entry to wait on
// (owner=false means "already running, don't generate"), or inserts and
// returns a fresh entry owned by the caller (owner=true means "you
// generate, then call finish").
func (r *inflightRegistry) start(key string) (entry *inflightEntry, owner bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[key]; ok {
		return existing, false
	}

	entry = newInflightEntry()
	r.entries[key] = entry
	return entry, true
}

// finish removes the key's entry and wakes any waiters. Only the
// goroutine that owns the entry (received owner=true from start) may
// call this.
func (r *inflightRegistry) finish(key string, entry *inflightEntry, err error) {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()

	entry.finish(err)
}
