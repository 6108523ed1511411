package session

import "sync"

// Store holds the client's current session and fans each published revision
// out to watchers. Publish takes ownership of the value it is handed; callers
// must not mutate a session after publishing it.
type Store struct {
	mu        sync.Mutex
	current   *Session
	watchers  map[uint64]func(*Session)
	nextWatch uint64
}

func NewStore(initial *Session) *Store {
	return &Store{
		current:  initial,
		watchers: make(map[uint64]func(*Session)),
	}
}

// Current returns a deep copy so callers can read freely without racing
// a concurrent Publish.
func (st *Store) Current() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.current.Clone()
}

// Version reports the current session version, or -1 when no session is
// loaded yet.
func (st *Store) Version() int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.current == nil {
		return -1
	}
	return st.current.Version
}

// Publish replaces the current session and notifies watchers in registration
// order. Watchers receive their own copy.
func (st *Store) Publish(next *Session) {
	st.mu.Lock()
	st.current = next
	watchers := make([]func(*Session), 0, len(st.watchers))
	for _, cb := range st.watchers {
		watchers = append(watchers, cb)
	}
	st.mu.Unlock()

	for _, cb := range watchers {
		cb(next.Clone())
	}
}

// Watch registers a callback invoked on every publish and returns a cancel
// function. The callback runs on the publisher's goroutine.
func (st *Store) Watch(cb func(*Session)) func() {
	st.mu.Lock()
	st.nextWatch++
	id := st.nextWatch
	st.watchers[id] = cb
	st.mu.Unlock()

	return func() {
		st.mu.Lock()
		delete(st.watchers, id)
		st.mu.Unlock()
	}
}
