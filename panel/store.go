package panel

import (
	"sync"

	"github.com/google/uuid"
)

// State is what a view renders
type State struct {
	Streams        []Stream
	StreamsLoaded  bool
	ActiveStream   string
	Settings       Settings
	SettingsLoaded bool
	VideoRes       string
	WatchURL       string
	// Last fetch, save or parse failure. Cleared by the next successful save
	Err error
}

func (state State) clone() State {
	cp := state
	if state.Streams != nil {
		cp.Streams = make([]Stream, len(state.Streams))
		copy(cp.Streams, state.Streams)
	}
	return cp
}

// Store holds the view state and notifies subscribers about every change.
// Every subscriber sees snapshots in update order and ends up with the latest one
type Store struct {
	mu          sync.RWMutex
	state       State
	version     uint64
	subscribers map[uuid.UUID]*subscriber
}

// NewStore returns empty store
func NewStore() *Store {
	return &Store{
		subscribers: make(map[uuid.UUID]*subscriber),
	}
}

// State returns snapshot of current state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Update applies fn to the state and then notifies subscribers with the new snapshot.
// When a subscriber is still busy with an older snapshot, the new one is handed over to
// the goroutine delivering it and Update returns without waiting
func (s *Store) Update(fn func(state *State)) {
	s.mu.Lock()
	fn(&s.state)
	s.version++
	version := s.version
	snapshot := s.state.clone()
	subscribers := make([]*subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subscribers = append(subscribers, sub)
	}
	s.mu.Unlock()
	for _, sub := range subscribers {
		sub.offer(version, snapshot)
	}
}

// Subscribe registers fn for state changes. Call returned function to unsubscribe
func (s *Store) Subscribe(fn func(State)) func() {
	id := uuid.New()
	s.mu.Lock()
	s.subscribers[id] = &subscriber{fn: fn}
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// subscriber delivers one snapshot at a time. Snapshots older than the delivered one are dropped
type subscriber struct {
	fn func(State)

	mu             sync.Mutex
	delivering     bool
	delivered      uint64
	pending        *State
	pendingVersion uint64
}

func (sub *subscriber) offer(version uint64, state State) {
	sub.mu.Lock()
	if version <= sub.delivered || (sub.pending != nil && version <= sub.pendingVersion) {
		sub.mu.Unlock()
		return
	}
	sub.pending = &state
	sub.pendingVersion = version
	if sub.delivering {
		sub.mu.Unlock()
		return
	}
	sub.delivering = true
	for sub.pending != nil {
		next := *sub.pending
		sub.delivered = sub.pendingVersion
		sub.pending = nil
		sub.mu.Unlock()
		sub.fn(next)
		sub.mu.Lock()
	}
	sub.delivering = false
	sub.mu.Unlock()
}
