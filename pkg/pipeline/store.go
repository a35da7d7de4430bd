package pipeline

import (
	"sync"

	"github.com/go-go-golems/leadctl/pkg/protocol"
)

// Store holds the current snapshot for callers that are not already
// serialized (the TUI keeps its snapshot inside the bubbletea model instead).
// Apply and Reset are serialized end to end. Listeners run on the applying
// goroutine after each replacement and must not call Apply or Reset.
type Store struct {
	reducer Reducer

	writeMu sync.Mutex

	mu        sync.Mutex
	state     State
	listeners []func(State)
}

func NewStore(r Reducer) *Store {
	return &Store{reducer: r, state: Initial()}
}

// NewStoreFrom seeds the store with a previously saved snapshot.
func NewStoreFrom(r Reducer, st State) *Store {
	return &Store{reducer: r, state: st.Normalize()}
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Apply reduces ev into the current snapshot and reports whether it changed.
func (s *Store) Apply(ev protocol.Event) (State, bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	prev := s.state
	next := s.reducer.Reduce(prev, ev)
	changed := !next.Equal(prev)
	s.state = next
	listeners := append([]func(State){}, s.listeners...)
	s.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(next)
		}
	}
	return next, changed
}

func (s *Store) Reset() State {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.state = Reset()
	next := s.state
	listeners := append([]func(State){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next
}

func (s *Store) Subscribe(fn func(State)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
