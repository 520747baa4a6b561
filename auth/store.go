package auth

import (
	"sort"
	"sync"
)

// Store holds the current session. Only Service writes to it; any number of
// readers may subscribe to its transitions.
type Store struct {
	mu        sync.RWMutex
	session   *Session
	listeners map[int]Listener
	nextID    int
}

func NewStore() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

// Session returns a copy of the current session, or nil when signed out.
func (s *Store) Session() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	copied := *s.session
	return &copied
}

// Subscribe registers l for every later transition. The returned func
// removes it and is safe to call more than once.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) set(session *Session) {
	copied := *session

	s.mu.Lock()
	event := EventSignedIn
	if s.session != nil && s.session.UserID == session.UserID {
		event = EventTokenRefreshed
	}
	s.session = &copied
	listeners := s.snapshot()
	s.mu.Unlock()

	notify(listeners, Event{Type: event, Session: &copied})
}

func (s *Store) clear() {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return
	}
	s.session = nil
	listeners := s.snapshot()
	s.mu.Unlock()

	notify(listeners, Event{Type: EventSignedOut})
}

// snapshot returns listeners in subscription order. Callers hold mu.
func (s *Store) snapshot() []Listener {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}

func notify(listeners []Listener, e Event) {
	for _, l := range listeners {
		l(e)
	}
}
