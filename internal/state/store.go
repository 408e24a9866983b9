package state

import (
	"FaceTrigger/internal/entity"
	"sync"
	"time"
)

type IStore interface {
	Set(present bool, at time.Time) bool
	Snapshot() entity.FaceState
	Subscribe(buffer int) (<-chan entity.FaceState, func())
}

// Store holds the latest single-frame detection result. Set reports whether
// the value changed; changes are fanned out to subscribers without blocking.
// A subscriber that falls behind loses its oldest queued state, never the
// newest one.
type Store struct {
	mu          sync.RWMutex
	current     entity.FaceState
	subscribers map[int]chan entity.FaceState
	nextID      int
	dropped     uint64
}

func New() *Store {
	return &Store{
		subscribers: make(map[int]chan entity.FaceState),
	}
}

func (s *Store) Set(present bool, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.current.FaceDetected != present
	s.current.FaceDetected = present
	s.current.UpdatedAt = at
	s.current.Frames++

	if !changed {
		return false
	}

	snapshot := s.current
	for _, ch := range s.subscribers {
		s.deliver(ch, snapshot)
	}

	return true
}

// deliver must be called with mu held. Set is the only sender, so after one
// stale value is drained the send cannot fail.
func (s *Store) deliver(ch chan entity.FaceState, state entity.FaceState) {
	select {
	case ch <- state:
		return
	default:
	}

	select {
	case <-ch:
		s.dropped++
	default:
	}

	select {
	case ch <- state:
	default:
		s.dropped++
	}
}

func (s *Store) Snapshot() entity.FaceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe returns a channel receiving the current state followed by every
// change. The returned func unregisters and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan entity.FaceState, func()) {
	if buffer < 1 {
		buffer = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	ch := make(chan entity.FaceState, buffer)
	ch <- s.current
	s.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}

	return ch, cancel
}

func (s *Store) Dropped() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}
