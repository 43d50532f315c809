// Package nowplaying implements the single-cell, last-write-wins
// now-playing store, fanning out updates on the Broadcast Hub.
package nowplaying

import (
	"sync"
	"time"

	"github.com/alxayo/shortwave/internal/shortwave/broadcast"
	"github.com/alxayo/shortwave/internal/shortwave/domain"
)

// Store holds the current now-playing value under a RW lock. There is no
// merge semantics: Set atomically replaces the cell and publishes it.
type Store struct {
	hub *broadcast.Hub

	mu      sync.RWMutex
	current *domain.NowPlaying
}

// New creates an empty now-playing store. hub may be nil in tests.
func New(hub *broadcast.Hub) *Store {
	return &Store{hub: hub}
}

// Set atomically replaces the current value and publishes on the
// now-playing channel.
func (s *Store) Set(np domain.NowPlaying) {
	if np.UpdatedAt.IsZero() {
		np.UpdatedAt = time.Now()
	}
	s.mu.Lock()
	s.current = &np
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.NowPlaying.Publish(np)
	}
}

// Get returns the current value and whether one has ever been set.
func (s *Store) Get() (domain.NowPlaying, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.NowPlaying{}, false
	}
	return *s.current, true
}
