package store

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/dashboard"
)

var (
	// ErrNotFound is returned when no preferences were saved for a profile.
	ErrNotFound = dashboard.ErrProfileNotFound
)

// MemoryStore is a concurrency-safe in-memory preference store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: profile id
	data map[string]dashboard.Preferences

	// retention configuration
	maxProfiles int           // max number of profiles kept
	maxAge      time.Duration // drop profiles not updated for this long
	now         func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxProfiles or maxAge is <= 0, that limit is not enforced.
func NewMemoryStore(maxProfiles int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:        make(map[string]dashboard.Preferences),
		maxProfiles: maxProfiles,
		maxAge:      maxAge,
		now:         time.Now,
	}
}

// Save stores prefs under their profile id and enforces retention.
func (s *MemoryStore) Save(_ context.Context, prefs dashboard.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[prefs.ProfileID] = prefs

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		for id, p := range s.data {
			if p.UpdatedAt.Before(cutoff) {
				delete(s.data, id)
			}
		}
	}

	// Enforce retention by count, evicting the least recently updated.
	for s.maxProfiles > 0 && len(s.data) > s.maxProfiles {
		var (
			oldestID string
			oldest   time.Time
		)
		for id, p := range s.data {
			if oldestID == "" || p.UpdatedAt.Before(oldest) {
				oldestID, oldest = id, p.UpdatedAt
			}
		}
		delete(s.data, oldestID)
	}
	return nil
}

// Get returns the preferences of a profile.
func (s *MemoryStore) Get(_ context.Context, profileID string) (dashboard.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefs, ok := s.data[profileID]
	if !ok {
		return dashboard.Preferences{}, ErrNotFound
	}
	return prefs, nil
}

// Len reports how many profiles are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) Close() error { return nil }

var _ dashboard.PreferenceStore = (*MemoryStore)(nil)
