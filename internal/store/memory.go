package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-event-streamer/internal/weather"
)

var (
	// ErrNotFound is returned when no run matches the request.
	ErrNotFound = errors.New("no pipeline runs recorded")
)

// MemoryStore is a concurrency-safe in-memory history of pipeline runs,
// ordered by start time.
type MemoryStore struct {
	mu   sync.RWMutex
	runs []weather.RunRecord

	// retention configuration
	maxHistory int           // max number of runs kept
	maxAge     time.Duration // optional max age for runs

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveRun appends a run and enforces retention.
func (s *MemoryStore) SaveRun(run weather.RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Overlapping runs may finish out of order.
	i := len(s.runs)
	for i > 0 && s.runs[i-1].StartedAt.After(run.StartedAt) {
		i--
	}
	s.runs = append(s.runs, weather.RunRecord{})
	copy(s.runs[i+1:], s.runs[i:])
	s.runs[i] = run

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.runs) > s.maxHistory {
		over := len(s.runs) - s.maxHistory
		s.runs = s.runs[over:]
	}

	// Enforce retention by age. The newest run is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.runs)-1; i++ {
			if !s.runs[i].StartedAt.Before(cutoff) {
				break
			}
		}
		s.runs = s.runs[i:]
	}
}

// GetLatest returns the most recently started run.
func (s *MemoryStore) GetLatest() (weather.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return weather.RunRecord{}, ErrNotFound
	}
	return s.runs[len(s.runs)-1], nil
}

// GetRange returns all runs started between from and to (inclusive).
func (s *MemoryStore) GetRange(from, to time.Time) ([]weather.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.RunRecord
	for _, run := range s.runs {
		if !run.StartedAt.Before(from) && !run.StartedAt.After(to) {
			result = append(result, run)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
