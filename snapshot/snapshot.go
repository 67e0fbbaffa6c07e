// Package snapshot keeps the request list the dashboard aggregates over.
// A published Snapshot is never modified: every change produces a new one.
package snapshot

import (
	"sync"
	"time"

	"github.com/tywin1104/mc-dashboard/types"
)

// Snapshot is an immutable view of all whitelist requests at one point in time
type Snapshot struct {
	Version   uint64
	FetchedAt time.Time
	requests  []types.WhitelistRequest
}

// Requests returns a copy of the requests in the snapshot
func (s *Snapshot) Requests() []types.WhitelistRequest {
	if s == nil {
		return nil
	}
	requests := make([]types.WhitelistRequest, len(s.requests))
	copy(requests, s.requests)
	return requests
}

// Len is the number of requests in the snapshot
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.requests)
}

// Store holds the current snapshot
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
	now     func() time.Time
}

// NewStore creates a store holding an empty snapshot
func NewStore() *Store {
	return &Store{
		current: &Snapshot{},
		now:     time.Now,
	}
}

// Current returns the latest snapshot
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace publishes a snapshot holding a copy of requests
func (s *Store) Replace(requests []types.WhitelistRequest) *Snapshot {
	copied := make([]types.WhitelistRequest, len(requests))
	copy(copied, requests)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &Snapshot{
		Version:   s.current.Version + 1,
		FetchedAt: s.now(),
		requests:  copied,
	}
	return s.current
}

// Apply publishes a snapshot in which request replaces the record with the
// same ID, or is appended when no such record exists
func (s *Store) Apply(request types.WhitelistRequest) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.requests
	requests := make([]types.WhitelistRequest, len(old), len(old)+1)
	copy(requests, old)
	replaced := false
	for i := range requests {
		if requests[i].ID == request.ID {
			requests[i] = request
			replaced = true
			break
		}
	}
	if !replaced {
		requests = append(requests, request)
	}
	s.current = &Snapshot{
		Version:   s.current.Version + 1,
		FetchedAt: s.current.FetchedAt,
		requests:  requests,
	}
	return s.current
}
