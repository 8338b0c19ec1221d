// Package statuscache holds in-flight operation progress records in
// process memory so long-running provisioning can be polled without
// blocking on it. It keeps an explicit registry of operation ids;
// callers never have to guess key patterns.
package statuscache

import (
	"sort"
	"sync"
	"time"

	"github.com/neomorfeo/tenantctl/internal/domain"
)

// Compile-time check: Store implements domain.OperationStore.
var _ domain.OperationStore = (*Store)(nil)

const (
	// defaultMaxEntries bounds the registry; when full, the oldest
	// finished record is evicted to make room.
	defaultMaxEntries = 1024
	// defaultRetention is how long finished records stay readable
	// before being dropped on access.
	defaultRetention = 5 * time.Minute
)

// Store is a mutex-guarded map with last-write-wins semantics per key.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]domain.OperationStatus
	maxEntries int
	retention  time.Duration
	now        func() time.Time
}

// New creates a store with the default eviction policy.
func New() *Store {
	return &Store{
		entries:    make(map[string]domain.OperationStatus),
		maxEntries: defaultMaxEntries,
		retention:  defaultRetention,
		now:        time.Now,
	}
}

// Set records the status for an operation id, stamping UpdatedAt.
func (s *Store) Set(id string, status domain.OperationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status.UpdatedAt = s.now().UTC()

	if _, exists := s.entries[id]; !exists && len(s.entries) >= s.maxEntries {
		s.evictOldestFinishedLocked()
	}
	s.entries[id] = status
}

// Get returns the status for an operation id. Finished records past the
// retention window are dropped and reported absent.
func (s *Store) Get(id string) (domain.OperationStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.entries[id]
	if !ok {
		return domain.OperationStatus{}, false
	}
	if s.expiredLocked(status) {
		delete(s.entries, id)
		return domain.OperationStatus{}, false
	}
	return status, true
}

// List returns a snapshot of all live records keyed by operation id.
func (s *Store) List() map[string]domain.OperationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]domain.OperationStatus, len(s.entries))
	for id, status := range s.entries {
		if s.expiredLocked(status) {
			delete(s.entries, id)
			continue
		}
		out[id] = status
	}
	return out
}

// Delete removes an operation record. Deleting an absent id is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

func (s *Store) expiredLocked(status domain.OperationStatus) bool {
	return status.State.Finished() && s.now().Sub(status.UpdatedAt) > s.retention
}

// evictOldestFinishedLocked removes the finished record with the oldest
// UpdatedAt. If nothing has finished yet, the oldest record overall
// goes: in-flight visibility matters less than a bounded registry.
func (s *Store) evictOldestFinishedLocked() {
	type entry struct {
		id     string
		status domain.OperationStatus
	}

	all := make([]entry, 0, len(s.entries))
	for id, status := range s.entries {
		all = append(all, entry{id, status})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].status.UpdatedAt.Before(all[j].status.UpdatedAt)
	})

	for _, e := range all {
		if e.status.State.Finished() {
			delete(s.entries, e.id)
			return
		}
	}
	if len(all) > 0 {
		delete(s.entries, all[0].id)
	}
}
