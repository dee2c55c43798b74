package snapshots

import (
	"context"
	"sync"
	"time"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
)

// MemoryStore keeps snapshot logs in process memory
type MemoryStore struct {
	locks *keyLocks
	now   func() time.Time

	mu   sync.RWMutex
	logs map[string][]models.LineSnapshot
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks: newKeyLocks(),
		now:   time.Now,
		logs:  make(map[string][]models.LineSnapshot),
	}
}

// WithClock overrides the store's time source
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Record appends snap to the key's log
func (s *MemoryStore) Record(ctx context.Context, key Key, snap models.LineSnapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	id := key.String()
	release := s.locks.lock(id)
	defer release()

	s.mu.RLock()
	current := s.logs[id]
	s.mu.RUnlock()

	next := insert(append([]models.LineSnapshot(nil), current...), snap, s.now())

	s.mu.Lock()
	if len(next) == 0 {
		delete(s.logs, id)
	} else {
		s.logs[id] = next
	}
	s.mu.Unlock()
	return nil
}

// History returns a copy of the key's log
func (s *MemoryStore) History(ctx context.Context, key Key) ([]models.LineSnapshot, bool, error) {
	s.mu.RLock()
	log := s.logs[key.String()]
	s.mu.RUnlock()

	if expired(log, s.now()) {
		return nil, false, nil
	}
	return append([]models.LineSnapshot(nil), log...), true, nil
}
