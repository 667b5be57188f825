package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prestonty/timelens-be/internal/apperr"
)

// Store is the append-only persistence contract for ledger entries.
type Store interface {
	// ListEntries returns every entry of the persona ordered by ascending subevent number.
	ListEntries(ctx context.Context, personaID int64) ([]Entry, error)
	// AppendEntry persists entry. It fails with apperr.ErrConflict when the
	// (persona, subevent number) pair is already taken.
	AppendEntry(ctx context.Context, entry Entry) (Entry, error)
}

// MemoryStore keeps ledgers in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64][]Entry
}

// NewMemoryStore returns an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[int64][]Entry)}
}

// ListEntries returns a copy of the persona's ledger.
func (s *MemoryStore) ListEntries(ctx context.Context, personaID int64) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrStoreRead, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.entries[personaID]
	copied := make([]Entry, len(entries))
	copy(copied, entries)
	return copied, nil
}

// AppendEntry appends entry keeping the ledger sorted by subevent number.
func (s *MemoryStore) AppendEntry(ctx context.Context, entry Entry) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, fmt.Errorf("%w: %w", apperr.ErrStoreWrite, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.entries[entry.PersonaID]
	pos := len(existing)
	for i, e := range existing {
		if e.SubeventNumber == entry.SubeventNumber {
			return Entry{}, fmt.Errorf("persona %d subevent %d: %w", entry.PersonaID, entry.SubeventNumber, apperr.ErrConflict)
		}
		if e.SubeventNumber > entry.SubeventNumber && pos == len(existing) {
			pos = i
		}
	}

	entry.ID = uuid.NewString()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	updated := make([]Entry, 0, len(existing)+1)
	updated = append(updated, existing[:pos]...)
	updated = append(updated, entry)
	updated = append(updated, existing[pos:]...)
	s.entries[entry.PersonaID] = updated
	return entry, nil
}
