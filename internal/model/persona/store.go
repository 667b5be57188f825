package persona

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prestonty/timelens-be/internal/apperr"
)

// Store is the persistence contract for personas. Personas are never updated or deleted.
type Store interface {
	// ListNames returns the names of every persona bound to event, in insertion order.
	ListNames(ctx context.Context, event string) ([]string, error)
	// Create inserts a persona and returns it with its generated id.
	Create(ctx context.Context, p Persona) (Persona, error)
	// GetByID returns apperr.ErrNotFound when no persona has the id.
	GetByID(ctx context.Context, id int64) (Persona, error)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	mu     sync.RWMutex
	items  []Persona
	nextID int64
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
// Seeded personas without an id are numbered in order.
func NewMemoryStore(items []Persona) *MemoryStore {
	s := &MemoryStore{items: make([]Persona, 0, len(items)), nextID: 1}
	for _, item := range items {
		if item.ID == 0 {
			item.ID = s.nextID
		}
		if item.ID >= s.nextID {
			s.nextID = item.ID + 1
		}
		s.items = append(s.items, item)
	}
	return s
}

// ListNames returns persona names for the event.
func (s *MemoryStore) ListNames(ctx context.Context, event string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrStoreRead, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0)
	for _, item := range s.items {
		if item.Event == event {
			names = append(names, item.Name)
		}
	}
	return names, nil
}

// Create stores the persona under a fresh id.
func (s *MemoryStore) Create(ctx context.Context, p Persona) (Persona, error) {
	if err := ctx.Err(); err != nil {
		return Persona{}, fmt.Errorf("%w: %w", apperr.ErrStoreWrite, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID
	s.nextID++
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.items = append(s.items, p)
	return p, nil
}

// GetByID looks up a persona by identifier.
func (s *MemoryStore) GetByID(ctx context.Context, id int64) (Persona, error) {
	if err := ctx.Err(); err != nil {
		return Persona{}, fmt.Errorf("%w: %w", apperr.ErrStoreRead, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if item.ID == id {
			return item, nil
		}
	}
	return Persona{}, fmt.Errorf("persona %d: %w", id, apperr.ErrNotFound)
}
