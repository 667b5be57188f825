package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/prestonty/timelens-be/internal/apperr"
	"github.com/prestonty/timelens-be/internal/model/chat"
)

const maxAppendAttempts = 3

var (
	ErrPersonaRequired   = apperr.Validation("persona id is required")
	ErrSubeventRequired  = apperr.Validation("subevent number must be positive")
	ErrUserInputRejected = apperr.Validation("user questions are never written to the ledger")
)

// Snapshot is the ledger state of one persona at read time.
type Snapshot struct {
	Entries []chat.Entry
	// Next is the subevent number the next canonical entry will receive.
	Next int
	// Context is every message concatenated in subevent order.
	Context string
}

// Service is the per-persona chat history ledger.
type Service struct {
	store chat.Store
}

// NewService wraps a ledger store.
func NewService(store chat.Store) *Service {
	return &Service{store: store}
}

// ListByPersona returns the persona's entries ordered by ascending subevent number.
func (s *Service) ListByPersona(ctx context.Context, personaID int64) ([]chat.Entry, error) {
	if personaID <= 0 {
		return nil, ErrPersonaRequired
	}
	entries, err := s.store.ListEntries(ctx, personaID)
	if err != nil {
		return nil, fmt.Errorf("list ledger for persona %d: %w", personaID, err)
	}
	return entries, nil
}

// NextSubeventNumber derives the next number from the current entry count.
func (s *Service) NextSubeventNumber(ctx context.Context, personaID int64) (int, error) {
	entries, err := s.ListByPersona(ctx, personaID)
	if err != nil {
		return 0, err
	}
	return len(entries) + 1, nil
}

// RenderContext concatenates every entry message of the persona, without separators.
func (s *Service) RenderContext(ctx context.Context, personaID int64) (string, error) {
	entries, err := s.ListByPersona(ctx, personaID)
	if err != nil {
		return "", err
	}
	return Render(entries), nil
}

// Snapshot reads the ledger once and derives the next number and context from that read.
func (s *Service) Snapshot(ctx context.Context, personaID int64) (Snapshot, error) {
	entries, err := s.ListByPersona(ctx, personaID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Entries: entries,
		Next:    len(entries) + 1,
		Context: Render(entries),
	}, nil
}

// Append persists a canonical narrator entry with the subevent number it already carries.
func (s *Service) Append(ctx context.Context, entry chat.Entry) (chat.Entry, error) {
	if err := validate(entry); err != nil {
		return chat.Entry{}, err
	}
	if entry.SubeventNumber <= 0 {
		return chat.Entry{}, ErrSubeventRequired
	}
	saved, err := s.store.AppendEntry(ctx, entry)
	if err != nil {
		return chat.Entry{}, fmt.Errorf("append ledger entry: %w", err)
	}
	return saved, nil
}

// AppendNext numbers entry as count+1 and appends it. When another writer took the
// number first the count is re-read and the append retried.
func (s *Service) AppendNext(ctx context.Context, entry chat.Entry) (chat.Entry, error) {
	if err := validate(entry); err != nil {
		return chat.Entry{}, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		next, err := s.NextSubeventNumber(ctx, entry.PersonaID)
		if err != nil {
			return chat.Entry{}, err
		}
		entry.SubeventNumber = next

		saved, err := s.store.AppendEntry(ctx, entry)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, apperr.ErrConflict) {
			return chat.Entry{}, fmt.Errorf("append ledger entry: %w", err)
		}
		lastErr = err
		log.Printf("[ledger] subevent %d for persona %d taken, retrying (attempt %d)", next, entry.PersonaID, attempt)
	}
	return chat.Entry{}, fmt.Errorf("%w: append ledger entry after %d attempts: %v", apperr.ErrStoreWrite, maxAppendAttempts, lastErr)
}

// Render concatenates entry messages in the given order.
func Render(entries []chat.Entry) string {
	var builder strings.Builder
	for _, e := range entries {
		builder.WriteString(e.Message)
	}
	return builder.String()
}

func validate(entry chat.Entry) error {
	if entry.PersonaID <= 0 {
		return ErrPersonaRequired
	}
	if entry.IsUserInput {
		return ErrUserInputRejected
	}
	return nil
}
