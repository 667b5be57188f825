package chat_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prestonty/timelens-be/internal/apperr"
	"github.com/prestonty/timelens-be/internal/model/chat"
	chatservice "github.com/prestonty/timelens-be/internal/service/chat"
)

func TestRenderContextCompleteness(t *testing.T) {
	ctx := context.Background()
	messages := []string{"The rocket shook. ", "Silence in orbit. ", "Then, the surface."}

	cases := []int{0, 1, 3}
	for _, n := range cases {
		t.Run(fmt.Sprintf("%d entries", n), func(t *testing.T) {
			svc := chatservice.NewService(chat.NewMemoryStore())
			want := ""
			for i := 0; i < n; i++ {
				if _, err := svc.AppendNext(ctx, chat.Entry{PersonaID: 1, Message: messages[i]}); err != nil {
					t.Fatalf("AppendNext err: %v", err)
				}
				want += messages[i]
			}
			// another persona's entries never leak into the context
			if _, err := svc.AppendNext(ctx, chat.Entry{PersonaID: 2, Message: "other persona"}); err != nil {
				t.Fatalf("AppendNext err: %v", err)
			}

			got, err := svc.RenderContext(ctx, 1)
			if err != nil {
				t.Fatalf("RenderContext err: %v", err)
			}
			if got != want {
				t.Fatalf("RenderContext = %q, want %q", got, want)
			}
		})
	}
}

func TestNextSubeventNumberIsDerived(t *testing.T) {
	ctx := context.Background()
	svc := chatservice.NewService(chat.NewMemoryStore())

	next, err := svc.NextSubeventNumber(ctx, 9)
	if err != nil {
		t.Fatalf("NextSubeventNumber err: %v", err)
	}
	if next != 1 {
		t.Fatalf("expected 1 for empty ledger, got %d", next)
	}

	for i := 1; i <= 2; i++ {
		saved, err := svc.AppendNext(ctx, chat.Entry{PersonaID: 9, Message: "x"})
		if err != nil {
			t.Fatalf("AppendNext err: %v", err)
		}
		if saved.SubeventNumber != i {
			t.Fatalf("expected subevent %d, got %d", i, saved.SubeventNumber)
		}
	}

	snap, err := svc.Snapshot(ctx, 9)
	if err != nil {
		t.Fatalf("Snapshot err: %v", err)
	}
	if snap.Next != 3 || len(snap.Entries) != 2 || snap.Context != "xx" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestAppendRejectsUserInputAndBadIDs(t *testing.T) {
	ctx := context.Background()
	svc := chatservice.NewService(chat.NewMemoryStore())

	if _, err := svc.Append(ctx, chat.Entry{PersonaID: 1, SubeventNumber: 1, IsUserInput: true}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for user input, got %v", err)
	}
	if _, err := svc.Append(ctx, chat.Entry{PersonaID: 0, SubeventNumber: 1}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for missing persona, got %v", err)
	}
	if _, err := svc.Append(ctx, chat.Entry{PersonaID: 1}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for missing subevent, got %v", err)
	}
	if _, err := svc.ListByPersona(ctx, -1); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error listing persona -1, got %v", err)
	}
}

// racingStore lets a competing writer take the next number right before the first append.
type racingStore struct {
	*chat.MemoryStore
	once sync.Once
}

func (r *racingStore) AppendEntry(ctx context.Context, entry chat.Entry) (chat.Entry, error) {
	r.once.Do(func() {
		_, _ = r.MemoryStore.AppendEntry(ctx, chat.Entry{PersonaID: entry.PersonaID, SubeventNumber: entry.SubeventNumber, Message: "competitor"})
	})
	return r.MemoryStore.AppendEntry(ctx, entry)
}

func TestAppendNextRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{MemoryStore: chat.NewMemoryStore()}
	svc := chatservice.NewService(store)

	saved, err := svc.AppendNext(ctx, chat.Entry{PersonaID: 4, Message: "mine"})
	if err != nil {
		t.Fatalf("AppendNext err: %v", err)
	}
	if saved.SubeventNumber != 2 {
		t.Fatalf("expected retry to land on subevent 2, got %d", saved.SubeventNumber)
	}

	entries, _ := svc.ListByPersona(ctx, 4)
	if len(entries) != 2 || entries[0].Message != "competitor" || entries[1].Message != "mine" {
		t.Fatalf("unexpected ledger %+v", entries)
	}
}

func TestAppendNextConcurrentWritersStayContiguous(t *testing.T) {
	ctx := context.Background()
	svc := chatservice.NewService(chat.NewMemoryStore())

	const writers = 3
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.AppendNext(ctx, chat.Entry{PersonaID: 7, Message: "m"})
		}()
	}
	wg.Wait()

	entries, err := svc.ListByPersona(ctx, 7)
	if err != nil {
		t.Fatalf("ListByPersona err: %v", err)
	}
	for i, e := range entries {
		if e.SubeventNumber != i+1 {
			t.Fatalf("gap or duplicate at %d: %+v", i, entries)
		}
	}
}
