// Package sqlstore persists personas and ledger entries in a relational database.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prestonty/timelens-be/internal/apperr"
	"github.com/prestonty/timelens-be/internal/model/chat"
	"github.com/prestonty/timelens-be/internal/model/persona"
)

const defaultTimeout = 10 * time.Second

// Store implements both persona.Store and chat.Store over database/sql.
type Store struct {
	sqlDB   *sql.DB
	dialect dialect
	timeout time.Duration
}

var (
	_ persona.Store = (*Store)(nil)
	_ chat.Store    = (*Store)(nil)
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open connects to the database and creates the tables when missing.
func Open(ctx context.Context, driver, dsn string, timeout time.Duration) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("store dsn is required for driver %s", d.driver)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	sqlDB, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", d.driver, err)
	}
	if d.singleConn {
		sqlDB.SetMaxOpenConns(1)
	}

	s := &Store{sqlDB: sqlDB, dialect: d, timeout: timeout}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()
	if err := sqlDB.PingContext(opCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s db: %w", d.driver, err)
	}
	for _, stmt := range d.schema {
		if _, err := sqlDB.ExecContext(opCtx, stmt); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	log.Printf("[store] opened %s store", d.driver)
	return s, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// opContext 为单次存储操作附加超时
func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// ListNames returns persona names for event in insertion order.
func (s *Store) ListNames(ctx context.Context, event string) ([]string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.sqlDB.QueryContext(ctx, s.dialect.rebind(`SELECT name FROM personas WHERE event = ? ORDER BY id`), event)
	if err != nil {
		return nil, fmt.Errorf("%w: list persona names: %w", apperr.ErrStoreRead, err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: scan persona name: %w", apperr.ErrStoreRead, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate persona names: %w", apperr.ErrStoreRead, err)
	}
	return names, nil
}

// Create inserts the persona and returns it with the generated id.
func (s *Store) Create(ctx context.Context, p persona.Persona) (persona.Persona, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO personas (name, personality, event, created_at) VALUES (?, ?, ?, ?)`
	args := []any{p.Name, p.Personality, p.Event, toMillis(p.CreatedAt)}

	if s.dialect.returning {
		row := s.sqlDB.QueryRowContext(ctx, s.dialect.rebind(query+` RETURNING id`), args...)
		if err := row.Scan(&p.ID); err != nil {
			return persona.Persona{}, fmt.Errorf("%w: insert persona: %w", apperr.ErrStoreWrite, err)
		}
		return p, nil
	}

	res, err := s.sqlDB.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return persona.Persona{}, fmt.Errorf("%w: insert persona: %w", apperr.ErrStoreWrite, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return persona.Persona{}, fmt.Errorf("%w: persona id: %w", apperr.ErrStoreWrite, err)
	}
	p.ID = id
	return p, nil
}

// GetByID returns the persona or apperr.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id int64) (persona.Persona, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	row := s.sqlDB.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT id, name, personality, event, created_at FROM personas WHERE id = ?`), id)

	var (
		p         persona.Persona
		createdAt int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Personality, &p.Event, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persona.Persona{}, fmt.Errorf("persona %d: %w", id, apperr.ErrNotFound)
		}
		return persona.Persona{}, fmt.Errorf("%w: get persona: %w", apperr.ErrStoreRead, err)
	}
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

// ListEntries returns the persona's ledger ordered by subevent number.
func (s *Store) ListEntries(ctx context.Context, personaID int64) ([]chat.Entry, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.sqlDB.QueryContext(ctx, s.dialect.rebind(
		`SELECT id, persona_id, subevent_number, message, subevent_title, is_user_input, created_at
		   FROM chat_history
		  WHERE persona_id = ?
		  ORDER BY subevent_number ASC`), personaID)
	if err != nil {
		return nil, fmt.Errorf("%w: list chat history: %w", apperr.ErrStoreRead, err)
	}
	defer rows.Close()

	entries := make([]chat.Entry, 0)
	for rows.Next() {
		var (
			e         chat.Entry
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.PersonaID, &e.SubeventNumber, &e.Message, &e.SubeventTitle, &e.IsUserInput, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan chat history: %w", apperr.ErrStoreRead, err)
		}
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate chat history: %w", apperr.ErrStoreRead, err)
	}
	return entries, nil
}

// AppendEntry inserts a ledger entry, reporting apperr.ErrConflict on a taken subevent number.
func (s *Store) AppendEntry(ctx context.Context, entry chat.Entry) (chat.Entry, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	entry.ID = uuid.NewString()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO chat_history (
		   id,
		   persona_id,
		   subevent_number,
		   message,
		   subevent_title,
		   is_user_input,
		   created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		entry.ID,
		entry.PersonaID,
		entry.SubeventNumber,
		entry.Message,
		entry.SubeventTitle,
		entry.IsUserInput,
		toMillis(entry.CreatedAt),
	)
	if err != nil {
		if s.dialect.uniqueViolation(err) {
			return chat.Entry{}, fmt.Errorf("persona %d subevent %d: %w", entry.PersonaID, entry.SubeventNumber, apperr.ErrConflict)
		}
		return chat.Entry{}, fmt.Errorf("%w: insert chat history: %w", apperr.ErrStoreWrite, err)
	}
	return entry, nil
}
