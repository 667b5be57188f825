package sqlstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// dialect captures the per-engine differences the store cares about.
type dialect struct {
	driver string
	schema []string
	// returning reports whether INSERT ... RETURNING id is supported.
	returning bool
	// numbered placeholders ($1, $2) instead of ?.
	numbered        bool
	uniqueViolation func(err error) bool
	// singleConn pins the pool to one connection (SQLite in-memory databases are per connection).
	singleConn bool
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "sqlite3":
		return dialect{
			driver:          DriverSQLite,
			schema:          sqliteSchema,
			returning:       true,
			uniqueViolation: isSQLiteUniqueViolation,
			singleConn:      true,
		}, nil
	case DriverPostgres, "postgresql", "pg":
		return dialect{
			driver:          DriverPostgres,
			schema:          postgresSchema,
			returning:       true,
			numbered:        true,
			uniqueViolation: isPostgresUniqueViolation,
		}, nil
	case DriverMySQL:
		return dialect{
			driver:          DriverMySQL,
			schema:          mysqlSchema,
			uniqueViolation: isMySQLUniqueViolation,
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// rebind rewrites ? placeholders for engines that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var builder strings.Builder
	builder.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			builder.WriteByte('$')
			builder.WriteString(strconv.Itoa(n))
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func isMySQLUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS personas (
	   id INTEGER PRIMARY KEY AUTOINCREMENT,
	   name TEXT NOT NULL,
	   personality TEXT NOT NULL,
	   event TEXT NOT NULL,
	   created_at INTEGER NOT NULL
	 )`,
	`CREATE INDEX IF NOT EXISTS idx_personas_event ON personas(event)`,
	`CREATE TABLE IF NOT EXISTS chat_history (
	   id TEXT PRIMARY KEY,
	   persona_id INTEGER NOT NULL,
	   subevent_number INTEGER NOT NULL,
	   message TEXT NOT NULL,
	   subevent_title TEXT NOT NULL,
	   is_user_input INTEGER NOT NULL DEFAULT 0,
	   created_at INTEGER NOT NULL,
	   UNIQUE (persona_id, subevent_number)
	 )`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS personas (
	   id BIGSERIAL PRIMARY KEY,
	   name TEXT NOT NULL,
	   personality TEXT NOT NULL,
	   event TEXT NOT NULL,
	   created_at BIGINT NOT NULL
	 )`,
	`CREATE INDEX IF NOT EXISTS idx_personas_event ON personas(event)`,
	`CREATE TABLE IF NOT EXISTS chat_history (
	   id TEXT PRIMARY KEY,
	   persona_id BIGINT NOT NULL,
	   subevent_number INTEGER NOT NULL,
	   message TEXT NOT NULL,
	   subevent_title TEXT NOT NULL,
	   is_user_input BOOLEAN NOT NULL DEFAULT FALSE,
	   created_at BIGINT NOT NULL,
	   UNIQUE (persona_id, subevent_number)
	 )`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS personas (
	   id BIGINT AUTO_INCREMENT PRIMARY KEY,
	   name VARCHAR(255) NOT NULL,
	   personality TEXT NOT NULL,
	   event VARCHAR(255) NOT NULL,
	   created_at BIGINT NOT NULL,
	   INDEX idx_personas_event (event)
	 )`,
	`CREATE TABLE IF NOT EXISTS chat_history (
	   id CHAR(36) PRIMARY KEY,
	   persona_id BIGINT NOT NULL,
	   subevent_number INT NOT NULL,
	   message TEXT NOT NULL,
	   subevent_title VARCHAR(512) NOT NULL,
	   is_user_input BOOLEAN NOT NULL DEFAULT FALSE,
	   created_at BIGINT NOT NULL,
	   UNIQUE KEY uq_chat_history_persona_subevent (persona_id, subevent_number)
	 )`,
}
