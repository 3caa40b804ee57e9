// Package docstore is the SQLite-backed document store every resource kind
// is persisted in. Documents keep their kind-specific fields as a JSON body;
// predicates are translated to parameterized SQL over json_extract.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/schema"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	state      TEXT NOT NULL DEFAULT 'active',
	body       TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_kind_state ON documents(kind, state);
CREATE INDEX IF NOT EXISTS idx_documents_kind_created ON documents(kind, created_at);

CREATE TABLE IF NOT EXISTS unique_keys (
	kind  TEXT NOT NULL,
	field TEXT NOT NULL,
	value TEXT NOT NULL,
	id    TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	UNIQUE(kind, field, value)
);

CREATE INDEX IF NOT EXISTS idx_unique_keys_id ON unique_keys(id);
`

// timeLayout is fixed-width so that text ordering equals time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps a sql.DB with document operations.
type Store struct {
	conn  *sql.DB
	kinds *schema.Registry
	now   func() time.Time
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string, kinds *schema.Registry) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("docstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("docstore: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("docstore: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("docstore: apply fts schema: %w", err)
	}
	return &Store{conn: conn, kinds: kinds, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// CheckID reports apperr.ErrMalformedID for identifiers no document can have.
func CheckID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.ErrMalformedID
	}
	return nil
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("docstore: new id: %w", err)
	}
	return id.String(), nil
}

func (s *Store) kind(k models.Kind) (*schema.Kind, error) {
	sk, ok := s.kinds.Get(k)
	if !ok {
		return nil, fmt.Errorf("docstore: unknown kind %q", k)
	}
	return sk, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

type scanner interface {
	Scan(dest ...any) error
}

const selectColumns = `id, kind, state, body, created_at, updated_at`

func scanDocument(row scanner) (*models.Document, error) {
	var d models.Document
	var kind, state, body, created, updated string
	if err := row.Scan(&d.ID, &kind, &state, &body, &created, &updated); err != nil {
		return nil, err
	}
	d.Kind = models.Kind(kind)
	d.State = models.State(state)
	if err := json.Unmarshal([]byte(body), &d.Fields); err != nil {
		return nil, fmt.Errorf("docstore: decode body of %s: %w", d.ID, err)
	}
	if d.Fields == nil {
		d.Fields = map[string]any{}
	}
	var err error
	if d.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("docstore: decode created_at of %s: %w", d.ID, err)
	}
	if d.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("docstore: decode updated_at of %s: %w", d.ID, err)
	}
	return &d, nil
}
