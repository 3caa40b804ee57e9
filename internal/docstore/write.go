package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/schema"
)

// Insert stores fields as a new active document of kind and returns it with
// its assigned id and timestamps.
func (s *Store) Insert(ctx context.Context, kind models.Kind, fields map[string]any) (*models.Document, error) {
	sk, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode %s: %w", kind, err)
	}
	now := formatTime(s.now())

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, kind, state, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, string(kind), string(models.StateActive), string(body), now, now)
	if err != nil {
		return nil, fmt.Errorf("docstore: insert %s: %w", kind, err)
	}
	if err := putUniqueKeys(ctx, tx, sk, id, fields); err != nil {
		return nil, err
	}
	if err := ftsUpsert(ctx, tx, sk, id, fields); err != nil {
		return nil, err
	}

	d, err := getTx(ctx, tx, kind, id, nil)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("docstore: commit: %w", err)
	}
	return d, nil
}

// Update merges patch into the document of kind with id, provided its state
// is one of states. Keys in patch replace stored values; the state is kept.
func (s *Store) Update(ctx context.Context, kind models.Kind, id string, patch map[string]any, states ...models.State) (*models.Document, error) {
	sk, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	if err := CheckID(id); err != nil {
		return nil, err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	cur, err := getTx(ctx, tx, kind, id, states)
	if err != nil {
		return nil, err
	}
	merged := cur.Fields
	for k, v := range patch {
		merged[k] = v
	}
	body, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode %s: %w", kind, err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE documents SET body = ?, updated_at = ? WHERE id = ?`,
		string(body), formatTime(s.now()), id)
	if err != nil {
		return nil, fmt.Errorf("docstore: update %s: %w", kind, err)
	}
	if err := putUniqueKeys(ctx, tx, sk, id, merged); err != nil {
		return nil, err
	}
	if err := ftsUpsert(ctx, tx, sk, id, merged); err != nil {
		return nil, err
	}

	d, err := getTx(ctx, tx, kind, id, nil)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("docstore: commit: %w", err)
	}
	return d, nil
}

// Delete discards the document of kind with id if its state is one of
// states, and returns it as it was before removal.
func (s *Store) Delete(ctx context.Context, kind models.Kind, id string, states ...models.State) (*models.Document, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	d, err := getTx(ctx, tx, kind, id, states)
	if err != nil {
		return nil, err
	}
	if err := ftsDelete(ctx, tx, id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("docstore: delete %s: %w", kind, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("docstore: commit: %w", err)
	}
	return d, nil
}

// SetState moves the document of kind with id to state to, provided its
// current state is one of from. The check and the write are one statement.
func (s *Store) SetState(ctx context.Context, kind models.Kind, id string, to models.State, from ...models.State) (*models.Document, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}
	if len(from) == 0 {
		return nil, fmt.Errorf("docstore: set state %s: no source states", kind)
	}
	args := []any{string(to), formatTime(s.now()), id, string(kind)}
	for _, st := range from {
		args = append(args, string(st))
	}
	res, err := s.conn.ExecContext(ctx, `
		UPDATE documents SET state = ?, updated_at = ?
		WHERE id = ? AND kind = ? AND state IN (`+placeholders(len(from))+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("docstore: set state %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("docstore: set state %s: %w", kind, err)
	}
	if n == 0 {
		return nil, apperr.NotFound("id", fmt.Sprintf("%s not found", kind))
	}
	return getTx(ctx, s.conn, kind, id, nil)
}

func putUniqueKeys(ctx context.Context, tx *sql.Tx, sk *schema.Kind, id string, fields map[string]any) error {
	if len(sk.Unique) == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM unique_keys WHERE id = ?`, id); err != nil {
		return fmt.Errorf("docstore: clear unique keys: %w", err)
	}
	for _, field := range sk.Unique {
		v, ok := fields[field].(string)
		if !ok || v == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO unique_keys (kind, field, value, id) VALUES (?, ?, ?, ?)`,
			string(sk.Name), field, uniqueValue(v), id)
		if isUniqueViolation(err) {
			return apperr.Conflict(field)
		}
		if err != nil {
			return fmt.Errorf("docstore: put unique key %s: %w", field, err)
		}
	}
	return nil
}

// uniqueValue folds case so that "Ada@Example.com" and "ada@example.com" collide.
func uniqueValue(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
