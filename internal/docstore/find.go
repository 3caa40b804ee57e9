package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/query"
)

// Find returns the documents of kind matching p, ordered by o and cut to w.
// A window with a non-positive limit is unbounded.
func (s *Store) Find(ctx context.Context, kind models.Kind, p query.Predicate, o query.Sort, w query.Window) ([]*models.Document, error) {
	if _, err := s.kind(kind); err != nil {
		return nil, err
	}
	return findTx(ctx, s.conn, kind, p, o, w)
}

// Count returns the number of documents of kind matching p.
func (s *Store) Count(ctx context.Context, kind models.Kind, p query.Predicate) (int, error) {
	if _, err := s.kind(kind); err != nil {
		return 0, err
	}
	return countTx(ctx, s.conn, kind, p)
}

// FindPage returns one window of matches together with the total number of
// matches. Both are read in one transaction so the total agrees with the
// window under concurrent writes.
func (s *Store) FindPage(ctx context.Context, kind models.Kind, p query.Predicate, o query.Sort, w query.Window) ([]*models.Document, int, error) {
	if _, err := s.kind(kind); err != nil {
		return nil, 0, err
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("docstore: begin read %s: %w", kind, err)
	}
	defer tx.Rollback() //nolint:errcheck

	total, err := countTx(ctx, tx, kind, p)
	if err != nil {
		return nil, 0, err
	}
	docs, err := findTx(ctx, tx, kind, p, o, w)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func findTx(ctx context.Context, q queryer, kind models.Kind, p query.Predicate, o query.Sort, w query.Window) ([]*models.Document, error) {
	where, args := buildWhere(kind, p)
	order, orderArgs := buildOrder(p, o)

	stmt := `SELECT ` + selectColumns + ` FROM documents WHERE ` + where + ` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	args = append(args, orderArgs...)
	limit := w.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, max(w.Offset, 0))

	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("docstore: find %s: %w", kind, err)
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func countTx(ctx context.Context, q queryer, kind models.Kind, p query.Predicate) (int, error) {
	where, args := buildWhere(kind, p)
	var n int
	if err := q.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("docstore: count %s: %w", kind, err)
	}
	return n, nil
}

// Get returns the document of kind with id if its state is one of states.
// Any state matches when states is empty.
func (s *Store) Get(ctx context.Context, kind models.Kind, id string, states ...models.State) (*models.Document, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}
	return getTx(ctx, s.conn, kind, id, states)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTx(ctx context.Context, q queryer, kind models.Kind, id string, states []models.State) (*models.Document, error) {
	d, err := scanDocument(q.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM documents WHERE id = ? AND kind = ?`, id, string(kind)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("id", fmt.Sprintf("%s not found", kind))
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: get %s: %w", kind, err)
	}
	if len(states) > 0 && !containsState(states, d.State) {
		return nil, apperr.NotFound("id", fmt.Sprintf("%s not found", kind))
	}
	return d, nil
}

func containsState(states []models.State, s models.State) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

func jsonPath(field string) string {
	return "$." + field
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func buildWhere(kind models.Kind, p query.Predicate) (string, []any) {
	parts := []string{"kind = ?"}
	args := []any{string(kind)}

	states := p.States
	if len(states) == 0 {
		states = []models.State{models.StateActive}
	}
	parts = append(parts, "state IN ("+placeholders(len(states))+")")
	for _, st := range states {
		args = append(args, string(st))
	}

	for _, c := range p.Conditions {
		clause, cargs := conditionSQL(c)
		parts = append(parts, clause)
		args = append(args, cargs...)
	}

	if p.Text != nil {
		clause, targs := textWhere(p.Text)
		parts = append(parts, clause)
		args = append(args, targs...)
	}
	return strings.Join(parts, " AND "), args
}

func conditionSQL(c query.Condition) (string, []any) {
	col, colArgs := "json_extract(body, ?)", []any{jsonPath(c.Field)}
	if c.Field == models.KeyID {
		col, colArgs = "id", nil
	}

	switch c.Op {
	case query.OpIn:
		values, _ := c.Value.([]string)
		if len(values) == 0 {
			return "0", nil
		}
		args := colArgs
		for _, v := range values {
			args = append(args, v)
		}
		return col + " IN (" + placeholders(len(values)) + ")", args
	case query.OpGte:
		return col + " >= ?", append(colArgs, c.Value)
	case query.OpLte:
		return col + " <= ?", append(colArgs, c.Value)
	default:
		return col + " = ?", append(colArgs, c.Value)
	}
}

func buildOrder(p query.Predicate, o query.Sort) (string, []any) {
	if o.ByRelevance && p.Text != nil {
		score, args := textScore(p.Text)
		return score + " DESC, id ASC", args
	}
	if o.Field == "" || o.ByRelevance {
		o = query.DefaultSort
	}

	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	switch o.Field {
	case models.KeyCreatedAt:
		return "created_at " + dir + ", id ASC", nil
	case models.KeyUpdatedAt:
		return "updated_at " + dir + ", id ASC", nil
	case models.KeyID:
		return "id " + dir, nil
	}
	return "json_extract(body, ?) " + dir + ", id ASC", []any{jsonPath(o.Field)}
}
