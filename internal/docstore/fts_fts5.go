//go:build sqlite_fts5

package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/raido/internal/query"
	"github.com/starford/raido/internal/schema"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			id UNINDEXED,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, tx *sql.Tx, sk *schema.Kind, id string, fields map[string]any) error {
	if !sk.Searchable() {
		return nil
	}
	if err := ftsDelete(ctx, tx, id); err != nil {
		return err
	}
	var parts []string
	for _, f := range sk.TextFields {
		if s, ok := fields[f].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO documents_fts (id, content) VALUES (?, ?)`, id, strings.Join(parts, "\n"))
	if err != nil {
		return fmt.Errorf("docstore: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("docstore: delete fts: %w", err)
	}
	return nil
}

// matchExpr ORs the quoted search terms so any of them can match.
func matchExpr(t *query.TextMatch) string {
	terms := searchTerms(t.Query)
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}

func textWhere(t *query.TextMatch) (string, []any) {
	expr := matchExpr(t)
	if expr == "" {
		return "0", nil
	}
	return "id IN (SELECT id FROM documents_fts WHERE documents_fts MATCH ?)", []any{expr}
}

// textScore is the negated bm25 rank, so higher is more relevant.
func textScore(t *query.TextMatch) (string, []any) {
	expr := matchExpr(t)
	if expr == "" {
		return "0", nil
	}
	return `(SELECT -bm25(documents_fts) FROM documents_fts
		WHERE documents_fts MATCH ? AND documents_fts.id = documents.id)`, []any{expr}
}
