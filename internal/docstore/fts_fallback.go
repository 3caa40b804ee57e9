//go:build !sqlite_fts5

package docstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/starford/raido/internal/query"
	"github.com/starford/raido/internal/schema"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; text search uses LIKE over the JSON body.
	return nil
}

func ftsUpsert(_ context.Context, _ *sql.Tx, _ *schema.Kind, _ string, _ map[string]any) error {
	return nil
}

func ftsDelete(_ context.Context, _ *sql.Tx, _ string) error { return nil }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeTerms pairs every search term with every text field.
func likeTerms(t *query.TextMatch) (pairs []string, args []any) {
	for _, term := range searchTerms(t.Query) {
		pattern := "%" + likeEscaper.Replace(term) + "%"
		for _, f := range t.Fields {
			pairs = append(pairs, `json_extract(body, ?) LIKE ? ESCAPE '\'`)
			args = append(args, jsonPath(f), pattern)
		}
	}
	return pairs, args
}

// textWhere matches documents where any term occurs in any text field.
func textWhere(t *query.TextMatch) (string, []any) {
	pairs, args := likeTerms(t)
	if len(pairs) == 0 {
		return "0", nil
	}
	return "(" + strings.Join(pairs, " OR ") + ")", args
}

// textScore counts matching term/field pairs.
func textScore(t *query.TextMatch) (string, []any) {
	pairs, args := likeTerms(t)
	if len(pairs) == 0 {
		return "0", nil
	}
	return "((" + strings.Join(pairs, ") + (") + "))", args
}
