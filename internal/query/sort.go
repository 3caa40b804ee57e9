package query

import (
	"slices"
	"strings"

	"github.com/starford/raido/internal/models"
)

// SortRelevance requests text-relevance ordering when a search is active.
const SortRelevance = "relevance"

// Sort is a resolved ordering. Stores always break ties by id ascending.
type Sort struct {
	Field       string
	Desc        bool
	ByRelevance bool
}

// DefaultSort orders newest first.
var DefaultSort = Sort{Field: models.KeyCreatedAt, Desc: true}

// ResolveSort reads `sort` (`field`, `-field`, `field:asc|desc`) or the
// legacy `sortBy`/`sortOrder` pair. A bare field sorts ascending; a bare
// `sortBy` sorts descending, matching the legacy default. Fields outside
// sortable fall back to DefaultSort.
func ResolveSort(params map[string]string, sortable []string, hasText bool) Sort {
	raw := strings.TrimSpace(params[ParamSort])
	if i := strings.IndexByte(raw, ','); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}

	var field string
	var desc bool
	switch {
	case raw != "":
		field, desc = parseSort(raw)
	case strings.TrimSpace(params[ParamSortBy]) != "":
		field = strings.TrimSpace(params[ParamSortBy])
		desc = !strings.EqualFold(strings.TrimSpace(params[ParamSortOrder]), "asc")
	default:
		return DefaultSort
	}

	if field == SortRelevance {
		if hasText {
			return Sort{ByRelevance: true}
		}
		return DefaultSort
	}
	if field == models.KeyCreatedAt || field == models.KeyUpdatedAt || slices.Contains(sortable, field) {
		return Sort{Field: field, Desc: desc}
	}
	return DefaultSort
}

func parseSort(raw string) (string, bool) {
	if strings.HasPrefix(raw, "-") {
		return strings.TrimSpace(raw[1:]), true
	}
	raw = strings.TrimPrefix(raw, "+")
	if field, dir, ok := strings.Cut(raw, ":"); ok {
		return strings.TrimSpace(field), isDesc(dir)
	}
	if field, dir, ok := strings.Cut(raw, " "); ok {
		return strings.TrimSpace(field), isDesc(dir)
	}
	return raw, false
}

func isDesc(dir string) bool {
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "desc", "descending", "-1":
		return true
	}
	return false
}
