package query

import (
	"math"
	"strconv"
	"strings"
)

// Pagination defaults.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Window is a resolved page request.
type Window struct {
	Page   int
	Limit  int
	Offset int
}

// Paginate clamps page and limit: page is 1-based (non-numeric or <1 → 1);
// limit falls back to defaultLimit when non-numeric and is clamped into
// [1, maxLimit].
func Paginate(page, limit string, defaultLimit, maxLimit int) Window {
	if defaultLimit < 1 {
		defaultLimit = DefaultLimit
	}
	if maxLimit < 1 {
		maxLimit = MaxLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}

	p, err := strconv.Atoi(strings.TrimSpace(page))
	if err != nil || p < 1 {
		p = 1
	}
	l, err := strconv.Atoi(strings.TrimSpace(limit))
	switch {
	case err != nil:
		l = defaultLimit
	case l < 1:
		l = 1
	case l > maxLimit:
		l = maxLimit
	}
	// Keep (p-1)*l from overflowing; any such page is past the last one.
	if p > math.MaxInt/l {
		p = math.MaxInt / l
	}
	return Window{Page: p, Limit: l, Offset: (p - 1) * l}
}

// TotalPages is ceil(total / limit).
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
