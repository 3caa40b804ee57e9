// Package query turns recognized client parameters into validated predicates,
// orderings and pagination windows. Field names never come from the client:
// they are taken from the per-kind filter tables the caller passes in.
package query

import (
	"math"
	"strconv"
	"strings"

	"github.com/starford/raido/internal/models"
)

// Recognized parameter names shared by every kind.
const (
	ParamSearch          = "search"
	ParamSort            = "sort"
	ParamSortBy          = "sortBy"
	ParamSortOrder       = "sortOrder"
	ParamPage            = "page"
	ParamLimit           = "limit"
	ParamIncludeInactive = "includeInactive"
)

// Op is a comparison operator.
type Op string

// Supported operators.
const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

// Condition compares one document field against a value.
// For OpIn, Value is a []string.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// TextMatch is a free-text condition over a fixed set of indexed fields.
type TextMatch struct {
	Query  string
	Fields []string
}

// Predicate is the conjunction of all its parts. States restricts the
// lifecycle states that may match; it is never empty once built.
type Predicate struct {
	Conditions []Condition
	Text       *TextMatch
	States     []models.State
}

// FilterSpec binds a query parameter to a document field and operator.
type FilterSpec struct {
	Param string
	Field string
	Op    Op
}

// IsNumeric reports whether the filter expects a numeric value.
func (s FilterSpec) IsNumeric() bool {
	return s.Op == OpGte || s.Op == OpLte
}

// BuildFilter combines the supplied parameters into a Predicate. Parameters
// that are absent, empty, or not listed in specs are ignored; range bounds
// that do not parse as numbers are treated as absent.
func BuildFilter(params map[string]string, specs []FilterSpec, textFields []string) Predicate {
	p := Predicate{States: []models.State{models.StateActive}}
	if isTrue(params[ParamIncludeInactive]) {
		p.States = append(p.States, models.StateInactive)
	}

	for _, f := range specs {
		raw := strings.TrimSpace(params[f.Param])
		if raw == "" {
			continue
		}
		if f.IsNumeric() {
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
				continue
			}
			p.Conditions = append(p.Conditions, Condition{Field: f.Field, Op: f.Op, Value: n})
			continue
		}
		p.Conditions = append(p.Conditions, Condition{Field: f.Field, Op: OpEq, Value: raw})
	}

	if q := strings.TrimSpace(params[ParamSearch]); q != "" && len(textFields) > 0 {
		p.Text = &TextMatch{Query: q, Fields: textFields}
	}
	return p
}

// ByIDs matches the given identifiers in any of the given states.
func ByIDs(ids []string, states ...models.State) Predicate {
	return Predicate{
		Conditions: []Condition{{Field: models.KeyID, Op: OpIn, Value: ids}},
		States:     states,
	}
}

// Params flattens multi-valued query parameters, keeping the first value.
func Params(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func isTrue(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
