// Package schema holds the static per-kind field tables: which fields exist,
// how they are validated, which are filterable, searchable and sortable,
// which hold references, and how each kind is deleted.
package schema

import (
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/query"
)

// FieldType is the declared type of a document field.
type FieldType int

// Field types.
const (
	TypeString FieldType = iota
	TypeNumber
	TypeEnum
	TypeDate
	TypeRef
	TypeRefList
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeEnum:
		return "enum"
	case TypeDate:
		return "date"
	case TypeRef:
		return "ref"
	case TypeRefList:
		return "refList"
	}
	return "unknown"
}

// Field declares one document field.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	Trim     bool
	Enum     []string
	Default  any
	Rules    []validation.Rule
	// Element describes the sub-document fields of a TypeRefList field.
	Element []Field
}

// Reference declares a field that points at another resource.
type Reference struct {
	Field      string
	Kind       models.Kind
	Projection []string
	// ElemKey is set when Field holds a list of sub-documents; the referenced
	// id lives under ElemKey in each element.
	ElemKey string
	// Acyclic forbids a chain of references of the same kind from looping
	// back to the document being written.
	Acyclic bool
}

// DeletePolicy is fixed per kind.
type DeletePolicy int

// Delete policies.
const (
	SoftDelete DeletePolicy = iota
	HardDelete
)

func (p DeletePolicy) String() string {
	if p == HardDelete {
		return "hard"
	}
	return "soft"
}

// Kind is the full static description of one resource kind.
type Kind struct {
	Name       models.Kind
	Plural     string
	Fields     []Field
	Unique     []string
	Filters    []query.FilterSpec
	TextFields []string
	SortFields []string
	References []Reference
	Delete     DeletePolicy
	// HideInactiveByID makes inactive documents invisible to by-id lookup,
	// update and reference embedding.
	HideInactiveByID bool
	// InactiveReferenceable lets new writes point at inactive documents.
	InactiveReferenceable bool
	MaxLimit              int
	// Check runs after field rules pass, for cross-field constraints.
	Check func(fields map[string]any) error
}

// Field returns the declared field called name.
func (k *Kind) Field(name string) (Field, bool) {
	for _, f := range k.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Reference returns the reference declared on field, if any.
func (k *Kind) Reference(field string) (Reference, bool) {
	for _, r := range k.References {
		if r.Field == field {
			return r, true
		}
	}
	return Reference{}, false
}

// IsUnique reports whether field carries a uniqueness constraint.
func (k *Kind) IsUnique(field string) bool {
	return slices.Contains(k.Unique, field)
}

// Searchable reports whether the kind supports free-text search.
func (k *Kind) Searchable() bool {
	return len(k.TextFields) > 0
}

// ByIDStates lists the states visible to by-id lookup and reference embeds.
func (k *Kind) ByIDStates() []models.State {
	if k.HideInactiveByID {
		return []models.State{models.StateActive}
	}
	return []models.State{models.StateActive, models.StateInactive}
}

// VisibleByID reports whether a document in state s can be read by id.
func (k *Kind) VisibleByID(s models.State) bool {
	return slices.Contains(k.ByIDStates(), s)
}

// Referenceable reports whether a new reference may target a document in state s.
func (k *Kind) Referenceable(s models.State) bool {
	return s == models.StateActive || (s == models.StateInactive && k.InactiveReferenceable)
}

// Sanitize keeps only declared, non-reserved fields of input, trims string
// fields marked Trim, turns empty reference ids into nil, and, when create
// is true, fills defaults for absent fields.
func (k *Kind) Sanitize(input map[string]any, create bool) map[string]any {
	out := make(map[string]any, len(k.Fields))
	for _, f := range k.Fields {
		v, ok := input[f.Name]
		if !ok {
			if create && f.Default != nil {
				out[f.Name] = defaultValue(f.Default)
			}
			continue
		}
		out[f.Name] = normalize(f, v)
	}
	return out
}

func normalize(f Field, v any) any {
	switch f.Type {
	case TypeRef:
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return nil
		}
	case TypeRefList:
		items, ok := v.([]any)
		if !ok {
			return v
		}
		elems := make([]any, 0, len(items))
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				elems = append(elems, item)
				continue
			}
			kind := Kind{Fields: f.Element}
			elems = append(elems, kind.Sanitize(m, true))
		}
		return elems
	}
	if s, ok := v.(string); ok && f.Trim {
		return strings.TrimSpace(s)
	}
	return v
}

func defaultValue(v any) any {
	if _, ok := v.([]any); ok {
		return []any{}
	}
	return v
}
