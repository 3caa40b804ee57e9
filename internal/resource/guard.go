package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/schema"
)

// Guard runs every check a write must pass before it reaches storage.
type Guard struct {
	store Store
	kinds *schema.Registry
}

// NewGuard creates a guard over store.
func NewGuard(store Store, kinds *schema.Registry) *Guard {
	return &Guard{store: store, kinds: kinds}
}

// Check validates doc, the full document as it will be stored, and then
// confirms that every reference written by changes points at a document
// that may be referenced. selfID is empty on create.
//
// Validation failures short-circuit before any lookup. Lookups are not
// atomic with the write that follows; a referent deleted in between is
// accepted.
func (g *Guard) Check(ctx context.Context, sk *schema.Kind, selfID string, doc, changes map[string]any) error {
	if err := sk.Validate(doc); err != nil {
		return err
	}
	for _, ref := range sk.References {
		if _, ok := changes[ref.Field]; !ok {
			continue
		}
		target, ok := g.kinds.Get(ref.Kind)
		if !ok {
			return fmt.Errorf("resource: unknown reference kind %q", ref.Kind)
		}
		for _, rp := range refPaths(ref, changes) {
			if err := g.exists(ctx, target, rp.path, rp.id); err != nil {
				return err
			}
			if ref.Acyclic && selfID != "" {
				if err := g.acyclic(ctx, ref, rp.path, selfID, rp.id); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (g *Guard) exists(ctx context.Context, target *schema.Kind, path, id string) error {
	d, err := g.store.Get(ctx, target.Name, id)
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrMalformedID):
		return missingRef(path)
	case err != nil:
		return err
	}
	if !target.Referenceable(d.State) {
		return missingRef(path)
	}
	return nil
}

// acyclic follows ref from id and fails if the chain reaches selfID.
func (g *Guard) acyclic(ctx context.Context, ref schema.Reference, path, selfID, id string) error {
	seen := map[string]bool{}
	for cur := id; cur != "" && !seen[cur]; {
		if cur == selfID {
			return apperr.InvalidInput(path, fmt.Sprintf("%s would create a cycle", path))
		}
		seen[cur] = true
		d, err := g.store.Get(ctx, ref.Kind, cur)
		if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrMalformedID) {
			return nil
		}
		if err != nil {
			return err
		}
		cur, _ = d.Fields[ref.Field].(string)
	}
	return nil
}

func missingRef(path string) error {
	return apperr.NotFound(path, fmt.Sprintf("referenced %s does not exist", path))
}

type refPath struct {
	path string // e.g. "owner" or "teamMembers.2.user"
	id   string
}

// refPaths lists every non-empty id written by ref, in field order.
func refPaths(ref schema.Reference, fields map[string]any) []refPath {
	var out []refPath
	v := fields[ref.Field]
	if ref.ElemKey == "" {
		if id, ok := v.(string); ok && id != "" {
			out = append(out, refPath{path: ref.Field, id: id})
		}
		return out
	}
	items, _ := v.([]any)
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := m[ref.ElemKey].(string); ok && id != "" {
			out = append(out, refPath{path: fmt.Sprintf("%s.%d.%s", ref.Field, i, ref.ElemKey), id: id})
		}
	}
	return out
}
