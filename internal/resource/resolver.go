package resource

import (
	"context"
	"fmt"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/query"
	"github.com/starford/raido/internal/schema"
)

// Resolver replaces reference ids with read-only summaries of the
// referenced documents. Ids that no longer resolve become null.
type Resolver struct {
	store Store
	kinds *schema.Registry
}

// NewResolver creates a resolver over store.
func NewResolver(store Store, kinds *schema.Registry) *Resolver {
	return &Resolver{store: store, kinds: kinds}
}

// Expand flattens docs of kind sk into records with every declared
// reference embedded. Each target kind is fetched with a single query.
func (r *Resolver) Expand(ctx context.Context, sk *schema.Kind, docs []*models.Document) ([]models.Record, error) {
	wanted := map[models.Kind]map[string]struct{}{}
	for _, ref := range sk.References {
		for _, d := range docs {
			for _, id := range refIDs(ref, d.Fields) {
				if wanted[ref.Kind] == nil {
					wanted[ref.Kind] = map[string]struct{}{}
				}
				wanted[ref.Kind][id] = struct{}{}
			}
		}
	}

	found := make(map[models.Kind]map[string]*models.Document, len(wanted))
	for kind, set := range wanted {
		target, ok := r.kinds.Get(kind)
		if !ok {
			return nil, fmt.Errorf("resource: unknown reference kind %q", kind)
		}
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		hits, err := r.store.Find(ctx, kind, query.ByIDs(ids, target.ByIDStates()...), query.DefaultSort, query.Window{})
		if err != nil {
			return nil, err
		}
		byID := make(map[string]*models.Document, len(hits))
		for _, h := range hits {
			byID[h.ID] = h
		}
		found[kind] = byID
	}

	out := make([]models.Record, len(docs))
	for i, d := range docs {
		rec := d.Record()
		for _, ref := range sk.References {
			embedRef(rec, ref, found[ref.Kind])
		}
		out[i] = rec
	}
	return out, nil
}

// ExpandOne is Expand for a single document.
func (r *Resolver) ExpandOne(ctx context.Context, sk *schema.Kind, d *models.Document) (models.Record, error) {
	recs, err := r.Expand(ctx, sk, []*models.Document{d})
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

func embedRef(rec models.Record, ref schema.Reference, found map[string]*models.Document) {
	v, ok := rec[ref.Field]
	if !ok {
		return
	}
	if ref.ElemKey == "" {
		rec[ref.Field] = embed(v, ref.Projection, found)
		return
	}
	items, ok := v.([]any)
	if !ok {
		return
	}
	expanded := make([]any, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			expanded[i] = item
			continue
		}
		cp := make(map[string]any, len(m))
		for k, val := range m {
			cp[k] = val
		}
		if val, ok := cp[ref.ElemKey]; ok {
			cp[ref.ElemKey] = embed(val, ref.Projection, found)
		}
		expanded[i] = cp
	}
	rec[ref.Field] = expanded
}

// embed returns the projection of the document id names, or nil.
func embed(v any, projection []string, found map[string]*models.Document) any {
	id, ok := v.(string)
	if !ok {
		return nil
	}
	d, ok := found[id]
	if !ok {
		return nil
	}
	e := models.Embed{models.KeyID: d.ID}
	for _, f := range projection {
		if val, ok := d.Fields[f]; ok {
			e[f] = val
		}
	}
	return e
}

// refIDs lists the non-empty ids held by ref in fields.
func refIDs(ref schema.Reference, fields map[string]any) []string {
	v, ok := fields[ref.Field]
	if !ok || v == nil {
		return nil
	}
	if ref.ElemKey == "" {
		if id, ok := v.(string); ok && id != "" {
			return []string{id}
		}
		return nil
	}
	items, _ := v.([]any)
	var ids []string
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := m[ref.ElemKey].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
