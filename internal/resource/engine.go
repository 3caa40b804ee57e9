package resource

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/query"
	"github.com/starford/raido/internal/schema"
)

// Page is the list response envelope.
type Page struct {
	TotalItems  int             `json:"totalItems"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	Items       []models.Record `json:"items"`
}

// Deleted reports the outcome of a delete.
type Deleted struct {
	ID    string       `json:"id"`
	State models.State `json:"state"`
}

// Engine runs the read pipeline (filter, sort, paginate, fetch, resolve)
// and the write pipeline (sanitize, guard, write, notify) for every kind.
type Engine struct {
	kinds        *schema.Registry
	store        Store
	resolver     *Resolver
	guard        *Guard
	lifecycle    *Lifecycle
	notifier     Notifier
	logger       *slog.Logger
	defaultLimit int
	maxLimit     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier publishes an event after every successful write.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLimits sets the default page size and the upper bound applied to
// kinds that do not declare their own.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(e *Engine) {
		if defaultLimit > 0 {
			e.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			e.maxLimit = maxLimit
		}
	}
}

// WithLogger sets the logger used for write events.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over store for the kinds in registry.
func New(store Store, kinds *schema.Registry, opts ...Option) *Engine {
	e := &Engine{
		kinds:        kinds,
		store:        store,
		resolver:     NewResolver(store, kinds),
		guard:        NewGuard(store, kinds),
		lifecycle:    NewLifecycle(store),
		logger:       slog.Default(),
		defaultLimit: query.DefaultLimit,
		maxLimit:     query.MaxLimit,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Kinds returns the registry the engine serves.
func (e *Engine) Kinds() *schema.Registry {
	return e.kinds
}

func (e *Engine) kind(name models.Kind) (*schema.Kind, error) {
	sk, ok := e.kinds.Get(name)
	if !ok {
		return nil, apperr.NotFound("kind", fmt.Sprintf("unknown kind %q", name))
	}
	return sk, nil
}

// List returns one page of documents of kind matching the recognized
// parameters. Unrecognized parameters are ignored.
func (e *Engine) List(ctx context.Context, kind models.Kind, params map[string]string) (*Page, error) {
	sk, err := e.kind(kind)
	if err != nil {
		return nil, err
	}
	p := query.BuildFilter(params, sk.Filters, sk.TextFields)
	o := query.ResolveSort(params, sk.SortFields, p.Text != nil)
	return e.page(ctx, sk, p, o, params)
}

// Search is List with a mandatory free-text query, ordered by relevance.
func (e *Engine) Search(ctx context.Context, kind models.Kind, text string, params map[string]string) (*Page, error) {
	sk, err := e.kind(kind)
	if err != nil {
		return nil, err
	}
	if !sk.Searchable() {
		return nil, apperr.InvalidInput("query", fmt.Sprintf("%s does not support search", sk.Plural))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.InvalidInput("query", "search query is required")
	}
	params = maps.Clone(params)
	if params == nil {
		params = map[string]string{}
	}
	params[query.ParamSearch] = text
	p := query.BuildFilter(params, sk.Filters, sk.TextFields)
	return e.page(ctx, sk, p, query.Sort{ByRelevance: true}, params)
}

func (e *Engine) page(ctx context.Context, sk *schema.Kind, p query.Predicate, o query.Sort, params map[string]string) (*Page, error) {
	maxLimit := e.maxLimit
	if sk.MaxLimit > 0 {
		maxLimit = sk.MaxLimit
	}
	w := query.Paginate(params[query.ParamPage], params[query.ParamLimit], e.defaultLimit, maxLimit)

	docs, total, err := e.store.FindPage(ctx, sk.Name, p, o, w)
	if err != nil {
		return nil, err
	}
	items, err := e.resolver.Expand(ctx, sk, docs)
	if err != nil {
		return nil, err
	}
	return &Page{
		TotalItems:  total,
		TotalPages:  query.TotalPages(total, w.Limit),
		CurrentPage: w.Page,
		Items:       items,
	}, nil
}

// Get returns the document of kind with id, references expanded.
func (e *Engine) Get(ctx context.Context, kind models.Kind, id string) (models.Record, error) {
	sk, err := e.kind(kind)
	if err != nil {
		return nil, err
	}
	d, err := e.store.Get(ctx, kind, id, sk.ByIDStates()...)
	if err != nil {
		return nil, err
	}
	return e.resolver.ExpandOne(ctx, sk, d)
}

// Create validates input, checks its references and stores it.
func (e *Engine) Create(ctx context.Context, kind models.Kind, input map[string]any) (models.Record, error) {
	sk, err := e.kind(kind)
	if err != nil {
		return nil, err
	}
	fields := sk.Sanitize(input, true)
	if err := e.guard.Check(ctx, sk, "", fields, fields); err != nil {
		return nil, err
	}
	d, err := e.store.Insert(ctx, kind, fields)
	if err != nil {
		return nil, err
	}
	e.notify(d, "created")
	return e.resolver.ExpandOne(ctx, sk, d)
}

// Update merges input into the document of kind with id. References are
// checked only for the fields input changes.
func (e *Engine) Update(ctx context.Context, kind models.Kind, id string, input map[string]any) (models.Record, error) {
	sk, err := e.kind(kind)
	if err != nil {
		return nil, err
	}
	states := e.lifecycle.Writable(sk)
	cur, err := e.store.Get(ctx, kind, id, states...)
	if err != nil {
		return nil, err
	}
	patch := sk.Sanitize(input, false)
	if len(patch) == 0 {
		return e.resolver.ExpandOne(ctx, sk, cur)
	}

	merged := maps.Clone(cur.Fields)
	maps.Copy(merged, patch)
	if err := e.guard.Check(ctx, sk, id, merged, patch); err != nil {
		return nil, err
	}
	d, err := e.store.Update(ctx, kind, id, patch, states...)
	if err != nil {
		return nil, err
	}
	e.notify(d, "updated")
	return e.resolver.ExpandOne(ctx, sk, d)
}

// Delete applies the kind's delete policy to the document with id.
func (e *Engine) Delete(ctx context.Context, kind models.Kind, id string) (*Deleted, error) {
	sk, err := e.kind(kind)
	if err != nil {
		return nil, err
	}
	d, err := e.lifecycle.Delete(ctx, sk, id)
	if err != nil {
		return nil, err
	}
	e.notify(d, "deleted")
	return &Deleted{ID: d.ID, State: d.State}, nil
}

func (e *Engine) notify(d *models.Document, op string) {
	e.logger.Debug("resource: "+op,
		slog.String("kind", string(d.Kind)),
		slog.String("id", d.ID),
		slog.String("state", string(d.State)))
	if e.notifier != nil {
		e.notifier.Publish(models.Event{Kind: d.Kind, ID: d.ID, State: d.State, Op: op})
	}
}
