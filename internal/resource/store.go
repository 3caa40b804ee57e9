// Package resource implements the generic query and referential-integrity
// engine shared by every resource kind. Kind-specific behavior comes only
// from the static tables in package schema.
package resource

import (
	"context"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/query"
)

// Store is the storage collaborator. Implementations report
// apperr.ErrMalformedID for identifiers that cannot exist and
// apperr.ErrNotFound for well-formed identifiers that do not match.
type Store interface {
	Find(ctx context.Context, kind models.Kind, p query.Predicate, o query.Sort, w query.Window) ([]*models.Document, error)
	// FindPage reads a window and the total match count as one consistent
	// snapshot.
	FindPage(ctx context.Context, kind models.Kind, p query.Predicate, o query.Sort, w query.Window) ([]*models.Document, int, error)
	Get(ctx context.Context, kind models.Kind, id string, states ...models.State) (*models.Document, error)
	Insert(ctx context.Context, kind models.Kind, fields map[string]any) (*models.Document, error)
	Update(ctx context.Context, kind models.Kind, id string, patch map[string]any, states ...models.State) (*models.Document, error)
	Delete(ctx context.Context, kind models.Kind, id string, states ...models.State) (*models.Document, error)
	SetState(ctx context.Context, kind models.Kind, id string, to models.State, from ...models.State) (*models.Document, error)
}

// Notifier receives an event after every successful write.
type Notifier interface {
	Publish(ev models.Event)
}
