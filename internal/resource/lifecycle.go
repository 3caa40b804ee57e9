package resource

import (
	"context"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/schema"
)

// Lifecycle applies each kind's fixed delete policy. Both transitions start
// from Active and are terminal.
type Lifecycle struct {
	store Store
}

// NewLifecycle creates a lifecycle manager over store.
func NewLifecycle(store Store) *Lifecycle {
	return &Lifecycle{store: store}
}

// Delete moves the document to Inactive (soft) or discards it (hard) and
// returns it in its resulting state. Documents that are not Active are
// reported as not found.
func (l *Lifecycle) Delete(ctx context.Context, sk *schema.Kind, id string) (*models.Document, error) {
	if sk.Delete == schema.SoftDelete {
		return l.store.SetState(ctx, sk.Name, id, models.StateInactive, models.StateActive)
	}
	d, err := l.store.Delete(ctx, sk.Name, id, models.StateActive)
	if err != nil {
		return nil, err
	}
	d.State = models.StateRemoved
	return d, nil
}

// Writable lists the states in which a document of sk accepts updates.
// Removed documents are gone; inactive ones follow by-id visibility.
func (l *Lifecycle) Writable(sk *schema.Kind) []models.State {
	return sk.ByIDStates()
}
