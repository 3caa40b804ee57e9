// Package models defines the domain types shared by the storage, engine and API layers.
package models

import (
	"encoding/json"
	"time"
)

// Kind names a resource type.
type Kind string

// Resource kinds.
const (
	KindUser     Kind = "user"
	KindProject  Kind = "project"
	KindTask     Kind = "task"
	KindProduct  Kind = "product"
	KindCategory Kind = "category"
)

// State is the lifecycle state of a resource.
type State string

// Lifecycle states. Removed documents are never stored; the state only
// appears as the outcome of a hard delete.
const (
	StateActive   State = "active"
	StateInactive State = "inactive"
	StateRemoved  State = "removed"
)

// Reserved keys that live on the document itself rather than in Fields.
const (
	KeyID        = "id"
	KeyState     = "state"
	KeyCreatedAt = "createdAt"
	KeyUpdatedAt = "updatedAt"
)

// Document is a stored resource instance.
type Document struct {
	ID        string
	Kind      Kind
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
	Fields    map[string]any
}

// Record flattens the document into a JSON-ready map. Fields are copied so
// that reference expansion can replace values without touching the document.
func (d *Document) Record() Record {
	rec := make(Record, len(d.Fields)+4)
	for k, v := range d.Fields {
		rec[k] = v
	}
	rec[KeyID] = d.ID
	rec[KeyState] = d.State
	rec[KeyCreatedAt] = d.CreatedAt
	rec[KeyUpdatedAt] = d.UpdatedAt
	return rec
}

// MarshalJSON renders the document in its flattened form.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Record())
}

// Record is the flattened, reference-expanded view of a document.
type Record map[string]any

// Embed is the read-only summary of a referenced resource.
type Embed map[string]any

// Event describes a change to a resource, published to subscribers.
type Event struct {
	Kind  Kind   `json:"kind"`
	ID    string `json:"id"`
	State State  `json:"state"`
	Op    string `json:"op"` // "created", "updated" or "deleted"
}
