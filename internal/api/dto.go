package api

import (
	"github.com/starford/raido/internal/resource"
	"github.com/starford/raido/internal/schema"
)

// ListResponse is the paginated list envelope (aliased from the engine).
type ListResponse = resource.Page

// DeleteResponse reports the resulting state of a deleted resource.
type DeleteResponse = resource.Deleted

// KindsResponse wraps the kind descriptions.
type KindsResponse struct {
	Kinds []schema.KindInfo `json:"kinds" validate:"required"`
}
