package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/query"
	"github.com/starford/raido/internal/resource"
	"github.com/starford/raido/internal/schema"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the routes of one kind.
type Handler struct {
	engine *resource.Engine
	kind   models.Kind
}

// NewHandler creates a new Handler for kind.
func NewHandler(engine *resource.Engine, kind models.Kind) *Handler {
	return &Handler{engine: engine, kind: kind}
}

func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("request body too large"))
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return nil, false
	}
	if body == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("request body must be a JSON object"))
		return nil, false
	}
	return body, true
}

// List handles GET /api/{plural}.
//
//	@Summary		List resources with filters, sort and pagination
//	@Tags			resources
//	@Produce		json
//	@Param			page			query		int		false	"1-based page"
//	@Param			limit			query		int		false	"Page size"
//	@Param			sort			query		string	false	"Sort field, '-field' or 'field:desc'"
//	@Param			search			query		string	false	"Free-text search"
//	@Param			includeInactive	query		bool	false	"Include soft-deleted resources"
//	@Success		200				{object}	ListResponse
//	@Security		BearerAuth
//	@Router			/{plural} [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.engine.List(r.Context(), h.kind, query.Params(r.URL.Query()))
	if err != nil {
		writeError(w, err, "list failed", slog.String("kind", string(h.kind)))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Search handles GET /api/{plural}/search.
//
//	@Summary		Full-text search, most relevant first
//	@Tags			resources
//	@Produce		json
//	@Param			query	query		string	true	"Search query (alias q)"
//	@Success		200		{object}	ListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/{plural}/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params := query.Params(r.URL.Query())
	q := params["query"]
	if q == "" {
		q = params["q"]
	}
	page, err := h.engine.Search(r.Context(), h.kind, q, params)
	if err != nil {
		writeError(w, err, "search failed", slog.String("kind", string(h.kind)), slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /api/{plural}/{id}.
//
//	@Summary		Get a single resource with references expanded
//	@Tags			resources
//	@Produce		json
//	@Param			id	path		string	true	"Resource id"
//	@Success		200	{object}	map[string]any
//	@Success		304	"Not modified"
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/{plural}/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.engine.Get(r.Context(), h.kind, id)
	if err != nil {
		writeError(w, err, "get failed", slog.String("kind", string(h.kind)), slog.String("id", id))
		return
	}
	body, err := json.Marshal(rec)
	if err != nil {
		writeError(w, err, "encode failed", slog.String("kind", string(h.kind)), slog.String("id", id))
		return
	}
	tag := checksum.ETag(body)
	w.Header().Set("ETag", tag)
	if checksum.Match(r.Header.Get("If-None-Match"), tag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}

// Create handles POST /api/{plural}.
//
//	@Summary		Create a resource
//	@Tags			resources
//	@Accept			json
//	@Produce		json
//	@Param			body	body		map[string]any	true	"Resource fields"
//	@Success		201		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/{plural} [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	rec, err := h.engine.Create(r.Context(), h.kind, body)
	if err != nil {
		writeError(w, err, "create failed", slog.String("kind", string(h.kind)))
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Update handles PUT and PATCH /api/{plural}/{id}. Both merge the given
// fields into the stored resource.
//
//	@Summary		Update some fields of a resource
//	@Tags			resources
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Resource id"
//	@Param			body	body		map[string]any	true	"Fields to change"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/{plural}/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	rec, err := h.engine.Update(r.Context(), h.kind, id, body)
	if err != nil {
		writeError(w, err, "update failed", slog.String("kind", string(h.kind)), slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /api/{plural}/{id}.
//
//	@Summary		Delete a resource using its kind's policy
//	@Tags			resources
//	@Produce		json
//	@Param			id	path		string	true	"Resource id"
//	@Success		200	{object}	DeleteResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/{plural}/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.engine.Delete(r.Context(), h.kind, id)
	if err != nil {
		writeError(w, err, "delete failed", slog.String("kind", string(h.kind)), slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// KindsHandler serves GET /api/kinds.
type KindsHandler struct {
	kinds []schema.KindInfo
}

// NewKindsHandler describes the kinds in registry once.
func NewKindsHandler(registry *schema.Registry) *KindsHandler {
	return &KindsHandler{kinds: registry.Describe()}
}

// ServeHTTP handles GET /api/kinds.
//
//	@Summary		Describe every resource kind
//	@Tags			schema
//	@Produce		json
//	@Success		200	{object}	KindsResponse
//	@Security		BearerAuth
//	@Router			/kinds [get]
func (h *KindsHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, KindsResponse{Kinds: h.kinds})
}
