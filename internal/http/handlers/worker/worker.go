// Package worker contains the HTTP handlers for the Worker resource.
//
// Each handler is built by a method on Handler that closes over the
// injected store and event sink and returns the http.HandlerFunc the router
// needs:
//
//	mux.HandleFunc("POST /api/workers", h.Create())
//
// Every request ends in exactly one event on the sink, identified by worker
// id when there is one. The sink only observes; it never changes a response.
package worker

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aanand-mishra/workforce-api/internal/events"
	"github.com/aanand-mishra/workforce-api/internal/http/middleware"
	"github.com/aanand-mishra/workforce-api/internal/storage"
	"github.com/aanand-mishra/workforce-api/internal/types"
	"github.com/aanand-mishra/workforce-api/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

const (
	notFoundMessage      = "Worker not found"
	duplicateEmailMsg    = "worker with this email already exists."
	internalErrorMessage = "internal server error"

	healthTimeout = 2 * time.Second
)

type Handler struct {
	store    storage.Storage
	sink     events.Sink
	validate *validator.Validate
}

func NewHandler(store storage.Storage, sink events.Sink) *Handler {
	return &Handler{
		store:    store,
		sink:     sink,
		validate: newValidator(),
	}
}

// RegisterRoutes wires the worker API onto mux.
//
//	GET    /api/workers        → list (?search=, ?role=)
//	POST   /api/workers        → create
//	GET    /api/workers/{id}   → retrieve
//	PUT    /api/workers/{id}   → full update
//	PATCH  /api/workers/{id}   → partial update
//	DELETE /api/workers/{id}   → delete
//	GET    /healthz            → store liveness
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/workers", h.List())
	mux.HandleFunc("POST /api/workers", h.Create())
	mux.HandleFunc("GET /api/workers/{id}", h.Retrieve())
	mux.HandleFunc("PUT /api/workers/{id}", h.Update())
	mux.HandleFunc("PATCH /api/workers/{id}", h.PartialUpdate())
	mux.HandleFunc("DELETE /api/workers/{id}", h.Delete())
	mux.HandleFunc("GET /healthz", h.Health())
}

// ─────────────────────────────────────────────────────────────────────────────
// List handles GET /api/workers
//
// Query parameters (both optional, combined with AND):
//
//	search — case-insensitive substring of the name
//	role   — exact role
//
// Success response (200 OK):
//
//	{ "status": "success", "data": [ { "id": 1, "name": "vimal raj", ... } ] }
//
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := types.WorkerFilter{
			Search: strings.TrimSpace(q.Get("search")),
			Role:   q.Get("role"),
		}

		workers, err := h.store.ListWorkers(r.Context(), filter)
		if err != nil {
			h.failed(w, r, events.ActionList, 0, err)
			return
		}

		h.record(r, events.ActionList, events.OutcomeSuccess, 0,
			strconv.Itoa(len(workers))+" workers")
		response.WriteJSON(w, http.StatusOK, response.Success(toResponses(workers)))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Create handles POST /api/workers
//
// Request body (JSON):
//
//	{ "name": "vimal raj", "email": "vimalraj@gmail.com", "role": "devops" }
//
// Success response (201 Created), the stored worker with its new id:
//
//	{ "status": "success", "data": { "id": 1, "name": "vimal raj", ... } }
//
// Error responses:
//
//	400 Bad Request  — empty body, malformed JSON, field errors, duplicate email
//	500 Internal     — database error
//
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req workerRequest
		if msg, ok := decodeJSON(w, r, &req); !ok {
			h.invalid(w, r, events.ActionCreate, 0, msg)
			return
		}
		req.trim()

		fields, err := h.fieldErrors(r.Context(), req, req.Email, 0)
		if err != nil {
			h.failed(w, r, events.ActionCreate, 0, err)
			return
		}
		if len(fields) > 0 {
			h.invalid(w, r, events.ActionCreate, 0, response.Error(fields))
			return
		}

		created, err := h.store.CreateWorker(r.Context(), req.toWorker())
		if errors.Is(err, storage.ErrDuplicateEmail) {
			// Lost a race with a concurrent create of the same email.
			h.invalid(w, r, events.ActionCreate, 0, duplicateEmail())
			return
		}
		if err != nil {
			h.failed(w, r, events.ActionCreate, 0, err)
			return
		}

		h.record(r, events.ActionCreate, events.OutcomeSuccess, created.ID, "")
		response.WriteJSON(w, http.StatusCreated, response.Success(toResponse(created)))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Retrieve handles GET /api/workers/{id}
//
// Error responses:
//
//	404 Not Found — unknown or non-numeric id: { "error": "Worker not found" }
//
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler) Retrieve() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			h.notFound(w, r, events.ActionRetrieve, 0)
			return
		}

		worker, err := h.store.GetWorkerByID(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			h.notFound(w, r, events.ActionRetrieve, id)
			return
		}
		if err != nil {
			h.failed(w, r, events.ActionRetrieve, id, err)
			return
		}

		h.record(r, events.ActionRetrieve, events.OutcomeSuccess, id, "")
		response.WriteJSON(w, http.StatusOK, response.Success(toResponse(worker)))
	}
}

// Update handles PUT /api/workers/{id}. All three fields are required.
func (h *Handler) Update() http.HandlerFunc {
	return h.update(false)
}

// PartialUpdate handles PATCH /api/workers/{id}. Only the supplied fields
// change; the others keep their stored value.
func (h *Handler) PartialUpdate() http.HandlerFunc {
	return h.update(true)
}

// ─────────────────────────────────────────────────────────────────────────────
// update backs both PUT and PATCH.
//
// The worker is looked up before the body is read, so an unknown id is a
// 404 even when the payload would also fail validation. The email
// uniqueness check ignores the worker being updated, so re-sending its own
// email is fine.
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler) update(partial bool) http.HandlerFunc {
	action := events.ActionUpdate
	if partial {
		action = events.ActionPartialUpdate
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			h.notFound(w, r, action, 0)
			return
		}

		if _, err := h.store.GetWorkerByID(r.Context(), id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				h.notFound(w, r, action, id)
				return
			}
			h.failed(w, r, action, id, err)
			return
		}

		var (
			payload any
			email   *string
			update  types.WorkerUpdate
		)
		if partial {
			var patch workerPatch
			if msg, ok := decodeJSON(w, r, &patch); !ok {
				h.invalid(w, r, action, id, msg)
				return
			}
			patch.trim()
			payload, email, update = patch, patch.Email, patch.toUpdate()
		} else {
			var req workerRequest
			if msg, ok := decodeJSON(w, r, &req); !ok {
				h.invalid(w, r, action, id, msg)
				return
			}
			req.trim()
			payload, email, update = req, req.Email, req.toUpdate()
		}

		fields, err := h.fieldErrors(r.Context(), payload, email, id)
		if err != nil {
			h.failed(w, r, action, id, err)
			return
		}
		if len(fields) > 0 {
			h.invalid(w, r, action, id, response.Error(fields))
			return
		}

		updated, err := h.store.UpdateWorker(r.Context(), id, update)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// Deleted between the lookup and the write.
			h.notFound(w, r, action, id)
			return
		case errors.Is(err, storage.ErrDuplicateEmail):
			h.invalid(w, r, action, id, duplicateEmail())
			return
		case err != nil:
			h.failed(w, r, action, id, err)
			return
		}

		h.record(r, action, events.OutcomeSuccess, id, "")
		response.WriteJSON(w, http.StatusOK, response.Success(toResponse(updated)))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/workers/{id}
// Permanently removes the worker.
//
// Success response: 204 No Content, empty body.
// Error responses:  404 Not Found — { "error": "Worker not found" }
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			h.notFound(w, r, events.ActionDelete, 0)
			return
		}

		err := h.store.DeleteWorkerByID(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			h.notFound(w, r, events.ActionDelete, id)
			return
		}
		if err != nil {
			h.failed(w, r, events.ActionDelete, id, err)
			return
		}

		h.record(r, events.ActionDelete, events.OutcomeSuccess, id, "")
		response.NoContent(w)
	}
}

// Health handles GET /healthz by pinging the store.
func (h *Handler) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := h.store.Ping(ctx); err != nil {
			response.WriteJSON(w, http.StatusServiceUnavailable,
				response.Error("store unavailable"))
			return
		}
		response.WriteJSON(w, http.StatusOK,
			response.Success(map[string]string{"store": "ok"}))
	}
}

// fieldErrors validates payload and, when the email itself is valid,
// checks that no worker other than excludeID already uses it.
func (h *Handler) fieldErrors(ctx context.Context, payload any, email *string, excludeID int64) (response.FieldErrors, error) {
	fields := response.FieldErrors{}

	if err := h.validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		fields = response.ValidationError(verrs)
	}

	if email != nil && len(fields["email"]) == 0 {
		taken, err := h.store.EmailExists(ctx, *email, excludeID)
		if err != nil {
			return nil, err
		}
		if taken {
			fields.Add("email", duplicateEmailMsg)
		}
	}

	return fields, nil
}

func duplicateEmail() response.Response {
	return response.Error(response.FieldErrors{"email": {duplicateEmailMsg}})
}

// parseID reads the {id} path segment. Anything but a positive integer
// cannot name a worker.
func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) record(r *http.Request, action events.Action, outcome events.Outcome, id int64, detail string) {
	h.sink.Record(r.Context(), events.Event{
		Action:    action,
		Outcome:   outcome,
		WorkerID:  id,
		RequestID: middleware.RequestIDFromContext(r.Context()),
		Detail:    detail,
		Time:      time.Now().UTC(),
	})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, action events.Action, id int64) {
	h.record(r, action, events.OutcomeNotFound, id, "")
	response.WriteJSON(w, http.StatusNotFound, response.NotFound(notFoundMessage))
}

func (h *Handler) invalid(w http.ResponseWriter, r *http.Request, action events.Action, id int64, body response.Response) {
	h.record(r, action, events.OutcomeInvalid, id, describe(body.Message))
	response.WriteJSON(w, http.StatusBadRequest, body)
}

// failed reports an unexpected store error. Its text goes to the event
// stream only; clients get a generic message.
func (h *Handler) failed(w http.ResponseWriter, r *http.Request, action events.Action, id int64, err error) {
	h.record(r, action, events.OutcomeFailed, id, err.Error())
	response.WriteJSON(w, http.StatusInternalServerError, response.Error(internalErrorMessage))
}

// describe flattens an error message for the event stream: field errors
// become their sorted field names.
func describe(message any) string {
	switch m := message.(type) {
	case string:
		return m
	case response.FieldErrors:
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		return "invalid fields: " + strings.Join(names, ",")
	default:
		return ""
	}
}
