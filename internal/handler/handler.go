// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"eventhub/internal/auth"
	"eventhub/internal/model"
	"eventhub/internal/query"
	"eventhub/internal/repository"
	"eventhub/internal/service"
)

// EventHandler holds all HTTP handlers for the event directory API.
type EventHandler struct {
	events *service.EventService
	users  *service.UserService
	logger zerolog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *service.EventService, users *service.UserService, logger zerolog.Logger) *EventHandler {
	return &EventHandler{events: events, users: users, logger: logger}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

// decodeJSON decodes a request body into dst. Unknown fields are ignored so
// a client-supplied status or organizer on create/update has no effect.
func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeServiceError maps domain errors onto HTTP statuses. Unclassified
// errors are logged and become a generic 500 so internals never leak.
func (h *EventHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, model.ErrNotOrganizer), errors.Is(err, model.ErrViewForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrEventNotPublished),
		errors.Is(err, model.ErrOrganizerJoin),
		errors.Is(err, model.ErrAlreadyParticipating),
		errors.Is(err, model.ErrNotParticipating),
		errors.Is(err, model.ErrEventFull):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, repository.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, please retry")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// callerID returns the authenticated user id, or "" for anonymous callers.
func callerID(r *http.Request) string {
	id, _ := auth.CallerID(r.Context())
	return id
}

// ─── Event handlers ───────────────────────────────────────────────────────────

// ListEvents handles GET /api/events
// Filters: search, category, date (today|tomorrow|week|month), lat, lng,
// radius (km). Malformed optional filters are dropped, not rejected.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	f, dropped := query.ParseFilter(r.URL.Query(), time.Now)
	for _, name := range dropped {
		h.logger.Debug().Str("filter", name).Str("query", r.URL.RawQuery).
			Msg("dropped malformed filter")
	}

	events, err := h.events.List(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := h.events.Get(r.Context(), id, callerID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// CreateEvent handles POST /api/events
// The caller becomes organizer and the event always starts as a draft.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.Create(r.Context(), callerID(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// UpdateEvent handles PUT /api/events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch model.UpdateEventRequest
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.Update(r.Context(), id, callerID(r), patch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /api/events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.events.Delete(r.Context(), id, callerID(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// JoinEvent handles POST /api/events/{id}/join
func (h *EventHandler) JoinEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := h.events.Join(r.Context(), id, callerID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// LeaveEvent handles POST /api/events/{id}/leave
func (h *EventHandler) LeaveEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := h.events.Leave(r.Context(), id, callerID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ─── Auth handlers ────────────────────────────────────────────────────────────

// Register handles POST /api/auth/register
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.users.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login
func (h *EventHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.users.Login(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/auth/me
func (h *EventHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Me(r.Context(), callerID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
