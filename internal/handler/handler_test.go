package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"eventhub/internal/auth"
	"eventhub/internal/model"
	"eventhub/internal/query"
	"eventhub/internal/repository"
	"eventhub/internal/service"
)

// stubStore implements service.EventStore with per-test behavior.
type stubStore struct {
	findMatching func(query.Filter) ([]model.EventSummary, error)
	getByID      func(id string) (*model.Event, error)
	join         func(eventID, callerID string) (*model.Event, error)
	leave        func(eventID, callerID string) (*model.Event, error)
	deleteFn     func(id, organizerID string) error
}

func (s *stubStore) FindMatching(_ context.Context, f query.Filter) ([]model.EventSummary, error) {
	return s.findMatching(f)
}

func (s *stubStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	return s.getByID(id)
}

func (s *stubStore) Create(_ context.Context, organizerID string, req model.CreateEventRequest) (*model.Event, error) {
	return &model.Event{
		ID:          "created",
		Title:       req.Title,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Status:      model.StatusDraft,
		OrganizerID: organizerID,
	}, nil
}

func (s *stubStore) Update(_ context.Context, id, organizerID string, patch model.UpdateEventRequest) (*model.Event, error) {
	e, err := s.getByID(id)
	if err != nil {
		return nil, err
	}
	if patch.Status != nil {
		e.Status = *patch.Status
	}
	return e, nil
}

func (s *stubStore) Delete(_ context.Context, id, organizerID string) error {
	return s.deleteFn(id, organizerID)
}

func (s *stubStore) Join(_ context.Context, eventID, callerID string) (*model.Event, error) {
	return s.join(eventID, callerID)
}

func (s *stubStore) Leave(_ context.Context, eventID, callerID string) (*model.Event, error) {
	return s.leave(eventID, callerID)
}

var testTokens = auth.NewTokens("test-secret", time.Hour)

func newRouter(store *stubStore) http.Handler {
	logger := zerolog.Nop()
	eventSvc := service.NewEventService(store, nil, logger)
	h := NewEventHandler(eventSvc, nil, logger)

	r := chi.NewRouter()
	r.Use(testTokens.Middleware)
	r.Route("/api/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.With(auth.Require).Post("/", h.CreateEvent)
		r.With(auth.Require).Delete("/{id}", h.DeleteEvent)
		r.With(auth.Require).Post("/{id}/join", h.JoinEvent)
		r.With(auth.Require).Post("/{id}/leave", h.LeaveEvent)
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestListEvents_PassesFilter(t *testing.T) {
	var seen query.Filter
	store := &stubStore{
		findMatching: func(f query.Filter) ([]model.EventSummary, error) {
			seen = f
			return nil, nil
		},
	}
	h := newRouter(store)

	w := doRequest(t, h, http.MethodGet,
		"/api/events?search=jazz&category=music&lat=52.5&lng=13.4&radius=10", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if seen.Search != "jazz" || seen.Category != "music" {
		t.Errorf("filter=%+v", seen)
	}
	if !seen.Geo || seen.RadiusMeters != 10000 {
		t.Errorf("geo filter=%+v", seen)
	}
	// Empty result serializes as [], not null.
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body=%q, want []", w.Body.String())
	}
}

func TestListEvents_MalformedGeoStillSucceeds(t *testing.T) {
	var seen query.Filter
	store := &stubStore{
		findMatching: func(f query.Filter) ([]model.EventSummary, error) {
			seen = f
			return []model.EventSummary{}, nil
		},
	}
	w := doRequest(t, newRouter(store), http.MethodGet, "/api/events?lat=oops&lng=13.4", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if seen.Geo {
		t.Error("malformed geo must be dropped, not executed")
	}
}

func TestGetEvent_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", repository.ErrNotFound, http.StatusNotFound},
		{"store down", repository.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		store := &stubStore{getByID: func(string) (*model.Event, error) { return nil, tc.err }}
		w := doRequest(t, newRouter(store), http.MethodGet, "/api/events/e1", "", "")
		if w.Code != tc.status {
			t.Errorf("%s: status=%d, want %d", tc.name, w.Code, tc.status)
		}
	}
}

func TestGetEvent_DraftForbiddenForOthers(t *testing.T) {
	draft := &model.Event{ID: "e1", Status: model.StatusDraft, OrganizerID: "owner"}
	store := &stubStore{getByID: func(string) (*model.Event, error) { return draft, nil }}
	h := newRouter(store)

	w := doRequest(t, h, http.MethodGet, "/api/events/e1", "", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("anonymous status=%d, want 403", w.Code)
	}

	ownerToken, _ := testTokens.Issue("owner")
	w = doRequest(t, h, http.MethodGet, "/api/events/e1", ownerToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("organizer status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestGetEvent_InternalErrorDoesNotLeak(t *testing.T) {
	store := &stubStore{getByID: func(string) (*model.Event, error) {
		return nil, errors.New("pq: secret table exploded")
	}}
	w := doRequest(t, newRouter(store), http.MethodGet, "/api/events/e1", "", "")

	var resp model.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Contains(resp.Error, "secret table") {
		t.Errorf("internal detail leaked: %s", resp.Error)
	}
}

func TestCreateEvent_RequiresAuth(t *testing.T) {
	store := &stubStore{}
	w := doRequest(t, newRouter(store), http.MethodPost, "/api/events", "", `{"title":"x"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", w.Code)
	}
}

func TestCreateEvent_ValidationError(t *testing.T) {
	store := &stubStore{}
	token, _ := testTokens.Issue("alice")

	body := `{"title":"","starts_at":"2024-06-15T14:00:00Z","ends_at":"2024-06-15T10:00:00Z"}`
	w := doRequest(t, newRouter(store), http.MethodPost, "/api/events", token, body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestCreateEvent_Success(t *testing.T) {
	store := &stubStore{}
	token, _ := testTokens.Issue("alice")

	body := `{"title":"Meetup","starts_at":"2024-06-15T10:00:00Z","ends_at":"2024-06-15T14:00:00Z"}`
	w := doRequest(t, newRouter(store), http.MethodPost, "/api/events", token, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	var e model.Event
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Status != model.StatusDraft || e.OrganizerID != "alice" {
		t.Errorf("event=%+v", e)
	}
}

func TestJoin_ConflictMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{model.ErrAlreadyParticipating, "already participating"},
		{model.ErrEventFull, "event is full"},
		{model.ErrEventNotPublished, "not open"},
		{model.ErrOrganizerJoin, "organizers cannot join"},
	}
	token, _ := testTokens.Issue("bob")
	for _, tc := range cases {
		store := &stubStore{join: func(string, string) (*model.Event, error) { return nil, tc.err }}
		w := doRequest(t, newRouter(store), http.MethodPost, "/api/events/e1/join", token, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%v: status=%d, want 400", tc.err, w.Code)
		}
		if !strings.Contains(w.Body.String(), tc.want) {
			t.Errorf("%v: body=%s, want substring %q", tc.err, w.Body.String(), tc.want)
		}
	}
}

func TestLeave_NotParticipating(t *testing.T) {
	token, _ := testTokens.Issue("bob")
	store := &stubStore{leave: func(string, string) (*model.Event, error) {
		return nil, model.ErrNotParticipating
	}}
	w := doRequest(t, newRouter(store), http.MethodPost, "/api/events/e1/leave", token, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
}

func TestDelete_StatusMapping(t *testing.T) {
	token, _ := testTokens.Issue("bob")
	cases := []struct {
		err    error
		status int
	}{
		{nil, http.StatusNoContent},
		{repository.ErrNotFound, http.StatusNotFound},
		{model.ErrNotOrganizer, http.StatusForbidden},
	}
	for _, tc := range cases {
		store := &stubStore{deleteFn: func(string, string) error { return tc.err }}
		w := doRequest(t, newRouter(store), http.MethodDelete, "/api/events/e1", token, "")
		if w.Code != tc.status {
			t.Errorf("err=%v: status=%d, want %d", tc.err, w.Code, tc.status)
		}
	}
}
