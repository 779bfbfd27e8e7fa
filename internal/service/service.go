// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"eventhub/internal/cache"
	"eventhub/internal/model"
	"eventhub/internal/query"
	"eventhub/internal/repository"
)

// ErrInvalid marks a malformed or inconsistent request. Handlers surface it
// as a client error and never retry.
var ErrInvalid = errors.New("invalid request")

// ErrInvalidCredentials is returned for any login failure so the response
// shape does not reveal whether the email exists.
var ErrInvalidCredentials = errors.New("invalid email or password")

// EventStore is the persistence contract the event service depends on.
// *repository.EventRepository satisfies it; tests substitute an in-memory
// implementation.
type EventStore interface {
	FindMatching(ctx context.Context, f query.Filter) ([]model.EventSummary, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Create(ctx context.Context, organizerID string, req model.CreateEventRequest) (*model.Event, error)
	Update(ctx context.Context, id, organizerID string, patch model.UpdateEventRequest) (*model.Event, error)
	Delete(ctx context.Context, id, organizerID string) error
	Join(ctx context.Context, eventID, callerID string) (*model.Event, error)
	Leave(ctx context.Context, eventID, callerID string) (*model.Event, error)
}

// UserStore is the persistence contract the user service depends on.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// EventService orchestrates event directory operations.
type EventService struct {
	events   EventStore
	cache    *cache.EventCache
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewEventService constructs an EventService. cache may be nil.
func NewEventService(events EventStore, c *cache.EventCache, logger zerolog.Logger) *EventService {
	return &EventService{
		events:   events,
		cache:    c,
		validate: validator.New(),
		logger:   logger,
	}
}

// List executes a filtered query. Dropped filter names were already logged
// by the handler; the result is restricted to published events by the store.
func (s *EventService) List(ctx context.Context, f query.Filter) ([]model.EventSummary, error) {
	events, err := s.events.FindMatching(ctx, f)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.EventSummary{}
	}
	return events, nil
}

// Get returns one event, enforcing view authorization: published events are
// visible to anyone, drafts and other non-published states only to their
// organizer. callerID is empty for anonymous callers.
func (s *EventService) Get(ctx context.Context, id, callerID string) (*model.Event, error) {
	if cached := s.cache.Get(ctx, id); cached != nil {
		if !model.CanView(cached, callerID) {
			return nil, model.ErrViewForbidden
		}
		return cached, nil
	}

	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanView(e, callerID) {
		return nil, model.ErrViewForbidden
	}
	if e.Status == model.StatusPublished {
		s.cache.Set(ctx, e)
	}
	return e, nil
}

// Create validates the payload and persists a new draft owned by callerID.
func (s *EventService) Create(ctx context.Context, callerID string, req model.CreateEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, validationMessage(err))
	}
	if err := checkDates(req.StartsAt, req.EndsAt); err != nil {
		return nil, err
	}
	if err := checkCoordinates(req.Location); err != nil {
		return nil, err
	}

	e, err := s.events.Create(ctx, callerID, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("event_id", e.ID).Str("organizer_id", callerID).Msg("event created")
	return e, nil
}

// Update validates the patch against the event's current state and applies
// it. Existence is checked before ownership so absence is reported as 404,
// not 403.
func (s *EventService) Update(ctx context.Context, id, callerID string, patch model.UpdateEventRequest) (*model.Event, error) {
	current, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanMutate(current, callerID) {
		return nil, model.ErrNotOrganizer
	}

	if err := s.validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, validationMessage(err))
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalid)
	}
	if patch.Status != nil && !model.ValidStatus(*patch.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, *patch.Status)
	}
	if patch.MaxParticipants != nil && *patch.MaxParticipants < len(current.Participants) {
		return nil, fmt.Errorf("%w: max_participants cannot be below the current participant count", ErrInvalid)
	}
	if patch.Location != nil {
		if err := checkCoordinates(*patch.Location); err != nil {
			return nil, err
		}
	}

	// Validate the merged interval so a patch touching one end cannot
	// invert the other.
	starts, ends := current.StartsAt, current.EndsAt
	if patch.StartsAt != nil {
		starts = *patch.StartsAt
	}
	if patch.EndsAt != nil {
		ends = *patch.EndsAt
	}
	if err := checkDates(starts, ends); err != nil {
		return nil, err
	}

	updated, err := s.events.Update(ctx, id, callerID, patch)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, id)
	return updated, nil
}

// Delete removes the event. Existence before ownership, as in Update.
func (s *EventService) Delete(ctx context.Context, id, callerID string) error {
	if err := s.events.Delete(ctx, id, callerID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	return nil
}

// Join adds the caller to the participant set. Transition rules run inside
// the store's locked transaction; this layer only invalidates the cache.
func (s *EventService) Join(ctx context.Context, id, callerID string) (*model.Event, error) {
	e, err := s.events.Join(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, id)
	return e, nil
}

// Leave removes the caller from the participant set.
func (s *EventService) Leave(ctx context.Context, id, callerID string) (*model.Event, error) {
	e, err := s.events.Leave(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, id)
	return e, nil
}

func checkDates(starts, ends time.Time) error {
	if starts.IsZero() || ends.IsZero() {
		return fmt.Errorf("%w: start and end times are required", ErrInvalid)
	}
	if !ends.After(starts) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalid)
	}
	return nil
}

func checkCoordinates(loc model.Location) error {
	if (loc.Lat == nil) != (loc.Lng == nil) {
		return fmt.Errorf("%w: lat and lng must be provided together", ErrInvalid)
	}
	if loc.Lat != nil {
		if *loc.Lat < -90 || *loc.Lat > 90 || *loc.Lng < -180 || *loc.Lng > 180 {
			return fmt.Errorf("%w: coordinates out of range", ErrInvalid)
		}
	}
	return nil
}

// validationMessage flattens a validator error into a single readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return strings.ToLower(fe.Field()) + " is required"
		case "email":
			return strings.ToLower(fe.Field()) + " must be a valid email address"
		case "min":
			return fmt.Sprintf("%s must be at least %s characters", strings.ToLower(fe.Field()), fe.Param())
		case "gt":
			return fmt.Sprintf("%s must be greater than %s", strings.ToLower(fe.Field()), fe.Param())
		}
		return strings.ToLower(fe.Field()) + " is invalid"
	}
	return err.Error()
}

// UserService handles account registration and login.
type UserService struct {
	users    UserStore
	tokens   TokenIssuer
	validate *validator.Validate
	logger   zerolog.Logger
}

// TokenIssuer signs bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// NewUserService constructs a UserService.
func NewUserService(users UserStore, tokens TokenIssuer, logger zerolog.Logger) *UserService {
	return &UserService{
		users:    users,
		tokens:   tokens,
		validate: validator.New(),
		logger:   logger,
	}
}

// Register creates an account and returns a signed token for it.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, validationMessage(err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         "user",
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info().Str("user_id", u.ID).Msg("user registered")
	return &model.AuthResponse{Token: token, User: *u}, nil
}

// Login exchanges credentials for a token. Any failure returns
// ErrInvalidCredentials regardless of cause.
func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, validationMessage(err))
	}

	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &model.AuthResponse{Token: token, User: *u}, nil
}

// Me returns the account behind an authenticated caller id.
func (s *UserService) Me(ctx context.Context, callerID string) (*model.User, error) {
	return s.users.GetByID(ctx, callerID)
}
