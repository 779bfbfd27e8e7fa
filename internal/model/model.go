// Package model defines the core domain types for the event directory.
package model

import "time"

// Event status values. Events start as draft and only the organizer
// moves them through the rest of the lifecycle.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// ValidStatus reports whether s is one of the known event statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusPublished, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Location is where an event takes place. Lat/Lng are optional; both must
// be present for the event to participate in proximity search.
type Location struct {
	Name    string   `json:"name"`
	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// Event is an entry in the directory, owned by its organizer.
type Event struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	Location        Location  `json:"location"`
	Category        string    `json:"category,omitempty"`
	Status          string    `json:"status"`
	MaxParticipants *int      `json:"max_participants,omitempty"`
	Participants    []string  `json:"participants"`
	OrganizerID     string    `json:"organizer_id"`
	Tags            []string  `json:"tags,omitempty"`
	ImageURL        string    `json:"image_url,omitempty"`
	IsPublic        bool      `json:"is_public"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Organizer is populated on detail reads; only the id column is stored.
	Organizer *OrganizerSummary `json:"organizer,omitempty"`
}

// IsFull returns true when the event has a capacity and it is reached.
func (e *Event) IsFull() bool {
	return e.MaxParticipants != nil && len(e.Participants) >= *e.MaxParticipants
}

// HasParticipant reports whether userID has joined the event.
func (e *Event) HasParticipant(userID string) bool {
	for _, id := range e.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// User is an account referenced by events through its id. PasswordHash is
// never serialized.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// OrganizerSummary is the restricted organizer view embedded in event
// representations returned by the list endpoint.
type OrganizerSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// EventSummary is one element of a list response: the event with its
// organizer reduced to a name and its location reduced to name/address.
type EventSummary struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	StartsAt         time.Time        `json:"starts_at"`
	EndsAt           time.Time        `json:"ends_at"`
	Location         Location         `json:"location"`
	Category         string           `json:"category,omitempty"`
	Status           string           `json:"status"`
	MaxParticipants  *int             `json:"max_participants,omitempty"`
	ParticipantCount int              `json:"participant_count"`
	Organizer        OrganizerSummary `json:"organizer"`
	Tags             []string         `json:"tags,omitempty"`
	ImageURL         string           `json:"image_url,omitempty"`
}

// CreateEventRequest is the payload for creating a new event. Status and
// organizer are never taken from the client: status is forced to draft and
// the organizer is the authenticated caller.
type CreateEventRequest struct {
	Title           string    `json:"title" validate:"required"`
	Description     string    `json:"description"`
	StartsAt        time.Time `json:"starts_at" validate:"required"`
	EndsAt          time.Time `json:"ends_at" validate:"required"`
	Location        Location  `json:"location"`
	Category        string    `json:"category"`
	MaxParticipants *int      `json:"max_participants" validate:"omitempty,gt=0"`
	Tags            []string  `json:"tags"`
	ImageURL        string    `json:"image_url"`
	IsPublic        *bool     `json:"is_public"`
}

// UpdateEventRequest is a partial patch. Nil fields are left untouched;
// only the fields listed here may be changed through the update endpoint.
type UpdateEventRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	StartsAt        *time.Time `json:"starts_at"`
	EndsAt          *time.Time `json:"ends_at"`
	Location        *Location  `json:"location"`
	Category        *string    `json:"category"`
	MaxParticipants *int       `json:"max_participants" validate:"omitempty,gt=0"`
	Status          *string    `json:"status"`
	ImageURL        *string    `json:"image_url"`
	Tags            *[]string  `json:"tags"`
	IsPublic        *bool      `json:"is_public"`
}

// RegisterRequest is the payload for creating a user account.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// LoginRequest is the payload for exchanging credentials for a token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries a signed bearer token and the account it belongs to.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
