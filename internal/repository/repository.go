// Package repository implements all database queries for the event directory.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventhub/internal/model"
	"eventhub/internal/query"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when registering an email that already has
// an account.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrStoreUnavailable is returned when the database cannot be reached or the
// operation timed out. Callers may safely retry: no partial mutation is
// applied.
var ErrStoreUnavailable = errors.New("store unavailable")

// wrapStore classifies low-level failures so handlers can surface retryable
// conditions distinctly from application errors.
func wrapStore(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// EventRepository handles persistence for events and participation.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, description, starts_at, ends_at,
	location_name, location_address, lat, lng, category, status,
	max_participants, organizer_id, tags, image_url, is_public,
	created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt,
		&e.Location.Name, &e.Location.Address, &e.Location.Lat, &e.Location.Lng,
		&e.Category, &e.Status, &e.MaxParticipants, &e.OrganizerID,
		&e.Tags, &e.ImageURL, &e.IsPublic, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FindMatching executes a filtered list query. Only published events are
// returned, ordered by start time ascending. The proximity predicate is a
// haversine distance expression; an event exactly at the radius distance is
// included (distance <= radius).
func (r *EventRepository) FindMatching(ctx context.Context, f query.Filter) ([]model.EventSummary, error) {
	var (
		sb   strings.Builder
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString(`SELECT e.id, e.title, e.description, e.starts_at, e.ends_at,
		e.location_name, e.location_address, e.lat, e.lng, e.category, e.status,
		e.max_participants, e.tags, e.image_url,
		u.id, u.first_name, u.last_name,
		(SELECT count(*) FROM event_participants p WHERE p.event_id = e.id)
	FROM events e
	JOIN users u ON u.id = e.organizer_id
	WHERE e.status = 'published'`)

	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		fmt.Fprintf(&sb, " AND (e.title ILIKE %s OR e.description ILIKE %s)", p, p)
	}
	if f.Category != "" {
		fmt.Fprintf(&sb, " AND e.category = %s", arg(f.Category))
	}
	if f.DateFrom != nil && f.DateTo != nil {
		fmt.Fprintf(&sb, " AND e.starts_at >= %s AND e.starts_at < %s", arg(*f.DateFrom), arg(*f.DateTo))
	}
	if f.Geo {
		lat, lng := arg(f.Lat), arg(f.Lng)
		fmt.Fprintf(&sb, ` AND e.lat IS NOT NULL AND e.lng IS NOT NULL
		AND 2 * 6371000 * asin(sqrt(
			power(sin(radians(e.lat - %s) / 2), 2) +
			cos(radians(%s)) * cos(radians(e.lat)) *
			power(sin(radians(e.lng - %s) / 2), 2)
		)) <= %s`, lat, lat, lng, arg(f.RadiusMeters))
	}

	sb.WriteString(" ORDER BY e.starts_at ASC")

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, wrapStore("list events", err)
	}
	defer rows.Close()

	var events []model.EventSummary
	for rows.Next() {
		var s model.EventSummary
		if err := rows.Scan(
			&s.ID, &s.Title, &s.Description, &s.StartsAt, &s.EndsAt,
			&s.Location.Name, &s.Location.Address, &s.Location.Lat, &s.Location.Lng,
			&s.Category, &s.Status, &s.MaxParticipants, &s.Tags, &s.ImageURL,
			&s.Organizer.ID, &s.Organizer.FirstName, &s.Organizer.LastName,
			&s.ParticipantCount,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStore("list events", err)
	}
	return events, nil
}

// GetByID returns a single event with its organizer and participant set
// populated, or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var (
		e   model.Event
		org model.OrganizerSummary
	)
	err := r.db.QueryRow(ctx,
		`SELECT e.id, e.title, e.description, e.starts_at, e.ends_at,
			e.location_name, e.location_address, e.lat, e.lng, e.category, e.status,
			e.max_participants, e.organizer_id, e.tags, e.image_url, e.is_public,
			e.created_at, e.updated_at, u.first_name, u.last_name
		 FROM events e
		 JOIN users u ON u.id = e.organizer_id
		 WHERE e.id = $1`, id,
	).Scan(
		&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt,
		&e.Location.Name, &e.Location.Address, &e.Location.Lat, &e.Location.Lng,
		&e.Category, &e.Status, &e.MaxParticipants, &e.OrganizerID,
		&e.Tags, &e.ImageURL, &e.IsPublic, &e.CreatedAt, &e.UpdatedAt,
		&org.FirstName, &org.LastName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapStore("get event", err)
	}
	org.ID = e.OrganizerID
	e.Organizer = &org
	e.Participants, err = r.participants(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *EventRepository) participants(ctx context.Context, q querier, eventID string) ([]string, error) {
	rows, err := q.Query(ctx,
		`SELECT user_id FROM event_participants WHERE event_id = $1 ORDER BY joined_at ASC`,
		eventID)
	if err != nil {
		return nil, wrapStore("list participants", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Create inserts a new event and returns it with a generated UUID. Status
// is always draft regardless of the caller's input.
func (r *EventRepository) Create(ctx context.Context, organizerID string, req model.CreateEventRequest) (*model.Event, error) {
	now := time.Now().UTC()
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	e := &model.Event{
		ID:              uuid.New().String(),
		Title:           req.Title,
		Description:     req.Description,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
		Location:        req.Location,
		Category:        req.Category,
		Status:          model.StatusDraft,
		MaxParticipants: req.MaxParticipants,
		Participants:    []string{},
		OrganizerID:     organizerID,
		Tags:            req.Tags,
		ImageURL:        req.ImageURL,
		IsPublic:        isPublic,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		e.ID, e.Title, e.Description, e.StartsAt, e.EndsAt,
		e.Location.Name, e.Location.Address, e.Location.Lat, e.Location.Lng,
		e.Category, e.Status, e.MaxParticipants, e.OrganizerID,
		e.Tags, e.ImageURL, e.IsPublic, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return nil, wrapStore("insert event", err)
	}
	return e, nil
}

// Update applies an allow-listed patch on behalf of organizerID. ErrNotFound
// takes precedence over model.ErrNotOrganizer so absence is never reported
// as denial.
func (r *EventRepository) Update(ctx context.Context, id, organizerID string, patch model.UpdateEventRequest) (*model.Event, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.StartsAt != nil {
		set("starts_at", *patch.StartsAt)
	}
	if patch.EndsAt != nil {
		set("ends_at", *patch.EndsAt)
	}
	if patch.Location != nil {
		set("location_name", patch.Location.Name)
		set("location_address", patch.Location.Address)
		set("lat", patch.Location.Lat)
		set("lng", patch.Location.Lng)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.MaxParticipants != nil {
		set("max_participants", *patch.MaxParticipants)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.ImageURL != nil {
		set("image_url", *patch.ImageURL)
	}
	if patch.Tags != nil {
		set("tags", *patch.Tags)
	}
	if patch.IsPublic != nil {
		set("is_public", *patch.IsPublic)
	}
	set("updated_at", time.Now().UTC())

	args = append(args, id, organizerID)
	sql := fmt.Sprintf(
		"UPDATE events SET %s WHERE id = $%d AND organizer_id = $%d",
		strings.Join(sets, ", "), len(args)-1, len(args),
	)

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return nil, wrapStore("update event", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, r.missingOrForbidden(ctx, id)
	}
	return r.GetByID(ctx, id)
}

// Delete removes an event on behalf of organizerID. Removal is immediate
// and unconditional; participants are cascaded away.
func (r *EventRepository) Delete(ctx context.Context, id, organizerID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM events WHERE id = $1 AND organizer_id = $2`, id, organizerID)
	if err != nil {
		return wrapStore("delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrForbidden(ctx, id)
	}
	return nil
}

// missingOrForbidden distinguishes "no such event" from "not yours" after a
// guarded write matched zero rows.
func (r *EventRepository) missingOrForbidden(ctx context.Context, id string) error {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return wrapStore("check event", err)
	}
	if !exists {
		return ErrNotFound
	}
	return model.ErrNotOrganizer
}

// Join performs a concurrency-safe participation transition inside a
// transaction. The event row is locked with SELECT ... FOR UPDATE so the
// transition rules always run against current state: two concurrent joins
// for the last seat serialize, and at most one commits.
func (r *EventRepository) Join(ctx context.Context, eventID, callerID string) (*model.Event, error) {
	return r.mutateParticipants(ctx, eventID, callerID, true)
}

// Leave removes the caller from the participant set under the same row lock
// as Join.
func (r *EventRepository) Leave(ctx context.Context, eventID, callerID string) (*model.Event, error) {
	return r.mutateParticipants(ctx, eventID, callerID, false)
}

func (r *EventRepository) mutateParticipants(ctx context.Context, eventID, callerID string, join bool) (*model.Event, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, wrapStore("begin transaction", err)
	}
	// Ensure the transaction is always resolved.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Lock the event row. Concurrent joins/leaves on the same event block
	// here until this transaction commits or rolls back.
	e, err := scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapStore("lock event row", err)
	}

	e.Participants, err = r.participants(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}

	// Validate the transition against the locked state.
	if join {
		err = model.CheckJoin(e, callerID)
	} else {
		err = model.CheckLeave(e, callerID)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if join {
		_, err = tx.Exec(ctx,
			`INSERT INTO event_participants (event_id, user_id, joined_at) VALUES ($1, $2, $3)`,
			eventID, callerID, now)
		if err != nil {
			return nil, wrapStore("insert participant", err)
		}
	} else {
		_, err = tx.Exec(ctx,
			`DELETE FROM event_participants WHERE event_id = $1 AND user_id = $2`,
			eventID, callerID)
		if err != nil {
			return nil, wrapStore("delete participant", err)
		}
	}

	if _, err = tx.Exec(ctx,
		`UPDATE events SET updated_at = $2 WHERE id = $1`, eventID, now); err != nil {
		return nil, wrapStore("touch event", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, wrapStore("commit transaction", err)
	}
	// Re-read outside the transaction so the response carries the populated
	// organizer like any other detail read.
	return r.GetByID(ctx, eventID)
}

// UserRepository handles persistence for accounts.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new account. A unique-violation on email surfaces as
// ErrDuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, email, first_name, last_name, role, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Role, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return wrapStore("insert user", err)
	}
	return nil
}

// GetByEmail returns the account for email, or ErrNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, "email", email)
}

// GetByID returns the account for id, or ErrNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepository) getBy(ctx context.Context, col, val string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx,
		`SELECT id, email, first_name, last_name, role, password_hash, created_at
		 FROM users WHERE `+col+` = $1`, val,
	).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapStore("get user", err)
	}
	return &u, nil
}
