package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventparticipation/internal/domain"
)

const eventColumns = `id, title, annotation, description, category_id, initiator_id, location_lat, location_lon,
		paid, participant_limit, request_moderation, state, event_date, created_on, published_on`

type eventRepository struct {
	DB dbtx
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var publishedOn sql.NullTime
	err := row.Scan(
		&e.ID, &e.Title, &e.Annotation, &e.Description, &e.CategoryID, &e.InitiatorID,
		&e.Location.Lat, &e.Location.Lon, &e.Paid, &e.ParticipantLimit, &e.RequestModeration,
		&e.State, &e.EventDate, &e.CreatedOn, &publishedOn,
	)
	if err != nil {
		return nil, err
	}
	if publishedOn.Valid {
		e.PublishedOn = &publishedOn.Time
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, annotation, description, category_id, initiator_id, location_lat, location_lon,
			paid, participant_limit, request_moderation, state, event_date, created_on, published_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Title, e.Annotation, e.Description, e.CategoryID, e.InitiatorID, e.Location.Lat, e.Location.Lon,
		e.Paid, e.ParticipantLimit, e.RequestModeration, e.State, e.EventDate, e.CreatedOn, e.PublishedOn,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1
	`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) ListByInitiatorID(ctx context.Context, initiatorID string, params domain.PaginationParams) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE initiator_id = $1
		ORDER BY created_on, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, initiatorID, params.Limit(), params.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Update writes every mutable column in one statement so readers never see a half-applied patch.
// The state guard makes the write conditional on the state the caller checked.
func (r *eventRepository) Update(ctx context.Context, e *domain.Event, expected domain.EventState) error {
	query := `
		UPDATE events SET
			title = $1, annotation = $2, description = $3, category_id = $4,
			location_lat = $5, location_lon = $6, paid = $7, participant_limit = $8,
			request_moderation = $9, state = $10, event_date = $11, published_on = $12
		WHERE id = $13 AND state = $14
	`
	result, err := r.DB.ExecContext(ctx, query,
		e.Title, e.Annotation, e.Description, e.CategoryID,
		e.Location.Lat, e.Location.Lon, e.Paid, e.ParticipantLimit,
		e.RequestModeration, e.State, e.EventDate, e.PublishedOn, e.ID, expected,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	exists, err := r.ExistsByID(ctx, e.ID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: event %s is no longer %s", domain.ErrConflict, e.ID, expected)
}

func (r *eventRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}
