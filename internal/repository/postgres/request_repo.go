package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"eventparticipation/internal/domain"
)

type requestRepository struct {
	DB dbtx
}

func NewRequestRepository(db *sql.DB) domain.RequestRepository {
	return &requestRepository{
		DB: db,
	}
}

func (r *requestRepository) Create(ctx context.Context, req *domain.ParticipationRequest) error {
	query := `
		INSERT INTO participation_requests (event_id, requester_id, status, created)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, req.EventID, req.RequesterID, req.Status, req.Created).
		Scan(&req.ID)
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.ParticipationRequest, error) {
	query := `
		SELECT id, event_id, requester_id, status, created
		FROM participation_requests
		WHERE id = $1
	`
	req := &domain.ParticipationRequest{}
	err := r.DB.QueryRowContext(ctx, query, id).
		Scan(&req.ID, &req.EventID, &req.RequesterID, &req.Status, &req.Created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *requestRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.ParticipationRequest, error) {
	query := `
		SELECT id, event_id, requester_id, status, created
		FROM participation_requests
		WHERE id = ANY($1)
	`
	return r.list(ctx, query, pq.Array(ids))
}

func (r *requestRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.ParticipationRequest, error) {
	query := `
		SELECT id, event_id, requester_id, status, created
		FROM participation_requests
		WHERE event_id = $1
		ORDER BY created, id
	`
	return r.list(ctx, query, eventID)
}

func (r *requestRepository) ListByRequesterID(ctx context.Context, requesterID string) ([]*domain.ParticipationRequest, error) {
	query := `
		SELECT id, event_id, requester_id, status, created
		FROM participation_requests
		WHERE requester_id = $1
		ORDER BY created, id
	`
	return r.list(ctx, query, requesterID)
}

func (r *requestRepository) GetActiveByEventAndRequester(ctx context.Context, eventID, requesterID string) (*domain.ParticipationRequest, error) {
	query := `
		SELECT id, event_id, requester_id, status, created
		FROM participation_requests
		WHERE event_id = $1 AND requester_id = $2 AND status <> 'CANCELED'
		LIMIT 1
	`
	req := &domain.ParticipationRequest{}
	err := r.DB.QueryRowContext(ctx, query, eventID, requesterID).
		Scan(&req.ID, &req.EventID, &req.RequesterID, &req.Status, &req.Created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *requestRepository) CountByEventAndStatus(ctx context.Context, eventID string, status domain.RequestStatus) (int, error) {
	query := `SELECT COUNT(*) FROM participation_requests WHERE event_id = $1 AND status = $2`
	var n int
	err := r.DB.QueryRowContext(ctx, query, eventID, status).Scan(&n)
	return n, err
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE participation_requests SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *requestRepository) UpdateStatuses(ctx context.Context, ids []string, status domain.RequestStatus) error {
	if len(ids) == 0 {
		return nil
	}
	result, err := r.DB.ExecContext(ctx,
		`UPDATE participation_requests SET status = $1 WHERE id = ANY($2)`, status, pq.Array(ids))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if int(rows) != len(ids) {
		return domain.ErrNotFound
	}
	return nil
}

func (r *requestRepository) list(ctx context.Context, query string, args ...any) ([]*domain.ParticipationRequest, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs := make([]*domain.ParticipationRequest, 0)
	for rows.Next() {
		req := &domain.ParticipationRequest{}
		if err := rows.Scan(&req.ID, &req.EventID, &req.RequesterID, &req.Status, &req.Created); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reqs, nil
}
