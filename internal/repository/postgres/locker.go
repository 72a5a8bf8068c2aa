package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventparticipation/internal/domain"
)

type eventLocker struct {
	DB *sql.DB
}

// NewEventLocker returns an EventLocker that holds a row lock on the event for the life of
// one transaction. Concurrent callers for the same event queue on the lock; other events are
// unaffected.
func NewEventLocker(db *sql.DB) domain.EventLocker {
	return &eventLocker{DB: db}
}

func (l *eventLocker) WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context, requests domain.RequestRepository) error) error {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
		}
		return fmt.Errorf("lock event: %w", err)
	}

	if err := fn(ctx, &requestRepository{DB: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
