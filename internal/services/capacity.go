package services

import (
	"context"
	"errors"
	"fmt"

	"eventparticipation/internal/domain"
)

type capacityCounter struct {
	locker domain.EventLocker
}

// NewCapacityCounter returns a CapacityCounter that counts inside the event lock, so the count
// waits for any confirmation that is committing for the same event.
func NewCapacityCounter(locker domain.EventLocker) domain.CapacityCounter {
	return &capacityCounter{locker: locker}
}

func (c *capacityCounter) ConfirmedCount(ctx context.Context, eventID string) (int, error) {
	var n int
	err := c.locker.WithEventLock(ctx, eventID, func(ctx context.Context, requests domain.RequestRepository) error {
		var err error
		n, err = requests.CountByEventAndStatus(ctx, eventID, domain.RequestStatusConfirmed)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
		}
		return 0, fmt.Errorf("count confirmed requests: %w", err)
	}
	return n, nil
}
