package notify

import (
	"context"
	"errors"

	"github.com/ukydev/carmemo/internal/models"
)

// Notifier delivers reminders for one vehicle.
type Notifier interface {
	Notify(ctx context.Context, vehicleID string, reminders []models.Reminder) error
}

// Multi fans reminders out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, vehicleID string, reminders []models.Reminder) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, vehicleID, reminders); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
