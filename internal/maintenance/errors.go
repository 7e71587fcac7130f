package maintenance

import "errors"

var (
	// ErrInvalidVehicle indicates the vehicle is missing identity fields the
	// schedule depends on.
	ErrInvalidVehicle = errors.New("invalid vehicle")

	// ErrEmptySchedule indicates a generator answered without usable items.
	ErrEmptySchedule = errors.New("generated schedule is empty")
)
