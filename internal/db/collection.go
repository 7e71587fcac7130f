package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/carmemo/internal/models"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNilCollection   = errors.New("mongo collection is nil")
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrInvalidID       = errors.New("invalid vehicle ID")
	ErrDuplicateVIN    = errors.New("a vehicle with this VIN already exists")
)

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle models.Vehicle) error
	FindVehicles(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (VehicleCursor, error)
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	UpdateVehicle(ctx context.Context, id string, vehicle models.Vehicle) error
	DeleteVehicle(ctx context.Context, id string) error
}

// VehicleCursor defines the interface for vehicle cursor operations.
type VehicleCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}

// SubscriptionCollection defines the interface for push subscription storage.
type SubscriptionCollection interface {
	SaveSubscription(ctx context.Context, sub models.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptions(ctx context.Context) ([]models.PushSubscription, error)
}

// TaxonomyLog records category strings the mapper could not place.
type TaxonomyLog interface {
	RecordUnmapped(ctx context.Context, raw, normalized string, seenAt time.Time) error
}
