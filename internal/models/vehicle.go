package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Distance units a vehicle odometer can report in.
const (
	UnitKilometers = "km"
	UnitMiles      = "mi"
)

// MinModelYear is the earliest model year accepted for a vehicle.
const MinModelYear = 1950

var (
	ErrMissingMake     = errors.New("make is required")
	ErrMissingModel    = errors.New("model is required")
	ErrInvalidYear     = errors.New("year is out of range")
	ErrInvalidDistance = errors.New("distance must not be negative")
	ErrInvalidUnit     = errors.New("distance unit must be km or mi")
	ErrBelowInitial    = errors.New("distance cannot be below the initial odometer reading")
)

// minRateWindow is how long a vehicle must be tracked before its average
// daily distance is derived from odometer updates.
const minRateWindow = 7 * 24 * time.Hour

// Vehicle is the aggregate root owning its maintenance tasks and recalls.
type Vehicle struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Make                 string             `bson:"make" json:"make"`
	Model                string             `bson:"model" json:"model"`
	Year                 int                `bson:"year" json:"year"`
	VIN                  string             `bson:"vin,omitempty" json:"vin,omitempty"` // unique when non-empty
	Nickname             string             `bson:"nickname,omitempty" json:"nickname,omitempty"`
	CurrentDistance      float64            `bson:"current_distance" json:"currentDistance"`
	InitialDistance      float64            `bson:"initial_distance" json:"initialDistance"`
	DistanceUnit         string             `bson:"distance_unit" json:"distanceUnit"`
	AverageDailyDistance float64            `bson:"average_daily_distance,omitempty" json:"averageDailyDistance,omitempty"`
	Tasks                []MaintenanceTask  `bson:"tasks" json:"tasks"`
	Recalls              []Recall           `bson:"recalls,omitempty" json:"recalls,omitempty"`
	CreatedAt            time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Normalize trims identity fields and fills the distance unit default.
func (v *Vehicle) Normalize() {
	v.Make = strings.TrimSpace(v.Make)
	v.Model = strings.TrimSpace(v.Model)
	v.VIN = strings.ToUpper(strings.TrimSpace(v.VIN))
	if v.DistanceUnit == "" {
		v.DistanceUnit = UnitKilometers
	}
}

// Validate checks the identity fields every core operation relies on.
func (v *Vehicle) Validate() error {
	if strings.TrimSpace(v.Make) == "" {
		return ErrMissingMake
	}
	if strings.TrimSpace(v.Model) == "" {
		return ErrMissingModel
	}
	if v.Year < MinModelYear || v.Year > time.Now().Year()+1 {
		return ErrInvalidYear
	}
	if v.CurrentDistance < 0 || v.InitialDistance < 0 {
		return ErrInvalidDistance
	}
	if v.DistanceUnit != "" && v.DistanceUnit != UnitKilometers && v.DistanceUnit != UnitMiles {
		return ErrInvalidUnit
	}
	return nil
}

// IdentityChanged reports whether make, model or year differ from other.
func (v *Vehicle) IdentityChanged(other *Vehicle) bool {
	return !strings.EqualFold(v.Make, other.Make) ||
		!strings.EqualFold(v.Model, other.Model) ||
		v.Year != other.Year
}

// FindTask returns the index of the task with the given id, or -1.
func (v *Vehicle) FindTask(id string) int {
	for i := range v.Tasks {
		if v.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// CompletedTasks returns the tasks whose status is Completed.
func (v *Vehicle) CompletedTasks() []MaintenanceTask {
	var out []MaintenanceTask
	for _, t := range v.Tasks {
		if t.Status == StatusCompleted {
			out = append(out, t)
		}
	}
	return out
}

// RecordDistance sets a new odometer reading and, once the vehicle has been
// tracked for a week, re-derives its average daily distance.
func (v *Vehicle) RecordDistance(distance float64, now time.Time) error {
	if distance < 0 {
		return ErrInvalidDistance
	}
	if distance < v.InitialDistance {
		return ErrBelowInitial
	}
	v.CurrentDistance = distance

	elapsed := now.Sub(v.CreatedAt)
	if !v.CreatedAt.IsZero() && elapsed >= minRateWindow && distance > v.InitialDistance {
		days := elapsed.Hours() / 24
		v.AverageDailyDistance = (distance - v.InitialDistance) / days
	}
	return nil
}
