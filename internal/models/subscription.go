package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PushKeys are the browser-issued keys of a Web Push subscription.
type PushKeys struct {
	P256dh string `bson:"p256dh" json:"p256dh"`
	Auth   string `bson:"auth" json:"auth"`
}

// PushSubscription is a browser endpoint that receives maintenance reminders.
type PushSubscription struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Endpoint   string             `bson:"endpoint" json:"endpoint"`
	Keys       PushKeys           `bson:"keys" json:"keys"`
	VehicleIDs []string           `bson:"vehicle_ids,omitempty" json:"vehicleIds,omitempty"` // empty means all vehicles
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
}

// Wants reports whether the subscription follows the given vehicle.
func (s *PushSubscription) Wants(vehicleID string) bool {
	if len(s.VehicleIDs) == 0 {
		return true
	}
	for _, id := range s.VehicleIDs {
		if id == vehicleID {
			return true
		}
	}
	return false
}

// Reminder is the payload delivered to notifiers for a due-soon task.
type Reminder struct {
	VehicleID   string     `json:"vehicleId"`
	VehicleName string     `json:"vehicleName"`
	TaskID      string     `json:"taskId"`
	Title       string     `json:"title"`
	Category    Category   `json:"category"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	DueDistance *float64   `json:"dueDistance,omitempty"`
	IsForecast  bool       `json:"isForecast"`
}
