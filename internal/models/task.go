package models

import (
	"errors"
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a maintenance task.
type TaskStatus string

const (
	StatusUpcoming   TaskStatus = "Upcoming"
	StatusOverdue    TaskStatus = "Overdue"
	StatusCompleted  TaskStatus = "Completed"
	StatusSkipped    TaskStatus = "Skipped"
	StatusInProgress TaskStatus = "InProgress"
)

// Importance ranks how strongly a task is advised.
type Importance string

const (
	ImportanceRequired    Importance = "Required"
	ImportanceRecommended Importance = "Recommended"
	ImportanceOptional    Importance = "Optional"
)

// Urgency is the urgency level carried by a baseline schedule item.
type Urgency string

const (
	UrgencyHigh   Urgency = "High"
	UrgencyMedium Urgency = "Medium"
	UrgencyLow    Urgency = "Low"
)

var (
	ErrMissingTitle  = errors.New("task title is required")
	ErrInvalidStatus = errors.New("invalid task status")
)

// MaintenanceTask is a vehicle-scoped maintenance item, either recorded by
// the user or projected by the forecast (IsForecast).
type MaintenanceTask struct {
	ID                 string             `bson:"id" json:"id"`
	Title              string             `bson:"title" json:"title"`
	Category           Category           `bson:"category" json:"category"`
	Status             TaskStatus         `bson:"status" json:"status"`
	Importance         Importance         `bson:"importance" json:"importance"`
	DueDate            *time.Time         `bson:"due_date,omitempty" json:"dueDate,omitempty"`
	DueDistance        *float64           `bson:"due_distance,omitempty" json:"dueDistance,omitempty"`
	CompletedDate      *time.Time         `bson:"completed_date,omitempty" json:"completedDate,omitempty"`
	CompletedDistance  *float64           `bson:"completed_distance,omitempty" json:"completedDistance,omitempty"`
	Cost               *float64           `bson:"cost,omitempty" json:"cost,omitempty"`
	Notes              string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Receipt            *ReceiptExtraction `bson:"receipt,omitempty" json:"receipt,omitempty"`
	IsForecast         bool               `bson:"is_forecast" json:"isForecast"`
	IsRecurring        bool               `bson:"is_recurring" json:"isRecurring"`
	RecurrenceInterval string             `bson:"recurrence_interval,omitempty" json:"recurrenceInterval,omitempty"`
	IntervalDistance   float64            `bson:"interval_distance,omitempty" json:"interval_distance,omitempty"`
	IntervalMonths     int                `bson:"interval_months,omitempty" json:"interval_months,omitempty"`
	UrgencyBaseline    Urgency            `bson:"urgency_baseline,omitempty" json:"urgencyBaseline,omitempty"`
	DueSoon            bool               `bson:"due_soon,omitempty" json:"dueSoon,omitempty"`
	CreationDate       time.Time          `bson:"creation_date" json:"creationDate"`
}

// IsValidTaskStatus checks if a status is one of the known lifecycle states.
func IsValidTaskStatus(s TaskStatus) bool {
	switch s {
	case StatusUpcoming, StatusOverdue, StatusCompleted, StatusSkipped, StatusInProgress:
		return true
	default:
		return false
	}
}

// Validate checks a task submitted through the API.
func (t *MaintenanceTask) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrMissingTitle
	}
	if t.Status != "" && !IsValidTaskStatus(t.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// ImportanceForUrgency maps a baseline urgency onto task importance.
func ImportanceForUrgency(u Urgency) Importance {
	switch u {
	case UrgencyHigh:
		return ImportanceRequired
	case UrgencyMedium:
		return ImportanceRecommended
	default:
		return ImportanceOptional
	}
}
