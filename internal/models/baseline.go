package models

import "time"

// BaselineScheduleItem is a generic recurring service for a make/model/year,
// independent of any single vehicle's history.
type BaselineScheduleItem struct {
	ID               string  `bson:"id" json:"id"`
	Item             string  `bson:"item" json:"item"`
	IntervalDistance float64 `bson:"interval_distance" json:"interval_distance"`
	IntervalMonths   int     `bson:"interval_months" json:"interval_months"`
	Category         string  `bson:"category" json:"category"`
	Urgency          Urgency `bson:"urgency" json:"urgency"`
	// DueDistance is only set on synthesized fallback items.
	DueDistance float64 `bson:"due_distance,omitempty" json:"due_distance,omitempty"`
}

// BaselineSchedule is the stored baseline for one make_model_year key.
type BaselineSchedule struct {
	Make      string                 `bson:"make" json:"make"`
	Model     string                 `bson:"model" json:"model"`
	Year      int                    `bson:"year" json:"year"`
	Schedule  []BaselineScheduleItem `bson:"schedule" json:"schedule"`
	UpdatedAt time.Time              `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// MaxIntervalDistance returns the largest interval_distance in the schedule.
func (b *BaselineSchedule) MaxIntervalDistance() float64 {
	var max float64
	for _, item := range b.Schedule {
		if item.IntervalDistance > max {
			max = item.IntervalDistance
		}
	}
	return max
}
