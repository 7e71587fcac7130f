package maintenance

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ukydev/carmemo/internal/models"
	"github.com/zoobzio/clockz"
)

// DefaultAverageDailyDistance is assumed when a vehicle has no driving rate.
const DefaultAverageDailyDistance = 40

// TaskEnricher normalizes raw task input into the canonical task shape.
type TaskEnricher struct {
	mapper *CategoryMapper
	clock  clockz.Clock
}

func NewTaskEnricher(mapper *CategoryMapper, clock clockz.Clock) *TaskEnricher {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &TaskEnricher{mapper: mapper, clock: clock}
}

// Enrich fills ids, category, due date and status defaults. It never fails;
// absent optional fields stay absent.
func (e *TaskEnricher) Enrich(ctx context.Context, raw models.MaintenanceTask, vehicle models.Vehicle) models.MaintenanceTask {
	t := raw
	now := e.clock.Now()
	today := startOfDay(now)

	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	input := string(t.Category)
	if input == "" {
		input = t.Title
	}
	t.Category = e.mapper.Map(ctx, input)

	if t.DueDate == nil && t.DueDistance != nil {
		due := projectDueDate(*t.DueDistance, vehicle, today)
		t.DueDate = &due
	}
	if t.Status == "" {
		t.Status = models.StatusUpcoming
	}
	if t.Importance == "" {
		t.Importance = models.ImportanceRecommended
	}
	if t.Status == models.StatusCompleted && t.CompletedDate == nil {
		t.CompletedDate = &today
	}
	if t.CreationDate.IsZero() {
		t.CreationDate = now
	}
	return t
}

// RefreshStatuses marks upcoming tasks overdue once their due date or due
// distance has passed. It returns how many tasks changed.
func (e *TaskEnricher) RefreshStatuses(tasks []models.MaintenanceTask, vehicle models.Vehicle) int {
	today := startOfDay(e.clock.Now())
	changed := 0
	for i := range tasks {
		t := &tasks[i]
		if t.Status != models.StatusUpcoming {
			continue
		}
		pastDate := t.DueDate != nil && t.DueDate.Before(today)
		pastDistance := t.DueDistance != nil && *t.DueDistance < vehicle.CurrentDistance
		if pastDate || pastDistance {
			t.Status = models.StatusOverdue
			changed++
		}
	}
	return changed
}

// NeedsAttention reports whether an open task is overdue or due soon.
func (e *TaskEnricher) NeedsAttention(t models.MaintenanceTask, vehicle models.Vehicle) bool {
	switch t.Status {
	case models.StatusOverdue:
		return true
	case models.StatusUpcoming, models.StatusInProgress:
	default:
		return false
	}
	if t.DueDistance != nil && *t.DueDistance-vehicle.CurrentDistance <= DueSoonDistance {
		return true
	}
	return t.DueDate != nil && t.DueDate.Sub(e.clock.Now()) <= DueSoonWindow
}

// projectDueDate estimates when dueDistance is reached at the vehicle's
// average daily distance.
func projectDueDate(dueDistance float64, vehicle models.Vehicle, today time.Time) time.Time {
	if dueDistance <= vehicle.CurrentDistance {
		return today
	}
	rate := vehicle.AverageDailyDistance
	if rate <= 0 {
		rate = DefaultAverageDailyDistance
	}
	days := int(math.Ceil((dueDistance - vehicle.CurrentDistance) / rate))
	return today.AddDate(0, 0, days)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
