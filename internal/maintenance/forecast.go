package maintenance

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ukydev/carmemo/internal/models"
	"github.com/zoobzio/clockz"
)

const (
	// DefaultForecastHorizon is how far past the current odometer occurrences are projected.
	DefaultForecastHorizon = 20000
	// DueSoonDistance flags occurrences this close to the current odometer.
	DueSoonDistance = 2000
	// DueSoonWindow flags occurrences due within this window of now.
	DueSoonWindow = 60 * 24 * time.Hour

	// maxOccurrences bounds the projection of a single item.
	maxOccurrences = 500
)

// ForecastEngine projects baseline items forward from a vehicle's history.
type ForecastEngine struct {
	mapper  *CategoryMapper
	clock   clockz.Clock
	horizon float64
}

// NewForecastEngine creates an engine with the default horizon.
func NewForecastEngine(mapper *CategoryMapper, clock clockz.Clock) *ForecastEngine {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &ForecastEngine{mapper: mapper, clock: clock, horizon: DefaultForecastHorizon}
}

// WithHorizon overrides the forecast horizon.
func (e *ForecastEngine) WithHorizon(horizon float64) *ForecastEngine {
	if horizon > 0 {
		e.horizon = horizon
	}
	return e
}

// Horizon returns the configured forecast horizon.
func (e *ForecastEngine) Horizon() float64 {
	return e.horizon
}

// Forecast returns the completed tasks followed by every projected
// occurrence whose (title, dueDistance, dueDate) is not already completed.
func (e *ForecastEngine) Forecast(ctx context.Context, vehicle models.Vehicle, completed []models.MaintenanceTask, baseline []models.BaselineScheduleItem) []models.MaintenanceTask {
	now := e.clock.Now()
	out := make([]models.MaintenanceTask, 0, len(completed))
	seen := make(map[string]struct{}, len(completed))

	for _, t := range completed {
		input := string(t.Category)
		if input == "" {
			input = t.Title
		}
		t.Category = e.mapper.Map(ctx, input)
		t.IsForecast = false
		seen[taskKey(t.Title, t.DueDistance, t.DueDate)] = struct{}{}
		out = append(out, t)
	}

	for _, item := range uniqueItems(baseline) {
		for _, occ := range e.project(ctx, vehicle, completed, item, now) {
			key := taskKey(occ.Title, occ.DueDistance, occ.DueDate)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, occ)
		}
	}
	return out
}

func (e *ForecastEngine) project(ctx context.Context, vehicle models.Vehicle, completed []models.MaintenanceTask, item models.BaselineScheduleItem, now time.Time) []models.MaintenanceTask {
	interval := item.IntervalDistance
	if interval <= 0 {
		return nil
	}

	startDistance := vehicle.InitialDistance
	startDate := vehicle.CreatedAt
	if last := lastCompletion(completed, item.Item); last != nil {
		if last.CompletedDistance != nil {
			startDistance = *last.CompletedDistance
		}
		if last.CompletedDate != nil {
			startDate = *last.CompletedDate
		}
	}
	if startDate.IsZero() {
		startDate = now
	}

	next := startDistance + interval
	if next <= vehicle.CurrentDistance {
		steps := math.Floor((vehicle.CurrentDistance-next)/interval) + 1
		next += steps * interval
	}

	limit := vehicle.CurrentDistance + e.horizon
	category := e.mapper.Map(ctx, item.Category)
	recurrence := recurrenceInterval(interval, item.IntervalMonths, vehicle.DistanceUnit)

	var out []models.MaintenanceTask
	for ; next <= limit && len(out) < maxOccurrences; next += interval {
		dueDistance := next
		var dueDate *time.Time
		if item.IntervalMonths > 0 {
			periods := int(math.Ceil((next - startDistance) / interval))
			d := startDate.AddDate(0, periods*item.IntervalMonths, 0)
			dueDate = &d
		}

		out = append(out, models.MaintenanceTask{
			ID:                 uuid.New().String(),
			Title:              item.Item,
			Category:           category,
			Status:             models.StatusUpcoming,
			Importance:         models.ImportanceForUrgency(item.Urgency),
			DueDate:            dueDate,
			DueDistance:        &dueDistance,
			IsForecast:         true,
			IsRecurring:        true,
			RecurrenceInterval: recurrence,
			IntervalDistance:   interval,
			IntervalMonths:     item.IntervalMonths,
			UrgencyBaseline:    item.Urgency,
			DueSoon:            isDueSoon(dueDistance, dueDate, vehicle.CurrentDistance, now),
			CreationDate:       now,
		})
	}
	return out
}

// lastCompletion picks the completion of title with the highest distance,
// then the latest date.
func lastCompletion(completed []models.MaintenanceTask, title string) *models.MaintenanceTask {
	var last *models.MaintenanceTask
	for i := range completed {
		t := &completed[i]
		if t.Title != title {
			continue
		}
		if last == nil || completedAfter(t, last) {
			last = t
		}
	}
	return last
}

func completedAfter(a, b *models.MaintenanceTask) bool {
	ad, bd := distanceOr(a.CompletedDistance, -1), distanceOr(b.CompletedDistance, -1)
	if ad != bd {
		return ad > bd
	}
	switch {
	case a.CompletedDate == nil:
		return false
	case b.CompletedDate == nil:
		return true
	default:
		return a.CompletedDate.After(*b.CompletedDate)
	}
}

func distanceOr(d *float64, fallback float64) float64 {
	if d == nil {
		return fallback
	}
	return *d
}

func isDueSoon(dueDistance float64, dueDate *time.Time, current float64, now time.Time) bool {
	if dueDistance-current <= DueSoonDistance {
		return true
	}
	return dueDate != nil && dueDate.Sub(now) <= DueSoonWindow
}

// uniqueItems keeps the first item per (item, interval_distance, interval_months).
// The generic fallback lists the same service once per due distance.
func uniqueItems(items []models.BaselineScheduleItem) []models.BaselineScheduleItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.BaselineScheduleItem, 0, len(items))
	for _, item := range items {
		key := item.Item + "|" + formatDistance(item.IntervalDistance) + "|" + strconv.Itoa(item.IntervalMonths)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func recurrenceInterval(distance float64, months int, unit string) string {
	if unit == "" {
		unit = models.UnitKilometers
	}
	var parts []string
	if distance > 0 {
		parts = append(parts, formatDistance(distance)+" "+unit)
	}
	if months > 0 {
		parts = append(parts, strconv.Itoa(months)+" months")
	}
	return strings.Join(parts, " / ")
}

func taskKey(title string, dueDistance *float64, dueDate *time.Time) string {
	var dist, date string
	if dueDistance != nil {
		dist = formatDistance(*dueDistance)
	}
	if dueDate != nil {
		date = dueDate.UTC().Format("2006-01-02")
	}
	return title + "|" + dist + "|" + date
}

func formatDistance(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}
