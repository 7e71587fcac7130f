package maintenance

import (
	"math"

	"github.com/google/uuid"
	"github.com/ukydev/carmemo/internal/models"
)

const (
	// FallbackUnit is the distance step of the generic schedule.
	FallbackUnit = 10000
	// FallbackMinDistance is the lowest distance the generic schedule covers.
	FallbackMinDistance = 300000
)

// GenericSchedule synthesizes a baseline when neither the store nor the
// generator can provide one. It always returns at least one item.
func GenericSchedule(currentDistance float64) []models.BaselineScheduleItem {
	limit := math.Max(currentDistance, FallbackMinDistance)
	var items []models.BaselineScheduleItem
	for d := float64(FallbackUnit); d <= limit; d += FallbackUnit {
		items = append(items,
			models.BaselineScheduleItem{
				ID:               uuid.New().String(),
				Item:             "Oil & Filter",
				IntervalDistance: FallbackUnit,
				IntervalMonths:   6,
				Category:         string(models.CategoryOilChange),
				Urgency:          models.UrgencyHigh,
				DueDistance:      d,
			},
			models.BaselineScheduleItem{
				ID:               uuid.New().String(),
				Item:             "Tire Rotation",
				IntervalDistance: FallbackUnit,
				IntervalMonths:   6,
				Category:         string(models.CategoryTireRotation),
				Urgency:          models.UrgencyMedium,
				DueDistance:      d,
			},
		)
		if math.Mod(d, 2*FallbackUnit) == 0 {
			items = append(items, models.BaselineScheduleItem{
				ID:               uuid.New().String(),
				Item:             "Air Filter",
				IntervalDistance: 2 * FallbackUnit,
				IntervalMonths:   12,
				Category:         string(models.CategoryAirFilter),
				Urgency:          models.UrgencyMedium,
				DueDistance:      d,
			})
		}
	}
	return items
}
