package maintenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/carmemo/internal/models"
	"github.com/zoobzio/metricz"
)

// Resolver counters.
const (
	ResolverStoreHitsTotal   = metricz.Key("resolver.store.hits.total")
	ResolverGeneratedTotal   = metricz.Key("resolver.generated.total")
	ResolverFallbacksTotal   = metricz.Key("resolver.fallbacks.total")
	ResolverStoreErrorsTotal = metricz.Key("resolver.store.errors.total")
)

// Generator produces a baseline schedule for a make/model/year, typically
// backed by an AI model. It may fail or return nothing.
type Generator interface {
	GenerateBaselineSchedule(ctx context.Context, vehicleMake, vehicleModel string, year int) ([]models.BaselineScheduleItem, error)
}

// BaselineStore persists baseline schedules by normalized key.
type BaselineStore interface {
	Get(ctx context.Context, key string) (*models.BaselineSchedule, bool, error)
	Set(ctx context.Context, key string, schedule models.BaselineSchedule) error
	All(ctx context.Context) (map[string]models.BaselineSchedule, error)
	Replace(ctx context.Context, all map[string]models.BaselineSchedule) error
}

// BaselineKey builds the normalized make_model_year key.
func BaselineKey(vehicleMake, vehicleModel string, year int) string {
	raw := fmt.Sprintf("%s_%s_%d", strings.TrimSpace(vehicleMake), strings.TrimSpace(vehicleModel), year)
	return strings.ToLower(strings.Join(strings.Fields(raw), "_"))
}

// ScheduleResolver returns a baseline schedule from the store, the
// generator or the generic fallback, in that order.
type ScheduleResolver struct {
	store     BaselineStore
	generator Generator
	metrics   *metricz.Registry
}

// NewScheduleResolver creates a resolver. Either dependency may be nil.
func NewScheduleResolver(store BaselineStore, generator Generator) *ScheduleResolver {
	metrics := metricz.New()
	metrics.Counter(ResolverStoreHitsTotal)
	metrics.Counter(ResolverGeneratedTotal)
	metrics.Counter(ResolverFallbacksTotal)
	metrics.Counter(ResolverStoreErrorsTotal)
	return &ScheduleResolver{store: store, generator: generator, metrics: metrics}
}

// Metrics returns the resolver counters.
func (r *ScheduleResolver) Metrics() *metricz.Registry {
	return r.metrics
}

// Resolve never fails for valid input; the generic schedule is the floor.
func (r *ScheduleResolver) Resolve(ctx context.Context, vehicleMake, vehicleModel string, year int, currentDistance *float64) (models.BaselineSchedule, error) {
	if strings.TrimSpace(vehicleMake) == "" || strings.TrimSpace(vehicleModel) == "" || year <= 0 {
		return models.BaselineSchedule{}, fmt.Errorf("%w: make, model and year are required", ErrInvalidVehicle)
	}
	key := BaselineKey(vehicleMake, vehicleModel, year)
	logger := log.WithField("baseline_key", key)

	stored, found := r.load(ctx, key)
	if found {
		if currentDistance == nil || *currentDistance <= stored.MaxIntervalDistance() {
			r.metrics.Counter(ResolverStoreHitsTotal).Inc()
			return *stored, nil
		}
		logger.WithFields(log.Fields{
			"current_distance": *currentDistance,
			"max_interval":     stored.MaxIntervalDistance(),
		}).Info("Stored baseline does not cover current distance, regenerating")
	}

	if schedule, ok := r.generate(ctx, vehicleMake, vehicleModel, year); ok {
		r.save(ctx, key, schedule)
		return schedule, nil
	}

	var distance float64
	if currentDistance != nil {
		distance = *currentDistance
	}
	r.metrics.Counter(ResolverFallbacksTotal).Inc()
	logger.Warn("Using generic fallback schedule")
	return models.BaselineSchedule{
		Make:     vehicleMake,
		Model:    vehicleModel,
		Year:     year,
		Schedule: GenericSchedule(distance),
	}, nil
}

func (r *ScheduleResolver) load(ctx context.Context, key string) (*models.BaselineSchedule, bool) {
	if r.store == nil {
		return nil, false
	}
	stored, found, err := r.store.Get(ctx, key)
	if err != nil {
		r.metrics.Counter(ResolverStoreErrorsTotal).Inc()
		log.WithError(err).WithField("baseline_key", key).Error("Failed to read baseline store, treating as empty")
		return nil, false
	}
	if !found || stored == nil || len(stored.Schedule) == 0 {
		return nil, false
	}
	return stored, true
}

func (r *ScheduleResolver) generate(ctx context.Context, vehicleMake, vehicleModel string, year int) (models.BaselineSchedule, bool) {
	if r.generator == nil {
		return models.BaselineSchedule{}, false
	}
	items, err := r.generator.GenerateBaselineSchedule(ctx, vehicleMake, vehicleModel, year)
	if err == nil {
		items = cleanItems(items)
		if len(items) == 0 {
			err = ErrEmptySchedule
		}
	}
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"make":  vehicleMake,
			"model": vehicleModel,
			"year":  year,
		}).Error("Baseline schedule generation failed")
		return models.BaselineSchedule{}, false
	}
	r.metrics.Counter(ResolverGeneratedTotal).Inc()
	return models.BaselineSchedule{
		Make:      vehicleMake,
		Model:     vehicleModel,
		Year:      year,
		Schedule:  items,
		UpdatedAt: time.Now(),
	}, true
}

func (r *ScheduleResolver) save(ctx context.Context, key string, schedule models.BaselineSchedule) {
	if r.store == nil {
		return
	}
	if err := r.store.Set(ctx, key, schedule); err != nil {
		r.metrics.Counter(ResolverStoreErrorsTotal).Inc()
		log.WithError(err).WithField("baseline_key", key).Error("Failed to persist baseline schedule")
	}
}

// cleanItems drops unnamed items and assigns missing ids.
func cleanItems(items []models.BaselineScheduleItem) []models.BaselineScheduleItem {
	out := make([]models.BaselineScheduleItem, 0, len(items))
	for _, item := range items {
		item.Item = strings.TrimSpace(item.Item)
		if item.Item == "" {
			continue
		}
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		out = append(out, item)
	}
	return out
}
