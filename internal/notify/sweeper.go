package notify

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/carmemo/internal/db"
	"github.com/ukydev/carmemo/internal/maintenance"
	"github.com/ukydev/carmemo/internal/models"
	"github.com/zoobzio/clockz"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSweepInterval    = time.Hour
	DefaultSweepConcurrency = 4
	// RemindEvery suppresses repeat reminders for the same task.
	RemindEvery = 24 * time.Hour
)

// SweeperConfig tunes the reminder sweep.
type SweeperConfig struct {
	Interval    time.Duration
	Concurrency int
	// Planner, when set, adds due-soon forecast items to the reminders.
	Planner *maintenance.Planner
	Clock   clockz.Clock
}

// SweepResult summarizes one pass over the fleet.
type SweepResult struct {
	Vehicles  int
	Updated   int
	Reminders int
	Failures  int
}

// Sweeper periodically refreshes task statuses and notifies about tasks that
// are overdue or due soon.
type Sweeper struct {
	vehicles db.VehicleCollection
	enricher *maintenance.TaskEnricher
	notifier Notifier
	planner  *maintenance.Planner
	clock    clockz.Clock
	interval time.Duration
	limit    int

	mu   sync.Mutex
	sent map[string]time.Time
}

func NewSweeper(vehicles db.VehicleCollection, enricher *maintenance.TaskEnricher, notifier Notifier, cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSweepInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultSweepConcurrency
	}
	if cfg.Clock == nil {
		cfg.Clock = clockz.RealClock
	}
	return &Sweeper{
		vehicles: vehicles,
		enricher: enricher,
		notifier: notifier,
		planner:  cfg.Planner,
		clock:    cfg.Clock,
		interval: cfg.Interval,
		limit:    cfg.Concurrency,
		sent:     make(map[string]time.Time),
	}
}

// Run sweeps immediately and then on every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	log.WithField("interval", s.interval).Info("Reminder sweeper started")
	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Reminder sweep failed")
		}
		select {
		case <-ctx.Done():
			log.Info("Reminder sweeper stopped")
			return nil
		case <-s.clock.After(s.interval):
		}
	}
}

// SweepOnce processes every vehicle with bounded concurrency. Per-vehicle
// failures are counted and logged; only listing the fleet can fail the sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	if err := ctx.Err(); err != nil {
		return result, err
	}

	cursor, err := s.vehicles.FindVehicles(ctx, bson.M{})
	if err != nil {
		return result, fmt.Errorf("list vehicles: %w", err)
	}
	var vehicles []models.Vehicle
	err = cursor.All(ctx, &vehicles)
	_ = cursor.Close(ctx)
	if err != nil {
		return result, fmt.Errorf("decode vehicles: %w", err)
	}
	result.Vehicles = len(vehicles)

	var updated, reminded, failures atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i := range vehicles {
		v := vehicles[i]
		g.Go(func() error {
			changed, sent, err := s.sweepVehicle(gctx, v)
			if changed {
				updated.Add(1)
			}
			reminded.Add(int64(sent))
			if err != nil {
				failures.Add(1)
				log.WithError(err).WithField("vehicle_id", v.ID.Hex()).Warn("Sweep failed for vehicle")
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Updated = int(updated.Load())
	result.Reminders = int(reminded.Load())
	result.Failures = int(failures.Load())
	log.WithFields(log.Fields{
		"vehicles":  result.Vehicles,
		"updated":   result.Updated,
		"reminders": result.Reminders,
		"failures":  result.Failures,
	}).Info("Reminder sweep complete")
	return result, nil
}

func (s *Sweeper) sweepVehicle(ctx context.Context, v models.Vehicle) (bool, int, error) {
	id := v.ID.Hex()
	changed := s.enricher.RefreshStatuses(v.Tasks, v) > 0
	if changed {
		if err := s.vehicles.UpdateVehicle(ctx, id, v); err != nil {
			return false, 0, fmt.Errorf("save statuses: %w", err)
		}
	}

	reminders := s.collect(ctx, v)
	if len(reminders) == 0 || s.notifier == nil {
		return changed, 0, nil
	}
	if err := s.notifier.Notify(ctx, id, reminders); err != nil {
		return changed, 0, err
	}
	s.markSent(reminders)
	return changed, len(reminders), nil
}

func (s *Sweeper) collect(ctx context.Context, v models.Vehicle) []models.Reminder {
	id := v.ID.Hex()
	name := DisplayName(v)
	var out []models.Reminder

	for _, t := range v.Tasks {
		if s.enricher.NeedsAttention(t, v) {
			out = s.appendFresh(out, reminderFor(id, name, t))
		}
	}

	if s.planner != nil {
		plan, err := s.planner.Schedule(ctx, v)
		if err != nil {
			log.WithError(err).WithField("vehicle_id", id).Warn("Could not forecast for reminders")
			return out
		}
		for _, t := range plan.Tasks {
			if t.IsForecast && t.DueSoon {
				out = s.appendFresh(out, reminderFor(id, name, t))
			}
		}
	}
	return out
}

func (s *Sweeper) appendFresh(out []models.Reminder, r models.Reminder) []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.sent[reminderKey(r)]; ok && s.clock.Now().Sub(last) < RemindEvery {
		return out
	}
	return append(out, r)
}

func (s *Sweeper) markSent(reminders []models.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for _, r := range reminders {
		s.sent[reminderKey(r)] = now
	}
}

func reminderFor(vehicleID, name string, t models.MaintenanceTask) models.Reminder {
	return models.Reminder{
		VehicleID:   vehicleID,
		VehicleName: name,
		TaskID:      t.ID,
		Title:       t.Title,
		Category:    t.Category,
		Status:      t.Status,
		DueDate:     t.DueDate,
		DueDistance: t.DueDistance,
		IsForecast:  t.IsForecast,
	}
}

// reminderKey is stable across sweeps; forecast ids are regenerated each time.
func reminderKey(r models.Reminder) string {
	key := r.VehicleID + "|" + r.Title
	if r.DueDistance != nil {
		key += "|" + strconv.FormatFloat(*r.DueDistance, 'f', -1, 64)
	}
	if r.DueDate != nil {
		key += "|" + r.DueDate.Format("2006-01-02")
	}
	return key
}

// DisplayName prefers the nickname, then "year make model".
func DisplayName(v models.Vehicle) string {
	if v.Nickname != "" {
		return v.Nickname
	}
	return fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model)
}
