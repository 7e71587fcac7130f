package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/carmemo/internal/db"
	"github.com/ukydev/carmemo/internal/maintenance"
	"github.com/ukydev/carmemo/internal/models"
	"github.com/zoobzio/clockz"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fakeVehicles is an in-memory db.VehicleCollection.
type fakeVehicles struct {
	mu      sync.Mutex
	byID    map[string]models.Vehicle
	order   []string
	updates int
	findErr error
}

func newFakeVehicles(vs ...models.Vehicle) *fakeVehicles {
	f := &fakeVehicles{byID: map[string]models.Vehicle{}}
	for _, v := range vs {
		f.byID[v.ID.Hex()] = v
		f.order = append(f.order, v.ID.Hex())
	}
	return f
}

type sliceCursor struct{ vehicles []models.Vehicle }

func (c *sliceCursor) All(_ context.Context, out interface{}) error {
	*(out.(*[]models.Vehicle)) = c.vehicles
	return nil
}

func (c *sliceCursor) Close(context.Context) error { return nil }

func (f *fakeVehicles) InsertVehicle(context.Context, models.Vehicle) error { return nil }

func (f *fakeVehicles) FindVehicles(context.Context, interface{}, ...*options.FindOptions) (db.VehicleCursor, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Vehicle
	for _, id := range f.order {
		v := f.byID[id]
		v.Tasks = append([]models.MaintenanceTask(nil), v.Tasks...)
		out = append(out, v)
	}
	return &sliceCursor{vehicles: out}, nil
}

func (f *fakeVehicles) FindVehicleByID(_ context.Context, id string) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byID[id]
	if !ok {
		return nil, db.ErrVehicleNotFound
	}
	return &v, nil
}

func (f *fakeVehicles) UpdateVehicle(_ context.Context, id string, v models.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[id] = v
	f.updates++
	return nil
}

func (f *fakeVehicles) DeleteVehicle(context.Context, string) error { return nil }

func ptr(f float64) *float64 { return &f }

func fleet() (models.Vehicle, models.Vehicle) {
	busy := models.Vehicle{
		ID: primitive.NewObjectID(), Make: "Toyota", Model: "Camry", Year: 2020, CurrentDistance: 50000,
		Tasks: []models.MaintenanceTask{
			{ID: "oil", Title: "Oil Change", Status: models.StatusUpcoming, DueDistance: ptr(49000)},
			{ID: "tires", Title: "Tire Rotation", Status: models.StatusUpcoming, DueDistance: ptr(51500)},
			{ID: "belt", Title: "Timing Belt", Status: models.StatusUpcoming, DueDistance: ptr(120000)},
		},
	}
	idle := models.Vehicle{ID: primitive.NewObjectID(), Make: "Honda", Model: "Civic", Year: 2019, Nickname: "Weekend"}
	return busy, idle
}

func TestSweeper_SweepOnce(t *testing.T) {
	busy, idle := fleet()
	vehicles := newFakeVehicles(busy, idle)
	clock := clockz.NewFakeClock()
	notifier := &recordingNotifier{}
	sweeper := NewSweeper(vehicles, maintenance.NewTaskEnricher(nil, clock), notifier, SweeperConfig{Clock: clock, Concurrency: 2})

	result, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Vehicles: 2, Updated: 1, Reminders: 2}, result)

	stored, _ := vehicles.FindVehicleByID(context.Background(), busy.ID.Hex())
	assert.Equal(t, models.StatusOverdue, stored.Tasks[0].Status)
	assert.Equal(t, models.StatusUpcoming, stored.Tasks[1].Status)

	got := notifier.calls[busy.ID.Hex()]
	require.Len(t, got, 2)
	assert.Equal(t, "Oil Change", got[0].Title)
	assert.Equal(t, models.StatusOverdue, got[0].Status)
	assert.Equal(t, "2020 Toyota Camry", got[0].VehicleName)
	assert.NotContains(t, notifier.calls, idle.ID.Hex())

	// repeats are suppressed until RemindEvery has passed
	result, err = sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Reminders)
	assert.Equal(t, 0, result.Updated)

	clock.Advance(RemindEvery + time.Minute)
	result, err = sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Reminders)
}

func TestSweeper_NotifierFailureIsCounted(t *testing.T) {
	busy, _ := fleet()
	clock := clockz.NewFakeClock()
	notifier := &recordingNotifier{err: errors.New("push service down")}
	sweeper := NewSweeper(newFakeVehicles(busy), maintenance.NewTaskEnricher(nil, clock), notifier, SweeperConfig{Clock: clock})

	result, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failures)
	assert.Equal(t, 0, result.Reminders)

	// failed deliveries are retried on the next sweep
	notifier.err = nil
	result, err = sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Reminders)
}

func TestSweeper_ListFailure(t *testing.T) {
	vehicles := newFakeVehicles()
	vehicles.findErr = errors.New("no reachable servers")
	sweeper := NewSweeper(vehicles, maintenance.NewTaskEnricher(nil, nil), nil, SweeperConfig{})

	_, err := sweeper.SweepOnce(context.Background())
	assert.ErrorContains(t, err, "no reachable servers")
}

func TestSweeper_ForecastReminders(t *testing.T) {
	clock := clockz.NewFakeClock()
	v := models.Vehicle{ID: primitive.NewObjectID(), Make: "Kia", Model: "Rio", Year: 2021, CurrentDistance: 9000, CreatedAt: clock.Now()}
	engine := maintenance.NewForecastEngine(nil, clock)
	planner := maintenance.NewPlanner(maintenance.NewScheduleResolver(nil, nil), engine)
	notifier := &recordingNotifier{}
	sweeper := NewSweeper(newFakeVehicles(v), maintenance.NewTaskEnricher(nil, clock), notifier, SweeperConfig{Clock: clock, Planner: planner})

	_, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)

	var titles []string
	for _, r := range notifier.calls[v.ID.Hex()] {
		assert.True(t, r.IsForecast)
		assert.Equal(t, 10000.0, *r.DueDistance)
		titles = append(titles, r.Title)
	}
	assert.ElementsMatch(t, []string{"Oil & Filter", "Tire Rotation"}, titles)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sweeper := NewSweeper(newFakeVehicles(), maintenance.NewTaskEnricher(nil, nil), nil, SweeperConfig{Clock: clockz.NewFakeClock()})

	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Weekend", DisplayName(models.Vehicle{Nickname: "Weekend", Make: "Honda"}))
	assert.Equal(t, "2019 Honda Civic", DisplayName(models.Vehicle{Make: "Honda", Model: "Civic", Year: 2019}))
}
