package maintenance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/carmemo/internal/models"
)

// MockGenerator is a mock implementation of Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateBaselineSchedule(ctx context.Context, vehicleMake, vehicleModel string, year int) ([]models.BaselineScheduleItem, error) {
	args := m.Called(ctx, vehicleMake, vehicleModel, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BaselineScheduleItem), args.Error(1)
}

// memoryStore is an in-memory BaselineStore with injectable failures.
type memoryStore struct {
	data     map[string]models.BaselineSchedule
	getErr   error
	setErr   error
	setCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]models.BaselineSchedule{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (*models.BaselineSchedule, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	b, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return &b, true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, schedule models.BaselineSchedule) error {
	s.setCalls++
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = schedule
	return nil
}

func (s *memoryStore) All(_ context.Context) (map[string]models.BaselineSchedule, error) {
	return s.data, nil
}

func (s *memoryStore) Replace(_ context.Context, all map[string]models.BaselineSchedule) error {
	s.data = all
	return nil
}

func generated() []models.BaselineScheduleItem {
	return []models.BaselineScheduleItem{
		{Item: "Engine Oil & Filter", IntervalDistance: 10000, IntervalMonths: 6, Category: "Oil Change", Urgency: models.UrgencyHigh},
		{Item: "Timing Belt", IntervalDistance: 100000, IntervalMonths: 72, Category: "Engine", Urgency: models.UrgencyHigh},
		{Item: "  "},
	}
}

func distance(d float64) *float64 { return &d }

func TestBaselineKey(t *testing.T) {
	assert.Equal(t, "toyota_land_cruiser_2021", BaselineKey("Toyota", " Land  Cruiser ", 2021))
	assert.Equal(t, "honda_civic_2018", BaselineKey("HONDA", "Civic", 2018))
}

func TestScheduleResolver_InvalidInput(t *testing.T) {
	r := NewScheduleResolver(newMemoryStore(), nil)

	_, err := r.Resolve(context.Background(), "", "Camry", 2020, nil)
	assert.ErrorIs(t, err, ErrInvalidVehicle)

	_, err = r.Resolve(context.Background(), "Toyota", "Camry", 0, nil)
	assert.ErrorIs(t, err, ErrInvalidVehicle)
}

func TestScheduleResolver_GeneratesAndPersists(t *testing.T) {
	store := newMemoryStore()
	gen := new(MockGenerator)
	gen.On("GenerateBaselineSchedule", mock.Anything, "Toyota", "Camry", 2020).Return(generated(), nil).Once()
	r := NewScheduleResolver(store, gen)

	got, err := r.Resolve(context.Background(), "Toyota", "Camry", 2020, nil)
	require.NoError(t, err)
	require.Len(t, got.Schedule, 2)
	assert.NotEmpty(t, got.Schedule[0].ID)
	assert.Contains(t, store.data, "toyota_camry_2020")

	// Second call is served from the store.
	again, err := r.Resolve(context.Background(), "Toyota", "Camry", 2020, distance(52000))
	require.NoError(t, err)
	assert.Equal(t, got.Schedule, again.Schedule)
	assert.EqualValues(t, 1, r.Metrics().Counter(ResolverStoreHitsTotal).Value())
	assert.EqualValues(t, 1, r.Metrics().Counter(ResolverGeneratedTotal).Value())
	gen.AssertExpectations(t)
}

func TestScheduleResolver_FallbackNotPersisted(t *testing.T) {
	store := newMemoryStore()
	gen := new(MockGenerator)
	gen.On("GenerateBaselineSchedule", mock.Anything, "Lada", "Niva", 1995).Return(nil, errors.New("quota exceeded"))
	r := NewScheduleResolver(store, gen)

	got, err := r.Resolve(context.Background(), "Lada", "Niva", 1995, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, got.Schedule)
	assert.Zero(t, store.setCalls)
	assert.EqualValues(t, 1, r.Metrics().Counter(ResolverFallbacksTotal).Value())
}

func TestScheduleResolver_EmptyGenerationFallsBack(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("GenerateBaselineSchedule", mock.Anything, "Kia", "Rio", 2015).Return([]models.BaselineScheduleItem{}, nil)
	r := NewScheduleResolver(newMemoryStore(), gen)

	got, err := r.Resolve(context.Background(), "Kia", "Rio", 2015, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, got.Schedule)
	assert.Equal(t, "Oil & Filter", got.Schedule[0].Item)
}

func TestScheduleResolver_InsufficientBaselineRegenerates(t *testing.T) {
	store := newMemoryStore()
	store.data["toyota_camry_2020"] = models.BaselineSchedule{
		Make: "Toyota", Model: "Camry", Year: 2020,
		Schedule: []models.BaselineScheduleItem{{ID: "old", Item: "Oil", IntervalDistance: 10000}},
	}
	gen := new(MockGenerator)
	gen.On("GenerateBaselineSchedule", mock.Anything, "Toyota", "Camry", 2020).Return(generated(), nil)
	r := NewScheduleResolver(store, gen)

	got, err := r.Resolve(context.Background(), "Toyota", "Camry", 2020, distance(150000))
	require.NoError(t, err)
	assert.Equal(t, "Engine Oil & Filter", got.Schedule[0].Item)
	assert.Equal(t, "Engine Oil & Filter", store.data["toyota_camry_2020"].Schedule[0].Item)
}

func TestScheduleResolver_InsufficientBaselineKeptOnGeneratorFailure(t *testing.T) {
	store := newMemoryStore()
	old := models.BaselineSchedule{
		Make: "Toyota", Model: "Camry", Year: 2020,
		Schedule: []models.BaselineScheduleItem{{ID: "old", Item: "Oil", IntervalDistance: 10000}},
	}
	store.data["toyota_camry_2020"] = old
	gen := new(MockGenerator)
	gen.On("GenerateBaselineSchedule", mock.Anything, "Toyota", "Camry", 2020).Return(nil, errors.New("timeout"))
	r := NewScheduleResolver(store, gen)

	got, err := r.Resolve(context.Background(), "Toyota", "Camry", 2020, distance(350000))
	require.NoError(t, err)
	assert.Equal(t, "Oil & Filter", got.Schedule[0].Item)
	assert.Equal(t, old, store.data["toyota_camry_2020"])
	assert.Zero(t, store.setCalls)
}

func TestScheduleResolver_StoreFailures(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("corrupt file")
	store.setErr = errors.New("disk full")
	gen := new(MockGenerator)
	gen.On("GenerateBaselineSchedule", mock.Anything, "Toyota", "Camry", 2020).Return(generated(), nil)
	r := NewScheduleResolver(store, gen)

	got, err := r.Resolve(context.Background(), "Toyota", "Camry", 2020, nil)
	require.NoError(t, err)
	assert.Len(t, got.Schedule, 2)
	assert.Equal(t, 1, store.setCalls)
	assert.EqualValues(t, 2, r.Metrics().Counter(ResolverStoreErrorsTotal).Value())
}

func TestScheduleResolver_NeverEmpty(t *testing.T) {
	r := NewScheduleResolver(nil, nil)
	for _, d := range []*float64{nil, distance(0), distance(999999)} {
		got, err := r.Resolve(context.Background(), "Any", "Car", 2000, d)
		require.NoError(t, err)
		assert.NotEmpty(t, got.Schedule)
	}
}

func TestGenericSchedule(t *testing.T) {
	items := GenericSchedule(0)

	var oil, tire, air int
	ids := map[string]bool{}
	for _, item := range items {
		assert.False(t, ids[item.ID], "duplicate id")
		ids[item.ID] = true
		switch item.Item {
		case "Oil & Filter":
			oil++
			assert.Equal(t, models.UrgencyHigh, item.Urgency)
		case "Tire Rotation":
			tire++
			assert.Equal(t, models.UrgencyMedium, item.Urgency)
		case "Air Filter":
			air++
			assert.Zero(t, int(item.DueDistance)%(2*FallbackUnit))
		}
	}
	assert.Equal(t, 30, oil)
	assert.Equal(t, 30, tire)
	assert.Equal(t, 15, air)

	high := GenericSchedule(405000)
	assert.Equal(t, 400000.0, high[len(high)-1].DueDistance)
}
