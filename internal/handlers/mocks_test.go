package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/ukydev/carmemo/internal/db"
	"github.com/ukydev/carmemo/internal/models"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MockVehicleCollection is a mock implementation of VehicleCollection
type MockVehicleCollection struct {
	mock.Mock
}

func (m *MockVehicleCollection) InsertVehicle(ctx context.Context, vehicle models.Vehicle) error {
	args := m.Called(ctx, vehicle)
	return args.Error(0)
}

func (m *MockVehicleCollection) FindVehicles(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (db.VehicleCursor, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(db.VehicleCursor), args.Error(1)
}

func (m *MockVehicleCollection) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// hand out a copy so handler mutations do not leak into the fixture
	v := *args.Get(0).(*models.Vehicle)
	v.Tasks = append([]models.MaintenanceTask(nil), v.Tasks...)
	return &v, args.Error(1)
}

func (m *MockVehicleCollection) UpdateVehicle(ctx context.Context, id string, vehicle models.Vehicle) error {
	args := m.Called(ctx, id, vehicle)
	return args.Error(0)
}

func (m *MockVehicleCollection) DeleteVehicle(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockVehicleCursor is a mock implementation of VehicleCursor
type MockVehicleCursor struct {
	mock.Mock
}

func (m *MockVehicleCursor) All(ctx context.Context, out interface{}) error {
	args := m.Called(ctx, out)
	return args.Error(0)
}

func (m *MockVehicleCursor) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockSubscriptionCollection is a mock implementation of SubscriptionCollection
type MockSubscriptionCollection struct {
	mock.Mock
}

func (m *MockSubscriptionCollection) SaveSubscription(ctx context.Context, sub models.PushSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionCollection) DeleteSubscription(ctx context.Context, endpoint string) error {
	args := m.Called(ctx, endpoint)
	return args.Error(0)
}

func (m *MockSubscriptionCollection) ListSubscriptions(ctx context.Context) ([]models.PushSubscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PushSubscription), args.Error(1)
}

// stubRecalls counts lookups and returns a fixed recall list.
type stubRecalls struct {
	mu     sync.Mutex
	calls  int
	result []models.Recall
}

func (s *stubRecalls) ForVehicle(context.Context, models.Vehicle) []models.Recall {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result
}

// withParams attaches chi URL params to a request.
func withParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
