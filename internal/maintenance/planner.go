package maintenance

import (
	"context"
	"fmt"

	"github.com/ukydev/carmemo/internal/models"
)

// Plan is the schedule view for one vehicle.
type Plan struct {
	VehicleID   string                   `json:"vehicleId"`
	BaselineKey string                   `json:"baselineKey"`
	Horizon     float64                  `json:"horizon"`
	Tasks       []models.MaintenanceTask `json:"tasks"`
}

// Planner resolves a vehicle's baseline and forecasts its schedule.
type Planner struct {
	resolver *ScheduleResolver
	engine   *ForecastEngine
}

func NewPlanner(resolver *ScheduleResolver, engine *ForecastEngine) *Planner {
	return &Planner{resolver: resolver, engine: engine}
}

// Schedule builds the plan from the vehicle's completed tasks.
func (p *Planner) Schedule(ctx context.Context, vehicle models.Vehicle) (*Plan, error) {
	if err := vehicle.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVehicle, err)
	}
	current := vehicle.CurrentDistance
	baseline, err := p.resolver.Resolve(ctx, vehicle.Make, vehicle.Model, vehicle.Year, &current)
	if err != nil {
		return nil, err
	}
	tasks := p.engine.Forecast(ctx, vehicle, vehicle.CompletedTasks(), baseline.Schedule)
	return &Plan{
		VehicleID:   vehicle.ID.Hex(),
		BaselineKey: BaselineKey(vehicle.Make, vehicle.Model, vehicle.Year),
		Horizon:     p.engine.Horizon(),
		Tasks:       tasks,
	}, nil
}
