package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// Vehicle is the subset of the API vehicle the simulator sends and reads.
type Vehicle struct {
	ID                   string  `json:"id,omitempty"`
	Make                 string  `json:"make"`
	Model                string  `json:"model"`
	Year                 int     `json:"year"`
	CurrentDistance      float64 `json:"currentDistance"`
	DistanceUnit         string  `json:"distanceUnit"`
	AverageDailyDistance float64 `json:"averageDailyDistance,omitempty"`
}

// Task is the subset of a scheduled task the simulator logs.
type Task struct {
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	DueDistance *float64   `json:"dueDistance,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	DueSoon     bool       `json:"dueSoon"`
	IsForecast  bool       `json:"isForecast"`
}

type Plan struct {
	BaselineKey string `json:"baselineKey"`
	Tasks       []Task `json:"tasks"`
}

// DriverState tracks one simulated vehicle between ticks.
type DriverState struct {
	VehicleID string
	Label     string
	Odometer  float64
	DailyKm   float64
}

var catalog = map[string][]string{
	"Toyota":    {"Camry", "Corolla", "Land Cruiser", "Hilux"},
	"Hyundai":   {"Elantra", "Sonata", "Tucson"},
	"Nissan":    {"Altima", "Patrol", "Sunny"},
	"Ford":      {"F-150", "Explorer", "Focus"},
	"Honda":     {"Civic", "Accord", "CR-V"},
	"Chevrolet": {"Tahoe", "Malibu", "Silverado"},
}

var makes = func() []string {
	out := make([]string, 0, len(catalog))
	for m := range catalog {
		out = append(out, m)
	}
	return out
}()

// Simulator drives a fleet through the CarMemo API.
type Simulator struct {
	apiURL string
	client *http.Client
	rng    *rand.Rand
}

func NewSimulator(apiURL string, seed int64) *Simulator {
	return &Simulator{
		apiURL: apiURL,
		client: &http.Client{Timeout: 10 * time.Second},
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (s *Simulator) randomVehicle() Vehicle {
	vehicleMake := makes[s.rng.Intn(len(makes))]
	models := catalog[vehicleMake]
	return Vehicle{
		Make:            vehicleMake,
		Model:           models[s.rng.Intn(len(models))],
		Year:            2015 + s.rng.Intn(10),
		CurrentDistance: float64(5000 + s.rng.Intn(150000)),
		DistanceUnit:    "km",
	}
}

func (s *Simulator) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, s.apiURL+path, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed with status: %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// CreateVehicle registers a random vehicle and returns its driver state.
func (s *Simulator) CreateVehicle(ctx context.Context) (*DriverState, error) {
	v := s.randomVehicle()
	var created Vehicle
	if err := s.do(ctx, http.MethodPost, "/vehicles", v, &created); err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("invalid vehicle ID in response")
	}

	state := &DriverState{
		VehicleID: created.ID,
		Label:     fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model),
		Odometer:  created.CurrentDistance,
		DailyKm:   20 + s.rng.Float64()*80,
	}
	log.WithFields(log.Fields{
		"vehicle_id": state.VehicleID,
		"vehicle":    state.Label,
		"odometer":   state.Odometer,
		"daily_km":   state.DailyKm,
	}).Info("Created vehicle")
	return state, nil
}

// Drive advances the odometer by one simulated day with some noise.
func (s *Simulator) Drive(ctx context.Context, state *DriverState) error {
	km := state.DailyKm * (0.5 + s.rng.Float64())
	next := state.Odometer + km
	body := map[string]float64{"currentDistance": next}
	if err := s.do(ctx, http.MethodPut, "/vehicles/"+state.VehicleID+"/distance", body, nil); err != nil {
		return err
	}
	state.Odometer = next
	return nil
}

// DueSoon fetches the schedule and returns the forecast items flagged due soon.
func (s *Simulator) DueSoon(ctx context.Context, state *DriverState) ([]Task, error) {
	var plan Plan
	if err := s.do(ctx, http.MethodGet, "/vehicles/"+state.VehicleID+"/schedule", nil, &plan); err != nil {
		return nil, err
	}
	var out []Task
	for _, t := range plan.Tasks {
		if t.IsForecast && t.DueSoon {
			out = append(out, t)
		}
	}
	return out, nil
}

// Run drives every vehicle once per tick and checks schedules every
// scheduleEvery ticks until ctx is done.
func (s *Simulator) Run(ctx context.Context, states []*DriverState, interval time.Duration, scheduleEvery int) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for day := 1; ; day++ {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		for _, st := range states {
			if err := s.Drive(ctx, st); err != nil {
				log.WithError(err).WithField("vehicle_id", st.VehicleID).Error("Failed to update distance")
				continue
			}
			if scheduleEvery <= 0 || day%scheduleEvery != 0 {
				continue
			}
			due, err := s.DueSoon(ctx, st)
			if err != nil {
				log.WithError(err).WithField("vehicle_id", st.VehicleID).Error("Failed to fetch schedule")
				continue
			}
			for _, t := range due {
				entry := log.WithFields(log.Fields{
					"vehicle":  st.Label,
					"task":     t.Title,
					"odometer": int(st.Odometer),
				})
				if t.DueDistance != nil {
					entry = entry.WithField("due_at", int(*t.DueDistance))
				}
				entry.Info("Maintenance due soon")
			}
		}
		log.WithField("day", day).Debug("Simulated day complete")
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func main() {
	fleetSize := envInt("FLEET_SIZE", 5)
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	interval := time.Duration(envInt("SIM_TICK_SECONDS", 2)) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	scheduleEvery := envInt("SIM_SCHEDULE_EVERY", 7)

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
		"interval":   interval,
	}).Info("Starting fleet simulation")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim := NewSimulator(apiURL, time.Now().UnixNano())
	states := make([]*DriverState, 0, fleetSize)
	for i := 0; i < fleetSize; i++ {
		state, err := sim.CreateVehicle(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to create vehicle")
			continue
		}
		states = append(states, state)
	}

	log.WithField("created_vehicles", len(states)).Info("Vehicle creation completed")
	if len(states) == 0 {
		log.Error("No vehicles created. Ensure the API is reachable. Exiting.")
		return
	}

	sim.Run(ctx, states, interval, scheduleEvery)
	log.Info("Simulation stopped")
}
