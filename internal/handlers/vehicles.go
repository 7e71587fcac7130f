package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/carmemo/internal/db"
	"github.com/ukydev/carmemo/internal/maintenance"
	"github.com/ukydev/carmemo/internal/models"
	"github.com/zoobzio/clockz"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RecallFinder looks up recalls for a vehicle. Failures yield no recalls.
type RecallFinder interface {
	ForVehicle(ctx context.Context, v models.Vehicle) []models.Recall
}

// VehicleHandler serves vehicles, their tasks and their schedules.
type VehicleHandler struct {
	vehicles db.VehicleCollection
	enricher *maintenance.TaskEnricher
	planner  *maintenance.Planner
	recalls  RecallFinder
	clock    clockz.Clock
}

// NewVehicleHandler creates a new vehicle handler. recalls may be nil.
func NewVehicleHandler(vehicles db.VehicleCollection, enricher *maintenance.TaskEnricher, planner *maintenance.Planner, recalls RecallFinder, clock clockz.Clock) *VehicleHandler {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &VehicleHandler{
		vehicles: vehicles,
		enricher: enricher,
		planner:  planner,
		recalls:  recalls,
		clock:    clock,
	}
}

// loadVehicle fetches the {id} vehicle and refreshes task statuses for display.
func (h *VehicleHandler) loadVehicle(w http.ResponseWriter, r *http.Request) (*models.Vehicle, bool) {
	vehicle, err := h.vehicles.FindVehicleByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err, "load vehicle")
		return nil, false
	}
	h.enricher.RefreshStatuses(vehicle.Tasks, *vehicle)
	return vehicle, true
}

func (h *VehicleHandler) lookupRecalls(ctx context.Context, v *models.Vehicle) {
	if h.recalls == nil {
		return
	}
	v.Recalls = h.recalls.ForVehicle(ctx, *v)
}

// ListVehicles returns every vehicle, newest first.
func (h *VehicleHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := h.vehicles.FindVehicles(r.Context(), bson.M{}, opts)
	if err != nil {
		storeError(w, err, "list vehicles")
		return
	}
	defer cursor.Close(r.Context())

	vehicles := []models.Vehicle{}
	if err := cursor.All(r.Context(), &vehicles); err != nil {
		storeError(w, err, "decode vehicles")
		return
	}
	for i := range vehicles {
		h.enricher.RefreshStatuses(vehicles[i].Tasks, vehicles[i])
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// CreateVehicle validates, enriches initial tasks and looks up recalls.
func (h *VehicleHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var vehicle models.Vehicle
	if !decodeBody(w, r, &vehicle) {
		return
	}

	vehicle.Normalize()
	if err := vehicle.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for i := range vehicle.Tasks {
		if err := vehicle.Tasks[i].Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	now := h.clock.Now()
	vehicle.ID = primitive.NewObjectID()
	vehicle.CreatedAt = now
	vehicle.UpdatedAt = now
	if vehicle.InitialDistance == 0 {
		vehicle.InitialDistance = vehicle.CurrentDistance
	}
	for i := range vehicle.Tasks {
		vehicle.Tasks[i] = h.enricher.Enrich(r.Context(), vehicle.Tasks[i], vehicle)
	}
	if vehicle.Tasks == nil {
		vehicle.Tasks = []models.MaintenanceTask{}
	}
	h.lookupRecalls(r.Context(), &vehicle)

	if err := h.vehicles.InsertVehicle(r.Context(), vehicle); err != nil {
		storeError(w, err, "create vehicle")
		return
	}

	log.WithFields(log.Fields{
		"vehicle_id": vehicle.ID.Hex(),
		"make":       vehicle.Make,
		"model":      vehicle.Model,
		"year":       vehicle.Year,
		"recalls":    len(vehicle.Recalls),
	}).Info("Vehicle created")
	writeJSON(w, http.StatusCreated, vehicle)
}

func (h *VehicleHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	vehicle, ok := h.loadVehicle(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// UpdateVehicle merges the body onto the stored vehicle. Recalls are looked
// up again only when make, model or year changed.
func (h *VehicleHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadVehicle(w, r)
	if !ok {
		return
	}

	updated := *existing
	updated.Tasks = append([]models.MaintenanceTask(nil), existing.Tasks...)
	if !decodeBody(w, r, &updated) {
		return
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	updated.Normalize()
	if err := updated.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for i := range updated.Tasks {
		if err := updated.Tasks[i].Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		updated.Tasks[i] = h.enricher.Enrich(r.Context(), updated.Tasks[i], updated)
	}
	if updated.IdentityChanged(existing) {
		h.lookupRecalls(r.Context(), &updated)
	}
	updated.UpdatedAt = h.clock.Now()

	if err := h.vehicles.UpdateVehicle(r.Context(), existing.ID.Hex(), updated); err != nil {
		storeError(w, err, "update vehicle")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *VehicleHandler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := h.vehicles.DeleteVehicle(r.Context(), chi.URLParam(r, "id")); err != nil {
		storeError(w, err, "delete vehicle")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type distanceRequest struct {
	CurrentDistance *float64 `json:"currentDistance"`
}

// UpdateDistance records a new odometer reading.
func (h *VehicleHandler) UpdateDistance(w http.ResponseWriter, r *http.Request) {
	vehicle, ok := h.loadVehicle(w, r)
	if !ok {
		return
	}
	var req distanceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CurrentDistance == nil {
		http.Error(w, "currentDistance is required", http.StatusBadRequest)
		return
	}

	now := h.clock.Now()
	if err := vehicle.RecordDistance(*req.CurrentDistance, now); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.enricher.RefreshStatuses(vehicle.Tasks, *vehicle)
	vehicle.UpdatedAt = now

	if err := h.vehicles.UpdateVehicle(r.Context(), vehicle.ID.Hex(), *vehicle); err != nil {
		storeError(w, err, "update distance")
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}
