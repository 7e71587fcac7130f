package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/carmemo/internal/models"
)

// AddTask enriches and appends a task to the vehicle.
func (h *VehicleHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	vehicle, ok := h.loadVehicle(w, r)
	if !ok {
		return
	}
	var task models.MaintenanceTask
	if !decodeBody(w, r, &task) {
		return
	}
	if err := task.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	task.ID = ""
	task.IsForecast = false
	task = h.enricher.Enrich(r.Context(), task, *vehicle)

	vehicle.Tasks = append(vehicle.Tasks, task)
	if !h.save(w, r, vehicle, "add task") {
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// UpdateTask merges the body onto the stored task.
func (h *VehicleHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	vehicle, idx, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	task := vehicle.Tasks[idx]
	id := task.ID
	if !decodeBody(w, r, &task) {
		return
	}
	task.ID = id
	if err := task.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	vehicle.Tasks[idx] = h.enricher.Enrich(r.Context(), task, *vehicle)

	if !h.save(w, r, vehicle, "update task") {
		return
	}
	writeJSON(w, http.StatusOK, vehicle.Tasks[idx])
}

func (h *VehicleHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	vehicle, idx, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	vehicle.Tasks = append(vehicle.Tasks[:idx], vehicle.Tasks[idx+1:]...)
	if !h.save(w, r, vehicle, "delete task") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type completeRequest struct {
	CompletedDate     *time.Time                `json:"completedDate"`
	CompletedDistance *float64                  `json:"completedDistance"`
	Cost              *float64                  `json:"cost"`
	Notes             string                    `json:"notes"`
	Receipt           *models.ReceiptExtraction `json:"receipt"`
}

// CompleteTask marks a task done. The completion distance defaults to the
// current odometer and advances it when higher.
func (h *VehicleHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	vehicle, idx, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	var req completeRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	task := vehicle.Tasks[idx]
	task.Status = models.StatusCompleted
	task.CompletedDate = req.CompletedDate
	if req.Receipt != nil {
		task.Receipt = req.Receipt
		if req.CompletedDate == nil && req.Receipt.Date != nil {
			task.CompletedDate = req.Receipt.Date
		}
		if req.CompletedDistance == nil && req.Receipt.Odometer != nil {
			req.CompletedDistance = req.Receipt.Odometer
		}
		if req.Cost == nil && req.Receipt.Total > 0 {
			total := req.Receipt.Total
			req.Cost = &total
		}
	}

	distance := vehicle.CurrentDistance
	if req.CompletedDistance != nil {
		if *req.CompletedDistance < 0 {
			http.Error(w, models.ErrInvalidDistance.Error(), http.StatusBadRequest)
			return
		}
		distance = *req.CompletedDistance
	}
	task.CompletedDistance = &distance
	if req.Cost != nil {
		task.Cost = req.Cost
	}
	if req.Notes != "" {
		task.Notes = req.Notes
	}
	if distance > vehicle.CurrentDistance {
		if err := vehicle.RecordDistance(distance, h.clock.Now()); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	vehicle.Tasks[idx] = h.enricher.Enrich(r.Context(), task, *vehicle)

	if !h.save(w, r, vehicle, "complete task") {
		return
	}
	log.WithFields(log.Fields{
		"vehicle_id": vehicle.ID.Hex(),
		"task_id":    task.ID,
		"distance":   distance,
	}).Info("Task completed")
	writeJSON(w, http.StatusOK, vehicle.Tasks[idx])
}

func (h *VehicleHandler) loadTask(w http.ResponseWriter, r *http.Request) (*models.Vehicle, int, bool) {
	vehicle, ok := h.loadVehicle(w, r)
	if !ok {
		return nil, -1, false
	}
	idx := vehicle.FindTask(chi.URLParam(r, "taskId"))
	if idx < 0 {
		http.Error(w, "Task not found", http.StatusNotFound)
		return nil, -1, false
	}
	return vehicle, idx, true
}

func (h *VehicleHandler) save(w http.ResponseWriter, r *http.Request, vehicle *models.Vehicle, action string) bool {
	vehicle.UpdatedAt = h.clock.Now()
	if err := h.vehicles.UpdateVehicle(r.Context(), vehicle.ID.Hex(), *vehicle); err != nil {
		storeError(w, err, action)
		return false
	}
	return true
}
