package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

// Schedule returns the vehicle's completed history followed by forecast
// occurrences within the horizon.
func (h *VehicleHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	vehicle, ok := h.loadVehicle(w, r)
	if !ok {
		return
	}
	plan, err := h.planner.Schedule(r.Context(), *vehicle)
	if err != nil {
		log.WithError(err).WithField("vehicle_id", vehicle.ID.Hex()).Error("Schedule computation failed")
		http.Error(w, "could not compute schedule", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
