package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/carmemo/internal/db"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

// decodeBody reads a JSON body into dst, replying 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

// storeError maps collection errors onto status codes.
func storeError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, db.ErrInvalidID):
		http.Error(w, "Invalid vehicle ID", http.StatusBadRequest)
	case errors.Is(err, db.ErrVehicleNotFound):
		http.Error(w, "Vehicle not found", http.StatusNotFound)
	case errors.Is(err, db.ErrDuplicateVIN):
		http.Error(w, "A vehicle with this VIN already exists", http.StatusConflict)
	default:
		log.WithError(err).Error("Failed to " + action)
		http.Error(w, "Failed to "+action, http.StatusInternalServerError)
	}
}
