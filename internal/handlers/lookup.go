package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/carmemo/internal/models"
	"github.com/ukydev/carmemo/internal/recalls"
	"github.com/ukydev/carmemo/internal/vin"
)

// RecallSearcher queries recall campaigns.
type RecallSearcher interface {
	Search(ctx context.Context, vehicleMake, vehicleModel string, year int) ([]models.Recall, error)
}

// LookupHandler serves VIN decoding and recall search.
type LookupHandler struct {
	decoder vin.Decoder
	recalls RecallSearcher
}

func NewLookupHandler(decoder vin.Decoder, recalls RecallSearcher) *LookupHandler {
	return &LookupHandler{decoder: decoder, recalls: recalls}
}

// DecodeVIN handles GET /api/vin/{vin}.
func (h *LookupHandler) DecodeVIN(w http.ResponseWriter, r *http.Request) {
	if h.decoder == nil {
		http.Error(w, "VIN decoding is not configured", http.StatusServiceUnavailable)
		return
	}
	number := vin.Normalize(chi.URLParam(r, "vin"))
	if !vin.Valid(number) {
		http.Error(w, vin.ErrInvalidVIN.Error(), http.StatusBadRequest)
		return
	}

	details, err := h.decoder.DecodeVIN(r.Context(), number)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, details)
	case errors.Is(err, vin.ErrInvalidVIN):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, vin.ErrNotDecoded):
		http.Error(w, "VIN could not be decoded", http.StatusNotFound)
	default:
		log.WithError(err).WithField("vin", number).Error("VIN decoding failed")
		http.Error(w, "VIN lookup failed", http.StatusBadGateway)
	}
}

// SearchRecalls handles GET /api/recalls?make=&model=&year=.
func (h *LookupHandler) SearchRecalls(w http.ResponseWriter, r *http.Request) {
	if h.recalls == nil {
		http.Error(w, "Recall lookup is not configured", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	vehicleMake := strings.TrimSpace(q.Get("make"))
	if vehicleMake == "" {
		http.Error(w, "make is required", http.StatusBadRequest)
		return
	}
	var year int
	if raw := q.Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y <= 0 {
			http.Error(w, "Invalid year", http.StatusBadRequest)
			return
		}
		year = y
	}

	found, err := h.recalls.Search(r.Context(), vehicleMake, q.Get("model"), year)
	if err != nil {
		if errors.Is(err, recalls.ErrMissingMake) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.WithError(err).Error("Recall search failed")
		http.Error(w, "Recall lookup failed", http.StatusBadGateway)
		return
	}
	if found == nil {
		found = []models.Recall{}
	}
	writeJSON(w, http.StatusOK, found)
}
