package handlers

import (
	"net/http"

	"github.com/ukydev/carmemo/internal/maintenance"
	"github.com/ukydev/carmemo/internal/models"
)

type CategoryHandler struct {
	mapper *maintenance.CategoryMapper
}

func NewCategoryHandler(mapper *maintenance.CategoryMapper) *CategoryHandler {
	return &CategoryHandler{mapper: mapper}
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.CanonicalCategories)
}

type mapRequest struct {
	Category   string   `json:"category"`
	Categories []string `json:"categories"`
}

type mappedCategory struct {
	Input    string          `json:"input"`
	Category models.Category `json:"category"`
}

// Map resolves one or many free-text categories.
func (h *CategoryHandler) Map(w http.ResponseWriter, r *http.Request) {
	var req mapRequest
	if !decodeBody(w, r, &req) {
		return
	}
	inputs := req.Categories
	if req.Category != "" {
		inputs = append([]string{req.Category}, inputs...)
	}
	if len(inputs) == 0 {
		http.Error(w, "category is required", http.StatusBadRequest)
		return
	}

	out := make([]mappedCategory, len(inputs))
	for i, in := range inputs {
		out[i] = mappedCategory{Input: in, Category: h.mapper.Map(r.Context(), in)}
	}
	if req.Category != "" && len(req.Categories) == 0 {
		writeJSON(w, http.StatusOK, out[0])
		return
	}
	writeJSON(w, http.StatusOK, out)
}
