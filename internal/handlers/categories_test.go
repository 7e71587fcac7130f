package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/carmemo/internal/maintenance"
	"github.com/ukydev/carmemo/internal/models"
)

func TestCategoryHandler_List(t *testing.T) {
	handler := NewCategoryHandler(maintenance.NewCategoryMapper(false))
	w := httptest.NewRecorder()
	handler.List(w, httptest.NewRequest("GET", "/api/categories", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got []models.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.CanonicalCategories, got)
}

func TestCategoryHandler_Map(t *testing.T) {
	handler := NewCategoryHandler(maintenance.NewCategoryMapper(false))

	t.Run("single", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Map(w, httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"category":"brake pads"}`)))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"input":"brake pads","category":"Brake Service"}`, w.Body.String())
	})

	t.Run("batch", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Map(w, httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"categories":["Oil","new battery","wiper blades"]}`)))
		require.Equal(t, http.StatusOK, w.Code)
		var got []mappedCategory
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got, 3)
		assert.Equal(t, models.CategoryOilChange, got[0].Category)
		assert.Equal(t, models.CategoryBatteryService, got[1].Category)
		assert.Equal(t, models.CategoryOther, got[2].Category)
	})

	t.Run("empty", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Map(w, httptest.NewRequest("POST", "/", bytes.NewBufferString(`{}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
