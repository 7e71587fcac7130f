package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/carmemo/internal/maintenance"
	"github.com/ukydev/carmemo/internal/models"
)

var (
	_ maintenance.BaselineStore = (*FileBaselineStore)(nil)
	_ maintenance.BaselineStore = (*SQLiteBaselineStore)(nil)
	_ maintenance.BaselineStore = (*MongoBaselineStore)(nil)
)

func sampleBaseline() models.BaselineSchedule {
	return models.BaselineSchedule{
		Make: "Toyota", Model: "Camry", Year: 2020,
		Schedule: []models.BaselineScheduleItem{
			{ID: "a", Item: "Oil Change", IntervalDistance: 10000, IntervalMonths: 6, Category: "Oil Change", Urgency: models.UrgencyHigh},
			{ID: "b", Item: "Timing Belt", IntervalDistance: 150000, IntervalMonths: 96, Category: "Engine", Urgency: models.UrgencyMedium},
		},
	}
}

// exerciseStore runs the shared BaselineStore contract against any backend.
func exerciseStore(t *testing.T, store maintenance.BaselineStore) {
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "toyota_camry_2020")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "toyota_camry_2020", sampleBaseline()))
	got, ok, err := store.Get(ctx, "toyota_camry_2020")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleBaseline().Schedule, got.Schedule)
	assert.Equal(t, float64(150000), got.MaxIntervalDistance())

	updated := sampleBaseline()
	updated.Schedule = updated.Schedule[:1]
	require.NoError(t, store.Set(ctx, "toyota_camry_2020", updated))
	require.NoError(t, store.Set(ctx, "honda_civic_2019", sampleBaseline()))

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Len(t, all["toyota_camry_2020"].Schedule, 1)

	require.NoError(t, store.Replace(ctx, map[string]models.BaselineSchedule{"mazda_3_2018": sampleBaseline()}))
	all, err = store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	_, ok, err = store.Get(ctx, "toyota_camry_2020")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileBaselineStore(t *testing.T) {
	store := NewFileBaselineStore(filepath.Join(t.TempDir(), "nested", "baselines.json"))
	exerciseStore(t, store)
}

func TestFileBaselineStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baselines.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	store := NewFileBaselineStore(path)
	ctx := context.Background()

	_, _, err := store.Get(ctx, "toyota_camry_2020")
	assert.Error(t, err)

	// a write recovers the file
	require.NoError(t, store.Set(ctx, "toyota_camry_2020", sampleBaseline()))
	_, ok, err := store.Get(ctx, "toyota_camry_2020")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteBaselineStore(t *testing.T) {
	store, err := OpenSQLiteBaselineStore(filepath.Join(t.TempDir(), "carmemo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	exerciseStore(t, store)
}
