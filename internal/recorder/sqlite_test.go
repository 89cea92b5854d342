package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PipGauge/internal/model"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "markers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestSQLiteRecorder_RoundTrip(t *testing.T) {
	r := openTestRecorder(t)

	m := model.PriceMarker{
		ID:        uuid.New(),
		Price:     1.0850,
		Type:      model.MarkerNormal,
		DisplayID: "d1",
		CreatedAt: time.Now().Truncate(time.Second),
	}
	require.NoError(t, r.SaveMarker("EURUSD", m))

	loaded, err := r.LoadMarkers("EURUSD")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, m.ID, loaded[0].ID)
	assert.Equal(t, m.Price, loaded[0].Price)
	assert.Equal(t, m.Type, loaded[0].Type)
	assert.Equal(t, "d1", loaded[0].DisplayID)

	other, err := r.LoadMarkers("GBPUSD")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLiteRecorder_UpsertAndDelete(t *testing.T) {
	r := openTestRecorder(t)

	m := model.PriceMarker{ID: uuid.New(), Price: 1.0850, Type: model.MarkerNormal, DisplayID: "d1", CreatedAt: time.Now()}
	require.NoError(t, r.SaveMarker("EURUSD", m))

	m.Type = model.MarkerBig
	m.Price = 1.0860
	require.NoError(t, r.SaveMarker("EURUSD", m))

	loaded, err := r.LoadMarkers("EURUSD")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, model.MarkerBig, loaded[0].Type)
	assert.Equal(t, 1.0860, loaded[0].Price)

	require.NoError(t, r.DeleteMarker(m.ID))
	require.NoError(t, r.DeleteMarker(uuid.New())) // unknown id is fine
	loaded, err = r.LoadMarkers("EURUSD")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteRecorder_LoadOrdersByPrice(t *testing.T) {
	r := openTestRecorder(t)
	for _, p := range []float64{1.0870, 1.0810, 1.0850} {
		m := model.PriceMarker{ID: uuid.New(), Price: p, Type: model.MarkerNormal, DisplayID: "d1", CreatedAt: time.Now()}
		require.NoError(t, r.SaveMarker("EURUSD", m))
	}
	loaded, err := r.LoadMarkers("EURUSD")
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, 1.0810, loaded[0].Price)
	assert.Equal(t, 1.0850, loaded[1].Price)
	assert.Equal(t, 1.0870, loaded[2].Price)
}

func TestApply_RoutesEvents(t *testing.T) {
	r := openTestRecorder(t)
	m := model.PriceMarker{ID: uuid.New(), Price: 1.0850, Type: model.MarkerNormal, DisplayID: "d1", CreatedAt: time.Now()}

	require.NoError(t, Apply(r, model.MarkerEvent{Kind: model.MarkerCreated, Symbol: "EURUSD", Marker: m}))
	loaded, err := r.LoadMarkers("EURUSD")
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	require.NoError(t, Apply(r, model.MarkerEvent{Kind: model.MarkerRemoved, Symbol: "EURUSD", Marker: m}))
	loaded, err = r.LoadMarkers("EURUSD")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
