package recorder

import (
	"github.com/google/uuid"

	"PipGauge/internal/model"
)

// Recorder mirrors the in-memory marker set of each display into durable
// storage. The render core only ever works on its own copy; this interface is
// fed marker intents and read once when a display opens.
type Recorder interface {
	SaveMarker(symbol string, m model.PriceMarker) error
	DeleteMarker(id uuid.UUID) error
	LoadMarkers(symbol string) ([]model.PriceMarker, error)
	Close() error
}

// Apply routes a marker event to the recorder.
func Apply(r Recorder, ev model.MarkerEvent) error {
	switch ev.Kind {
	case model.MarkerCreated, model.MarkerUpdated:
		return r.SaveMarker(ev.Symbol, ev.Marker)
	case model.MarkerRemoved:
		return r.DeleteMarker(ev.Marker.ID)
	}
	return nil
}
