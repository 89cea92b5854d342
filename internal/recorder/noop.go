package recorder

import (
	"github.com/google/uuid"

	"PipGauge/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) SaveMarker(_ string, _ model.PriceMarker) error    { return nil }
func (n *NoopRecorder) DeleteMarker(_ uuid.UUID) error                    { return nil }
func (n *NoopRecorder) LoadMarkers(_ string) ([]model.PriceMarker, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                      { return nil }
