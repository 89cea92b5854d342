package model

import (
	"time"

	"github.com/google/uuid"
)

// MarkerType controls how prominently a price marker is drawn.
type MarkerType string

const (
	MarkerBig    MarkerType = "big"
	MarkerNormal MarkerType = "normal"
	MarkerSmall  MarkerType = "small"
)

// Valid reports whether the type is one of the known marker sizes.
func (t MarkerType) Valid() bool {
	switch t {
	case MarkerBig, MarkerNormal, MarkerSmall:
		return true
	}
	return false
}

// PriceMarker is a user-placed horizontal reference line on one display.
type PriceMarker struct {
	ID        uuid.UUID
	Price     float64
	Type      MarkerType
	DisplayID string
	CreatedAt time.Time
}

// MarkerPatch describes a partial update to an existing marker. Nil fields
// are left untouched.
type MarkerPatch struct {
	Price *float64
	Type  *MarkerType
}

// MarkerEventKind identifies a marker mutation intent.
type MarkerEventKind string

const (
	MarkerCreated MarkerEventKind = "created"
	MarkerUpdated MarkerEventKind = "updated"
	MarkerRemoved MarkerEventKind = "removed"
)

// MarkerEvent is emitted to the owning persistence layer whenever the
// in-memory marker set changes. The core itself never reads storage back on
// the hot path.
type MarkerEvent struct {
	Kind      MarkerEventKind
	DisplayID string
	Symbol    string
	Marker    PriceMarker
}
