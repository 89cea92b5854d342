// Package marker holds the per-display price marker collection and the
// pointer interaction state machine that edits it.
package marker

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"PipGauge/internal/model"
	"PipGauge/internal/scale"
)

// DefaultHitThresholdPx is the hit-test tolerance in CSS pixels.
const DefaultHitThresholdPx = 10.0

// Index is the price-ordered marker collection for one display.
type Index struct {
	displayID string
	markers   []model.PriceMarker // ascending by price, ties by id
	now       func() time.Time
}

// NewIndex creates an empty index owned by the given display.
func NewIndex(displayID string) *Index {
	return &Index{displayID: displayID, now: time.Now}
}

// Load replaces the index contents with markers restored from storage.
// Invalid entries are skipped.
func (x *Index) Load(markers []model.PriceMarker) {
	x.markers = x.markers[:0]
	for _, m := range markers {
		if !validPrice(m.Price) {
			continue
		}
		if !m.Type.Valid() {
			m.Type = model.MarkerNormal
		}
		m.DisplayID = x.displayID
		x.markers = append(x.markers, m)
	}
	x.sort()
}

// Create adds a marker at the given price. Returns nil on a non-finite or
// non-positive price; user input never produces an error here.
func (x *Index) Create(price float64, typ model.MarkerType) *model.PriceMarker {
	if !validPrice(price) {
		return nil
	}
	if !typ.Valid() {
		typ = model.MarkerNormal
	}
	m := model.PriceMarker{
		ID:        uuid.New(),
		Price:     price,
		Type:      typ,
		DisplayID: x.displayID,
		CreatedAt: x.now(),
	}
	x.markers = append(x.markers, m)
	x.sort()
	return &m
}

// HitTest returns the single marker whose pixel position is closest to
// pixelY, if within thresholdPx. The index is ordered by price and the scale
// is monotonic, so only the two neighbors of the converted price can win.
func (x *Index) HitTest(pixelY float64, s scale.PriceScale, thresholdPx float64) *model.PriceMarker {
	if len(x.markers) == 0 || !s.Valid() {
		return nil
	}
	if thresholdPx <= 0 {
		thresholdPx = DefaultHitThresholdPx
	}
	target := s.ToPrice(pixelY)
	i := sort.Search(len(x.markers), func(i int) bool { return x.markers[i].Price >= target })

	best := -1
	bestD := math.Inf(1)
	// Lower-price neighbor first so an exact distance tie picks it
	// deterministically.
	for _, j := range []int{i - 1, i} {
		if j < 0 || j >= len(x.markers) {
			continue
		}
		d := math.Abs(s.ToPixelY(x.markers[j].Price) - pixelY)
		if d < bestD {
			best, bestD = j, d
		}
	}
	if best < 0 || bestD > thresholdPx {
		return nil
	}
	m := x.markers[best]
	return &m
}

// Update applies a patch to the marker with the given id. Unknown ids are a
// no-op: the interaction UI may race with an external deletion.
func (x *Index) Update(id uuid.UUID, patch model.MarkerPatch) (model.PriceMarker, bool) {
	for i := range x.markers {
		if x.markers[i].ID != id {
			continue
		}
		if patch.Price != nil && validPrice(*patch.Price) {
			x.markers[i].Price = *patch.Price
		}
		if patch.Type != nil && patch.Type.Valid() {
			x.markers[i].Type = *patch.Type
		}
		m := x.markers[i]
		x.sort()
		return m, true
	}
	return model.PriceMarker{}, false
}

// Remove deletes the marker with the given id; unknown ids are a no-op.
func (x *Index) Remove(id uuid.UUID) (model.PriceMarker, bool) {
	for i := range x.markers {
		if x.markers[i].ID == id {
			m := x.markers[i]
			x.markers = append(x.markers[:i], x.markers[i+1:]...)
			return m, true
		}
	}
	return model.PriceMarker{}, false
}

// Get returns a copy of the marker with the given id.
func (x *Index) Get(id uuid.UUID) (model.PriceMarker, bool) {
	for _, m := range x.markers {
		if m.ID == id {
			return m, true
		}
	}
	return model.PriceMarker{}, false
}

// All returns a copy of the markers in ascending price order.
func (x *Index) All() []model.PriceMarker {
	out := make([]model.PriceMarker, len(x.markers))
	copy(out, x.markers)
	return out
}

// Len is the number of markers in the index.
func (x *Index) Len() int { return len(x.markers) }

func (x *Index) sort() {
	sort.SliceStable(x.markers, func(i, j int) bool {
		if x.markers[i].Price != x.markers[j].Price {
			return x.markers[i].Price < x.markers[j].Price
		}
		return x.markers[i].ID.String() < x.markers[j].ID.String()
	})
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
