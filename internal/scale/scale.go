// Package scale maps prices onto canvas pixel rows. A PriceScale is an
// immutable value object; any change to the price band, canvas height, or
// device pixel ratio produces a fresh scale rather than mutating one in place.
package scale

import (
	"fmt"
	"math"
)

// AxisMarginPx is the fixed band at the top and bottom of the canvas reserved
// for axis labels, in CSS pixels. Prices are never mapped into it.
const AxisMarginPx = 20.0

// DefaultPaddingRatio widens the day-range band so price action and markers
// near the session extremes are not clipped at the very edge.
const DefaultPaddingRatio = 0.1

// PriceScale maps the price interval [MinPrice, MaxPrice] onto the pixel band
// [PixelTop, PixelBottom], higher prices toward the top of the canvas.
type PriceScale struct {
	MinPrice    float64
	MaxPrice    float64
	PixelTop    float64
	PixelBottom float64
	DPR         float64
}

// New constructs a scale for a canvas of the given CSS-pixel height.
// An inverted or empty price range is a programming error and fails fast.
func New(minPrice, maxPrice, cssHeight, dpr float64) (PriceScale, error) {
	if math.IsNaN(minPrice) || math.IsNaN(maxPrice) || math.IsInf(minPrice, 0) || math.IsInf(maxPrice, 0) {
		return PriceScale{}, fmt.Errorf("price range not finite: [%v, %v]", minPrice, maxPrice)
	}
	if maxPrice <= minPrice {
		return PriceScale{}, fmt.Errorf("invalid price range: max %v <= min %v", maxPrice, minPrice)
	}
	if dpr <= 0 || math.IsNaN(dpr) {
		dpr = 1
	}
	top := AxisMarginPx
	bottom := cssHeight - AxisMarginPx
	if bottom <= top {
		return PriceScale{}, fmt.Errorf("canvas height %vpx leaves no drawable band", cssHeight)
	}
	return PriceScale{
		MinPrice:    minPrice,
		MaxPrice:    maxPrice,
		PixelTop:    top,
		PixelBottom: bottom,
		DPR:         dpr,
	}, nil
}

// FromDayRange builds the adaptive scale for a display with a valid day range
// (ADR or session high/low), padded on both sides by paddingRatio of the range.
func FromDayRange(low, high, paddingRatio, cssHeight, dpr float64) (PriceScale, error) {
	if paddingRatio < 0 || math.IsNaN(paddingRatio) {
		paddingRatio = DefaultPaddingRatio
	}
	r := high - low
	return New(low-paddingRatio*r, high+paddingRatio*r, cssHeight, dpr)
}

// Fallback returns the wide default band used before any day-range data
// exists: half to one-and-a-half times the last known price, or a hard-coded
// [0, 2] band when no price is known at all. It never fails; a user must be
// able to place a marker at any price immediately after a display opens.
func Fallback(lastPrice, cssHeight, dpr float64) PriceScale {
	lo, hi := 0.0, 2.0
	if lastPrice > 0 && !math.IsNaN(lastPrice) && !math.IsInf(lastPrice, 0) {
		lo, hi = 0.5*lastPrice, 1.5*lastPrice
	}
	s, err := New(lo, hi, cssHeight, dpr)
	if err == nil {
		return s
	}
	// The canvas is too short for axis margins. Use the raw height instead of
	// refusing the scale.
	if cssHeight <= 1 || math.IsNaN(cssHeight) {
		cssHeight = 1
	}
	if dpr <= 0 || math.IsNaN(dpr) {
		dpr = 1
	}
	return PriceScale{MinPrice: lo, MaxPrice: hi, PixelTop: 0, PixelBottom: cssHeight, DPR: dpr}
}

// Valid reports whether the scale maps a non-empty price band. The zero value
// is invalid.
func (s PriceScale) Valid() bool {
	return s.MaxPrice > s.MinPrice && s.PixelBottom > s.PixelTop
}

// ToPixelY converts a price to its canvas Y coordinate in CSS pixels.
// Pure and referentially transparent; prices outside the band extrapolate
// linearly so off-band markers still hit-test consistently.
func (s PriceScale) ToPixelY(price float64) float64 {
	return s.PixelTop + (s.MaxPrice-price)/(s.MaxPrice-s.MinPrice)*(s.PixelBottom-s.PixelTop)
}

// ToPrice converts a canvas Y coordinate back to a price. Exact inverse of
// ToPixelY within floating tolerance.
func (s PriceScale) ToPrice(y float64) float64 {
	return s.MaxPrice - (y-s.PixelTop)/(s.PixelBottom-s.PixelTop)*(s.MaxPrice-s.MinPrice)
}

// Contains reports whether the price falls inside the scaled band.
func (s PriceScale) Contains(price float64) bool {
	return price >= s.MinPrice && price <= s.MaxPrice
}
