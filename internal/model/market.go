package model

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents a single OHLC bar.
type Bar struct {
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Tick is one live price update for a symbol.
type Tick struct {
	Symbol string
	Price  float64
	Time   time.Time
}

// Valid reports whether the tick carries a usable price. Malformed ticks are
// dropped at the feed boundary, never propagated into the aggregation path.
func (t Tick) Valid() bool {
	return !math.IsNaN(t.Price) && !math.IsInf(t.Price, 0) && t.Price > 0
}

// SymbolMeta describes the quoting precision of a symbol as delivered by the
// market data feed.
type SymbolMeta struct {
	Symbol      string
	PipPosition int
	PipSize     float64
}

// Validate checks the metadata against quoting conventions.
func (m SymbolMeta) Validate() error {
	if m.Symbol == "" {
		return fmt.Errorf("symbol name is required")
	}
	if m.PipPosition < 0 || m.PipPosition > 10 {
		return fmt.Errorf("symbol %s: pip position %d out of range", m.Symbol, m.PipPosition)
	}
	if m.PipSize < 0 || math.IsNaN(m.PipSize) || math.IsInf(m.PipSize, 0) {
		return fmt.Errorf("symbol %s: invalid pip size %v", m.Symbol, m.PipSize)
	}
	return nil
}

// BucketSize returns the market-profile bucket width for the symbol: one pip.
// When the feed did not supply a pip size it is derived from the pip position.
func (m SymbolMeta) BucketSize() float64 {
	if m.PipSize > 0 {
		return m.PipSize
	}
	return decimal.New(1, int32(-m.PipPosition)).InexactFloat64()
}

// Digits returns the number of decimal places shown in price labels.
func (m SymbolMeta) Digits() int {
	return m.PipPosition + 1
}

// FormatPrice renders a price at the symbol's display precision.
func (m SymbolMeta) FormatPrice(p float64) string {
	return decimal.NewFromFloat(p).StringFixed(int32(m.Digits()))
}
