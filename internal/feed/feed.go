// Package feed supplies symbol metadata, seed bars, and live ticks to the
// gauge engine. The engine only depends on the Feed interface; transports
// live behind it.
package feed

import (
	"context"

	"PipGauge/internal/model"
)

// SymbolSpec pairs a symbol's quoting metadata with its simulated base price.
type SymbolSpec struct {
	Meta model.SymbolMeta
	Base float64
}

// Feed is the market data boundary.
type Feed interface {
	// Meta returns the quoting metadata for a symbol.
	Meta(symbol string) (model.SymbolMeta, error)
	// History returns the seed bars for the current session. An empty slice
	// is valid: the display starts on its fallback scale.
	History(symbol string) ([]model.Bar, error)
	// Subscribe starts the tick stream. The channel closes when ctx is
	// cancelled or the feed shuts down.
	Subscribe(ctx context.Context) (<-chan model.Tick, error)
	Name() string
}
