package feed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"PipGauge/internal/model"
)

// SimFeed generates a deterministic random-walk tick stream per symbol. Used
// for local runs and soak testing without an upstream provider.
type SimFeed struct {
	specs    map[string]SymbolSpec
	order    []string
	interval time.Duration
	seed     int64
}

// NewSimFeed creates a simulated feed emitting one tick per symbol every
// interval.
func NewSimFeed(specs []SymbolSpec, interval time.Duration, seed int64) *SimFeed {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	f := &SimFeed{
		specs:    make(map[string]SymbolSpec, len(specs)),
		interval: interval,
		seed:     seed,
	}
	for _, s := range specs {
		f.specs[s.Meta.Symbol] = s
		f.order = append(f.order, s.Meta.Symbol)
	}
	return f
}

func (f *SimFeed) Name() string { return "sim" }

func (f *SimFeed) Meta(symbol string) (model.SymbolMeta, error) {
	spec, ok := f.specs[symbol]
	if !ok {
		return model.SymbolMeta{}, fmt.Errorf("sim feed: unknown symbol %q", symbol)
	}
	return spec.Meta, nil
}

// History generates one session of bars walking around the base price.
func (f *SimFeed) History(symbol string) ([]model.Bar, error) {
	spec, ok := f.specs[symbol]
	if !ok {
		return nil, fmt.Errorf("sim feed: unknown symbol %q", symbol)
	}
	base := spec.Base
	if base <= 0 {
		base = 1.0
	}
	pip := spec.Meta.BucketSize()
	rng := rand.New(rand.NewSource(f.seed + int64(len(symbol))))

	const barCount = 96 // one session of 15-minute bars
	bars := make([]model.Bar, barCount)
	price := base
	start := time.Now().Add(-time.Duration(barCount) * 15 * time.Minute)
	for i := range bars {
		open := price
		drift := float64(rng.Intn(21)-10) * pip
		closePx := open + drift
		high := maxF(open, closePx) + float64(rng.Intn(5))*pip
		low := minF(open, closePx) - float64(rng.Intn(5))*pip
		bars[i] = model.Bar{
			Time:  start.Add(time.Duration(i) * 15 * time.Minute),
			Open:  open,
			High:  high,
			Low:   low,
			Close: closePx,
		}
		price = closePx
	}
	return bars, nil
}

// Subscribe emits ticks on a fixed cadence until ctx is cancelled.
func (f *SimFeed) Subscribe(ctx context.Context) (<-chan model.Tick, error) {
	ch := make(chan model.Tick, 256)
	go func() {
		defer close(ch)
		rng := rand.New(rand.NewSource(f.seed))
		prices := make(map[string]float64, len(f.specs))
		for sym, spec := range f.specs {
			base := spec.Base
			if base <= 0 {
				base = 1.0
			}
			prices[sym] = base
		}

		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				for _, sym := range f.order {
					pip := f.specs[sym].Meta.BucketSize()
					prices[sym] += float64(rng.Intn(7)-3) * pip
					if prices[sym] <= pip {
						prices[sym] = pip
					}
					tick := model.Tick{Symbol: sym, Price: prices[sym], Time: now}
					select {
					case ch <- tick:
					default:
						// Consumer is behind; dropping a sim tick is cheaper
						// than stalling the clock.
					}
				}
			}
		}
	}()
	return ch, nil
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
