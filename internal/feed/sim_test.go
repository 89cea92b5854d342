package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PipGauge/internal/model"
)

func eurusdSpec() SymbolSpec {
	return SymbolSpec{
		Meta: model.SymbolMeta{Symbol: "EURUSD", PipPosition: 4, PipSize: 0.0001},
		Base: 1.0850,
	}
}

func TestSimFeed_Meta(t *testing.T) {
	f := NewSimFeed([]SymbolSpec{eurusdSpec()}, time.Millisecond, 1)
	meta, err := f.Meta("EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 4, meta.PipPosition)

	_, err = f.Meta("XXXYYY")
	assert.Error(t, err)
}

func TestSimFeed_HistoryDeterministicAndSane(t *testing.T) {
	f := NewSimFeed([]SymbolSpec{eurusdSpec()}, time.Millisecond, 99)
	a, err := f.History("EURUSD")
	require.NoError(t, err)
	b, err := f.History("EURUSD")
	require.NoError(t, err)
	require.Equal(t, len(a), len(b))

	for i := range a {
		assert.Equal(t, a[i].High, b[i].High, "history must be reproducible for a fixed seed")
		assert.GreaterOrEqual(t, a[i].High, a[i].Low)
		assert.GreaterOrEqual(t, a[i].High, a[i].Open)
		assert.GreaterOrEqual(t, a[i].High, a[i].Close)
		assert.LessOrEqual(t, a[i].Low, a[i].Open)
		assert.LessOrEqual(t, a[i].Low, a[i].Close)
		assert.Positive(t, a[i].Low)
	}
}

func TestSimFeed_SubscribeDeliversValidTicks(t *testing.T) {
	f := NewSimFeed([]SymbolSpec{eurusdSpec()}, time.Millisecond, 7)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.Subscribe(ctx)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		select {
		case tick := <-ch:
			assert.Equal(t, "EURUSD", tick.Symbol)
			assert.True(t, tick.Valid())
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for sim tick")
		}
	}

	cancel()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return // channel closed after cancel
			}
		case <-deadline:
			t.Fatal("channel did not close after cancel")
		}
	}
}
