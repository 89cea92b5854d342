package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"PipGauge/internal/model"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// wsTick mirrors the upstream JSON tick payload.
type wsTick struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	TS     int64   `json:"ts"` // milliseconds epoch
}

// wsSubscribe is sent once per (re)connect.
type wsSubscribe struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

// WSFeed streams ticks from a WebSocket provider, reconnecting with
// exponential backoff. History is not served over this transport; displays
// start on their fallback scale and build the profile from live ticks.
type WSFeed struct {
	url   string
	specs map[string]SymbolSpec
	order []string
}

// NewWSFeed creates a feed for the given endpoint and symbol set.
func NewWSFeed(url string, specs []SymbolSpec) *WSFeed {
	f := &WSFeed{url: url, specs: make(map[string]SymbolSpec, len(specs))}
	for _, s := range specs {
		f.specs[s.Meta.Symbol] = s
		f.order = append(f.order, s.Meta.Symbol)
	}
	return f
}

func (f *WSFeed) Name() string { return "ws" }

func (f *WSFeed) Meta(symbol string) (model.SymbolMeta, error) {
	spec, ok := f.specs[symbol]
	if !ok {
		return model.SymbolMeta{}, fmt.Errorf("ws feed: unknown symbol %q", symbol)
	}
	return spec.Meta, nil
}

func (f *WSFeed) History(string) ([]model.Bar, error) {
	return nil, nil
}

// Subscribe dials the endpoint and pumps ticks until ctx is cancelled.
// Connection loss triggers a reconnect loop; the channel stays open across
// reconnects so consumers never see a flap.
func (f *WSFeed) Subscribe(ctx context.Context) (<-chan model.Tick, error) {
	ch := make(chan model.Tick, 256)
	go f.run(ctx, ch)
	return ch, nil
}

func (f *WSFeed) run(ctx context.Context, ch chan<- model.Tick) {
	defer close(ch)
	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
		if err != nil {
			log.Printf("[WARN] ws dial %s: %v (retry in %v)", f.url, err, backoff)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}
		log.Printf("[INFO] ws connected: %s", f.url)
		backoff = minBackoff

		if err := conn.WriteJSON(wsSubscribe{Op: "subscribe", Symbols: f.order}); err != nil {
			log.Printf("[WARN] ws subscribe: %v", err)
			conn.Close()
			continue
		}

		f.pump(ctx, conn, ch)
		conn.Close()
	}
}

func (f *WSFeed) pump(ctx context.Context, conn *websocket.Conn, ch chan<- model.Tick) {
	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[WARN] ws read: %v", err)
			}
			return
		}
		var wt wsTick
		if err := json.Unmarshal(raw, &wt); err != nil {
			log.Printf("[WARN] ws drop malformed payload: %v", err)
			continue
		}
		tick := model.Tick{
			Symbol: wt.Symbol,
			Price:  wt.Price,
			Time:   time.UnixMilli(wt.TS),
		}
		if _, known := f.specs[tick.Symbol]; !known || !tick.Valid() {
			log.Printf("[WARN] ws drop tick %s %v", wt.Symbol, wt.Price)
			continue
		}
		select {
		case ch <- tick:
		case <-ctx.Done():
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
