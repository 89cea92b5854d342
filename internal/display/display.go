// Package display glues the coordinate scale, market profile, and marker
// index into per-symbol floating canvases. Each Display exclusively owns its
// state; there is no sharing between displays.
package display

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"PipGauge/internal/calculator"
	"PipGauge/internal/config"
	"PipGauge/internal/marker"
	"PipGauge/internal/model"
	"PipGauge/internal/profile"
	"PipGauge/internal/render"
	"PipGauge/internal/scale"
)

// Display renders one symbol's day-range meter and market profile onto one
// canvas. All mutation goes through its mutex; the feed and pointer sources
// deliver on their own goroutines while frames run on the scheduler's.
type Display struct {
	mu     sync.Mutex
	id     string
	meta   model.SymbolMeta
	canvas render.Canvas
	cfg    config.Render
	sched  *render.Scheduler

	sc      scale.PriceScale
	prof    *profile.Aggregator
	markers *marker.Index
	machine *marker.Machine

	dayHigh   float64
	dayLow    float64
	haveRange bool
	lastPrice float64
	closed    bool
}

// New creates a display for the symbol on the given canvas. emit receives
// marker intents for the persistence layer.
func New(id string, meta model.SymbolMeta, canvas render.Canvas, cfg config.Render, sched *render.Scheduler, emit func(model.MarkerEvent)) (*Display, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("display %s: %w", id, err)
	}
	prof, err := profile.ForSymbol(meta, cfg.ValueAreaRatio)
	if err != nil {
		return nil, fmt.Errorf("display %s: %w", id, err)
	}

	d := &Display{
		id:      id,
		meta:    meta,
		canvas:  canvas,
		cfg:     cfg,
		sched:   sched,
		prof:    prof,
		markers: marker.NewIndex(id),
	}
	if emit == nil {
		emit = func(model.MarkerEvent) {}
	}
	d.machine = marker.NewMachine(d.markers, cfg.MarkerHitPx,
		func(ev model.MarkerEvent) {
			ev.Symbol = meta.Symbol
			emit(ev)
		},
		func() { d.request(render.ReasonMarkerChange) },
	)
	d.rebuildScaleLocked()
	return d, nil
}

// DisplayID implements render.Renderer.
func (d *Display) DisplayID() string { return d.id }

// Symbol returns the symbol this display renders.
func (d *Display) Symbol() string { return d.meta.Symbol }

func (d *Display) request(reason render.Reason) {
	if d.sched != nil {
		d.sched.Request(d.id, reason)
	}
}

// SeedBars initializes the day range and market profile from historical bars
// and requests the first data frame.
func (d *Display) SeedBars(bars []model.Bar) {
	d.mu.Lock()
	if high, low, err := calculator.DayRange(bars); err == nil {
		d.dayHigh, d.dayLow = high, low
		d.haveRange = true
	}
	if len(bars) > 0 {
		d.lastPrice = bars[len(bars)-1].Close
	}
	// A session that has barely moved gives a sliver of a band; pad it to at
	// least twice the mean bar range so the gauge stays readable.
	if d.haveRange && d.lastPrice > 0 {
		if abr, err := calculator.AverageBarRange(bars, len(bars)); err == nil && d.dayHigh-d.dayLow < 2*abr {
			d.dayLow = math.Min(d.dayLow, d.lastPrice-abr)
			d.dayHigh = math.Max(d.dayHigh, d.lastPrice+abr)
		}
	}
	d.prof.Build(bars)
	d.rebuildScaleLocked()
	d.mu.Unlock()
	d.request(render.ReasonTick)
}

// LoadMarkers restores the persisted marker set.
func (d *Display) LoadMarkers(stored []model.PriceMarker) {
	d.mu.Lock()
	d.markers.Load(stored)
	d.ensureMarkersVisibleLocked()
	d.mu.Unlock()
	d.request(render.ReasonMarkerChange)
}

// ApplyTick folds one tick into the profile and day range. O(1); the visual
// effect is deferred to the next scheduled frame, which is what bounds the
// frame rate under tick bursts.
func (d *Display) ApplyTick(t model.Tick) bool {
	if !t.Valid() {
		return false
	}
	d.mu.Lock()
	if !d.prof.Tick(t.Price) {
		d.mu.Unlock()
		return false
	}
	d.lastPrice = t.Price
	extended := false
	if !d.haveRange {
		d.dayHigh, d.dayLow = t.Price, t.Price
		d.haveRange = true
		extended = true
	} else {
		if t.Price > d.dayHigh {
			d.dayHigh = t.Price
			extended = true
		}
		if t.Price < d.dayLow {
			d.dayLow = t.Price
			extended = true
		}
	}
	if extended || !d.sc.Valid() || !d.sc.Contains(t.Price) {
		d.rebuildScaleLocked()
	}
	d.mu.Unlock()
	d.request(render.ReasonTick)
	return true
}

// Resize rebuilds the scale for the new geometry. The canvas reports its own
// size; this is a notification, not a setter.
func (d *Display) Resize() {
	d.mu.Lock()
	d.rebuildScaleLocked()
	d.mu.Unlock()
	d.request(render.ReasonResize)
}

// Moved requests a repaint after the floating canvas was dragged.
func (d *Display) Moved() {
	d.request(render.ReasonMove)
}

// RollSession clears session-scoped state at the FX rollover. Markers are
// user reference lines and survive.
func (d *Display) RollSession() {
	d.mu.Lock()
	d.prof.Reset()
	d.dayHigh, d.dayLow = 0, 0
	d.haveRange = false
	d.rebuildScaleLocked()
	d.mu.Unlock()
	d.request(render.ReasonTick)
}

// PointerDown forwards a button press to the interaction machine.
func (d *Display) PointerDown(ev marker.PointerEvent) {
	d.mu.Lock()
	d.machine.PointerDown(ev, d.sc)
	d.ensureMarkersVisibleLocked()
	d.mu.Unlock()
}

// PointerMove forwards pointer motion to the interaction machine.
func (d *Display) PointerMove(ev marker.PointerEvent) {
	d.mu.Lock()
	d.machine.PointerMove(ev, d.sc)
	d.mu.Unlock()
}

// AltReleased clears a hover preview when the modifier goes up.
func (d *Display) AltReleased() {
	d.mu.Lock()
	d.machine.AltReleased()
	d.mu.Unlock()
}

// SelectContext applies a context menu choice.
func (d *Display) SelectContext(action marker.ContextAction) {
	d.mu.Lock()
	d.machine.SelectContext(action)
	d.mu.Unlock()
}

// Markers returns a copy of the current marker set.
func (d *Display) Markers() []model.PriceMarker {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.markers.All()
}

// Scale returns the current price scale.
func (d *Display) Scale() scale.PriceScale {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sc
}

// HitTest resolves a pixel Y to the closest marker within the configured
// threshold.
func (d *Display) HitTest(pixelY float64) *model.PriceMarker {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.markers.HitTest(pixelY, d.sc, d.cfg.MarkerHitPx)
}

// markClosed prevents any in-flight frame from touching the canvas after
// teardown.
func (d *Display) markClosed() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

func (d *Display) rebuildScaleLocked() {
	_, h := d.canvas.CSSSize()
	dpr := d.canvas.DevicePixelRatio()
	// Markers are reference lines the user must always be able to see and
	// grab, so they widen the band alongside the day range.
	lo, hi, have := d.dayLow, d.dayHigh, d.haveRange
	for _, m := range d.markers.All() {
		if !have {
			lo, hi, have = m.Price, m.Price, true
			continue
		}
		lo = math.Min(lo, m.Price)
		hi = math.Max(hi, m.Price)
	}
	if have && hi > lo {
		s, err := scale.FromDayRange(lo, hi, d.cfg.PaddingRatio, h, dpr)
		if err == nil {
			d.sc = s
			return
		}
		log.Printf("[WARN] display %s: day-range scale rejected: %v", d.id, err)
	}
	d.sc = scale.Fallback(d.lastPrice, h, dpr)
}

// ensureMarkersVisibleLocked rebuilds the scale when any marker sits outside
// the current band.
func (d *Display) ensureMarkersVisibleLocked() {
	for _, m := range d.markers.All() {
		if !d.sc.Valid() || !d.sc.Contains(m.Price) {
			d.rebuildScaleLocked()
			return
		}
	}
}

// Frame implements render.Renderer: one full repaint from a consistent
// snapshot of the display state.
func (d *Display) Frame(_ time.Time, _ render.ReasonSet) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}

	ctx, err := d.canvas.Context()
	if err != nil {
		return fmt.Errorf("canvas context: %w", err)
	}
	w, h := d.canvas.CSSSize()
	dpr := d.canvas.DevicePixelRatio()

	// Backing store tracks CSS size x DPR; DPR can change mid-session when
	// the window moves to another monitor.
	bw, bh := int(math.Round(w*dpr)), int(math.Round(h*dpr))
	if cw, ch := d.canvas.BufferSize(); cw != bw || ch != bh {
		d.canvas.SetBufferSize(bw, bh)
	}

	render.ResetTransform(ctx, dpr)
	ctx.ClearRect(0, 0, w, h)

	d.drawBackground(ctx, w, h)
	d.drawDayRange(ctx, w)
	d.drawProfile(ctx, w, h)
	d.drawMarkers(ctx, w)
	d.drawPreview(ctx, w)
	return nil
}

func (d *Display) drawBackground(ctx render.Context2D, w, h float64) {
	ctx.SetFillStyle(d.cfg.Colors.Background)
	ctx.FillRect(0, 0, w, h)
}

func (d *Display) drawDayRange(ctx render.Context2D, w float64) {
	if !d.sc.Valid() || !d.haveRange || d.dayHigh <= d.dayLow {
		return
	}
	yHigh := d.sc.ToPixelY(d.dayHigh)
	yLow := d.sc.ToPixelY(d.dayLow)

	ctx.SetStrokeStyle(d.cfg.Colors.RangeLine)
	ctx.SetLineWidth(1)
	ctx.StrokeLine(0, yHigh, w, yHigh)
	ctx.StrokeLine(0, yLow, w, yLow)

	ctx.SetFillStyle(d.cfg.Colors.Label)
	ctx.FillText(d.meta.FormatPrice(d.dayHigh), w-54, yHigh-3)
	ctx.FillText(d.meta.FormatPrice(d.dayLow), w-54, yLow+11)

	// Range meter track on the right edge with a needle at the current price.
	meterX := w - 8
	ctx.SetStrokeStyle(d.cfg.Colors.RangeLine)
	ctx.SetLineWidth(2)
	ctx.StrokeLine(meterX, yHigh, meterX, yLow)
	if pos, err := calculator.RangePosition(d.lastPrice, d.dayHigh, d.dayLow); err == nil {
		needleY := yLow + (yHigh-yLow)*pos
		ctx.SetFillStyle(d.cfg.Colors.PriceLine)
		ctx.FillRect(meterX-3, needleY-1.5, 6, 3)
	}

	if d.lastPrice > 0 {
		yPrice := d.sc.ToPixelY(d.lastPrice)
		ctx.SetStrokeStyle(d.cfg.Colors.PriceLine)
		ctx.SetLineWidth(1)
		ctx.StrokeLine(0, yPrice, w-12, yPrice)
		ctx.SetFillStyle(d.cfg.Colors.PriceLine)
		ctx.FillText(d.meta.FormatPrice(d.lastPrice), 4, yPrice-3)
	}
}

func (d *Display) drawProfile(ctx render.Context2D, w, h float64) {
	if !d.sc.Valid() {
		return
	}
	levels := d.prof.Levels()
	if len(levels) == 0 {
		return
	}
	maxCount := d.prof.MaxCount()
	if maxCount == 0 {
		return
	}
	va, haveVA := d.prof.ValueAreaBand()
	maxWidth := 0.35 * w
	bucket := d.prof.BucketSize()

	ctx.SetGlobalAlpha(0.85)
	for _, b := range levels {
		y := d.sc.ToPixelY(b.Level + bucket/2)
		rowH := d.sc.ToPixelY(b.Level-bucket/2) - y
		if rowH < 1 {
			rowH = 1
		}
		if y+rowH < 0 || y > h {
			continue
		}
		barW := maxWidth * float64(b.Count) / float64(maxCount)
		if barW < 1 {
			barW = 1
		}
		color := d.cfg.Colors.Profile
		if haveVA && b.Level >= va.Low-bucket/2 && b.Level <= va.High+bucket/2 {
			color = d.cfg.Colors.ValueArea
		}
		ctx.SetFillStyle(color)
		ctx.FillRect(0, y, barW, rowH)
	}
	ctx.SetGlobalAlpha(1)

	if poc, ok := d.prof.POC(); ok {
		y := d.sc.ToPixelY(poc.Level)
		ctx.SetStrokeStyle(d.cfg.Colors.POC)
		ctx.SetLineWidth(1)
		ctx.StrokeLine(0, y, maxWidth, y)
	}
}

func (d *Display) markerStyle(t model.MarkerType) (color string, width float64) {
	switch t {
	case model.MarkerBig:
		return d.cfg.Colors.MarkerBig, 3
	case model.MarkerSmall:
		return d.cfg.Colors.MarkerSmall, 1
	default:
		return d.cfg.Colors.MarkerNormal, 2
	}
}

func (d *Display) drawMarkers(ctx render.Context2D, w float64) {
	if !d.sc.Valid() {
		return
	}
	for _, m := range d.markers.All() {
		color, width := d.markerStyle(m.Type)
		y := d.sc.ToPixelY(m.Price)
		ctx.SetStrokeStyle(color)
		ctx.SetLineWidth(width)
		ctx.StrokeLine(0, y, w, y)
		ctx.SetFillStyle(color)
		ctx.FillText(d.meta.FormatPrice(m.Price), w-54, y-3)
	}
}

func (d *Display) drawPreview(ctx render.Context2D, w float64) {
	price, ok := d.machine.Preview()
	if !ok || !d.sc.Valid() {
		return
	}
	y := d.sc.ToPixelY(price)
	ctx.SetStrokeStyle(d.cfg.Colors.Preview)
	ctx.SetLineWidth(1)
	ctx.SetLineDash([]float64{4, 4})
	ctx.StrokeLine(0, y, w, y)
	ctx.SetLineDash(nil)
	ctx.SetFillStyle(d.cfg.Colors.Preview)
	ctx.FillText(d.meta.FormatPrice(price), w-54, y-3)
}
