package render

import (
	"errors"
	"sync"
)

// Op is one recorded drawing call.
type Op struct {
	Name  string
	Args  []float64
	Text  string
	Style string
}

// RecordingCanvas captures draw calls instead of rasterizing them. It backs
// the renderer tests and the headless soak harness.
type RecordingCanvas struct {
	mu          sync.Mutex
	cssW, cssH  float64
	bufW, bufH  int
	dpr         float64
	ops         []Op
	ctxDisabled bool
}

// NewRecordingCanvas creates a surface with the given CSS geometry.
func NewRecordingCanvas(cssW, cssH, dpr float64) *RecordingCanvas {
	return &RecordingCanvas{cssW: cssW, cssH: cssH, dpr: dpr}
}

// Resize simulates a container resize or a DPR change (monitor move).
func (c *RecordingCanvas) Resize(cssW, cssH, dpr float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cssW, c.cssH, c.dpr = cssW, cssH, dpr
}

// DisableContext makes Context fail, for exercising the skip-frame path.
func (c *RecordingCanvas) DisableContext(disabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctxDisabled = disabled
}

// Ops returns a copy of all recorded calls since the last ResetOps.
func (c *RecordingCanvas) Ops() []Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Op, len(c.ops))
	copy(out, c.ops)
	return out
}

// OpsNamed filters recorded calls by name.
func (c *RecordingCanvas) OpsNamed(name string) []Op {
	var out []Op
	for _, op := range c.Ops() {
		if op.Name == name {
			out = append(out, op)
		}
	}
	return out
}

// ResetOps clears the recording without touching geometry.
func (c *RecordingCanvas) ResetOps() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = nil
}

func (c *RecordingCanvas) Context() (Context2D, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctxDisabled {
		return nil, errors.New("2d context unavailable")
	}
	return &recordingContext{canvas: c}, nil
}

func (c *RecordingCanvas) CSSSize() (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cssW, c.cssH
}

func (c *RecordingCanvas) BufferSize() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bufW, c.bufH
}

func (c *RecordingCanvas) SetBufferSize(w, h int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bufW, c.bufH = w, h
}

func (c *RecordingCanvas) DevicePixelRatio() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dpr
}

func (c *RecordingCanvas) record(op Op) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, op)
}

type recordingContext struct {
	canvas *RecordingCanvas
}

func (r *recordingContext) SetTransform(a, b, c, d, e, f float64) {
	r.canvas.record(Op{Name: "setTransform", Args: []float64{a, b, c, d, e, f}})
}

func (r *recordingContext) Scale(x, y float64) {
	r.canvas.record(Op{Name: "scale", Args: []float64{x, y}})
}

func (r *recordingContext) ClearRect(x, y, w, h float64) {
	r.canvas.record(Op{Name: "clearRect", Args: []float64{x, y, w, h}})
}

func (r *recordingContext) SetFillStyle(color string) {
	r.canvas.record(Op{Name: "setFillStyle", Style: color})
}

func (r *recordingContext) FillRect(x, y, w, h float64) {
	r.canvas.record(Op{Name: "fillRect", Args: []float64{x, y, w, h}})
}

func (r *recordingContext) SetStrokeStyle(color string) {
	r.canvas.record(Op{Name: "setStrokeStyle", Style: color})
}

func (r *recordingContext) SetLineWidth(w float64) {
	r.canvas.record(Op{Name: "setLineWidth", Args: []float64{w}})
}

func (r *recordingContext) SetLineDash(pattern []float64) {
	args := make([]float64, len(pattern))
	copy(args, pattern)
	r.canvas.record(Op{Name: "setLineDash", Args: args})
}

func (r *recordingContext) StrokeLine(x1, y1, x2, y2 float64) {
	r.canvas.record(Op{Name: "strokeLine", Args: []float64{x1, y1, x2, y2}})
}

func (r *recordingContext) SetGlobalAlpha(a float64) {
	r.canvas.record(Op{Name: "setGlobalAlpha", Args: []float64{a}})
}

func (r *recordingContext) FillText(text string, x, y float64) {
	r.canvas.record(Op{Name: "fillText", Args: []float64{x, y}, Text: text})
}
