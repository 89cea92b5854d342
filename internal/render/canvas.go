// Package render coordinates frame scheduling and the canvas drawing
// contract for all displays.
package render

// Context2D is the minimal 2D drawing surface a display frame needs. It
// mirrors the HTML canvas context: a current transform plus immediate-mode
// drawing calls. Implementations are not safe for concurrent use; the
// scheduler serializes all drawing onto its frame goroutine.
type Context2D interface {
	// SetTransform replaces the current transform with the matrix
	// [a c e; b d f]. SetTransform(1,0,0,1,0,0) resets to identity.
	SetTransform(a, b, c, d, e, f float64)
	// Scale multiplies the current transform.
	Scale(x, y float64)
	// ClearRect erases the rectangle to transparent, in current-transform
	// units.
	ClearRect(x, y, w, h float64)

	SetFillStyle(color string)
	FillRect(x, y, w, h float64)
	SetStrokeStyle(color string)
	SetLineWidth(w float64)
	SetLineDash(pattern []float64)
	StrokeLine(x1, y1, x2, y2 float64)
	SetGlobalAlpha(a float64)
	FillText(text string, x, y float64)
}

// Canvas is one display surface plus its geometry. CSS size and device pixel
// ratio come from the display container; the backing buffer is resized by the
// renderer to CSS size times DPR.
type Canvas interface {
	Context() (Context2D, error)
	CSSSize() (w, h float64)
	BufferSize() (w, h int)
	SetBufferSize(w, h int)
	DevicePixelRatio() float64
}

// ResetTransform puts the context into the canonical frame state: identity
// transform, then exactly one DPR scale. It is applied from scratch at the
// start of every frame; relative scales layered onto a context that already
// carries a transform are what let content creep away from its true pixel
// position over many frames.
func ResetTransform(ctx Context2D, dpr float64) {
	if dpr <= 0 {
		dpr = 1
	}
	ctx.SetTransform(1, 0, 0, 1, 0, 0)
	ctx.Scale(dpr, dpr)
}
