package render

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	mu      sync.Mutex
	id      string
	frames  int
	reasons []ReasonSet
	err     error
	panics  bool
}

func (f *fakeRenderer) DisplayID() string { return f.id }

func (f *fakeRenderer) Frame(_ time.Time, reasons ReasonSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return f.err
	}
	f.frames++
	f.reasons = append(f.reasons, reasons)
	return nil
}

func (f *fakeRenderer) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

func TestScheduler_DedupesRapidRequests(t *testing.T) {
	s := NewScheduler(60, nil)
	r := &fakeRenderer{id: "d1"}
	s.Attach(r)

	for i := 0; i < 10; i++ {
		s.Request("d1", ReasonTick)
	}
	require.True(t, s.Pending("d1"))

	drawn := s.frame(time.Now())
	assert.Equal(t, 1, drawn)
	assert.Equal(t, 1, r.frameCount())
	assert.False(t, s.Pending("d1"))

	// Nothing pending: the next tick draws nothing.
	drawn = s.frame(time.Now())
	assert.Zero(t, drawn)
	assert.Equal(t, 1, r.frameCount())
}

func TestScheduler_CoalescesReasons(t *testing.T) {
	s := NewScheduler(60, nil)
	r := &fakeRenderer{id: "d1"}
	s.Attach(r)

	s.Request("d1", ReasonTick)
	s.Request("d1", ReasonResize)
	s.Request("d1", ReasonMarkerChange)
	s.Request("d1", ReasonTick)

	s.frame(time.Now())
	require.Len(t, r.reasons, 1)
	got := r.reasons[0]
	assert.Len(t, got, 3)
	assert.True(t, got.Has(ReasonTick))
	assert.True(t, got.Has(ReasonResize))
	assert.True(t, got.Has(ReasonMarkerChange))
	assert.False(t, got.Has(ReasonMove))
}

func TestScheduler_DeliversMoveReason(t *testing.T) {
	s := NewScheduler(60, nil)
	r := &fakeRenderer{id: "d1"}
	s.Attach(r)

	s.Request("d1", ReasonMove)
	s.frame(time.Now())

	require.Len(t, r.reasons, 1)
	assert.True(t, r.reasons[0].Has(ReasonMove))
}

func TestScheduler_RequestDuringRenderLandsInNextFrame(t *testing.T) {
	s := NewScheduler(60, nil)
	var reentered bool
	reenter := &callbackRenderer{id: "d1", fn: func() {
		if !reentered {
			reentered = true
			s.Request("d1", ReasonTick)
		}
	}}
	s.Attach(reenter)

	s.Request("d1", ReasonTick)
	assert.Equal(t, 1, s.frame(time.Now()))
	require.True(t, s.Pending("d1"), "request made mid-frame must carry over")
	assert.Equal(t, 1, s.frame(time.Now()))
	assert.False(t, s.Pending("d1"))
}

type callbackRenderer struct {
	id string
	fn func()
}

func (c *callbackRenderer) DisplayID() string                { return c.id }
func (c *callbackRenderer) Frame(time.Time, ReasonSet) error { c.fn(); return nil }

func TestScheduler_IndependentDisplays(t *testing.T) {
	s := NewScheduler(60, nil)
	a := &fakeRenderer{id: "a"}
	b := &fakeRenderer{id: "b"}
	s.Attach(a)
	s.Attach(b)

	s.Request("a", ReasonTick)
	s.Request("b", ReasonResize)
	assert.Equal(t, 2, s.frame(time.Now()))
	assert.Equal(t, 1, a.frameCount())
	assert.Equal(t, 1, b.frameCount())
}

func TestScheduler_DetachDiscardsPending(t *testing.T) {
	s := NewScheduler(60, nil)
	r := &fakeRenderer{id: "d1"}
	s.Attach(r)
	s.Request("d1", ReasonTick)

	s.Detach("d1")
	assert.False(t, s.Pending("d1"))
	assert.Zero(t, s.frame(time.Now()))
	assert.Zero(t, r.frameCount())

	// Requests after teardown are dropped outright.
	s.Request("d1", ReasonTick)
	assert.False(t, s.Pending("d1"))
}

func TestScheduler_UnknownDisplayRequestDropped(t *testing.T) {
	s := NewScheduler(60, nil)
	s.Request("ghost", ReasonTick)
	assert.False(t, s.Pending("ghost"))
}

func TestScheduler_DrawErrorSkipsFrameKeepsLoop(t *testing.T) {
	s := NewScheduler(60, nil)
	bad := &fakeRenderer{id: "bad", err: errors.New("no context")}
	good := &fakeRenderer{id: "good"}
	s.Attach(bad)
	s.Attach(good)

	s.Request("bad", ReasonTick)
	s.Request("good", ReasonTick)
	assert.Equal(t, 1, s.frame(time.Now()))
	assert.Equal(t, 1, good.frameCount())
	assert.Equal(t, uint64(1), s.Skipped())

	// The failing display recovers on a later frame.
	bad.err = nil
	s.Request("bad", ReasonTick)
	assert.Equal(t, 1, s.frame(time.Now()))
	assert.Equal(t, 1, bad.frameCount())
}

func TestScheduler_DrawPanicRecovered(t *testing.T) {
	s := NewScheduler(60, nil)
	r := &fakeRenderer{id: "d1", panics: true}
	s.Attach(r)
	s.Request("d1", ReasonTick)

	assert.NotPanics(t, func() { s.frame(time.Now()) })
	assert.Equal(t, uint64(1), s.Skipped())
}

func TestResetTransform_CanonicalSequence(t *testing.T) {
	c := NewRecordingCanvas(280, 160, 2)
	ctx, err := c.Context()
	require.NoError(t, err)

	ResetTransform(ctx, 2)
	ResetTransform(ctx, 2)

	ops := c.Ops()
	require.Len(t, ops, 4)
	// Every application starts from identity; nothing accumulates.
	for i := 0; i < 4; i += 2 {
		assert.Equal(t, "setTransform", ops[i].Name)
		assert.Equal(t, []float64{1, 0, 0, 1, 0, 0}, ops[i].Args)
		assert.Equal(t, "scale", ops[i+1].Name)
		assert.Equal(t, []float64{2, 2}, ops[i+1].Args)
	}
}

func TestResetTransform_InvalidDPRFallsBackToOne(t *testing.T) {
	c := NewRecordingCanvas(280, 160, 0)
	ctx, err := c.Context()
	require.NoError(t, err)
	ResetTransform(ctx, 0)
	scales := c.OpsNamed("scale")
	require.Len(t, scales, 1)
	assert.Equal(t, []float64{1, 1}, scales[0].Args)
}
