package marker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PipGauge/internal/model"
	"PipGauge/internal/scale"
)

type machineHarness struct {
	index       *Index
	machine     *Machine
	events      []model.MarkerEvent
	invalidated int
}

func newHarness(t *testing.T) (*machineHarness, scale.PriceScale) {
	t.Helper()
	h := &machineHarness{index: NewIndex("d1")}
	h.machine = NewMachine(h.index, 10,
		func(ev model.MarkerEvent) { h.events = append(h.events, ev) },
		func() { h.invalidated++ },
	)
	return h, testScale(t)
}

func TestMachine_AltPrimaryCreatesMarker(t *testing.T) {
	h, s := newHarness(t)
	y := s.ToPixelY(1.0850)

	h.machine.PointerDown(PointerEvent{Button: ButtonPrimary, Alt: true, Y: y}, s)

	assert.Equal(t, StateIdle, h.machine.State())
	require.Equal(t, 1, h.index.Len())
	m := h.index.All()[0]
	assert.InEpsilon(t, 1.0850, m.Price, 1e-9)
	assert.Equal(t, model.MarkerNormal, m.Type)

	require.Len(t, h.events, 1)
	assert.Equal(t, model.MarkerCreated, h.events[0].Kind)
	assert.Equal(t, "d1", h.events[0].DisplayID)
	assert.Equal(t, 1, h.invalidated)
}

func TestMachine_PlainClickIgnored(t *testing.T) {
	h, s := newHarness(t)
	h.machine.PointerDown(PointerEvent{Button: ButtonPrimary, Alt: false, Y: 80}, s)
	assert.Zero(t, h.index.Len())
	assert.Empty(t, h.events)
	assert.Zero(t, h.invalidated)
}

func TestMachine_AltHoverPreview(t *testing.T) {
	h, s := newHarness(t)

	h.machine.PointerMove(PointerEvent{Button: ButtonNone, Alt: true, Y: s.ToPixelY(1.0844)}, s)
	assert.Equal(t, StatePreviewing, h.machine.State())
	p, ok := h.machine.Preview()
	require.True(t, ok)
	assert.InEpsilon(t, 1.0844, p, 1e-9)

	// Preview is recomputed continuously while hovering.
	h.machine.PointerMove(PointerEvent{Button: ButtonNone, Alt: true, Y: s.ToPixelY(1.0861)}, s)
	p, ok = h.machine.Preview()
	require.True(t, ok)
	assert.InEpsilon(t, 1.0861, p, 1e-9)

	h.machine.AltReleased()
	assert.Equal(t, StateIdle, h.machine.State())
	_, ok = h.machine.Preview()
	assert.False(t, ok)
	assert.Equal(t, 3, h.invalidated)
}

func TestMachine_MoveWithoutAltClearsPreview(t *testing.T) {
	h, s := newHarness(t)
	h.machine.PointerMove(PointerEvent{Button: ButtonNone, Alt: true, Y: 80}, s)
	require.Equal(t, StatePreviewing, h.machine.State())

	h.machine.PointerMove(PointerEvent{Button: ButtonNone, Alt: false, Y: 81}, s)
	assert.Equal(t, StateIdle, h.machine.State())
	_, ok := h.machine.Preview()
	assert.False(t, ok)
}

func TestMachine_ContextMenuFlow(t *testing.T) {
	h, s := newHarness(t)
	m := h.index.Create(1.0850, model.MarkerNormal)
	require.NotNil(t, m)
	y := s.ToPixelY(m.Price)

	h.machine.PointerDown(PointerEvent{Button: ButtonSecondary, Alt: true, Y: y}, s)
	require.Equal(t, StateContextOpen, h.machine.State())
	ctx, ok := h.machine.ContextMarker()
	require.True(t, ok)
	assert.Equal(t, m.ID, ctx.ID)

	big := model.MarkerBig
	h.machine.SelectContext(ContextAction{SetType: &big})
	assert.Equal(t, StateIdle, h.machine.State())

	got, ok := h.index.Get(m.ID)
	require.True(t, ok)
	assert.Equal(t, model.MarkerBig, got.Type)
	require.Len(t, h.events, 1)
	assert.Equal(t, model.MarkerUpdated, h.events[0].Kind)
}

func TestMachine_ContextDelete(t *testing.T) {
	h, s := newHarness(t)
	m := h.index.Create(1.0850, model.MarkerNormal)
	require.NotNil(t, m)

	h.machine.PointerDown(PointerEvent{Button: ButtonSecondary, Alt: true, Y: s.ToPixelY(m.Price)}, s)
	require.Equal(t, StateContextOpen, h.machine.State())

	h.machine.SelectContext(ContextAction{Delete: true})
	assert.Equal(t, StateIdle, h.machine.State())
	assert.Zero(t, h.index.Len())
	require.Len(t, h.events, 1)
	assert.Equal(t, model.MarkerRemoved, h.events[0].Kind)
	assert.Equal(t, m.ID, h.events[0].Marker.ID)
}

func TestMachine_SecondaryAwayFromMarkersStaysIdle(t *testing.T) {
	h, s := newHarness(t)
	h.machine.PointerDown(PointerEvent{Button: ButtonSecondary, Alt: true, Y: 40}, s)
	assert.Equal(t, StateIdle, h.machine.State())
	_, ok := h.machine.ContextMarker()
	assert.False(t, ok)
}

func TestMachine_NoStackedContextMenus(t *testing.T) {
	h, s := newHarness(t)
	a := h.index.Create(1.0820, model.MarkerNormal)
	b := h.index.Create(1.0880, model.MarkerNormal)
	require.NotNil(t, a)
	require.NotNil(t, b)

	h.machine.PointerDown(PointerEvent{Button: ButtonSecondary, Alt: true, Y: s.ToPixelY(a.Price)}, s)
	require.Equal(t, StateContextOpen, h.machine.State())

	// A second press while the menu is open only closes it.
	h.machine.PointerDown(PointerEvent{Button: ButtonSecondary, Alt: true, Y: s.ToPixelY(b.Price)}, s)
	assert.Equal(t, StateIdle, h.machine.State())
	_, ok := h.machine.ContextMarker()
	assert.False(t, ok)
	assert.Empty(t, h.events)
}

func TestMachine_SelectOutsideContextIsNoop(t *testing.T) {
	h, _ := newHarness(t)
	big := model.MarkerBig
	h.machine.SelectContext(ContextAction{SetType: &big})
	h.machine.CancelContext()
	assert.Equal(t, StateIdle, h.machine.State())
	assert.Empty(t, h.events)
	assert.Zero(t, h.invalidated)
}

func TestMachine_ContextRacesWithExternalDeletion(t *testing.T) {
	h, s := newHarness(t)
	m := h.index.Create(1.0850, model.MarkerNormal)
	require.NotNil(t, m)

	h.machine.PointerDown(PointerEvent{Button: ButtonSecondary, Alt: true, Y: s.ToPixelY(m.Price)}, s)
	require.Equal(t, StateContextOpen, h.machine.State())

	// Marker vanishes underneath the open menu.
	_, ok := h.index.Remove(m.ID)
	require.True(t, ok)

	h.machine.SelectContext(ContextAction{Delete: true})
	assert.Equal(t, StateIdle, h.machine.State())
	assert.Empty(t, h.events)
}

func TestMachine_CreateAtInvalidPriceEmitsNothing(t *testing.T) {
	h, _ := newHarness(t)
	// A scale whose band extends below zero can produce negative prices at
	// the bottom of the canvas; creation must simply not happen.
	s := scale.Fallback(0, 200, 1) // band [0, 2]
	yBelowZero := s.ToPixelY(-0.5)
	h.machine.PointerDown(PointerEvent{Button: ButtonPrimary, Alt: true, Y: yBelowZero}, s)
	assert.Zero(t, h.index.Len())
	assert.Empty(t, h.events)
	// Still invalidates: the preview line may need clearing.
	assert.Equal(t, 1, h.invalidated)
}
