package marker

import (
	"github.com/google/uuid"

	"PipGauge/internal/model"
	"PipGauge/internal/scale"
)

// MachineState enumerates the pointer interaction states. Modelling the
// alt-click flows as an explicit machine makes invalid combinations, such as
// two context menus at once, structurally impossible.
type MachineState int

const (
	StateIdle MachineState = iota
	StatePreviewing
	StateContextOpen
)

// Button identifies the pointer button carried by an event.
type Button int

const (
	ButtonNone Button = iota
	ButtonPrimary
	ButtonSecondary
)

// PointerEvent is a raw pointer event in canvas-relative coordinates with
// modifier state.
type PointerEvent struct {
	Button Button
	Alt    bool
	Y      float64
}

// ContextAction is the selection made from an open marker context menu.
type ContextAction struct {
	SetType *model.MarkerType
	Delete  bool
}

// Machine drives marker interaction for one display. emit receives marker
// intents for the persistence layer; invalidate enqueues a redraw and is
// called on every render-affecting transition.
type Machine struct {
	state       MachineState
	index       *Index
	thresholdPx float64

	ctxMarker    uuid.UUID
	previewPrice float64

	emit       func(model.MarkerEvent)
	invalidate func()
}

// NewMachine wires a machine to its display's index.
func NewMachine(index *Index, thresholdPx float64, emit func(model.MarkerEvent), invalidate func()) *Machine {
	if thresholdPx <= 0 {
		thresholdPx = DefaultHitThresholdPx
	}
	if emit == nil {
		emit = func(model.MarkerEvent) {}
	}
	if invalidate == nil {
		invalidate = func() {}
	}
	return &Machine{
		index:       index,
		thresholdPx: thresholdPx,
		emit:        emit,
		invalidate:  invalidate,
	}
}

// PointerDown handles a button press. Alt+primary places a normal marker at
// the pointer's price; alt+secondary near a marker opens its context menu.
func (m *Machine) PointerDown(ev PointerEvent, s scale.PriceScale) {
	if m.state == StateContextOpen {
		// Any press while a menu is open closes it first and swallows the
		// event, so a second menu can never stack on the first.
		m.state = StateIdle
		m.invalidate()
		return
	}
	if !ev.Alt {
		return
	}
	m.clearPreview()

	switch ev.Button {
	case ButtonPrimary:
		created := m.index.Create(s.ToPrice(ev.Y), model.MarkerNormal)
		if created != nil {
			m.emit(model.MarkerEvent{Kind: model.MarkerCreated, DisplayID: created.DisplayID, Marker: *created})
		}
		m.state = StateIdle
		m.invalidate()
	case ButtonSecondary:
		hit := m.index.HitTest(ev.Y, s, m.thresholdPx)
		if hit == nil {
			m.state = StateIdle
			m.invalidate()
			return
		}
		m.state = StateContextOpen
		m.ctxMarker = hit.ID
		m.invalidate()
	}
}

// PointerMove handles motion. Alt-hover with no button shows a dashed price
// preview, continuously recomputed from the scale.
func (m *Machine) PointerMove(ev PointerEvent, s scale.PriceScale) {
	if m.state == StateContextOpen {
		return
	}
	if ev.Alt && ev.Button == ButtonNone {
		m.state = StatePreviewing
		m.previewPrice = s.ToPrice(ev.Y)
		m.invalidate()
		return
	}
	if m.state == StatePreviewing {
		m.clearPreview()
		m.state = StateIdle
		m.invalidate()
	}
}

// AltReleased clears any active preview when the modifier key goes up.
func (m *Machine) AltReleased() {
	if m.state != StatePreviewing {
		return
	}
	m.clearPreview()
	m.state = StateIdle
	m.invalidate()
}

// SelectContext applies the chosen action to the marker under the open menu
// and closes it. A no-op outside ContextOpen.
func (m *Machine) SelectContext(action ContextAction) {
	if m.state != StateContextOpen {
		return
	}
	switch {
	case action.Delete:
		if removed, ok := m.index.Remove(m.ctxMarker); ok {
			m.emit(model.MarkerEvent{Kind: model.MarkerRemoved, DisplayID: removed.DisplayID, Marker: removed})
		}
	case action.SetType != nil:
		if updated, ok := m.index.Update(m.ctxMarker, model.MarkerPatch{Type: action.SetType}); ok {
			m.emit(model.MarkerEvent{Kind: model.MarkerUpdated, DisplayID: updated.DisplayID, Marker: updated})
		}
	}
	m.state = StateIdle
	m.invalidate()
}

// CancelContext dismisses an open menu without applying anything.
func (m *Machine) CancelContext() {
	if m.state != StateContextOpen {
		return
	}
	m.state = StateIdle
	m.invalidate()
}

// State reports the current interaction state.
func (m *Machine) State() MachineState { return m.state }

// ContextMarker returns the marker under the open context menu.
func (m *Machine) ContextMarker() (model.PriceMarker, bool) {
	if m.state != StateContextOpen {
		return model.PriceMarker{}, false
	}
	return m.index.Get(m.ctxMarker)
}

// Preview returns the dashed preview price while alt-hovering.
func (m *Machine) Preview() (float64, bool) {
	if m.state != StatePreviewing {
		return 0, false
	}
	return m.previewPrice, true
}

func (m *Machine) clearPreview() {
	m.previewPrice = 0
}
