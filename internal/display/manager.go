package display

import (
	"fmt"
	"log"
	"sync"

	"PipGauge/internal/config"
	"PipGauge/internal/metrics"
	"PipGauge/internal/model"
	"PipGauge/internal/recorder"
	"PipGauge/internal/render"
)

// Manager is the arena of open displays, keyed by display id. It routes feed
// ticks to the displays showing each symbol and owns their lifecycle.
type Manager struct {
	mu       sync.Mutex
	displays map[string]*Display

	sched *render.Scheduler
	rec   recorder.Recorder
	cfg   config.Render
	inst  *metrics.Set
}

// NewManager wires the arena to the scheduler and marker store. inst may be
// nil.
func NewManager(sched *render.Scheduler, rec recorder.Recorder, cfg config.Render, inst *metrics.Set) *Manager {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Manager{
		displays: make(map[string]*Display),
		sched:    sched,
		rec:      rec,
		cfg:      cfg,
		inst:     inst,
	}
}

// Open creates a display on the given canvas, restores its persisted markers,
// and attaches it to the render loop.
func (m *Manager) Open(displayID string, meta model.SymbolMeta, canvas render.Canvas) (*Display, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.displays[displayID]; exists {
		return nil, fmt.Errorf("display %s already open", displayID)
	}

	emit := func(ev model.MarkerEvent) {
		if err := recorder.Apply(m.rec, ev); err != nil {
			log.Printf("[ERROR] persist marker %s: %v", ev.Kind, err)
		}
	}
	d, err := New(displayID, meta, canvas, m.cfg, m.sched, emit)
	if err != nil {
		return nil, err
	}

	m.displays[displayID] = d
	m.sched.Attach(d)

	stored, err := m.rec.LoadMarkers(meta.Symbol)
	if err != nil {
		log.Printf("[WARN] load markers for %s: %v", meta.Symbol, err)
	} else if len(stored) > 0 {
		d.LoadMarkers(stored)
		log.Printf("[INFO] display %s: restored %d markers", displayID, len(stored))
	}
	return d, nil
}

// Close tears a display down: pending frames are discarded and no later frame
// callback can reference its canvas.
func (m *Manager) Close(displayID string) {
	m.mu.Lock()
	d, ok := m.displays[displayID]
	delete(m.displays, displayID)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.sched.Detach(displayID)
	d.markClosed()
	log.Printf("[INFO] display %s closed", displayID)
}

// CloseAll tears down every display, for shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.displays))
	for id := range m.displays {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Close(id)
	}
}

// Get returns an open display.
func (m *Manager) Get(displayID string) (*Display, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.displays[displayID]
	return d, ok
}

// Len is the number of open displays.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.displays)
}

// Tick routes one tick to every display showing its symbol.
func (m *Manager) Tick(t model.Tick) {
	m.mu.Lock()
	targets := make([]*Display, 0, 2)
	for _, d := range m.displays {
		if d.Symbol() == t.Symbol {
			targets = append(targets, d)
		}
	}
	m.mu.Unlock()

	for _, d := range targets {
		if d.ApplyTick(t) && m.inst != nil {
			m.inst.TicksTotal.Inc()
		}
	}
}

// RollSession clears session-scoped state on every display at the FX
// rollover.
func (m *Manager) RollSession() {
	m.mu.Lock()
	targets := make([]*Display, 0, len(m.displays))
	for _, d := range m.displays {
		targets = append(targets, d)
	}
	m.mu.Unlock()

	for _, d := range targets {
		d.RollSession()
	}
	log.Printf("[INFO] session rolled on %d displays", len(targets))
}
