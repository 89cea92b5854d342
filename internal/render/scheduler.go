package render

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"PipGauge/internal/metrics"
)

// Reason says why a display needs a redraw.
type Reason string

const (
	ReasonTick         Reason = "tick"
	ReasonResize       Reason = "resize"
	ReasonMove         Reason = "move"
	ReasonMarkerChange Reason = "markerChange"
)

// ReasonSet is the coalesced union of pending reasons for one frame.
type ReasonSet map[Reason]struct{}

// Has reports whether the reason is part of the set.
func (rs ReasonSet) Has(r Reason) bool {
	_, ok := rs[r]
	return ok
}

// Renderer draws one frame for one display.
type Renderer interface {
	DisplayID() string
	Frame(now time.Time, reasons ReasonSet) error
}

// DefaultFPS is the frame loop rate when the config does not set one.
const DefaultFPS = 60

// Scheduler coalesces render requests and drives the shared frame loop.
// Each display moves Idle -> Scheduled on its first request, collects further
// reasons into the same pending frame, and renders exactly once on the next
// frame tick. Requests arriving while a frame is being drawn land in a fresh
// pending set and are served on the following tick; the loop never blocks on
// a slow display and never queues more than one frame per display.
type Scheduler struct {
	mu        sync.Mutex
	renderers map[string]Renderer
	pending   map[string]ReasonSet

	interval time.Duration
	inst     *metrics.Set

	frames  atomic.Uint64
	skipped atomic.Uint64
}

// NewScheduler creates a scheduler ticking at the given frame rate.
// inst may be nil.
func NewScheduler(fps int, inst *metrics.Set) *Scheduler {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Scheduler{
		renderers: make(map[string]Renderer),
		pending:   make(map[string]ReasonSet),
		interval:  time.Second / time.Duration(fps),
		inst:      inst,
	}
}

// Attach registers a display's renderer.
func (s *Scheduler) Attach(r Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderers[r.DisplayID()] = r
}

// Detach tears a display down: its renderer is unregistered and any pending
// request is discarded, so no later frame callback can touch its canvas.
func (s *Scheduler) Detach(displayID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.renderers, displayID)
	delete(s.pending, displayID)
}

// Request schedules a redraw. Multiple requests between two frame ticks
// coalesce into one pending frame carrying the union of their reasons.
// Requests for unknown displays are dropped.
func (s *Scheduler) Request(displayID string, reason Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.renderers[displayID]; !ok {
		return
	}
	if s.inst != nil {
		s.inst.RequestsTotal.Inc()
	}
	set, ok := s.pending[displayID]
	if !ok {
		s.pending[displayID] = ReasonSet{reason: {}}
		return
	}
	set[reason] = struct{}{}
	if s.inst != nil {
		s.inst.RequestsCoalesced.Inc()
	}
}

// Pending reports whether the display has a frame scheduled.
func (s *Scheduler) Pending(displayID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[displayID]
	return ok
}

// Run drives the frame loop until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Printf("[INFO] render scheduler running at %v per frame", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[INFO] render scheduler stopped")
			return
		case now := <-ticker.C:
			s.frame(now)
		}
	}
}

// Frames returns the number of frames drawn so far.
func (s *Scheduler) Frames() uint64 { return s.frames.Load() }

// Skipped returns the number of frames abandoned due to draw errors.
func (s *Scheduler) Skipped() uint64 { return s.skipped.Load() }

// frame drains the pending set and draws one frame per scheduled display.
func (s *Scheduler) frame(now time.Time) int {
	s.mu.Lock()
	due := s.pending
	s.pending = make(map[string]ReasonSet)
	targets := make(map[string]Renderer, len(due))
	for id := range due {
		if r, ok := s.renderers[id]; ok {
			targets[id] = r
		}
	}
	s.mu.Unlock()

	drawn := 0
	for id, r := range targets {
		if err := s.draw(r, now, due[id]); err != nil {
			// A bad frame must not kill the loop; the next tick gets a
			// fresh chance to recover.
			log.Printf("[ERROR] render display %s: %v", id, err)
			s.skipped.Add(1)
			if s.inst != nil {
				s.inst.FramesSkipped.Inc()
			}
			continue
		}
		drawn++
		s.frames.Add(1)
		if s.inst != nil {
			s.inst.FramesTotal.Inc()
		}
	}
	return drawn
}

func (s *Scheduler) draw(r Renderer, now time.Time, reasons ReasonSet) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("draw panic: %v", rec)
		}
	}()
	start := time.Now()
	err = r.Frame(now, reasons)
	if s.inst != nil {
		s.inst.RenderSeconds.Observe(time.Since(start).Seconds())
	}
	return err
}
