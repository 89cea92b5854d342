package session

import (
	"fmt"
	"log"

	"PipGauge/internal/display"

	"github.com/robfig/cron/v3"
)

// Roller resets day state on all displays at the FX session boundary.
type Roller struct {
	Cron    *cron.Cron
	Manager *display.Manager
}

// NewRoller creates a Roller bound to the given display manager.
func NewRoller(mgr *display.Manager) *Roller {
	return &Roller{
		Cron:    cron.New(cron.WithSeconds()),
		Manager: mgr,
	}
}

// Register schedules the session rollover on the given cron spec.
func (r *Roller) Register(spec string) error {
	if _, err := r.Cron.AddFunc(spec, r.roll); err != nil {
		return fmt.Errorf("register session rollover: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (r *Roller) Start() {
	r.Cron.Start()
	log.Println("[INFO] session roller started")
}

// Stop stops the cron scheduler gracefully.
func (r *Roller) Stop() {
	r.Cron.Stop()
	log.Println("[INFO] session roller stopped")
}

// RollNow triggers a session rollover immediately (for manual trigger).
func (r *Roller) RollNow() {
	r.roll()
}

func (r *Roller) roll() {
	log.Println("[INFO] rolling session")
	r.Manager.RollSession()
}
