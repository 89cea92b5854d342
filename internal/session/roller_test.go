package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PipGauge/internal/config"
	"PipGauge/internal/display"
	"PipGauge/internal/model"
	"PipGauge/internal/render"
)

func newTestManager(t *testing.T) (*display.Manager, *render.Scheduler) {
	t.Helper()
	cfg, err := config.Load("/nonexistent/pipgauge.yaml")
	require.NoError(t, err)
	sched := render.NewScheduler(60, nil)
	return display.NewManager(sched, nil, cfg.Render, nil), sched
}

func TestRoller_RegisterRejectsBadSpec(t *testing.T) {
	mgr, _ := newTestManager(t)
	r := NewRoller(mgr)
	assert.Error(t, r.Register("not a cron spec"))
	assert.NoError(t, r.Register("0 0 17 * * 0-5"))
}

func TestRoller_RollNowRequestsFrames(t *testing.T) {
	mgr, sched := newTestManager(t)
	meta := model.SymbolMeta{Symbol: "EURUSD", PipPosition: 4, PipSize: 0.0001}
	_, err := mgr.Open("d1", meta, render.NewRecordingCanvas(280, 160, 2))
	require.NoError(t, err)

	r := NewRoller(mgr)
	r.RollNow()

	assert.True(t, sched.Pending("d1"))
}
