package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"PipGauge/internal/config"
	"PipGauge/internal/display"
	"PipGauge/internal/feed"
	"PipGauge/internal/metrics"
	"PipGauge/internal/model"
	"PipGauge/internal/recorder"
	"PipGauge/internal/render"
	"PipGauge/internal/session"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] PipGauge starting...")

	_ = godotenv.Load()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init metrics
	inst, reg := metrics.New()
	metrics.NewServer(cfg.Metrics.Port, reg).Start()

	// Init feed
	specs := make([]feed.SymbolSpec, 0, len(cfg.Feed.Symbols))
	for _, s := range cfg.Feed.Symbols {
		specs = append(specs, feed.SymbolSpec{
			Meta: model.SymbolMeta{Symbol: s.Name, PipPosition: s.PipPosition, PipSize: s.PipSize},
			Base: s.SimBase,
		})
	}
	var src feed.Feed
	switch cfg.Feed.Mode {
	case "ws":
		src = feed.NewWSFeed(cfg.Feed.URL, specs)
	default:
		src = feed.NewSimFeed(specs, 200*time.Millisecond, time.Now().UnixNano())
	}
	log.Printf("[INFO] feed: %s", src.Name())

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init render loop and displays
	sched := render.NewScheduler(cfg.Render.FPS, inst)
	mgr := display.NewManager(sched, rec, cfg.Render, inst)

	for _, s := range cfg.Feed.Symbols {
		meta, err := src.Meta(s.Name)
		if err != nil {
			log.Fatalf("[FATAL] symbol meta %s: %v", s.Name, err)
		}
		canvas := render.NewRecordingCanvas(cfg.Render.WidthPx, cfg.Render.HeightPx, cfg.Render.DPR)
		d, err := mgr.Open(s.Name, meta, canvas)
		if err != nil {
			log.Fatalf("[FATAL] open display %s: %v", s.Name, err)
		}
		bars, err := src.History(s.Name)
		if err != nil {
			log.Printf("[WARN] history %s, starting on fallback scale: %v", s.Name, err)
		} else if len(bars) > 0 {
			d.SeedBars(bars)
		}
	}
	log.Printf("[INFO] %d display(s) open", mgr.Len())

	go sched.Run(ctx)

	// Pump ticks into the displays
	ticks, err := src.Subscribe(ctx)
	if err != nil {
		log.Fatalf("[FATAL] subscribe: %v", err)
	}
	var tickCount atomic.Uint64
	go func() {
		for tk := range ticks {
			mgr.Tick(tk)
			tickCount.Add(1)
		}
	}()

	// Session rollover
	roller := session.NewRoller(mgr)
	if err := roller.Register(cfg.Session.RolloverCron); err != nil {
		log.Fatalf("[FATAL] register session rollover: %v", err)
	}
	roller.Start()
	defer roller.Stop()

	// Periodic stats
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				log.Printf("[INFO] stats: %s ticks, %s frames, %s skipped",
					humanize.Comma(int64(tickCount.Load())),
					humanize.Comma(int64(sched.Frames())),
					humanize.Comma(int64(sched.Skipped())))
			}
		}
	}()

	log.Println("[INFO] PipGauge is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	mgr.CloseAll()
	log.Println("[INFO] PipGauge stopped")
}
