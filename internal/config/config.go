package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SymbolConfig describes one symbol to open a display for.
type SymbolConfig struct {
	Name        string  `yaml:"name"`
	PipPosition int     `yaml:"pip_position"`
	PipSize     float64 `yaml:"pip_size"`
	SimBase     float64 `yaml:"sim_base"` // starting price for the simulated feed
}

// Colors holds the read-only draw palette. The core never mutates it.
type Colors struct {
	Background   string `yaml:"background"`
	RangeLine    string `yaml:"range_line"`
	PriceLine    string `yaml:"price_line"`
	Profile      string `yaml:"profile"`
	ValueArea    string `yaml:"value_area"`
	POC          string `yaml:"poc"`
	MarkerBig    string `yaml:"marker_big"`
	MarkerNormal string `yaml:"marker_normal"`
	MarkerSmall  string `yaml:"marker_small"`
	Preview      string `yaml:"preview"`
	Label        string `yaml:"label"`
}

// Render holds the per-display rendering knobs.
type Render struct {
	FPS            int     `yaml:"fps"`
	WidthPx        float64 `yaml:"width_px"`
	HeightPx       float64 `yaml:"height_px"`
	DPR            float64 `yaml:"dpr"`
	PaddingRatio   float64 `yaml:"padding_ratio"`
	ValueAreaRatio float64 `yaml:"value_area_ratio"`
	MarkerHitPx    float64 `yaml:"marker_hit_px"`
	Colors         Colors  `yaml:"colors"`
}

// Config holds all application configuration.
type Config struct {
	Feed struct {
		Mode    string         `yaml:"mode"` // "sim" or "ws"
		URL     string         `yaml:"url"`
		Symbols []SymbolConfig `yaml:"symbols"`
	} `yaml:"feed"`
	Render  Render `yaml:"render"`
	Session struct {
		RolloverCron string `yaml:"rollover_cron"`
	} `yaml:"session"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Port int `yaml:"port"`
	} `yaml:"metrics"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("FEED_MODE"); v != "" {
		cfg.Feed.Mode = v
	}
	if v := os.Getenv("FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("ROLLOVER_CRON"); v != "" {
		cfg.Session.RolloverCron = v
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := os.Getenv("RENDER_FPS"); v != "" {
		if fps, err := strconv.Atoi(v); err == nil {
			cfg.Render.FPS = fps
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Feed.Mode == "" {
		c.Feed.Mode = "sim"
	}
	if len(c.Feed.Symbols) == 0 {
		c.Feed.Symbols = []SymbolConfig{
			{Name: "EURUSD", PipPosition: 4, PipSize: 0.0001, SimBase: 1.0850},
		}
	}
	if c.Render.FPS == 0 {
		c.Render.FPS = 60
	}
	if c.Render.WidthPx == 0 {
		c.Render.WidthPx = 280
	}
	if c.Render.HeightPx == 0 {
		c.Render.HeightPx = 160
	}
	if c.Render.DPR == 0 {
		c.Render.DPR = 1
	}
	if c.Render.PaddingRatio == 0 {
		c.Render.PaddingRatio = 0.1
	}
	if c.Render.ValueAreaRatio == 0 {
		c.Render.ValueAreaRatio = 0.70
	}
	if c.Render.MarkerHitPx == 0 {
		c.Render.MarkerHitPx = 10
	}
	// Weekday rollover at 17:00 New York, the FX session boundary.
	if c.Session.RolloverCron == "" {
		c.Session.RolloverCron = "0 0 17 * * 0-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/pipgauge.db"
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9100
	}
	c.Render.Colors.applyDefaults()
}

func (p *Colors) applyDefaults() {
	def := func(field *string, v string) {
		if *field == "" {
			*field = v
		}
	}
	def(&p.Background, "#101418")
	def(&p.RangeLine, "#3d4b5c")
	def(&p.PriceLine, "#e8eef4")
	def(&p.Profile, "#2f6f4f")
	def(&p.ValueArea, "#3f8f67")
	def(&p.POC, "#e3b341")
	def(&p.MarkerBig, "#d64545")
	def(&p.MarkerNormal, "#d68f45")
	def(&p.MarkerSmall, "#8a8f98")
	def(&p.Preview, "#6fa8dc")
	def(&p.Label, "#c9d1d9")
}

// Validate checks that all required fields are usable.
func (c *Config) Validate() error {
	if c.Feed.Mode != "sim" && c.Feed.Mode != "ws" {
		return fmt.Errorf("feed.mode must be \"sim\" or \"ws\", got %q", c.Feed.Mode)
	}
	if c.Feed.Mode == "ws" && c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required in ws mode")
	}
	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("feed.symbols must not be empty")
	}
	for _, s := range c.Feed.Symbols {
		if s.Name == "" {
			return fmt.Errorf("feed.symbols entries need a name")
		}
		if s.PipPosition < 0 || s.PipPosition > 10 {
			return fmt.Errorf("symbol %s: pip_position %d out of range", s.Name, s.PipPosition)
		}
	}
	if c.Render.FPS <= 0 || c.Render.FPS > 240 {
		return fmt.Errorf("render.fps %d out of range", c.Render.FPS)
	}
	if c.Render.PaddingRatio < 0 {
		return fmt.Errorf("render.padding_ratio must not be negative")
	}
	if c.Render.ValueAreaRatio <= 0 || c.Render.ValueAreaRatio > 1 {
		return fmt.Errorf("render.value_area_ratio must be in (0, 1]")
	}
	return nil
}
