// Package config loads go-gaze settings from ~/.gaze/config.json and GAZE_*
// environment variables. CLI flags are applied on top by cmd/gaze.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// Defaults
const (
	DefaultAddr      = ":8080"
	DefaultServerURL = "http://localhost:8080"
	DefaultLogLevel  = "info"
	DefaultPreset    = "default"
)

// Config is the root of ~/.gaze/config.json.
type Config struct {
	Addr      string `json:"addr,omitempty"`
	StaticDir string `json:"static_dir,omitempty"`
	LogLevel  string `json:"log_level,omitempty"`

	// DBPath enables the sqlite journal when set
	DBPath string `json:"db_path,omitempty"`

	// MQTTBroker enables event publishing when set
	MQTTBroker string `json:"mqtt_broker,omitempty"`
	MQTTTopic  string `json:"mqtt_topic,omitempty"`

	// Camera replaces the provider anchor with local face detection
	Camera       bool   `json:"camera,omitempty"`
	CameraDevice int    `json:"camera_device,omitempty"`
	ModelPath    string `json:"model_path,omitempty"`

	// Preset is default, precise or responsive
	Preset   string   `json:"preset,omitempty"`
	Pipeline Pipeline `json:"pipeline"`
}

// Pipeline overrides individual gaze.Config knobs. Nil fields keep the
// preset value.
type Pipeline struct {
	DwellMs              *int     `json:"dwell_ms,omitempty"`
	HitMargin            *float64 `json:"hit_margin,omitempty"`
	MovementTolerance    *float64 `json:"movement_tolerance,omitempty"`
	ExtraSmoothing       *bool    `json:"extra_smoothing,omitempty"`
	SmoothingAlpha       *float64 `json:"smoothing_alpha,omitempty"`
	HeadCompensationGain *float64 `json:"head_compensation_gain,omitempty"`
	CalibrationCycles    *int     `json:"calibration_cycles,omitempty"`
	RequireCalibration   *bool    `json:"require_calibration,omitempty"`
	MinSamples           *int     `json:"min_samples,omitempty"`
	WindowSize           *int     `json:"window_size,omitempty"`
	RecalibrationMs      *int     `json:"recalibration_ms,omitempty"`
	DiagnosticMs         *int     `json:"diagnostic_ms,omitempty"`
	AutoSampleMax        *int     `json:"auto_sample_max,omitempty"`
	ConfirmSampleCount   *int     `json:"confirm_sample_count,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:     DefaultAddr,
		LogLevel: DefaultLogLevel,
		Preset:   DefaultPreset,
	}
}

// Path returns the path to the config file.
func Path() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".gaze", "config.json")
}

// Load reads Path and applies environment overrides. A missing file yields
// the defaults.
func Load() (Config, error) {
	cfg, err := LoadFile(Path())
	if err != nil {
		return cfg, err
	}
	ApplyEnv(&cfg)
	return cfg, nil
}

// LoadFile reads one config file over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides cfg from GAZE_* variables.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("GAZE_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("GAZE_STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}
	if v := os.Getenv("GAZE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("GAZE_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("GAZE_MQTT_BROKER"); v != "" {
		cfg.MQTTBroker = v
	}
	if v := os.Getenv("GAZE_MQTT_TOPIC"); v != "" {
		cfg.MQTTTopic = v
	}
	if v := os.Getenv("GAZE_PRESET"); v != "" {
		cfg.Preset = v
	}
	if v := os.Getenv("GAZE_CAMERA"); v != "" {
		cfg.Camera = v != "false" && v != "0"
	}
	if v := os.Getenv("GAZE_DWELL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.DwellMs = &ms
		}
	}
}

// ServerURL returns the server URL from GAZE_SERVER_URL.
// Falls back to the provided default if not set.
func ServerURL(defaultURL string) string {
	if u := os.Getenv("GAZE_SERVER_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return defaultURL
}

// Preset returns the named gaze preset.
func Preset(name string) (gaze.Config, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return gaze.DefaultConfig(), nil
	case "precise":
		return gaze.PreciseConfig(), nil
	case "responsive":
		return gaze.ResponsiveConfig(), nil
	default:
		return gaze.Config{}, fmt.Errorf("%w: unknown preset %q", gaze.ErrInvalidConfig, name)
	}
}

// Gaze builds the validated pipeline configuration.
func (c Config) Gaze() (gaze.Config, error) {
	g, err := Preset(c.Preset)
	if err != nil {
		return g, err
	}

	p := c.Pipeline
	if p.DwellMs != nil {
		g.DwellTime = time.Duration(*p.DwellMs) * time.Millisecond
	}
	if p.HitMargin != nil {
		g.HitMargin = *p.HitMargin
	}
	if p.MovementTolerance != nil {
		g.MovementTolerance = *p.MovementTolerance
	}
	if p.ExtraSmoothing != nil {
		g.ExtraSmoothing = *p.ExtraSmoothing
	}
	if p.SmoothingAlpha != nil {
		g.SmoothingAlpha = *p.SmoothingAlpha
	}
	if p.HeadCompensationGain != nil {
		g.HeadCompensationGain = *p.HeadCompensationGain
	}
	if p.CalibrationCycles != nil {
		g.CalibrationCycles = *p.CalibrationCycles
	}
	if p.RequireCalibration != nil {
		g.RequireCalibration = *p.RequireCalibration
	}
	if p.MinSamples != nil {
		g.MinSamples = *p.MinSamples
	}
	if p.WindowSize != nil {
		g.WindowSize = *p.WindowSize
	}
	if p.RecalibrationMs != nil {
		g.RecalibrationInterval = time.Duration(*p.RecalibrationMs) * time.Millisecond
	}
	if p.DiagnosticMs != nil {
		g.DiagnosticInterval = time.Duration(*p.DiagnosticMs) * time.Millisecond
	}
	if p.AutoSampleMax != nil {
		g.AutoSampleMax = *p.AutoSampleMax
	}
	if p.ConfirmSampleCount != nil {
		g.ConfirmSampleCount = *p.ConfirmSampleCount
	}

	return g, g.Validate()
}
