package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-gaze/internal/config"
	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/bridge"
	"github.com/teslashibe/go-gaze/pkg/detection"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/notify"
	"github.com/teslashibe/go-gaze/pkg/session"
	"github.com/teslashibe/go-gaze/pkg/store"
	"github.com/teslashibe/go-gaze/pkg/web"
)

func newServeCmd() *cobra.Command {
	var autoActivate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gaze server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
				log.Init(cfg.LogLevel)
			}
			if err := applyServeFlags(cmd, &cfg); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, autoActivate)
		},
	}

	f := cmd.Flags()
	f.String("addr", config.DefaultAddr, "Listen address")
	f.String("static", "", "Directory with the provider page")
	f.String("db", "", "Journal database path (empty disables the journal)")
	f.String("mqtt", "", "MQTT broker URL (empty disables publishing)")
	f.String("preset", config.DefaultPreset, "Pipeline preset: default, precise, responsive")
	f.Duration("dwell", 0, "Dwell time override, e.g. 1.5s")
	f.Int("cycles", 0, "Calibration cycles override")
	f.Bool("skip-calibration", false, "Start acquiring without calibrating")
	f.Bool("camera", false, "Use the local webcam for the head anchor")
	f.Int("camera-device", 0, "Video capture device id")
	f.String("model", detection.DefaultConfig().ModelPath, "YuNet model path")
	f.BoolVar(&autoActivate, "auto-activate", false, "Activate the session as soon as a provider is ready")

	return cmd
}

// applyServeFlags overlays explicitly set flags on the loaded config.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	str("addr", &cfg.Addr)
	str("static", &cfg.StaticDir)
	str("db", &cfg.DBPath)
	str("mqtt", &cfg.MQTTBroker)
	str("preset", &cfg.Preset)
	str("model", &cfg.ModelPath)

	if f.Changed("camera") {
		cfg.Camera, _ = f.GetBool("camera")
	}
	if f.Changed("camera-device") {
		cfg.CameraDevice, _ = f.GetInt("camera-device")
	}
	if f.Changed("dwell") {
		d, _ := f.GetDuration("dwell")
		ms := int(d / time.Millisecond)
		cfg.Pipeline.DwellMs = &ms
	}
	if f.Changed("cycles") {
		n, _ := f.GetInt("cycles")
		cfg.Pipeline.CalibrationCycles = &n
	}
	if skip, _ := f.GetBool("skip-calibration"); skip {
		off := false
		cfg.Pipeline.RequireCalibration = &off
	}
	if cfg.Addr == "" {
		return errors.New("listen address must not be empty")
	}
	return nil
}

func serve(parent context.Context, cfg config.Config, autoActivate bool) error {
	logger := log.With("component", "serve")

	gcfg, err := cfg.Gaze()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	events := hub.New("events")
	go events.Run(ctx)
	sinks := gaze.MultiSink{events}

	var journal web.Journal
	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer st.Close()
		sinks = append(sinks, st)
		journal = st
		logger.Info("journal enabled", "path", cfg.DBPath)
	}

	if cfg.MQTTBroker != "" {
		ncfg := notify.DefaultConfig()
		ncfg.Broker = cfg.MQTTBroker
		if cfg.MQTTTopic != "" {
			ncfg.TopicPrefix = cfg.MQTTTopic
		}
		pub, err := notify.Dial(ncfg)
		if err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}
		defer pub.Close()
		sinks = append(sinks, pub)
		logger.Info("mqtt publishing enabled", "broker", ncfg.Broker, "prefix", ncfg.TopicPrefix)
	}

	br := bridge.New()
	var provider gaze.Provider = br

	if cfg.Camera {
		dcfg := detection.DefaultConfig()
		if cfg.ModelPath != "" {
			dcfg.ModelPath = cfg.ModelPath
		}
		det, err := detection.NewYuNet(dcfg)
		if err != nil {
			return fmt.Errorf("camera anchor: %w", err)
		}
		defer det.Close()

		ccfg := detection.DefaultCameraConfig()
		ccfg.Device = cfg.CameraDevice
		anchor := detection.NewCameraAnchor(det, ccfg)
		go func() {
			if err := anchor.Run(ctx); err != nil {
				logger.Error("camera anchor stopped", "error", err)
			}
		}()
		provider = gaze.WithAnchor(br, anchor)
	}

	sess, err := session.New(session.Options{
		Config:   gcfg,
		Provider: provider,
		Sink:     sinks,
	})
	if err != nil {
		return err
	}
	defer sess.Close()
	br.Attach(sess)

	srv := web.NewServer(web.Options{
		Addr:      cfg.Addr,
		StaticDir: cfg.StaticDir,
		Session:   sess,
		Events:    events,
		Bridge:    br,
		Journal:   journal,
	})

	if autoActivate {
		go activateWhenReady(ctx, sess)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return srv.Shutdown()
}

// activateWhenReady polls until the provider page reports ready.
func activateWhenReady(ctx context.Context, sess *session.Session) {
	logger := log.With("component", "serve")
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := sess.Activate()
		if err == nil {
			logger.Info("session activated", "session", sess.ID())
			return
		}
		if !errors.Is(err, gaze.ErrProviderUnavailable) {
			logger.Warn("auto-activate failed", "error", err)
			return
		}
	}
}
