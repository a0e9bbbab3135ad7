// Package session wires the gaze pipeline stages into one controller per
// user session: head-motion compensation, smoothing and target acquisition
// on every prediction, plus the calibration sequence and the recurring
// recalibration and diagnostic tasks.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/dwell"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/headmotion"
	"github.com/teslashibe/go-gaze/pkg/schedule"
	"github.com/teslashibe/go-gaze/pkg/smoothing"
)

// Default screen size used for the calibration plan until the UI reports
// its own.
const (
	DefaultScreenWidth  = 1920
	DefaultScreenHeight = 1080
)

// Options configures a Session.
type Options struct {
	Config   gaze.Config
	Provider gaze.Provider

	// Targets defaults to an empty registry.
	Targets *dwell.Registry

	// Scheduler defaults to schedule.Real. It is also the session clock.
	Scheduler schedule.Scheduler

	// Sink receives every event, stamped with the session id.
	Sink gaze.Sink

	ScreenWidth, ScreenHeight float64
}

// Session is the controller for one eye-tracking session. All methods are
// safe for concurrent use. Target activation callbacks run on the
// prediction goroutine and must not call back into the session.
type Session struct {
	cfg      gaze.Config
	provider gaze.Provider
	targets  *dwell.Registry
	sched    schedule.Scheduler
	sink     gaze.Sink
	logger   *slog.Logger
	calib    *calibration.Sequencer

	idMu sync.RWMutex
	id   string

	mu         sync.Mutex
	active     bool
	comp       *headmotion.Compensator
	smoother   *smoothing.Smoother
	acq        *dwell.Acquirer
	recal      schedule.Task
	diag       schedule.Task
	lastRaw    *gaze.Point
	lastRawAt  time.Time
	lastSP     *gaze.StabilizedPoint
	lastStable bool
}

// New creates an inactive session.
func New(opts Options) (*Session, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	if opts.Targets == nil {
		opts.Targets = dwell.NewRegistry()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.Real{}
	}
	if opts.Sink == nil {
		opts.Sink = gaze.Discard
	}
	if opts.ScreenWidth <= 0 || opts.ScreenHeight <= 0 {
		opts.ScreenWidth, opts.ScreenHeight = DefaultScreenWidth, DefaultScreenHeight
	}

	s := &Session{
		cfg:      opts.Config,
		provider: opts.Provider,
		targets:  opts.Targets,
		sched:    opts.Scheduler,
		sink:     opts.Sink,
		logger:   log.With("component", "session"),
		comp:     headmotion.New(opts.Config),
		smoother: smoothing.New(opts.Config),
		acq:      dwell.New(opts.Config, opts.Targets),
	}

	var trainer gaze.Trainer = noTrainer{}
	if opts.Provider != nil {
		trainer = opts.Provider
	}
	plan := calibration.NewPlan(opts.ScreenWidth, opts.ScreenHeight, opts.Config.CalibrationCycles)
	s.calib = calibration.New(opts.Config, plan, trainer, opts.Scheduler, gaze.SinkFunc(s.publishOne))
	return s, nil
}

// ID returns the id of the current or most recent activation.
func (s *Session) ID() string {
	s.idMu.RLock()
	defer s.idMu.RUnlock()
	return s.id
}

// Config returns the pipeline configuration.
func (s *Session) Config() gaze.Config {
	return s.cfg
}

// Targets returns the target registry. Call Revalidate after changing it.
func (s *Session) Targets() *dwell.Registry {
	return s.targets
}

// Calibration returns the calibration sequencer.
func (s *Session) Calibration() *calibration.Sequencer {
	return s.calib
}

// CalibrationProgress returns the calibration rendering snapshot.
func (s *Session) CalibrationProgress() gaze.CalibrationProgress {
	return s.calib.Progress()
}

// Active reports whether the session is processing predictions.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Ready reports whether target acquisition is enabled: calibration has
// completed, or is not required.
func (s *Session) Ready() bool {
	return !s.cfg.RequireCalibration || s.calib.Complete()
}

// Activate starts processing predictions and the recurring tasks. It
// returns gaze.ErrProviderUnavailable when the provider is missing or not
// loaded. Activating an active session is a no-op.
func (s *Session) Activate() error {
	if s.provider == nil || !s.provider.Available() {
		s.logger.Warn("activation refused", "error", gaze.ErrProviderUnavailable)
		return gaze.ErrProviderUnavailable
	}

	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil
	}
	s.idMu.Lock()
	s.id = uuid.New().String()
	s.idMu.Unlock()

	s.active = true
	s.recal = s.sched.Every(s.cfg.RecalibrationInterval, s.recalibrate)
	s.diag = s.sched.Every(s.cfg.DiagnosticInterval, s.diagnose)
	now := s.sched.Now()
	s.mu.Unlock()

	s.logger.Info("session activated", "session", s.ID(), "ready", s.Ready())
	s.publishOne(gaze.Event{Kind: gaze.EventSessionActive, Time: now})

	progress := s.calib.Progress()
	s.publishOne(gaze.Event{Kind: gaze.EventCalibrationProgress, Time: now, Calibration: &progress})
	return nil
}

// Deactivate stops the recurring tasks and clears the sample window, the
// stabilized state and any dwell in progress. The nose reference and the
// calibration progress are kept.
func (s *Session) Deactivate() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return gaze.ErrNotActive
	}
	s.active = false
	s.stopTasksLocked()

	now := s.sched.Now()
	events := s.acq.Reset(now)
	s.smoother.Reset()
	s.lastRaw = nil
	s.lastSP = nil
	s.lastStable = false
	s.mu.Unlock()

	s.calib.HoverExit()

	s.logger.Info("session deactivated", "session", s.ID())
	s.publish(append(events, gaze.Event{Kind: gaze.EventSessionInactive, Time: now}))
	return nil
}

// Close deactivates the session and tears down the calibration sequence.
func (s *Session) Close() {
	_ = s.Deactivate()
	s.calib.Stop()
}

// HandlePrediction runs one tick of the pipeline. Nil and non-finite
// predictions are ignored, as is everything while inactive.
func (s *Session) HandlePrediction(raw *gaze.Point) {
	if raw == nil || !raw.Valid() {
		return
	}
	ready := s.Ready()

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	now := s.sched.Now()
	var events []gaze.Event

	// EMA first, so head compensation applies in full on the tick the head
	// moves.
	smoothed := s.smoother.Smooth(*raw)

	anchor, ok := s.provider.Anchor()
	_, hadRef := s.comp.Reference()
	p := s.comp.Compensate(smoothed, anchor, ok, now)
	if ref, hasRef := s.comp.Reference(); hasRef && !hadRef {
		s.logger.Info("nose reference set", "x", ref.X, "y", ref.Y)
		events = append(events, gaze.Event{Kind: gaze.EventReferenceSet, Time: now, Point: &ref})
	}

	r := *raw
	s.lastRaw = &r
	s.lastRawAt = now

	sp, have := s.smoother.Add(p, now)
	if have {
		s.lastSP = &sp
		s.lastStable = s.smoother.IsStable(sp)
	}

	if ready {
		events = append(events, s.acq.Revalidate(now)...)
		if have {
			events = append(events, s.acq.Process(sp, s.lastStable, now)...)
		}
	} else {
		// A dwell never spans a calibration run
		events = append(events, s.acq.Reset(now)...)
	}
	s.mu.Unlock()

	s.publish(events)
}

// HandlePointer forwards UI pointer input to the calibration sequence.
func (s *Session) HandlePointer(action gaze.SampleKind, x, y float64) {
	switch action {
	case gaze.SampleMove:
		s.calib.PointerMove(x, y)
	case gaze.SampleClick:
		s.calib.Click(x, y)
	}
}

// SetScreen restarts calibration for a new screen size. Any dwell in
// progress is discarded.
func (s *Session) SetScreen(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	s.mu.Lock()
	events := s.acq.Reset(s.sched.Now())
	s.mu.Unlock()

	s.calib.Restart(width, height)
	s.publish(events)
}

// Revalidate drops the current dwell if its target is no longer
// selectable. Call it after every registry change.
func (s *Session) Revalidate() {
	s.mu.Lock()
	events := s.acq.Revalidate(s.sched.Now())
	s.mu.Unlock()
	s.publish(events)
}

// ResetHead clears the nose reference so the next steady run of anchor
// observations establishes a new one.
func (s *Session) ResetHead() {
	s.mu.Lock()
	s.comp.Reset()
	now := s.sched.Now()
	s.mu.Unlock()

	s.logger.Info("nose reference reset")
	s.publishOne(gaze.Event{Kind: gaze.EventReferenceReset, Time: now})
}

// Status returns the current diagnostic snapshot.
func (s *Session) Status() gaze.Status {
	ready := s.Ready()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked(s.sched.Now(), ready)
}

func (s *Session) statusLocked(now time.Time, ready bool) gaze.Status {
	st := gaze.Status{
		Active:        s.active,
		Ready:         ready,
		Stable:        s.lastStable,
		DwellProgress: s.acq.Progress(),
	}
	if s.lastRaw != nil {
		p := *s.lastRaw
		st.LastPrediction = &p
		st.FaceDetected = now.Sub(s.lastRawAt) < 2*s.cfg.DiagnosticInterval
	}
	if s.lastSP != nil {
		sp := *s.lastSP
		st.Stabilized = &sp
	}
	if ref, ok := s.comp.Reference(); ok {
		st.Reference = &ref
	}
	if t, ok := s.acq.Current(); ok {
		st.DwellTarget = t.ID()
	}
	return st
}

// recalibrate runs on the recalibration interval.
func (s *Session) recalibrate() {
	if !s.Active() {
		return
	}
	if err := s.provider.Refresh(); err != nil {
		s.logger.Warn("provider refresh failed", "error", err)
	}
}

// diagnose runs on the diagnostic interval.
func (s *Session) diagnose() {
	ready := s.Ready()
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	now := s.sched.Now()
	st := s.statusLocked(now, ready)
	s.mu.Unlock()

	if !st.FaceDetected {
		s.logger.Debug("no recent prediction")
	}
	s.publishOne(gaze.Event{Kind: gaze.EventStatus, Time: now, Status: &st})
}

func (s *Session) stopTasksLocked() {
	if s.recal != nil {
		s.recal.Stop()
		s.recal = nil
	}
	if s.diag != nil {
		s.diag.Stop()
		s.diag = nil
	}
}

func (s *Session) publish(events []gaze.Event) {
	for _, e := range events {
		s.publishOne(e)
	}
}

func (s *Session) publishOne(e gaze.Event) {
	e.SessionID = s.ID()
	s.sink.Publish(e)
}

// noTrainer stands in when the session has no provider; calibration samples
// are rejected.
type noTrainer struct{}

func (noTrainer) Record(float64, float64, gaze.SampleKind) error {
	return gaze.ErrProviderUnavailable
}
