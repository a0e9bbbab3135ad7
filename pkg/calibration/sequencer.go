package calibration

import (
	"log/slog"
	"sync"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/schedule"
)

// Sequencer shows one calibration point at a time. Hovering the active
// point records samples on a fixed interval; confirming it advances to the
// next. It is safe for concurrent use: pointer events and the sampling
// timer arrive on different goroutines.
type Sequencer struct {
	cfg     gaze.Config
	trainer gaze.Trainer
	sched   schedule.Scheduler
	sink    gaze.Sink
	logger  *slog.Logger

	mu       sync.Mutex
	plan     []Point
	index    int
	state    gaze.PointState
	samples  int // hover samples for the active point, reset on exit
	recorded int // all samples recorded for the active point
	hovering bool
	task     schedule.Task
	gen      int
	stopped  bool
}

// New creates a sequencer for plan. A nil sink discards events.
func New(cfg gaze.Config, plan []Point, trainer gaze.Trainer, sched schedule.Scheduler, sink gaze.Sink) *Sequencer {
	if sink == nil {
		sink = gaze.Discard
	}
	return &Sequencer{
		cfg:     cfg,
		trainer: trainer,
		sched:   sched,
		sink:    sink,
		logger:  log.With("component", "calibration"),
		plan:    plan,
		state:   gaze.PointPending,
	}
}

// Active returns the point currently shown.
func (s *Sequencer) Active() (Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeLocked() {
		return Point{}, false
	}
	return s.plan[s.index], true
}

// Complete reports whether every point has been confirmed.
func (s *Sequencer) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeLocked()
}

// Progress returns the rendering snapshot.
func (s *Sequencer) Progress() gaze.CalibrationProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

// HoverEnter starts sampling the active point.
func (s *Sequencer) HoverEnter() {
	s.mu.Lock()
	events := s.enterLocked()
	s.mu.Unlock()
	s.publish(events)
}

// HoverExit cancels sampling. Samples already recorded stay with the
// provider; the hover counter restarts on the next entry.
func (s *Sequencer) HoverExit() {
	s.mu.Lock()
	events := s.exitLocked()
	s.mu.Unlock()
	s.publish(events)
}

// Confirm records the click samples if hovering did not reach the maximum,
// then advances. It returns false when there is nothing to confirm.
func (s *Sequencer) Confirm() bool {
	s.mu.Lock()
	events, ok := s.confirmLocked()
	s.mu.Unlock()
	s.publish(events)
	return ok
}

// PointerMove derives hover enter and exit from the pointer position and
// the active point's rectangle.
func (s *Sequencer) PointerMove(x, y float64) {
	s.mu.Lock()
	var events []gaze.Event
	inside := s.insideLocked(gaze.Point{X: x, Y: y})
	switch {
	case inside && !s.hovering:
		events = s.enterLocked()
	case !inside && s.hovering:
		events = s.exitLocked()
	}
	s.mu.Unlock()
	s.publish(events)
}

// Click confirms the active point when (x, y) falls on it.
func (s *Sequencer) Click(x, y float64) bool {
	s.mu.Lock()
	if !s.insideLocked(gaze.Point{X: x, Y: y}) {
		s.mu.Unlock()
		return false
	}
	events, ok := s.confirmLocked()
	s.mu.Unlock()
	s.publish(events)
	return ok
}

// Restart discards progress and rebuilds the plan for a new screen size.
func (s *Sequencer) Restart(width, height float64) {
	s.mu.Lock()
	s.cancelLocked()
	s.plan = NewPlan(width, height, s.cfg.CalibrationCycles)
	s.index = 0
	s.resetPointLocked()
	s.stopped = false
	ev := s.progressEventLocked()
	s.mu.Unlock()

	s.logger.Info("calibration restarted", "width", width, "height", height, "points", len(s.plan))
	s.publish([]gaze.Event{ev})
}

// Stop tears the sequence down. Timers are cancelled and further pointer
// events are ignored until Restart.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.hovering = false
	s.stopped = true
}

func (s *Sequencer) completeLocked() bool {
	return s.index >= len(s.plan)
}

func (s *Sequencer) idleLocked() bool {
	return s.stopped || s.completeLocked()
}

func (s *Sequencer) insideLocked(p gaze.Point) bool {
	if s.idleLocked() {
		return false
	}
	return gaze.RectAround(s.plan[s.index].Position, s.cfg.PointSize).Contains(p)
}

func (s *Sequencer) enterLocked() []gaze.Event {
	if s.idleLocked() || s.hovering {
		return nil
	}
	s.hovering = true
	s.samples = 0
	s.state = gaze.PointSampling

	s.gen++
	gen := s.gen
	s.task = s.sched.Every(s.cfg.AutoSampleInterval, func() { s.tick(gen) })

	return []gaze.Event{s.progressEventLocked()}
}

func (s *Sequencer) exitLocked() []gaze.Event {
	if s.idleLocked() || !s.hovering {
		return nil
	}
	s.cancelLocked()
	s.hovering = false
	s.samples = 0
	s.state = gaze.PointPending
	return []gaze.Event{s.progressEventLocked()}
}

// tick runs on the sampling timer. A tick from a cancelled generation is
// dropped.
func (s *Sequencer) tick(gen int) {
	s.mu.Lock()
	if gen != s.gen || s.task == nil || s.idleLocked() || s.state != gaze.PointSampling {
		s.mu.Unlock()
		return
	}

	p := s.plan[s.index]
	if !s.recordLocked(p, gaze.SampleMove) {
		s.mu.Unlock()
		return
	}
	s.samples++

	events := []gaze.Event{s.sampleEventLocked(p, gaze.SampleMove)}
	if s.samples >= s.cfg.AutoSampleMax {
		s.cancelLocked()
		s.state = gaze.PointSampled
		s.logger.Debug("point sampled", "point", p.Name, "index", p.Index)
	}
	events = append(events, s.progressEventLocked())
	s.mu.Unlock()

	s.publish(events)
}

func (s *Sequencer) confirmLocked() ([]gaze.Event, bool) {
	if s.idleLocked() {
		return nil, false
	}
	s.cancelLocked()

	p := s.plan[s.index]
	var events []gaze.Event
	if s.samples < s.cfg.AutoSampleMax {
		for i := 0; i < s.cfg.ConfirmSampleCount; i++ {
			if s.recordLocked(p, gaze.SampleClick) {
				events = append(events, s.sampleEventLocked(p, gaze.SampleClick))
			}
		}
	}
	s.state = gaze.PointConfirmed
	events = append(events, s.progressEventLocked())
	s.logger.Debug("point confirmed", "point", p.Name, "index", p.Index, "recorded", s.recorded)

	s.index++
	s.resetPointLocked()

	if s.completeLocked() {
		s.logger.Info("calibration complete", "points", len(s.plan))
		ev := s.progressEventLocked()
		ev.Kind = gaze.EventCalibrationComplete
		return append(events, ev), true
	}
	return append(events, s.progressEventLocked()), true
}

// recordLocked sends one sample to the trainer. Failures are logged and
// not counted.
func (s *Sequencer) recordLocked(p Point, kind gaze.SampleKind) bool {
	if err := s.trainer.Record(p.Position.X, p.Position.Y, kind); err != nil {
		s.logger.Warn("calibration sample rejected", "point", p.Name, "kind", kind, "error", err)
		return false
	}
	s.recorded++
	return true
}

func (s *Sequencer) cancelLocked() {
	if s.task != nil {
		s.task.Stop()
		s.task = nil
	}
	s.gen++
}

func (s *Sequencer) resetPointLocked() {
	s.state = gaze.PointPending
	s.samples = 0
	s.recorded = 0
	s.hovering = false
}

func (s *Sequencer) progressLocked() gaze.CalibrationProgress {
	total := len(s.plan)
	cp := gaze.CalibrationProgress{
		CurrentIndex: s.index,
		TotalPoints:  total,
		TotalCycles:  s.cfg.CalibrationCycles,
		SampleMax:    s.cfg.AutoSampleMax,
		Complete:     s.completeLocked(),
	}
	if cp.Complete {
		cp.CurrentCycle = cp.TotalCycles
		return cp
	}
	p := s.plan[s.index]
	cp.CurrentCycle = p.Cycle + 1
	cp.Name = p.Name
	cp.Position = p.Position
	cp.State = s.state
	cp.Samples = s.samples
	return cp
}

func (s *Sequencer) progressEventLocked() gaze.Event {
	cp := s.progressLocked()
	return gaze.Event{
		Kind:        gaze.EventCalibrationProgress,
		Time:        s.sched.Now(),
		Calibration: &cp,
	}
}

func (s *Sequencer) sampleEventLocked(p Point, kind gaze.SampleKind) gaze.Event {
	pos := p.Position
	return gaze.Event{
		Kind:   gaze.EventCalibrationSample,
		Time:   s.sched.Now(),
		Point:  &pos,
		Sample: kind,
	}
}

func (s *Sequencer) publish(events []gaze.Event) {
	for _, e := range events {
		s.sink.Publish(e)
	}
}
