package dwell

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// State of the acquisition state machine. Activation is transient: the
// machine returns to Idle in the same call that fires it.
type State int

const (
	Idle State = iota
	Tracking
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Tracking:
		return "TRACKING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// TargetSource lists the candidate targets. *Registry implements it.
type TargetSource interface {
	Targets() []Target
}

// Acquirer owns the single DwellState of a session. It is not safe for
// concurrent use; the owning session serialises calls.
type Acquirer struct {
	dwell   time.Duration
	margin  float64
	targets TargetSource
	logger  *slog.Logger

	// DwellState
	current  Target
	start    time.Time
	progress float64
}

// New creates an acquirer reading candidates from targets.
func New(cfg gaze.Config, targets TargetSource) *Acquirer {
	return &Acquirer{
		dwell:   cfg.DwellTime,
		margin:  cfg.HitMargin,
		targets: targets,
		logger:  log.With("component", "dwell"),
	}
}

// State returns Idle or Tracking.
func (a *Acquirer) State() State {
	if a.current == nil {
		return Idle
	}
	return Tracking
}

// Current returns the target being dwelt upon.
func (a *Acquirer) Current() (Target, bool) {
	return a.current, a.current != nil
}

// Progress returns the dwell progress in [0, 1] for visual feedback.
func (a *Acquirer) Progress() float64 {
	return a.progress
}

// Process advances the state machine with one stabilized point.
// Unstable points and misses reset to Idle; partial progress is discarded.
func (a *Acquirer) Process(sp gaze.StabilizedPoint, stable bool, now time.Time) []gaze.Event {
	if !stable {
		return a.reset(now)
	}
	p := sp.Point()
	if !p.Valid() {
		return nil
	}

	selected := a.hitTest(p)
	if selected == nil {
		return a.reset(now)
	}

	if a.current != nil && selected.ID() == a.current.ID() {
		return a.advance(selected, p, now)
	}

	events := a.reset(now)
	a.current = selected
	a.start = now
	a.progress = 0
	a.logger.Debug("dwell started", "target", selected.ID(), "x", p.X, "y", p.Y)

	return append(events, gaze.Event{
		Kind:     gaze.EventDwellStart,
		Time:     now,
		TargetID: selected.ID(),
		Point:    &p,
	})
}

func (a *Acquirer) advance(t Target, p gaze.Point, now time.Time) []gaze.Event {
	elapsed := now.Sub(a.start)
	a.progress = math.Min(1, float64(elapsed)/float64(a.dwell))

	if elapsed < a.dwell {
		return []gaze.Event{{
			Kind:     gaze.EventDwellProgress,
			Time:     now,
			TargetID: t.ID(),
			Progress: a.progress,
			Elapsed:  elapsed,
			Point:    &p,
		}}
	}

	ev := gaze.Event{
		Kind:     gaze.EventActivated,
		Time:     now,
		TargetID: t.ID(),
		Progress: 1,
		Elapsed:  elapsed,
		Point:    &p,
	}
	if err := t.Activate(); err != nil {
		a.logger.Warn("activation callback failed", "target", t.ID(), "error", err)
		ev.Error = err.Error()
	} else {
		a.logger.Info("target activated", "target", t.ID(), "elapsed", elapsed)
	}

	a.clear()
	return []gaze.Event{ev}
}

// hitTest returns the selectable target whose padded rectangle contains p
// and whose centre is closest to p.
func (a *Acquirer) hitTest(p gaze.Point) Target {
	var best Target
	bestDist := math.Inf(1)

	for _, t := range a.targets.Targets() {
		if !selectable(t) {
			continue
		}
		r := t.Rect()
		if !r.Expand(a.margin).Contains(p) {
			continue
		}
		if d := p.Distance(r.Center()); d < bestDist {
			bestDist = d
			best = t
		}
	}
	return best
}

// Revalidate drops the current dwell if its target was hidden, disabled or
// removed. It is called on every tick and after every registry change.
func (a *Acquirer) Revalidate(now time.Time) []gaze.Event {
	if a.current == nil {
		return nil
	}
	for _, t := range a.targets.Targets() {
		if t.ID() == a.current.ID() && selectable(t) {
			return nil
		}
	}
	a.logger.Debug("dwell target no longer selectable", "target", a.current.ID())
	return a.reset(now)
}

// Reset returns to Idle, discarding progress.
func (a *Acquirer) Reset(now time.Time) []gaze.Event {
	return a.reset(now)
}

func (a *Acquirer) reset(now time.Time) []gaze.Event {
	if a.current == nil {
		return nil
	}
	ev := gaze.Event{
		Kind:     gaze.EventDwellReset,
		Time:     now,
		TargetID: a.current.ID(),
	}
	a.clear()
	return []gaze.Event{ev}
}

func (a *Acquirer) clear() {
	a.current = nil
	a.start = time.Time{}
	a.progress = 0
}
