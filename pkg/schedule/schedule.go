// Package schedule runs recurring work with cancellable handles.
//
// Real drives tasks from time.Ticker goroutines. Manual drives them from an
// explicit clock so sequencer and session behaviour can be tested without
// sleeping.
package schedule

import (
	"sort"
	"sync"
	"time"
)

// Task is a handle to recurring work. Stop is idempotent and safe to call
// from inside the task's own callback.
type Task interface {
	Stop()
}

// Scheduler starts recurring tasks.
type Scheduler interface {
	// Every calls fn every d until the returned task is stopped.
	Every(d time.Duration, fn func()) Task
	// Now returns the scheduler's current time.
	Now() time.Time
}

// Real is a Scheduler backed by the wall clock.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// Every starts a ticker goroutine calling fn every d.
func (Real) Every(d time.Duration, fn func()) Task {
	t := &realTask{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go t.run(fn)
	return t
}

type realTask struct {
	ticker *time.Ticker
	done   chan struct{}

	mu      sync.Mutex
	stopped bool
}

func (t *realTask) run(fn func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			t.mu.Lock()
			stopped := t.stopped
			t.mu.Unlock()
			if stopped {
				return
			}
			fn()
		}
	}
}

func (t *realTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	t.ticker.Stop()
	close(t.done)
}

// Manual is a Scheduler whose clock only moves when Advance is called.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*manualTask
	seq   int
}

// NewManual returns a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the manual clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Every registers fn to run every d of manual time.
func (m *Manual) Every(d time.Duration, fn func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{
		owner:  m,
		every:  d,
		next:   m.now.Add(d),
		fn:     fn,
		seq:    m.seq,
		active: true,
	}
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves the clock forward by d, running due callbacks in time order.
// Callbacks run without the scheduler lock held and may start or stop tasks.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.nextDue(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = t.next
		t.next = t.next.Add(t.every)
		fn := t.fn
		m.mu.Unlock()

		fn()
	}
}

// Pending returns the number of live tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if t.active {
			n++
		}
	}
	return n
}

// nextDue returns the earliest active task due at or before target.
// Caller holds m.mu.
func (m *Manual) nextDue(target time.Time) *manualTask {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if t.active {
			live = append(live, t)
		}
	}
	m.tasks = live

	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].next.Equal(m.tasks[j].next) {
			return m.tasks[i].seq < m.tasks[j].seq
		}
		return m.tasks[i].next.Before(m.tasks[j].next)
	})
	if len(m.tasks) == 0 || m.tasks[0].next.After(target) {
		return nil
	}
	return m.tasks[0]
}

type manualTask struct {
	owner  *Manual
	every  time.Duration
	next   time.Time
	fn     func()
	seq    int
	active bool
}

func (t *manualTask) Stop() {
	t.owner.mu.Lock()
	t.active = false
	t.owner.mu.Unlock()
}
