// Package dwell implements look-to-select: it hit-tests the stabilized gaze
// point against interactive targets and activates a target once gaze has
// rested on it for the dwell time.
package dwell

import (
	"sync"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// Target is an interactive element owned by the UI collaborator. The
// acquirer only reads its geometry and flags and calls Activate.
type Target interface {
	ID() string
	Rect() gaze.Rect
	Visible() bool
	Enabled() bool
	Activate() error
}

// StaticTarget is a Target backed by plain fields. It is safe for
// concurrent use so the UI side can update it while the pipeline reads it.
type StaticTarget struct {
	id string

	mu         sync.RWMutex
	rect       gaze.Rect
	visible    bool
	enabled    bool
	onActivate func() error
}

// NewStaticTarget creates a visible, enabled target.
func NewStaticTarget(id string, rect gaze.Rect, onActivate func() error) *StaticTarget {
	return &StaticTarget{
		id:         id,
		rect:       rect,
		visible:    true,
		enabled:    true,
		onActivate: onActivate,
	}
}

func (t *StaticTarget) ID() string { return t.id }

func (t *StaticTarget) Rect() gaze.Rect {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rect
}

func (t *StaticTarget) Visible() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.visible
}

func (t *StaticTarget) Enabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Activate calls the activation callback, if any.
func (t *StaticTarget) Activate() error {
	t.mu.RLock()
	fn := t.onActivate
	t.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn()
}

// SetRect moves or resizes the target.
func (t *StaticTarget) SetRect(r gaze.Rect) {
	t.mu.Lock()
	t.rect = r
	t.mu.Unlock()
}

// SetVisible shows or hides the target.
func (t *StaticTarget) SetVisible(v bool) {
	t.mu.Lock()
	t.visible = v
	t.mu.Unlock()
}

// SetEnabled enables or disables the target.
func (t *StaticTarget) SetEnabled(v bool) {
	t.mu.Lock()
	t.enabled = v
	t.mu.Unlock()
}

// SetOnActivate replaces the activation callback.
func (t *StaticTarget) SetOnActivate(fn func() error) {
	t.mu.Lock()
	t.onActivate = fn
	t.mu.Unlock()
}

// selectable reports whether t may be hit-tested and activated.
func selectable(t Target) bool {
	return t != nil && t.Visible() && t.Enabled()
}
