// Package selection tracks which background is focused in the thumbnail
// strip and which one is composited behind the user.
//
// Slot 0 of the catalog is the live feed; custom backgrounds occupy slots
// 1..count. The machine is Live while the active slot is 0 and Active
// otherwise. Swipes only move the focus while Active, so the first Select
// always activates slot 1.
package selection

import (
	"errors"
	"fmt"

	"github.com/ayusman/backdrop/internal/gesture"
)

// ErrEmptyCatalog is returned when a machine is built without any custom
// background to select.
var ErrEmptyCatalog = errors.New("catalog has no custom backgrounds")

// Snapshot is a read-only copy of the selection state.
type Snapshot struct {
	Focus  int  `json:"focus"`
	Active int  `json:"active"`
	Count  int  `json:"count"`
	Live   bool `json:"live"`
}

// Transition describes the effect of one applied event.
type Transition struct {
	Event   gesture.Event
	Before  Snapshot
	After   Snapshot
	Message string
}

// Changed reports whether the event moved the focus or the active slot.
func (t Transition) Changed() bool {
	return t.Before != t.After
}

// Machine is the selection state machine. It is not safe for concurrent use.
type Machine struct {
	focus  int
	active int
	count  int
}

// New creates a machine over count custom backgrounds, focused on slot 1
// with the live feed active.
func New(count int) (*Machine, error) {
	if count < 1 {
		return nil, ErrEmptyCatalog
	}
	return &Machine{focus: 1, active: 0, count: count}, nil
}

// Focus returns the focused slot (1..count).
func (m *Machine) Focus() int { return m.focus }

// Active returns the composited slot (0 = live feed).
func (m *Machine) Active() int { return m.active }

// Count returns the number of custom backgrounds.
func (m *Machine) Count() int { return m.count }

// Live reports whether the live feed is shown unmodified.
func (m *Machine) Live() bool { return m.active == 0 }

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		Focus:  m.focus,
		Active: m.active,
		Count:  m.count,
		Live:   m.Live(),
	}
}

// Apply feeds one gesture event into the machine.
func (m *Machine) Apply(e gesture.Event) Transition {
	t := Transition{Event: e, Before: m.Snapshot()}

	switch e {
	case gesture.SwipeLeft:
		if !m.Live() {
			m.focus = (m.focus % m.count) + 1
			t.Message = fmt.Sprintf("SWIPE LEFT: focus %d", m.focus)
		}
	case gesture.SwipeRight:
		if !m.Live() {
			m.focus = ((m.focus - 2 + m.count) % m.count) + 1
			t.Message = fmt.Sprintf("SWIPE RIGHT: focus %d", m.focus)
		}
	case gesture.Select:
		// Same effect from both states; only the message differs.
		if m.Live() {
			t.Message = fmt.Sprintf("SELECT: toggled on, active background %d", m.focus)
		} else {
			t.Message = fmt.Sprintf("SELECT: confirmed active background %d", m.focus)
		}
		m.active = m.focus
	}

	t.After = m.Snapshot()
	return t
}
