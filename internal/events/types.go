// Package events carries peck-board events from the controller to the
// status, metrics and MQTT consumers.
package events

import (
	"time"

	"github.com/sweeney/peckboard/internal/logic"
)

// Event type constants for kelindar/event.
const (
	TypePeck uint32 = iota + 1
	TypeState
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PeckEvent reports a committed LED color change.
type PeckEvent struct {
	Position logic.KeyPosition
	From     logic.LedColor
	To       logic.LedColor
	Count    int
	Time     time.Time
}

// Type returns the event type identifier for PeckEvent.
func (e PeckEvent) Type() uint32 { return TypePeck }

// StateEvent reports a controller lifecycle change.
type StateEvent struct {
	State string
	// Line is the chosen interrupt line, once known.
	Line string
	// Err is set when the controller failed.
	Err  string
	Time time.Time
}

// Type returns the event type identifier for StateEvent.
func (e StateEvent) Type() uint32 { return TypeState }
