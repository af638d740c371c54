// Package device holds the class-scoped identity model shared by the
// presence watchers: device classes, identifiers, the per-class identity
// cache, the membership diff and the name resolution contract.
//
// Nothing in this package touches the operating system. The OS layer
// (internal/hardware) implements Source and Pump; the watchers in
// internal/presence consume them.
package device

import (
	"fmt"
	"strings"
	"time"
)

// Class is one of the watched device categories. Each class has its own
// identifier space.
type Class int

const (
	// ClassPeripheral covers removable USB peripherals.
	ClassPeripheral Class = iota
	// ClassAudio covers CoreAudio endpoints.
	ClassAudio
	// ClassDisplay covers attached displays.
	ClassDisplay
)

// Classes lists every class in menu order.
var Classes = []Class{ClassPeripheral, ClassAudio, ClassDisplay}

// String returns the menu name of the class.
func (c Class) String() string {
	switch c {
	case ClassPeripheral:
		return "peripheral"
	case ClassAudio:
		return "audio"
	case ClassDisplay:
		return "display"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Label returns the name used in rendered event lines.
func (c Class) Label() string {
	switch c {
	case ClassPeripheral:
		return "USB"
	case ClassAudio:
		return "Audio"
	case ClassDisplay:
		return "Display"
	default:
		return "Unknown"
	}
}

// Fallback returns the sentinel name substituted when a device of this
// class cannot be resolved.
func (c Class) Fallback() string {
	switch c {
	case ClassPeripheral:
		return "Unknown USB Device"
	case ClassAudio:
		return "Unknown Audio Device"
	case ClassDisplay:
		return "Unknown Display"
	default:
		return "Unknown Device"
	}
}

// ParseClass maps a menu name to a Class. "usb" is accepted as an alias
// for the peripheral class.
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "peripheral", "peripherals", "usb":
		return ClassPeripheral, nil
	case "audio":
		return ClassAudio, nil
	case "display", "displays":
		return ClassDisplay, nil
	default:
		return 0, fmt.Errorf("unknown device class: %q", s)
	}
}

// ID is an opaque class-scoped device identifier. IDs from different
// classes must never be compared.
type ID uint64

// Record is a device believed present. Records are never mutated; a
// renamed device is a remove followed by an add.
type Record struct {
	ID   ID
	Name string
}

// Direction is the kind of presence transition.
type Direction int

const (
	Connected Direction = iota
	Disconnected
)

// String returns the verb used in rendered event lines.
func (d Direction) String() string {
	if d == Disconnected {
		return "disconnected"
	}
	return "connected"
}

// Sign returns "+" or "-".
func (d Direction) Sign() string {
	if d == Disconnected {
		return "-"
	}
	return "+"
}

// DefaultTimeLayout is the timestamp layout of rendered event lines.
const DefaultTimeLayout = "2006-01-02 15:04:05"

// Event is a single presence transition. Events are rendered immediately
// and never stored.
type Event struct {
	Time      time.Time
	Class     Class
	Direction Direction
	Name      string
}

// Line renders the event as
// "<timestamp> [+|-] <Class> device: <name> <connected|disconnected>".
// An empty layout selects DefaultTimeLayout.
func (e Event) Line(layout string) string {
	if layout == "" {
		layout = DefaultTimeLayout
	}
	return fmt.Sprintf("%s [%s] %s device: %s %s",
		e.Time.Format(layout), e.Direction.Sign(), e.Class.Label(), e.Name, e.Direction)
}
