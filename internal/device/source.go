package device

import (
	"strings"
	"time"
)

// Handle is a class-specific reference to one device as delivered by the
// OS layer. Name may fail for stale or closed handles.
type Handle interface {
	ID() ID
	Name() (string, error)
}

// Kind describes what a notification says about its handles.
type Kind int

const (
	// Added carries handles of devices that appeared.
	Added Kind = iota
	// Removed carries handles of devices that went away.
	Removed
	// Changed says the device list changed without saying how. It carries
	// no handles; the receiver must re-enumerate.
	Changed
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Changed:
		return "changed"
	default:
		return "unknown"
	}
}

// Notification is one native delivery from a Source.
type Notification struct {
	Kind    Kind
	Handles []Handle
}

// Handler receives notifications. It is invoked on the goroutine that
// drives the Pump.
type Handler func(Notification)

// Token identifies a subscription.
type Token uint64

// Source is the subscribe/unsubscribe capability of one device class.
//
// Enumerate returns the devices currently present. Subscribe registers h;
// notifications are only delivered from inside Pump.
type Source interface {
	Class() Class
	Enumerate() ([]Handle, error)
	Subscribe(h Handler) (Token, error)
	Unsubscribe(t Token) error
}

// Pump runs the OS event delivery mechanism for at most slice and returns.
type Pump interface {
	Pump(slice time.Duration) error
}

// Resolve returns the display name of h, or the class fallback when the
// handle is nil, the query fails, or the name is blank. It never fails.
func Resolve(class Class, h Handle) string {
	name, ok := TryResolve(h)
	if !ok {
		return class.Fallback()
	}
	return name
}

// TryResolve is Resolve without the fallback substitution.
func TryResolve(h Handle) (string, bool) {
	if h == nil {
		return "", false
	}
	name, err := h.Name()
	if err != nil {
		return "", false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	return name, true
}

// StaticHandle is a Handle whose name was resolved up front.
type StaticHandle struct {
	DeviceID   ID
	DeviceName string
	Err        error
}

// ID returns the device id.
func (h StaticHandle) ID() ID { return h.DeviceID }

// Name returns the stored name or error.
func (h StaticHandle) Name() (string, error) { return h.DeviceName, h.Err }
