// Package hardware is the OS device layer: it enumerates devices of one
// class and delivers add/remove/change notifications through a run loop
// pump.
//
// On macOS with cgo, USB peripherals come from IOKit matching
// notifications, audio endpoints from the CoreAudio device list listener
// and displays from the CoreGraphics reconfiguration callback. All
// notifications are delivered from inside Backend.Pump on the goroutine
// that subscribed, which must stay locked to its OS thread.
//
// Other platforms get a Backend whose operations return ErrUnsupported.
// Fake is a scripted in-memory backend for tests.
package hardware

import "errors"

var (
	// ErrUnsupported is returned when device notifications are not
	// available on this platform or build.
	ErrUnsupported = errors.New("hardware: device notifications are not supported on this platform")

	// ErrSubscribe wraps OS failures while installing a notification
	// source.
	ErrSubscribe = errors.New("hardware: subscribe failed")

	// ErrUnknownToken is returned by Unsubscribe for a token it did not
	// issue or already released.
	ErrUnknownToken = errors.New("hardware: unknown subscription token")

	errNoName = errors.New("hardware: device has no name property")
)
