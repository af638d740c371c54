//go:build !darwin || !cgo

package hardware

import (
	"log/slog"
	"time"

	"macstat/internal/device"
)

// Backend is unavailable on this platform.
type Backend struct{}

// Open returns ErrUnsupported.
func Open(logger *slog.Logger) (*Backend, error) {
	return nil, ErrUnsupported
}

// Source returns ErrUnsupported.
func (b *Backend) Source(class device.Class) (device.Source, error) {
	return nil, ErrUnsupported
}

// Pump returns ErrUnsupported.
func (b *Backend) Pump(slice time.Duration) error {
	return ErrUnsupported
}
