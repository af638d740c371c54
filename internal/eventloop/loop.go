// Package eventloop drives OS event delivery and keyboard cancellation on a
// single goroutine.
//
// Each iteration runs the OS delivery mechanism for a bounded slice, then
// performs one non-blocking key read. Callbacks registered with the OS
// therefore only ever run on the loop goroutine, and cancellation takes
// effect at the next iteration boundary.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"macstat/internal/device"
	"macstat/internal/logging"
)

// ErrNotRegistered is returned by Run when no session is supplied.
var ErrNotRegistered = errors.New("eventloop: no session registered")

// DefaultSlice is the pump slice used when Config.Slice is zero.
const DefaultSlice = 200 * time.Millisecond

// Session is the unit of work the loop drives. Register subscribes OS
// sources and takes the initial baseline, Activate marks the start of
// event delivery, Cancel unsubscribes.
type Session interface {
	Register() error
	Activate()
	Cancel() error
}

// KeyReader performs a single non-blocking key read. ok is false when no
// key is pending. io.EOF means no further keys will ever arrive.
type KeyReader interface {
	ReadKey() (r rune, ok bool, err error)
}

// KeyFunc adapts a function to KeyReader.
type KeyFunc func() (rune, bool, error)

// ReadKey calls f.
func (f KeyFunc) ReadKey() (rune, bool, error) { return f() }

// Config controls a Loop.
type Config struct {
	// Slice bounds one pump call.
	Slice time.Duration

	// QuitKeys end the session when read.
	QuitKeys []rune

	// Logger receives diagnostics.
	Logger *slog.Logger
}

// Reason says why Run returned.
type Reason int

const (
	// ReasonNone means the loop has not stopped.
	ReasonNone Reason = iota
	// ReasonQuitKey means a quit key was read.
	ReasonQuitKey
	// ReasonContext means the context was cancelled.
	ReasonContext
	// ReasonError means the pump failed.
	ReasonError
)

func (r Reason) String() string {
	switch r {
	case ReasonQuitKey:
		return "quit key"
	case ReasonContext:
		return "context cancelled"
	case ReasonError:
		return "pump error"
	default:
		return "none"
	}
}

// Loop is a cooperative single-goroutine event loop.
type Loop struct {
	pump   device.Pump
	keys   KeyReader
	slice  time.Duration
	quit   []rune
	logger *slog.Logger

	iterations int
	reason     Reason
}

// New creates a loop over pump and keys. keys may be nil, in which case
// only the context stops the loop.
func New(pump device.Pump, keys KeyReader, cfg Config) *Loop {
	slice := cfg.Slice
	if slice <= 0 {
		slice = DefaultSlice
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default().WithComponent("eventloop").Logger
	}
	quit := cfg.QuitKeys
	if len(quit) == 0 {
		quit = []rune{'q'}
	}
	return &Loop{
		pump:   pump,
		keys:   keys,
		slice:  slice,
		quit:   quit,
		logger: logger,
	}
}

// Run registers s, alternates pump slices with key polls until a quit key,
// context cancellation or pump failure, then cancels s.
//
// Run locks the calling goroutine to its OS thread for its whole duration
// because OS notification sources are bound to the thread that registered
// them.
func (l *Loop) Run(ctx context.Context, s Session) (err error) {
	if s == nil {
		return ErrNotRegistered
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := s.Register(); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	defer func() {
		if cerr := s.Cancel(); cerr != nil {
			l.logger.Warn("cancel session", "error", cerr)
			if err == nil {
				err = fmt.Errorf("cancel: %w", cerr)
			}
		}
	}()

	s.Activate()
	l.logger.Debug("loop started", "slice", l.slice, "quit_keys", string(l.quit))

	keys := l.keys
	for {
		if ctx.Err() != nil {
			l.stop(ReasonContext)
			return nil
		}

		if perr := l.pump.Pump(l.slice); perr != nil {
			l.stop(ReasonError)
			return fmt.Errorf("pump: %w", perr)
		}
		l.iterations++

		if keys == nil {
			continue
		}
		r, ok, kerr := keys.ReadKey()
		switch {
		case errors.Is(kerr, io.EOF):
			l.logger.Debug("stdin closed, key polling disabled")
			keys = nil
		case kerr != nil:
			l.logger.Warn("key poll failed, key polling disabled", "error", kerr)
			keys = nil
		case ok && slices.Contains(l.quit, r):
			l.stop(ReasonQuitKey)
			return nil
		}
	}
}

func (l *Loop) stop(reason Reason) {
	l.reason = reason
	l.logger.Debug("loop stopped", "reason", reason.String(), "iterations", l.iterations)
}

// Iterations returns the number of completed pump slices.
func (l *Loop) Iterations() int { return l.iterations }

// Reason returns why the last Run returned.
func (l *Loop) Reason() Reason { return l.reason }

// SessionFuncs adapts plain functions to Session. Nil fields are no-ops.
type SessionFuncs struct {
	OnRegister func() error
	OnActivate func()
	OnCancel   func() error
}

// Register calls OnRegister.
func (f SessionFuncs) Register() error {
	if f.OnRegister == nil {
		return nil
	}
	return f.OnRegister()
}

// Activate calls OnActivate.
func (f SessionFuncs) Activate() {
	if f.OnActivate != nil {
		f.OnActivate()
	}
}

// Cancel calls OnCancel.
func (f SessionFuncs) Cancel() error {
	if f.OnCancel == nil {
		return nil
	}
	return f.OnCancel()
}
