package presence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"macstat/internal/device"
	"macstat/internal/eventloop"
	"macstat/internal/logging"
	"macstat/internal/metrics"
)

// Backend supplies class sources and pumps their notifications.
type Backend interface {
	Source(class device.Class) (device.Source, error)
	device.Pump
}

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// Options are passed to every watcher. Metrics is filled in per run
	// when nil.
	Options Options

	// Loop configures the event loop.
	Loop eventloop.Config

	// Registry receives per-class metrics.
	Registry *metrics.Registry
}

// Summary describes a finished watch session.
type Summary struct {
	Class        device.Class
	Started      time.Time
	Duration     time.Duration
	Reason       eventloop.Reason
	Connected    uint64
	Disconnected uint64
	Suppressed   uint64
	Iterations   int
}

// Monitor runs one watch session at a time.
type Monitor struct {
	backend Backend
	keys    eventloop.KeyReader
	cfg     MonitorConfig
	logger  *slog.Logger
}

// NewMonitor creates a monitor.
func NewMonitor(backend Backend, keys eventloop.KeyReader, cfg MonitorConfig) *Monitor {
	logger := cfg.Options.Logger
	if logger == nil {
		logger = logging.Default().WithComponent("presence").Logger
		cfg.Options.Logger = logger
	}
	if cfg.Loop.Logger == nil {
		cfg.Loop.Logger = logger
	}
	if cfg.Registry == nil {
		cfg.Registry = metrics.NewRegistry("macstat")
	}
	return &Monitor{backend: backend, keys: keys, cfg: cfg, logger: logger}
}

// Registry returns the metrics registry.
func (m *Monitor) Registry() *metrics.Registry {
	return m.cfg.Registry
}

// Run watches class until a quit key is read or ctx is cancelled. It
// prints a start notice once the watcher is registered and a stop notice
// after the loop. A failed registration prints neither.
func (m *Monitor) Run(ctx context.Context, class device.Class) (*Summary, error) {
	src, err := m.backend.Source(class)
	if err != nil {
		return nil, fmt.Errorf("open %s source: %w", class, err)
	}

	opts := m.cfg.Options
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewMonitorMetrics(m.cfg.Registry, class.String())
	}
	w, err := NewWatcher(class, src, opts)
	if err != nil {
		return nil, err
	}

	printer := opts.Printer
	if printer == nil {
		printer = discardPrinter{}
	}

	loop := eventloop.New(m.backend, m.keys, m.cfg.Loop)
	summary := &Summary{Class: class, Started: time.Now()}

	err = loop.Run(ctx, announcing{Watcher: w, notice: func() {
		printer.Notice(fmt.Sprintf("Waiting for %s device events...", class.Label()))
	}})
	if w.State() == StateCancelled {
		printer.Notice(fmt.Sprintf("Stopped watching %s devices", class.Label()))
	}

	summary.Duration = time.Since(summary.Started)
	summary.Reason = loop.Reason()
	summary.Iterations = loop.Iterations()
	summary.Connected = opts.Metrics.Connected.Value()
	summary.Disconnected = opts.Metrics.Disconnected.Value()
	summary.Suppressed = opts.Metrics.Suppressed.Value()

	m.logger.Info("watch session ended",
		"class", class.String(),
		"reason", summary.Reason.String(),
		"duration", summary.Duration.Round(time.Millisecond),
		"connected", summary.Connected,
		"disconnected", summary.Disconnected,
	)

	return summary, err
}

// announcing prints the start notice when the watcher goes live, so a
// session that fails to register never claims to be waiting.
type announcing struct {
	Watcher
	notice func()
}

func (a announcing) Activate() {
	a.Watcher.Activate()
	if a.State() == StateWatching {
		a.notice()
	}
}
