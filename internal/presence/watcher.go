// Package presence watches one device class and reports connect and
// disconnect events.
//
// A watcher owns the identity cache of its class for the length of one
// watch session. It seeds the cache from an initial enumeration without
// emitting events, then keeps it current from OS notifications delivered
// by the event loop. All watcher state is touched only from the loop
// goroutine.
package presence

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"macstat/internal/device"
	"macstat/internal/eventloop"
	"macstat/internal/logging"
	"macstat/internal/metrics"
)

var (
	// ErrUnknownClass is returned for a class with no watcher.
	ErrUnknownClass = errors.New("presence: unknown device class")

	// ErrAlreadyStarted is returned by Register on a watcher that has left
	// the Idle state.
	ErrAlreadyStarted = errors.New("presence: watcher already started")
)

// State is the lifecycle state of a watcher.
type State int

const (
	StateIdle State = iota
	StateRegistered
	StateWatching
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRegistered:
		return "registered"
	case StateWatching:
		return "watching"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Printer renders events and status lines.
type Printer interface {
	PrintEvent(e device.Event)
	Notice(msg string)
}

// Options are shared by all watchers.
type Options struct {
	Printer Printer
	Filter  *device.Filter
	Metrics *metrics.MonitorMetrics
	Logger  *slog.Logger
	Clock   func() time.Time

	// CacheUnknownAudio keeps audio endpoints whose name resolves to the
	// fallback in the cache without announcing them.
	CacheUnknownAudio bool
}

// Watcher is a class watcher driven by the event loop.
type Watcher interface {
	eventloop.Session
	Class() device.Class
	State() State
	Cache() *device.Cache
}

// NewWatcher returns the watcher for class over src.
func NewWatcher(class device.Class, src device.Source, opts Options) (Watcher, error) {
	switch class {
	case device.ClassPeripheral:
		return NewPeripheralWatcher(src, opts), nil
	case device.ClassAudio:
		return NewAudioWatcher(src, opts), nil
	case device.ClassDisplay:
		return NewDisplayWatcher(src, opts), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownClass, int(class))
	}
}

type discardPrinter struct{}

func (discardPrinter) PrintEvent(device.Event) {}
func (discardPrinter) Notice(string)           {}

// base holds what every class watcher shares: lifecycle, cache, output.
type base struct {
	class   device.Class
	source  device.Source
	cache   *device.Cache
	printer Printer
	filter  *device.Filter
	metrics *metrics.MonitorMetrics
	logger  *slog.Logger
	clock   func() time.Time

	state State
	token device.Token

	// admit decides the cached name of a newly seen handle. keep=false
	// leaves the id out of the cache; announce=false caches it silently.
	admit func(h device.Handle) (name string, keep, announce bool)
	// handle processes one notification while watching.
	handle func(n device.Notification)
}

func newBase(class device.Class, src device.Source, opts Options) *base {
	b := &base{
		class:   class,
		source:  src,
		cache:   device.NewCache(class),
		printer: opts.Printer,
		filter:  opts.Filter,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		clock:   opts.Clock,
	}
	if b.printer == nil {
		b.printer = discardPrinter{}
	}
	if b.metrics == nil {
		b.metrics = metrics.NewMonitorMetrics(nil, class.String())
	}
	if b.logger == nil {
		b.logger = logging.Default().WithComponent("presence").Logger
	}
	b.logger = b.logger.With("class", class.String())
	if b.clock == nil {
		b.clock = time.Now
	}
	b.admit = func(h device.Handle) (string, bool, bool) {
		return b.resolve(h), true, true
	}
	return b
}

// Class returns the watched class.
func (b *base) Class() device.Class { return b.class }

// State returns the lifecycle state.
func (b *base) State() State { return b.state }

// Cache returns the identity cache.
func (b *base) Cache() *device.Cache { return b.cache }

// Register subscribes to the source and seeds the cache from an initial
// enumeration. Pre-existing devices produce no events.
func (b *base) Register() error {
	if b.state != StateIdle {
		return fmt.Errorf("%w: %s watcher is %s", ErrAlreadyStarted, b.class, b.state)
	}

	token, err := b.source.Subscribe(b.dispatch)
	if err != nil {
		return fmt.Errorf("subscribe %s notifications: %w", b.class, err)
	}

	handles, err := b.source.Enumerate()
	if err != nil {
		if uerr := b.source.Unsubscribe(token); uerr != nil {
			b.logger.Warn("unsubscribe after failed enumeration", "error", uerr)
		}
		return fmt.Errorf("enumerate %s devices: %w", b.class, err)
	}

	for _, h := range handles {
		if name, keep, _ := b.admit(h); keep {
			b.cache.Upsert(h.ID(), name)
		}
	}

	b.token = token
	b.state = StateRegistered
	b.metrics.DevicesPresent.Set(int64(b.cache.Len()))
	b.logger.Debug("watcher registered", "baseline", b.cache.Len())
	return nil
}

// Activate moves a registered watcher to Watching.
func (b *base) Activate() {
	if b.state != StateRegistered {
		b.logger.Debug("activate ignored", "state", b.state.String())
		return
	}
	b.state = StateWatching
}

// Cancel unsubscribes and discards the cache. It is safe to call more
// than once.
func (b *base) Cancel() error {
	prev := b.state
	b.state = StateCancelled

	if prev != StateRegistered && prev != StateWatching {
		return nil
	}

	b.logger.Debug("watcher cancelled", "present", b.cache.Len())
	b.cache.Reset()
	if err := b.source.Unsubscribe(b.token); err != nil {
		return fmt.Errorf("unsubscribe %s notifications: %w", b.class, err)
	}
	return nil
}

func (b *base) dispatch(n device.Notification) {
	if b.state != StateWatching {
		b.logger.Debug("notification dropped", "kind", n.Kind.String(), "state", b.state.String())
		return
	}
	start := time.Now()
	b.handle(n)
	b.metrics.ObserveNotification(start)
	b.metrics.DevicesPresent.Set(int64(b.cache.Len()))
}

// resolve returns the name of h or the class fallback.
func (b *base) resolve(h device.Handle) string {
	name, ok := device.TryResolve(h)
	if !ok {
		b.metrics.Fallbacks.Inc()
		if h != nil {
			b.logger.Debug("device name unavailable", "id", uint64(h.ID()))
		}
		return b.class.Fallback()
	}
	return name
}

func (b *base) emit(dir device.Direction, name string) {
	if b.filter.Ignored(name) {
		b.metrics.Ignored.Inc()
		b.logger.Debug("event ignored", "direction", dir.String())
		return
	}

	b.printer.PrintEvent(device.Event{
		Time:      b.clock(),
		Class:     b.class,
		Direction: dir,
		Name:      name,
	})
	if dir == device.Connected {
		b.metrics.Connected.Inc()
	} else {
		b.metrics.Disconnected.Inc()
	}
}

// batch folds identical names within one notification into one line.
type batch struct {
	b    *base
	dir  device.Direction
	seen map[string]struct{}
}

func (b *base) newBatch(dir device.Direction) *batch {
	return &batch{b: b, dir: dir, seen: make(map[string]struct{})}
}

func (bt *batch) emit(name string) {
	if _, dup := bt.seen[name]; dup {
		bt.b.metrics.Deduplicated.Inc()
		return
	}
	bt.seen[name] = struct{}{}
	bt.b.emit(bt.dir, name)
}

// reconcile re-enumerates the source and applies the membership diff
// against the cache. Added ids are processed before removed ids, each in
// ascending id order. With dedup set, equal names within each direction
// are printed once.
func (b *base) reconcile(dedup bool, announceRemoval func(device.Record) bool) {
	handles, err := b.source.Enumerate()
	if err != nil {
		b.logger.Warn("enumerate after change failed", "error", err)
		return
	}

	byID := make(map[device.ID]device.Handle, len(handles))
	current := make(device.IDSet, len(handles))
	for _, h := range handles {
		byID[h.ID()] = h
		current[h.ID()] = struct{}{}
	}

	added, removed := device.Diff(b.cache.Snapshot(), current)

	connected := b.newBatch(device.Connected)
	for _, id := range added.Sorted() {
		name, keep, announce := b.admit(byID[id])
		if !keep {
			continue
		}
		b.cache.Upsert(id, name)
		if !announce {
			continue
		}
		if dedup {
			connected.emit(name)
		} else {
			b.emit(device.Connected, name)
		}
	}

	disconnected := b.newBatch(device.Disconnected)
	for _, id := range removed.Sorted() {
		rec, _ := b.cache.Remove(id)
		if announceRemoval != nil && !announceRemoval(rec) {
			continue
		}
		if dedup {
			disconnected.emit(rec.Name)
		} else {
			b.emit(device.Disconnected, rec.Name)
		}
	}
}
