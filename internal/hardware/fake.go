package hardware

import (
	"fmt"
	"slices"
	"time"

	"macstat/internal/device"
)

// Fake is an in-memory backend. Each Pump call runs the next queued step,
// so tests script OS activity as a sequence of slices.
type Fake struct {
	sources map[device.Class]*FakeSource
	steps   []func()
	pumps   int

	// PumpErr, when set, is returned by every Pump call.
	PumpErr error
	// SourceErr, when set, is returned by every Source call.
	SourceErr error
}

// NewFake returns a fake with an empty source per class.
func NewFake() *Fake {
	f := &Fake{sources: make(map[device.Class]*FakeSource)}
	for _, c := range device.Classes {
		f.sources[c] = &FakeSource{class: c, handlers: make(map[device.Token]device.Handler)}
	}
	return f
}

// Source returns the fake source for class.
func (f *Fake) Source(class device.Class) (device.Source, error) {
	if f.SourceErr != nil {
		return nil, f.SourceErr
	}
	s, ok := f.sources[class]
	if !ok {
		return nil, fmt.Errorf("hardware: no source for class %d", int(class))
	}
	return s, nil
}

// Class returns the concrete fake source for class.
func (f *Fake) Class(class device.Class) *FakeSource {
	return f.sources[class]
}

// Then queues step to run during a future Pump.
func (f *Fake) Then(step func()) *Fake {
	f.steps = append(f.steps, step)
	return f
}

// Pump runs the next queued step, if any. It never sleeps.
func (f *Fake) Pump(slice time.Duration) error {
	f.pumps++
	if f.PumpErr != nil {
		return f.PumpErr
	}
	if len(f.steps) == 0 {
		return nil
	}
	step := f.steps[0]
	f.steps = f.steps[1:]
	step()
	return nil
}

// Pumps returns the number of Pump calls.
func (f *Fake) Pumps() int { return f.pumps }

// Pending returns the number of steps not yet run.
func (f *Fake) Pending() int { return len(f.steps) }

// FakeSource is the scripted source of one class.
type FakeSource struct {
	class    device.Class
	present  []device.Handle
	handlers map[device.Token]device.Handler
	next     device.Token

	// SubscribeErr, when set, fails Subscribe.
	SubscribeErr error
	// EnumerateErr, when set, fails Enumerate.
	EnumerateErr error

	unsubscribed int
}

// Device builds a handle with a resolvable name.
func Device(id device.ID, name string) device.Handle {
	return device.StaticHandle{DeviceID: id, DeviceName: name}
}

// Nameless builds a handle whose name query fails.
func Nameless(id device.ID) device.Handle {
	return device.StaticHandle{DeviceID: id, Err: errNoName}
}

// Class returns the source's class.
func (s *FakeSource) Class() device.Class { return s.class }

// Enumerate returns the current device list.
func (s *FakeSource) Enumerate() ([]device.Handle, error) {
	if s.EnumerateErr != nil {
		return nil, s.EnumerateErr
	}
	return slices.Clone(s.present), nil
}

// Subscribe registers h.
func (s *FakeSource) Subscribe(h device.Handler) (device.Token, error) {
	if s.SubscribeErr != nil {
		return 0, fmt.Errorf("%w: %w", ErrSubscribe, s.SubscribeErr)
	}
	s.next++
	s.handlers[s.next] = h
	return s.next, nil
}

// Unsubscribe removes the handler behind t.
func (s *FakeSource) Unsubscribe(t device.Token) error {
	if _, ok := s.handlers[t]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownToken, t)
	}
	delete(s.handlers, t)
	s.unsubscribed++
	return nil
}

// Subscribers returns the number of live subscriptions.
func (s *FakeSource) Subscribers() int { return len(s.handlers) }

// Unsubscribed returns the number of successful Unsubscribe calls.
func (s *FakeSource) Unsubscribed() int { return s.unsubscribed }

// Present sets the enumeration result without notifying.
func (s *FakeSource) Present(handles ...device.Handle) {
	s.present = slices.Clone(handles)
}

// Attach adds handles to the enumeration result and delivers one Added
// notification carrying all of them.
func (s *FakeSource) Attach(handles ...device.Handle) {
	s.present = append(s.present, handles...)
	s.Deliver(device.Notification{Kind: device.Added, Handles: handles})
}

// Detach removes ids from the enumeration result and delivers one Removed
// notification carrying their handles. Unknown ids are delivered as
// nameless handles, as a terminated OS object would be.
func (s *FakeSource) Detach(ids ...device.ID) {
	removed := make([]device.Handle, 0, len(ids))
	for _, id := range ids {
		idx := slices.IndexFunc(s.present, func(h device.Handle) bool { return h.ID() == id })
		if idx < 0 {
			removed = append(removed, Nameless(id))
			continue
		}
		removed = append(removed, s.present[idx])
		s.present = slices.Delete(s.present, idx, idx+1)
	}
	s.Deliver(device.Notification{Kind: device.Removed, Handles: removed})
}

// Change replaces the enumeration result and delivers a Changed
// notification with no handles.
func (s *FakeSource) Change(handles ...device.Handle) {
	s.present = slices.Clone(handles)
	s.Deliver(device.Notification{Kind: device.Changed})
}

// Deliver sends n to every subscriber in token order.
func (s *FakeSource) Deliver(n device.Notification) {
	tokens := make([]device.Token, 0, len(s.handlers))
	for t := range s.handlers {
		tokens = append(tokens, t)
	}
	slices.Sort(tokens)
	for _, t := range tokens {
		s.handlers[t](n)
	}
}
