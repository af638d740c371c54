package hardware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macstat/internal/device"
)

func TestFakeDeliversOnPump(t *testing.T) {
	f := NewFake()
	src, err := f.Source(device.ClassPeripheral)
	require.NoError(t, err)
	assert.Equal(t, device.ClassPeripheral, src.Class())

	var got []device.Notification
	tok, err := src.Subscribe(func(n device.Notification) { got = append(got, n) })
	require.NoError(t, err)

	usb := f.Class(device.ClassPeripheral)
	f.Then(func() { usb.Attach(Device(1, "USB Drive"), Device(2, "Keyboard")) }).
		Then(func() { usb.Detach(1, 99) })

	assert.Empty(t, got, "nothing is delivered outside Pump")

	require.NoError(t, f.Pump(time.Millisecond))
	require.Len(t, got, 1)
	assert.Equal(t, device.Added, got[0].Kind)
	assert.Len(t, got[0].Handles, 2)

	require.NoError(t, f.Pump(time.Millisecond))
	require.Len(t, got, 2)
	assert.Equal(t, device.Removed, got[1].Kind)
	require.Len(t, got[1].Handles, 2)
	_, ok := device.TryResolve(got[1].Handles[1])
	assert.False(t, ok, "an unknown id is delivered without a name")

	present, err := src.Enumerate()
	require.NoError(t, err)
	assert.Equal(t, []device.Handle{Device(2, "Keyboard")}, present)

	require.NoError(t, f.Pump(time.Millisecond))
	assert.Equal(t, 3, f.Pumps())
	assert.Zero(t, f.Pending())

	require.NoError(t, src.Unsubscribe(tok))
	assert.ErrorIs(t, src.Unsubscribe(tok), ErrUnknownToken)
	assert.Zero(t, usb.Subscribers())
	assert.Equal(t, 1, usb.Unsubscribed())
}

func TestFakeChange(t *testing.T) {
	f := NewFake()
	audio := f.Class(device.ClassAudio)
	audio.Present(Device(1, "Speakers"))

	var kinds []device.Kind
	_, err := audio.Subscribe(func(n device.Notification) {
		kinds = append(kinds, n.Kind)
		assert.Empty(t, n.Handles)
	})
	require.NoError(t, err)

	audio.Change(Device(1, "Speakers"), Nameless(2))
	assert.Equal(t, []device.Kind{device.Changed}, kinds)

	present, err := audio.Enumerate()
	require.NoError(t, err)
	assert.Len(t, present, 2)
}

func TestFakeErrors(t *testing.T) {
	f := NewFake()
	usb := f.Class(device.ClassPeripheral)
	usb.SubscribeErr = errors.New("port unavailable")
	_, err := usb.Subscribe(func(device.Notification) {})
	assert.ErrorIs(t, err, ErrSubscribe)

	usb.EnumerateErr = errors.New("registry busy")
	_, err = usb.Enumerate()
	assert.Error(t, err)

	f.PumpErr = errors.New("run loop gone")
	assert.Error(t, f.Pump(time.Millisecond))

	f.SourceErr = ErrUnsupported
	_, err = f.Source(device.ClassDisplay)
	assert.ErrorIs(t, err, ErrUnsupported)
}
