package device

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		previous IDSet
		current  IDSet
		added    IDSet
		removed  IDSet
	}{
		{"identical", NewIDSet(1, 2, 3), NewIDSet(1, 2, 3), NewIDSet(), NewIDSet()},
		{"both empty", NewIDSet(), NewIDSet(), NewIDSet(), NewIDSet()},
		{"from empty", NewIDSet(), NewIDSet(1, 2), NewIDSet(1, 2), NewIDSet()},
		{"one gone", NewIDSet(1, 2), NewIDSet(2), NewIDSet(), NewIDSet(1)},
		{"swap", NewIDSet(1, 2), NewIDSet(2, 3), NewIDSet(3), NewIDSet(1)},
		{"to empty", NewIDSet(4), NewIDSet(), NewIDSet(), NewIDSet(4)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			added, removed := Diff(tc.previous, tc.current)
			assert.Equal(t, tc.added, added)
			assert.Equal(t, tc.removed, removed)
		})
	}
}

func TestDiffDoesNotMutateInputs(t *testing.T) {
	prev := NewIDSet(1, 2)
	cur := NewIDSet(2, 3)
	Diff(prev, cur)
	assert.Equal(t, NewIDSet(1, 2), prev)
	assert.Equal(t, NewIDSet(2, 3), cur)
}

func TestIDSetSorted(t *testing.T) {
	assert.Equal(t, []ID{1, 5, 9}, NewIDSet(9, 1, 5).Sorted())
	assert.Empty(t, NewIDSet().Sorted())
}

func TestCache(t *testing.T) {
	c := NewCache(ClassAudio)
	assert.Equal(t, ClassAudio, c.Class())

	assert.True(t, c.Upsert(1, "Speakers"))
	assert.False(t, c.Upsert(1, "Speakers"), "second upsert of the same id is not new")
	assert.True(t, c.Upsert(2, "Mic"))
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Contains(1))
	assert.Equal(t, NewIDSet(1, 2), c.Snapshot())

	rec, ok := c.Remove(1)
	require.True(t, ok)
	assert.Equal(t, Record{ID: 1, Name: "Speakers"}, rec)
	assert.False(t, c.Contains(1))

	_, ok = c.Remove(42)
	assert.False(t, ok, "removing an absent id is a no-op")

	assert.Equal(t, []Record{{ID: 2, Name: "Mic"}}, c.Records())

	c.Reset()
	assert.Zero(t, c.Len())
}

func TestCacheSnapshotIsACopy(t *testing.T) {
	c := NewCache(ClassDisplay)
	c.Upsert(7, "Studio Display")
	snap := c.Snapshot()
	c.Remove(7)
	assert.True(t, snap.Has(7))
}

type brokenHandle struct{ id ID }

func (b brokenHandle) ID() ID                { return b.id }
func (b brokenHandle) Name() (string, error) { return "", errors.New("handle closed") }

func TestResolveNeverFails(t *testing.T) {
	tests := []struct {
		name   string
		class  Class
		handle Handle
		want   string
	}{
		{"resolved", ClassPeripheral, StaticHandle{DeviceID: 1, DeviceName: "USB Drive"}, "USB Drive"},
		{"trimmed", ClassAudio, StaticHandle{DeviceID: 1, DeviceName: "  Speakers \n"}, "Speakers"},
		{"error", ClassPeripheral, brokenHandle{id: 2}, "Unknown USB Device"},
		{"blank", ClassAudio, StaticHandle{DeviceID: 3, DeviceName: "   "}, "Unknown Audio Device"},
		{"nil handle", ClassDisplay, nil, "Unknown Display"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Resolve(tc.class, tc.handle))
		})
	}
}

func TestEventLine(t *testing.T) {
	at := time.Date(2025, 8, 13, 14, 5, 9, 0, time.UTC)

	connected := Event{Time: at, Class: ClassPeripheral, Direction: Connected, Name: "USB Drive"}
	assert.Equal(t, "2025-08-13 14:05:09 [+] USB device: USB Drive connected", connected.Line(""))

	gone := Event{Time: at, Class: ClassAudio, Direction: Disconnected, Name: "AirPods"}
	assert.Equal(t, "14:05 [-] Audio device: AirPods disconnected", gone.Line("15:04"))
}

func TestParseClass(t *testing.T) {
	tests := []struct {
		in      string
		want    Class
		wantErr bool
	}{
		{"peripheral", ClassPeripheral, false},
		{"USB", ClassPeripheral, false},
		{"audio", ClassAudio, false},
		{" Display ", ClassDisplay, false},
		{"bluetooth", 0, true},
		{"", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseClass(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, c := range Classes {
		parsed, err := ParseClass(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
}

func TestFilter(t *testing.T) {
	f := NewFilter([]string{"Microsoft Teams*", "*Virtual", "  ", "BlackHole 2ch", "*Aggregate"})

	assert.True(t, f.Ignored("Microsoft Teams Audio"))
	assert.True(t, f.Ignored("ZoomAudioDevice virtual"))
	assert.True(t, f.Ignored("blackhole 2ch"))
	assert.False(t, f.Ignored("MacBook Pro Speakers"))
	assert.Len(t, f.Patterns(), 4)

	inner := NewFilter([]string{"Air*Pods", "*Studio*"})
	assert.False(t, inner.Ignored("AirPods"), "'*' only globs at either end")
	assert.True(t, inner.Ignored("Air*Pods"))
	assert.True(t, inner.Ignored("LG Studio Display"))

	f.Set(nil)
	assert.False(t, f.Ignored("Microsoft Teams Audio"))

	var none *Filter
	assert.False(t, none.Ignored("anything"))
}
