package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelsString(t *testing.T) {
	assert.Equal(t, "", Labels(nil).String())
	assert.Equal(t, `{a="1",b="2"}`, Labels{"b": "2", "a": "1"}.String())
}

func TestRegistryReturnsSameMetric(t *testing.T) {
	r := NewRegistry("macstat")

	c1 := r.Counter("events_total", "help", Labels{"class": "audio"})
	c2 := r.Counter("events_total", "help", Labels{"class": "audio"})
	other := r.Counter("events_total", "help", Labels{"class": "display"})

	assert.Same(t, c1, c2)
	assert.NotSame(t, c1, other)

	c1.Inc()
	c2.Add(2)
	assert.Equal(t, uint64(3), c1.Value())
	assert.Equal(t, uint64(0), other.Value())
}

func TestGauge(t *testing.T) {
	g := NewRegistry("").Gauge("present", "help", nil)
	g.Set(3)
	g.Add(-1)
	assert.Equal(t, int64(2), g.Value())
}

func TestHistogram(t *testing.T) {
	h := NewRegistry("x").Histogram("latency", "help", nil, []float64{1, 0.1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)

	assert.Equal(t, uint64(3), h.Count())
	assert.InDelta(t, 5.55/3, h.Mean(), 1e-9)
}

func TestWritePrometheus(t *testing.T) {
	r := NewRegistry("macstat")
	r.Counter("events_total", "Events", Labels{"class": "usb"}).Add(4)
	r.Gauge("devices_present", "Devices", nil).Set(2)
	h := r.Histogram("duration_seconds", "Durations", nil, []float64{0.1, 1})
	h.Observe(0.05)
	h.Observe(0.5)

	var buf bytes.Buffer
	require.NoError(t, r.WritePrometheus(&buf))
	out := buf.String()

	assert.Contains(t, out, "# TYPE macstat_events_total counter\n")
	assert.Contains(t, out, `macstat_events_total{class="usb"} 4`)
	assert.Contains(t, out, "macstat_devices_present 2")
	assert.Contains(t, out, `macstat_duration_seconds_bucket{le="0.1"} 1`)
	assert.Contains(t, out, `macstat_duration_seconds_bucket{le="1"} 2`)
	assert.Contains(t, out, `macstat_duration_seconds_bucket{le="+Inf"} 2`)
	assert.Contains(t, out, "macstat_duration_seconds_count 2")
	assert.Equal(t, 1, strings.Count(out, "# HELP macstat_events_total"))
}

func TestMonitorMetrics(t *testing.T) {
	r := NewRegistry("macstat")
	m := NewMonitorMetrics(r, "audio")
	require.Same(t, r, m.Registry())

	m.Connected.Inc()
	m.DevicesPresent.Set(5)
	m.ObserveNotification(time.Now())

	snap := r.Snapshot()
	assert.Equal(t, int64(1), snap[`macstat_events_connected_total{class="audio"}`])
	assert.Equal(t, int64(5), snap[`macstat_devices_present{class="audio"}`])
	assert.Equal(t, int64(1), snap[`macstat_notifications_total{class="audio"}`])
	assert.Equal(t, uint64(1), m.NotificationDuration.Count())
}
