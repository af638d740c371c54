package metrics

import "time"

// MonitorMetrics are the counters of one device watch session.
type MonitorMetrics struct {
	registry *Registry

	Connected     *Counter
	Disconnected  *Counter
	Suppressed    *Counter
	Deduplicated  *Counter
	Ignored       *Counter
	Notifications *Counter
	Fallbacks     *Counter

	DevicesPresent *Gauge

	NotificationDuration *Histogram
}

// NewMonitorMetrics registers the watch metrics for class on registry.
func NewMonitorMetrics(registry *Registry, class string) *MonitorMetrics {
	if registry == nil {
		registry = NewRegistry("macstat")
	}
	labels := Labels{"class": class}

	return &MonitorMetrics{
		registry: registry,

		Connected:     registry.Counter("events_connected_total", "Connected events emitted", labels),
		Disconnected:  registry.Counter("events_disconnected_total", "Disconnected events emitted", labels),
		Suppressed:    registry.Counter("events_suppressed_total", "Added devices dropped because they resolved to the unknown sentinel", labels),
		Deduplicated:  registry.Counter("events_deduplicated_total", "Event lines folded into an identical name in the same batch", labels),
		Ignored:       registry.Counter("events_ignored_total", "Event lines hidden by the ignore list", labels),
		Notifications: registry.Counter("notifications_total", "Native notifications handled", labels),
		Fallbacks:     registry.Counter("fallback_names_total", "Names replaced by the class fallback", labels),

		DevicesPresent: registry.Gauge("devices_present", "Devices currently in the identity cache", labels),

		NotificationDuration: registry.Histogram("notification_duration_seconds", "Time spent handling one notification", labels, DurationBuckets),
	}
}

// Registry returns the backing registry.
func (m *MonitorMetrics) Registry() *Registry {
	return m.registry
}

// ObserveNotification records one handled notification that started at
// start.
func (m *MonitorMetrics) ObserveNotification(start time.Time) {
	m.Notifications.Inc()
	m.NotificationDuration.ObserveDuration(time.Since(start))
}
