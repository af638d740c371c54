package presence

import "macstat/internal/device"

// AudioWatcher tracks audio endpoints. The OS only says that the device
// list changed, so every notification re-enumerates and diffs membership
// against the cache. A known id whose name changed is not an event.
//
// Endpoints whose name resolves to the fallback are never announced. By
// default they are not cached either, so a later notification that can
// resolve the name announces them; with Options.CacheUnknownAudio they are
// cached silently and their removal is silent too.
type AudioWatcher struct {
	*base
	cacheUnknown bool
}

// NewAudioWatcher returns an idle audio watcher over src.
func NewAudioWatcher(src device.Source, opts Options) *AudioWatcher {
	w := &AudioWatcher{
		base:         newBase(device.ClassAudio, src, opts),
		cacheUnknown: opts.CacheUnknownAudio,
	}
	w.admit = w.admitEndpoint
	w.handle = w.onNotification
	return w
}

func (w *AudioWatcher) admitEndpoint(h device.Handle) (string, bool, bool) {
	name := w.resolve(h)
	if name != w.class.Fallback() {
		return name, true, true
	}
	if w.state != StateIdle {
		w.metrics.Suppressed.Inc()
	}
	return name, w.cacheUnknown, false
}

func (w *AudioWatcher) onNotification(device.Notification) {
	w.reconcile(true, func(rec device.Record) bool {
		return rec.Name != w.class.Fallback()
	})
}
