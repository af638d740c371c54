package presence

import "macstat/internal/device"

// DisplayWatcher tracks displays. Each OS callback names one display and
// says whether it was added or removed, so no diffing is needed.
type DisplayWatcher struct {
	*base
}

// NewDisplayWatcher returns an idle display watcher over src.
func NewDisplayWatcher(src device.Source, opts Options) *DisplayWatcher {
	w := &DisplayWatcher{base: newBase(device.ClassDisplay, src, opts)}
	w.handle = w.onNotification
	return w
}

func (w *DisplayWatcher) onNotification(n device.Notification) {
	switch n.Kind {
	case device.Added:
		for _, h := range n.Handles {
			if h == nil || w.cache.Contains(h.ID()) {
				continue
			}
			name := w.resolve(h)
			w.cache.Upsert(h.ID(), name)
			w.emit(device.Connected, name)
		}
	case device.Removed:
		for _, h := range n.Handles {
			if h == nil {
				continue
			}
			rec, ok := w.cache.Remove(h.ID())
			if !ok {
				w.logger.Debug("remove of unseen display", "id", uint64(h.ID()))
				continue
			}
			w.emit(device.Disconnected, rec.Name)
		}
	case device.Changed:
		w.reconcile(false, nil)
	}
}
