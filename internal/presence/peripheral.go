package presence

import "macstat/internal/device"

// PeripheralWatcher tracks USB peripherals. The OS reports additions and
// removals directly, one batch of handles per notification.
type PeripheralWatcher struct {
	*base
}

// NewPeripheralWatcher returns an idle peripheral watcher over src.
func NewPeripheralWatcher(src device.Source, opts Options) *PeripheralWatcher {
	w := &PeripheralWatcher{base: newBase(device.ClassPeripheral, src, opts)}
	w.handle = w.onNotification
	return w
}

func (w *PeripheralWatcher) onNotification(n device.Notification) {
	switch n.Kind {
	case device.Added:
		w.added(n.Handles)
	case device.Removed:
		w.removed(n.Handles)
	case device.Changed:
		w.reconcile(true, nil)
	}
}

// added caches every new id and announces each distinct name once. Ids
// already cached are repeats and produce nothing.
func (w *PeripheralWatcher) added(handles []device.Handle) {
	out := w.newBatch(device.Connected)
	for _, h := range handles {
		if h == nil {
			continue
		}
		id := h.ID()
		if w.cache.Contains(id) {
			w.logger.Debug("repeated add", "id", uint64(id))
			continue
		}
		name := w.resolve(h)
		w.cache.Upsert(id, name)
		out.emit(name)
	}
}

// removed evicts cached ids and announces them under their cached name,
// since a terminated device may no longer answer name queries.
func (w *PeripheralWatcher) removed(handles []device.Handle) {
	out := w.newBatch(device.Disconnected)
	for _, h := range handles {
		if h == nil {
			continue
		}
		rec, ok := w.cache.Remove(h.ID())
		if !ok {
			w.logger.Debug("remove of unseen device", "id", uint64(h.ID()))
			continue
		}
		out.emit(rec.Name)
	}
}
