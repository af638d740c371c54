package device

import "sort"

// Cache is the identity cache of one device class: the set of devices
// believed present, keyed by ID. It is owned by a single watcher and only
// touched from the event loop goroutine, so it carries no lock.
type Cache struct {
	class   Class
	records map[ID]Record
}

// NewCache returns an empty cache for class.
func NewCache(class Class) *Cache {
	return &Cache{
		class:   class,
		records: make(map[ID]Record),
	}
}

// Class returns the class the cache belongs to.
func (c *Cache) Class() Class {
	return c.class
}

// Upsert records id as present under name. It reports whether id was new.
func (c *Cache) Upsert(id ID, name string) bool {
	_, existed := c.records[id]
	c.records[id] = Record{ID: id, Name: name}
	return !existed
}

// Remove evicts id and returns the record it held. Removing an absent id
// is a no-op and returns false.
func (c *Cache) Remove(id ID) (Record, bool) {
	rec, ok := c.records[id]
	if ok {
		delete(c.records, id)
	}
	return rec, ok
}

// Contains reports whether id is believed present.
func (c *Cache) Contains(id ID) bool {
	_, ok := c.records[id]
	return ok
}

// Lookup returns the record for id.
func (c *Cache) Lookup(id ID) (Record, bool) {
	rec, ok := c.records[id]
	return rec, ok
}

// Len returns the number of cached devices.
func (c *Cache) Len() int {
	return len(c.records)
}

// Snapshot returns the set of cached IDs.
func (c *Cache) Snapshot() IDSet {
	set := make(IDSet, len(c.records))
	for id := range c.records {
		set[id] = struct{}{}
	}
	return set
}

// Records returns the cached records ordered by ID.
func (c *Cache) Records() []Record {
	out := make([]Record, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reset drops every record.
func (c *Cache) Reset() {
	clear(c.records)
}
