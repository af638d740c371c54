package device

import "sort"

// IDSet is a set of device identifiers.
type IDSet map[ID]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...ID) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s IDSet) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Diff compares two membership snapshots. added holds ids present only in
// current, removed holds ids present only in previous. An id present in
// both is untouched regardless of any metadata attached to it elsewhere.
func Diff(previous, current IDSet) (added, removed IDSet) {
	added = make(IDSet)
	removed = make(IDSet)
	for id := range current {
		if !previous.Has(id) {
			added[id] = struct{}{}
		}
	}
	for id := range previous {
		if !current.Has(id) {
			removed[id] = struct{}{}
		}
	}
	return added, removed
}
