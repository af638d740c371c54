package device

import (
	"strings"
	"sync/atomic"
)

// Filter suppresses event lines for device names matching any of its
// patterns. A pattern may start and/or end with '*'.
//
// The pattern list can be swapped from another goroutine (config reload)
// while the event loop reads it.
type Filter struct {
	patterns atomic.Pointer[[]string]
}

// NewFilter returns a filter over patterns.
func NewFilter(patterns []string) *Filter {
	f := &Filter{}
	f.Set(patterns)
	return f
}

// Set replaces the pattern list.
func (f *Filter) Set(patterns []string) {
	cp := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			cp = append(cp, p)
		}
	}
	f.patterns.Store(&cp)
}

// Patterns returns the current pattern list.
func (f *Filter) Patterns() []string {
	if f == nil {
		return nil
	}
	p := f.patterns.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Ignored reports whether name matches a pattern. A nil filter ignores
// nothing.
func (f *Filter) Ignored(name string) bool {
	for _, pattern := range f.Patterns() {
		if matchWildcard(pattern, name) {
			return true
		}
	}
	return false
}

// matchWildcard matches "*", "*suffix", "prefix*", "*infix*" and exact
// patterns, case-insensitively. A '*' elsewhere is literal.
func matchWildcard(pattern, s string) bool {
	pattern = strings.ToLower(pattern)
	s = strings.ToLower(s)

	lead := strings.HasPrefix(pattern, "*")
	core := strings.TrimPrefix(pattern, "*")
	trail := strings.HasSuffix(core, "*")
	core = strings.TrimSuffix(core, "*")

	switch {
	case lead && trail:
		return strings.Contains(s, core)
	case lead:
		return strings.HasSuffix(s, core)
	case trail:
		return strings.HasPrefix(s, core)
	default:
		return core == s
	}
}
