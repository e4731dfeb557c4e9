package utils

// SeenFilter remembers keys it has been shown. It is not safe for concurrent use.
type SeenFilter struct {
	seen map[string]bool
}

// NewSeenFilter creates a filter that already treats the given keys as seen
func NewSeenFilter(initial ...string) *SeenFilter {
	seen := make(map[string]bool, len(initial))
	for _, k := range initial {
		seen[k] = true
	}
	return &SeenFilter{seen: seen}
}

// ShouldInclude returns true the first time a key is offered and false afterwards
func (f *SeenFilter) ShouldInclude(key string) bool {
	if f.seen[key] {
		return false
	}
	f.seen[key] = true
	return true
}

// Len returns how many distinct keys were seen
func (f *SeenFilter) Len() int {
	return len(f.seen)
}
