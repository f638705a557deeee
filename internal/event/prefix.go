package event

import (
	"sort"
	"strings"
)

// PrefixTable resolves callback data to a registered prefix. Prefixes ending
// in "_" match any data that starts with them; other entries match exactly.
// The longest matching prefix wins, so "rate_product_7" resolves to
// "rate_product_" even when "rate_" is registered too.
type PrefixTable struct {
	byLength []string
	seen     map[string]struct{}
}

// NewPrefixTable builds a table from prefixes.
func NewPrefixTable(prefixes ...string) *PrefixTable {
	t := &PrefixTable{seen: make(map[string]struct{}, len(prefixes))}
	for _, p := range prefixes {
		t.Add(p)
	}
	return t
}

// Add registers prefix. Empty and duplicate prefixes are ignored.
func (t *PrefixTable) Add(prefix string) {
	if prefix == "" {
		return
	}
	if _, ok := t.seen[prefix]; ok {
		return
	}
	t.seen[prefix] = struct{}{}
	t.byLength = append(t.byLength, prefix)
	sort.SliceStable(t.byLength, func(i, j int) bool {
		if len(t.byLength[i]) != len(t.byLength[j]) {
			return len(t.byLength[i]) > len(t.byLength[j])
		}
		return t.byLength[i] < t.byLength[j]
	})
}

// Match returns the longest registered prefix of data and the remainder.
func (t *PrefixTable) Match(data string) (prefix, rest string, ok bool) {
	for _, p := range t.byLength {
		if strings.HasSuffix(p, "_") {
			if strings.HasPrefix(data, p) {
				return p, data[len(p):], true
			}
			continue
		}
		if data == p {
			return p, "", true
		}
	}
	return "", data, false
}

// Prefixes lists registered prefixes, longest first.
func (t *PrefixTable) Prefixes() []string {
	return append([]string(nil), t.byLength...)
}
