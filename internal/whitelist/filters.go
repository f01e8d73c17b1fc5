// Package whitelist merges configuration-property metadata filters supplied by
// the caller with the filters a source project declares in its own
// META-INF/dataflow-configuration-metadata-whitelist.properties resource.
package whitelist

import "strings"

// FilterSet is an insertion-ordered, case-sensitive set of filter strings
type FilterSet struct {
	values []string
	seen   map[string]struct{}
}

// NewFilterSet creates a set from initial values, dropping duplicates and blanks
func NewFilterSet(values ...string) *FilterSet {
	fs := &FilterSet{seen: make(map[string]struct{})}
	for _, v := range values {
		fs.Add(v)
	}
	return fs
}

// Add trims v and appends it unless it is blank or already present.
// Returns true if the set changed.
func (fs *FilterSet) Add(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	if fs.seen == nil {
		fs.seen = make(map[string]struct{})
	}
	if _, ok := fs.seen[v]; ok {
		return false
	}
	fs.seen[v] = struct{}{}
	fs.values = append(fs.values, v)
	return true
}

// AddCSV adds every comma-separated token of csv and returns how many were new
func (fs *FilterSet) AddCSV(csv string) int {
	added := 0
	for _, token := range strings.Split(csv, ",") {
		if fs.Add(token) {
			added++
		}
	}
	return added
}

// Contains reports whether v is in the set (exact match)
func (fs *FilterSet) Contains(v string) bool {
	_, ok := fs.seen[v]
	return ok
}

// Len returns the number of filters
func (fs *FilterSet) Len() int {
	return len(fs.values)
}

// Values returns a copy of the filters in insertion order
func (fs *FilterSet) Values() []string {
	return append([]string(nil), fs.values...)
}
