// Package enhanced provides small mapping and sequence views with the
// convenience accessors templates rely on (first/last element, first
// non-empty element, case-insensitive key lookup).
package enhanced

import "strings"

// Dict is a string-keyed mapping with lenient lookups. It stays a plain map
// so templates can still index it directly.
type Dict[V any] map[string]V

// Get returns the value stored under key. A miss falls back to a
// case-insensitive key match and then to the zero value.
func (d Dict[V]) Get(key string) V {
	v, _ := d.Lookup(key, true)
	return v
}

// GetOr is Get with an explicit default for misses.
func (d Dict[V]) GetOr(key string, def V) V {
	if v, ok := d.Lookup(key, true); ok {
		return v
	}
	return def
}

// Lookup reports whether key is present. When ignoreCase is set and no exact
// key exists, the smallest key equal under Unicode case folding wins so the
// result does not depend on map iteration order.
func (d Dict[V]) Lookup(key string, ignoreCase bool) (V, bool) {
	if v, ok := d[key]; ok {
		return v, true
	}
	var zero V
	if !ignoreCase {
		return zero, false
	}
	found := ""
	ok := false
	for k := range d {
		if strings.EqualFold(k, key) && (!ok || k < found) {
			found, ok = k, true
		}
	}
	if !ok {
		return zero, false
	}
	return d[found], true
}

// Has reports whether key is present, exact match only.
func (d Dict[V]) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Len returns the number of entries.
func (d Dict[V]) Len() int { return len(d) }
