package freq

import (
	"sort"
)

// Table maps an n-gram key to its occurrence count.
// A key absent from the table has count 0.
type Table map[string]int64

// Entry is a single key/count pair, used for ranked output.
type Entry struct {
	Key   string `json:"ngram"`
	Count int64  `json:"count"`
}

// New creates an empty table
func New() Table {
	return make(Table)
}

// Inc increments the count of key by one
func (t Table) Inc(key string) {
	t[key]++
}

// Merge adds every count of other into t.
func (t Table) Merge(other Table) {
	for k, v := range other {
		t[k] += v
	}
}

// Filter returns a new table holding only the keys whose count is at least min.
// A min of 1 or less keeps every key.
func (t Table) Filter(min int64) Table {
	out := make(Table, len(t))
	for k, v := range t {
		if v >= min {
			out[k] = v
		}
	}
	return out
}

// Total returns the sum of all counts
func (t Table) Total() int64 {
	var sum int64
	for _, v := range t {
		sum += v
	}
	return sum
}

// Keys returns the keys in sorted order
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Top returns the k most frequent entries, ties broken alphabetically.
// k <= 0 returns all entries.
func (t Table) Top(k int) []Entry {
	entries := make([]Entry, 0, len(t))
	for key, c := range t {
		entries = append(entries, Entry{Key: key, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})
	if k > 0 && len(entries) > k {
		entries = entries[:k]
	}
	return entries
}

// Clone returns a copy of t
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Equal reports whether both tables hold the same non-zero counts
func (t Table) Equal(other Table) bool {
	if len(t) != len(other) {
		return false
	}
	for k, v := range t {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
