package rules

import (
	"maps"
	"slices"
)

// Bucket maps a rule set name (base filename) to its ordered rule lines.
type Bucket map[string][]string

// Append adds lines to the rule set name, creating it if needed.
func (b Bucket) Append(name string, lines ...string) {
	b[name] = append(b[name], lines...)
}

// Keys returns the rule set names in lexicographic order.
func (b Bucket) Keys() []string {
	return slices.Sorted(maps.Keys(b))
}

// Len returns the total number of lines across all rule sets.
func (b Bucket) Len() int {
	n := 0
	for _, lines := range b {
		n += len(lines)
	}
	return n
}

// Merge concatenates the buckets per rule set name in the given order and
// deduplicates each result, keeping the first occurrence of every line.
func Merge(buckets ...Bucket) Bucket {
	combined := make(Bucket)
	for _, bucket := range buckets {
		// Order within a key only depends on bucket order, not on map iteration
		for name, lines := range bucket {
			combined.Append(name, lines...)
		}
	}

	for name, lines := range combined {
		combined[name] = Dedupe(lines)
	}
	return combined
}

// Dedupe removes duplicate lines by exact string equality, keeping the first
// occurrence and preserving relative order. It is idempotent.
func Dedupe(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	unique := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		unique = append(unique, line)
	}
	return unique
}
