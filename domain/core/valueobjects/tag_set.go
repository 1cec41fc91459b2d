package valueobjects

import (
	"strings"
)

// TagSet is a value object holding a memory's tags as an ordered set:
// insertion order is preserved, duplicates are collapsed to the first
// occurrence, surrounding whitespace is trimmed, and empty labels dropped.
type TagSet struct {
	values []string
}

// NewTagSet normalizes the given labels into a TagSet.
func NewTagSet(tags []string) TagSet {
	if len(tags) == 0 {
		return TagSet{}
	}

	seen := make(map[string]struct{}, len(tags))
	values := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		values = append(values, tag)
	}
	if len(values) == 0 {
		return TagSet{}
	}
	return TagSet{values: values}
}

// Values returns the tags in order. The returned slice is a copy.
func (t TagSet) Values() []string {
	if len(t.values) == 0 {
		return []string{}
	}
	out := make([]string, len(t.values))
	copy(out, t.values)
	return out
}

// Contains checks for an exact tag match
func (t TagSet) Contains(tag string) bool {
	for _, v := range t.values {
		if v == tag {
			return true
		}
	}
	return false
}

// Intersects reports whether any of the given tags is present.
func (t TagSet) Intersects(tags []string) bool {
	for _, tag := range tags {
		if t.Contains(tag) {
			return true
		}
	}
	return false
}

// Len returns the number of tags
func (t TagSet) Len() int {
	return len(t.values)
}

// IsEmpty checks if the set has no tags
func (t TagSet) IsEmpty() bool {
	return len(t.values) == 0
}

// Equals checks if two tag sets hold the same tags in the same order
func (t TagSet) Equals(other TagSet) bool {
	if len(t.values) != len(other.values) {
		return false
	}
	for i, v := range t.values {
		if other.values[i] != v {
			return false
		}
	}
	return true
}

// Joined returns the tags joined by a single space, used when feeding the
// full-text index.
func (t TagSet) Joined() string {
	return strings.Join(t.values, " ")
}
