package models

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/blubywaff/ftag/internal/constants"
)

// Tag validation errors.
var (
	ErrTagTooShort = errors.New("tag is too short")
	ErrInvalidTag  = errors.New("tag has invalid character")
)

// TagSet is a sorted set of unique, normalized tags.
// The zero value is an empty set ready for use.
type TagSet struct {
	inner []string
}

// NewTagSet builds a set from already known tags, skipping invalid ones.
func NewTagSet(tags ...string) TagSet {
	var ts TagSet
	for _, t := range tags {
		_ = ts.Add(t)
	}
	return ts
}

// NormalizeTag lower-cases and trims a raw tag.
func NormalizeTag(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidateTag checks a normalized tag: at least three characters of a-z or '-'.
func ValidateTag(tag string) error {
	if len(tag) < constants.MinTagLength {
		return ErrTagTooShort
	}
	for _, c := range tag {
		if (c < 'a' || c > 'z') && c != '-' {
			return ErrInvalidTag
		}
	}
	return nil
}

// Add normalizes, validates and inserts a tag.
func (ts *TagSet) Add(raw string) error {
	tag := NormalizeTag(raw)
	if err := ValidateTag(tag); err != nil {
		return err
	}
	ts.add(tag)
	return nil
}

// FillFromString adds every tag of a comma separated list and returns the
// entries that were rejected. Empty entries and duplicates are ignored.
func (ts *TagSet) FillFromString(str string) []string {
	bad := make([]string, 0)
	for _, raw := range strings.Split(str, constants.TagSeparator) {
		tag := NormalizeTag(raw)
		if tag == "" {
			continue
		}
		if err := ValidateTag(tag); err != nil {
			bad = append(bad, tag)
			continue
		}
		ts.add(tag)
	}
	return bad
}

// FillFromSlice adds every tag of the slice and returns the entries that were rejected.
func (ts *TagSet) FillFromSlice(tags []string) []string {
	return ts.FillFromString(strings.Join(tags, constants.TagSeparator))
}

// Contains reports whether the set holds tag.
func (ts TagSet) Contains(tag string) bool {
	_, ok := ts.index(tag)
	return ok
}

// Len returns the number of tags.
func (ts TagSet) Len() int {
	return len(ts.inner)
}

// Slice returns a sorted copy of the tags. It is never nil.
func (ts TagSet) Slice() []string {
	out := make([]string, len(ts.inner))
	copy(out, ts.inner)
	return out
}

// Duplicate returns an independent copy of the set.
func (ts TagSet) Duplicate() TagSet {
	return TagSet{inner: ts.Slice()}
}

// Union adds every tag of rhs to the set and returns the set.
func (ts *TagSet) Union(rhs TagSet) *TagSet {
	for _, t := range rhs.inner {
		ts.add(t)
	}
	return ts
}

// Difference removes every tag of rhs from the set and returns the set.
func (ts *TagSet) Difference(rhs TagSet) *TagSet {
	for _, t := range rhs.inner {
		ts.remove(t)
	}
	return ts
}

// String joins the tags with commas.
func (ts TagSet) String() string {
	return strings.Join(ts.inner, constants.TagSeparator)
}

// MarshalJSON encodes the set as a JSON array.
func (ts TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.Slice())
}

// UnmarshalJSON decodes a JSON array, normalizing entries and dropping invalid ones.
func (ts *TagSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts.inner = nil
	ts.FillFromSlice(raw)
	return nil
}

// index returns the position of str and whether it is present. When absent,
// the position is where str would be inserted.
func (ts TagSet) index(str string) (int, bool) {
	i := sort.SearchStrings(ts.inner, str)
	return i, i < len(ts.inner) && ts.inner[i] == str
}

// add inserts a pre-checked tag, reporting whether it was new.
func (ts *TagSet) add(str string) bool {
	i, ok := ts.index(str)
	if ok {
		return false
	}
	ts.inner = append(ts.inner, "")
	copy(ts.inner[i+1:], ts.inner[i:])
	ts.inner[i] = str
	return true
}

// remove deletes a tag, reporting whether it was present.
func (ts *TagSet) remove(str string) bool {
	i, ok := ts.index(str)
	if !ok {
		return false
	}
	ts.inner = append(ts.inner[:i], ts.inner[i+1:]...)
	return true
}
