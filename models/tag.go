package models

import (
	"errors"
	"fmt"
)

// TagMaxLen is the fixed column width for stored tag codes. It is not derived
// from the current number of tags so the schema stays put as the set grows.
const TagMaxLen = 2

// Tag is the compact code stored on an expense row (e.g. "FD" for FOOD).
type Tag string

// TagEntry pairs a human-readable symbolic name with its stored code.
type TagEntry struct {
	Name string `json:"name"`
	Code Tag    `json:"code"`
}

var (
	ErrInvalidTag       = errors.New("invalid tag code")
	ErrUnknownTagCode   = errors.New("unknown tag code")
	ErrUnknownTagName   = errors.New("unknown tag name")
	ErrDuplicateTagCode = errors.New("duplicate tag code")
	ErrDuplicateTagName = errors.New("duplicate tag name")
)

// TagSet is an immutable table of valid tags. Once constructed it is
// read-only and safe to share across goroutines without locking.
type TagSet struct {
	entries []TagEntry
	byCode  map[Tag]int
	byName  map[string]int
}

// NewTagSet builds a tag table, keeping declaration order. The set may only
// grow across releases: renaming a symbolic name is safe as long as its code
// stays, but a released code must never be reassigned to a different name, so
// any duplicate code (or name) is rejected here rather than at first use.
func NewTagSet(entries ...TagEntry) (*TagSet, error) {
	s := &TagSet{
		entries: make([]TagEntry, 0, len(entries)),
		byCode:  make(map[Tag]int, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.Name == "" || e.Code == "" {
			return nil, fmt.Errorf("tag entry (%q, %q): name and code are required", e.Name, e.Code)
		}
		if len(e.Code) > TagMaxLen {
			return nil, fmt.Errorf("tag %s: code %q exceeds %d characters", e.Name, e.Code, TagMaxLen)
		}
		if i, ok := s.byCode[e.Code]; ok {
			return nil, fmt.Errorf("%w: %q claimed by both %s and %s", ErrDuplicateTagCode, e.Code, s.entries[i].Name, e.Name)
		}
		if _, ok := s.byName[e.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTagName, e.Name)
		}
		s.byCode[e.Code] = len(s.entries)
		s.byName[e.Name] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return s, nil
}

// MustTagSet is NewTagSet for package-level tables; a broken table is a fatal
// configuration error and stops the process at load time.
func MustTagSet(entries ...TagEntry) *TagSet {
	s, err := NewTagSet(entries...)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks that code is a registered stored code and returns its
// entry. Pure lookup, no side effects.
func (s *TagSet) Validate(code Tag) (TagEntry, error) {
	i, ok := s.byCode[code]
	if !ok {
		return TagEntry{}, fmt.Errorf("%w: %q", ErrInvalidTag, code)
	}
	return s.entries[i], nil
}

// LabelFor returns the symbolic name for a stored code.
func (s *TagSet) LabelFor(code Tag) (string, error) {
	i, ok := s.byCode[code]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTagCode, code)
	}
	return s.entries[i].Name, nil
}

// CodeFor returns the stored code for a symbolic name.
func (s *TagSet) CodeFor(name string) (Tag, error) {
	i, ok := s.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTagName, name)
	}
	return s.entries[i].Code, nil
}

// All returns every (name, code) pair in declaration order. The result is a
// copy; callers may hold on to it.
func (s *TagSet) All() []TagEntry {
	out := make([]TagEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of registered tags.
func (s *TagSet) Len() int { return len(s.entries) }

// Tags is the process-wide tag table. Additive changes only: append new
// entries at the end and never reuse a code that has shipped.
var Tags = MustTagSet(
	TagEntry{Name: "FOOD", Code: "FD"},
	TagEntry{Name: "HOUSING", Code: "HS"},
	TagEntry{Name: "TRANSPORTATION", Code: "TR"},
	TagEntry{Name: "UTILITIES", Code: "UT"},
)
