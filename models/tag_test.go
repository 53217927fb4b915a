package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEntries() []TagEntry {
	return []TagEntry{
		{Name: "FOOD", Code: "FD"},
		{Name: "HOUSING", Code: "HS"},
		{Name: "TRANSPORTATION", Code: "TR"},
		{Name: "UTILITIES", Code: "UT"},
	}
}

func TestValidateKnownCode(t *testing.T) {
	s, err := NewTagSet(baseEntries()...)
	require.NoError(t, err)

	entry, err := s.Validate("FD")
	require.NoError(t, err)
	assert.Equal(t, "FOOD", entry.Name)
	assert.Equal(t, Tag("FD"), entry.Code)
}

func TestValidateUnknownCode(t *testing.T) {
	s, err := NewTagSet(baseEntries()...)
	require.NoError(t, err)

	for _, code := range []Tag{"CL", "XX", "", "fd"} {
		_, err := s.Validate(code)
		assert.ErrorIs(t, err, ErrInvalidTag, "code %q", code)
	}
}

func TestRoundTripNameCodeName(t *testing.T) {
	s, err := NewTagSet(baseEntries()...)
	require.NoError(t, err)

	for _, e := range s.All() {
		code, err := s.CodeFor(e.Name)
		require.NoError(t, err)
		label, err := s.LabelFor(code)
		require.NoError(t, err)
		assert.Equal(t, e.Name, label)
		back, err := s.CodeFor(label)
		require.NoError(t, err)
		assert.Equal(t, code, back)
	}
}

func TestLookupErrors(t *testing.T) {
	s, err := NewTagSet(baseEntries()...)
	require.NoError(t, err)

	_, err = s.LabelFor("ZZ")
	assert.ErrorIs(t, err, ErrUnknownTagCode)

	_, err = s.CodeFor("GROCERIES")
	assert.ErrorIs(t, err, ErrUnknownTagName)
}

func TestDuplicateCodeIsFatal(t *testing.T) {
	_, err := NewTagSet(
		TagEntry{Name: "FOOD", Code: "FD"},
		TagEntry{Name: "FUEL", Code: "FD"},
	)
	require.ErrorIs(t, err, ErrDuplicateTagCode)
	assert.Contains(t, err.Error(), "FOOD")
	assert.Contains(t, err.Error(), "FUEL")

	assert.Panics(t, func() {
		MustTagSet(
			TagEntry{Name: "FOOD", Code: "FD"},
			TagEntry{Name: "FUEL", Code: "FD"},
		)
	})
}

func TestDuplicateNameIsFatal(t *testing.T) {
	_, err := NewTagSet(
		TagEntry{Name: "FOOD", Code: "FD"},
		TagEntry{Name: "FOOD", Code: "FO"},
	)
	assert.ErrorIs(t, err, ErrDuplicateTagName)
}

func TestCodeWidthLimit(t *testing.T) {
	_, err := NewTagSet(TagEntry{Name: "FOOD", Code: "FOOD"})
	assert.Error(t, err)
}

func TestAllStableOrder(t *testing.T) {
	s, err := NewTagSet(baseEntries()...)
	require.NoError(t, err)

	first := s.All()
	second := s.All()
	require.Equal(t, first, second)
	assert.Equal(t, baseEntries(), first)

	// callers may scribble on the returned slice without affecting the table
	first[0] = TagEntry{Name: "HACKED", Code: "ZZ"}
	again := s.All()
	assert.Equal(t, "FOOD", again[0].Name)
}

func TestAdditiveEvolution(t *testing.T) {
	v1, err := NewTagSet(baseEntries()...)
	require.NoError(t, err)

	_, err = v1.Validate("CL")
	require.ErrorIs(t, err, ErrInvalidTag)

	// next release appends CLOTHING; existing codes keep their meaning
	v2, err := NewTagSet(append(baseEntries(), TagEntry{Name: "CLOTHING", Code: "CL"})...)
	require.NoError(t, err)

	entry, err := v2.Validate("CL")
	require.NoError(t, err)
	assert.Equal(t, "CLOTHING", entry.Name)

	for _, e := range baseEntries() {
		got, err := v2.Validate(e.Code)
		require.NoError(t, err)
		assert.Equal(t, e.Name, got.Name)
	}
}

func TestProcessWideTable(t *testing.T) {
	require.Equal(t, 4, Tags.Len())
	code, err := Tags.CodeFor("TRANSPORTATION")
	require.NoError(t, err)
	assert.Equal(t, Tag("TR"), code)
	assert.LessOrEqual(t, len(code), TagMaxLen)
}
