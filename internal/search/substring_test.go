package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindAllCaseSensitive(t *testing.T) {
	matches := FindAll("Cat cat CAT", "cat", SubstringOptions{CaseSensitive: true})
	assert.Len(t, matches, 1)
	assert.Equal(t, 4, matches[0].Offset)
}

func TestFindAllCaseInsensitiveByDefault(t *testing.T) {
	matches := FindAll("Cat cat CAT", "cat", SubstringOptions{})
	assert.Len(t, matches, 3)
}

func TestFindAllEmptyNeedleReturnsNoMatches(t *testing.T) {
	matches := FindAll("anything", "", SubstringOptions{})
	assert.Nil(t, matches)
}

func TestFindAllRespectsMatchCap(t *testing.T) {
	matches := FindAll("aaaaaaaaaa", "a", SubstringOptions{MatchCap: 2})
	assert.Len(t, matches, 2)
}

func TestFindAllIncludesContextWindow(t *testing.T) {
	matches := FindAll("before needle after", "needle", SubstringOptions{ContextWindow: 3})
	assert.Len(t, matches, 1)
	assert.Equal(t, "re needle af", matches[0].Context)
}
