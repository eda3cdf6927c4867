package search

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexFindsMatchesWithLineNumbers(t *testing.T) {
	text := "alpha\nbeta cat\ncat sat\n"
	matches, err := Regex(context.Background(), text, "cat", RegexOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 2, matches[0].Line)
	assert.Equal(t, 3, matches[1].Line)
}

func TestRegexZeroLengthMatchAdvancesPosition(t *testing.T) {
	matches, err := Regex(context.Background(), "abc", "x*", RegexOptions{MatchCap: 50})
	require.NoError(t, err)
	assert.Less(t, len(matches), 50, "zero-length matches must not livelock the scan")
	for _, m := range matches {
		assert.Equal(t, m.Offset, m.EndOffset)
	}
}

func TestRegexRespectsMatchCap(t *testing.T) {
	matches, err := Regex(context.Background(), "aaaaaaaaaa", "a", RegexOptions{MatchCap: 3})
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestRegexCapturesGroupsAndContext(t *testing.T) {
	matches, err := Regex(context.Background(), "key=value", `(\w+)=(\w+)`, RegexOptions{ContextWindow: 2})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"key", "value"}, matches[0].Groups)
	assert.Equal(t, "key=value", matches[0].Context)
}

func TestRegexRejectsInvalidPatternBeforeCompiling(t *testing.T) {
	_, err := Regex(context.Background(), "text", "(a+)+", RegexOptions{})
	assert.Error(t, err)
}

func TestRegexTimesOutOnSlowBudget(t *testing.T) {
	// A budget this small expires before the scan goroutine can report,
	// forcing the timeout branch rather than the happy-path done channel.
	text := strings.Repeat("a", 1<<20)
	_, err := Regex(context.Background(), text, "a", RegexOptions{Budget: time.Nanosecond})
	assert.Error(t, err)
}
