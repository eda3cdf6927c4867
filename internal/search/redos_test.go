package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ctxrelay/rlm-server/internal/apperrors"
)

func TestValidateRegexRejectsNestedQuantifier(t *testing.T) {
	_, err := ValidateRegex("(a+)+b")
	assert.Error(t, err, "E4: (a+)+b must be rejected before compilation")
	assert.True(t, apperrors.Is(err, apperrors.SearchInvalidRegex))
}

func TestValidateRegexRejectsNestedGroupOfQuantifiers(t *testing.T) {
	_, err := ValidateRegex("(a+b+)+")
	assert.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.SearchInvalidRegex))
}

func TestValidateRegexRejectsExcessivePatternLength(t *testing.T) {
	_, err := ValidateRegex(strings.Repeat("a", MaxPatternLen+1))
	assert.Error(t, err)
}

func TestValidateRegexRejectsExcessiveAlternation(t *testing.T) {
	alts := make([]string, 60)
	for i := range alts {
		alts[i] = "x"
	}
	_, err := ValidateRegex("(" + strings.Join(alts, "|") + ")")
	assert.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.SearchInvalidRegex))
}

func TestValidateRegexWarnsButAcceptsModerateAlternation(t *testing.T) {
	alts := make([]string, 15)
	for i := range alts {
		alts[i] = "x"
	}
	warnings, err := ValidateRegex("(" + strings.Join(alts, "|") + ")")
	assert.NoError(t, err)
	assert.NotEmpty(t, warnings)
}

func TestValidateRegexAcceptsOrdinaryPatterns(t *testing.T) {
	for _, p := range []string{`\d{4}-\d{2}-\d{2}`, `(ab)+`, `foo|bar`, `[A-Za-z_]+`} {
		_, err := ValidateRegex(p)
		assert.NoError(t, err, "pattern %q should be accepted", p)
	}
}

func TestValidateRegexRejectsCompileFailure(t *testing.T) {
	_, err := ValidateRegex("(unclosed")
	assert.Error(t, err)
}
