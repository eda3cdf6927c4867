// Package search implements the Searcher (C5): ReDoS-safe regex search,
// substring scan, and the query-result cache.
//
// Go's own regexp package is RE2-based and cannot itself suffer
// catastrophic backtracking, so the shape rejection below exists to match
// this system's contract (reject known ReDoS-prone shapes before
// compiling), not to protect the underlying engine. No library in the
// example pack performs this kind of static shape analysis, so it is
// implemented directly against regexp/syntax.
package search

import (
	"regexp"
	"regexp/syntax"

	"github.com/ctxrelay/rlm-server/internal/apperrors"
)

// MaxPatternLen is the default hard cap from spec §4.5.
const MaxPatternLen = 500

// ValidateRegex rejects patterns exceeding MaxPatternLen or matching known
// ReDoS-prone shapes (nested quantifiers, nested-group quantifiers,
// excessive alternation). It returns a non-nil warnings slice for
// borderline-but-accepted shapes (high counts of optional groups or
// alternations).
func ValidateRegex(pattern string) (warnings []string, err error) {
	if len(pattern) > MaxPatternLen {
		return nil, apperrors.Newf(apperrors.SearchInvalidRegex, "pattern exceeds %d characters", MaxPatternLen)
	}

	re, parseErr := syntax.Parse(pattern, syntax.Perl)
	if parseErr != nil {
		return nil, apperrors.Wrap(apperrors.SearchInvalidRegex, parseErr, "invalid regex pattern")
	}

	// Shape rejections use INVALID_REGEX per spec invariant #6 and E4
	// ("(a+)+b" MUST be rejected with INVALID_REGEX before compilation).
	// REDOS_DETECTED remains a distinct declared error kind (spec §7) for a
	// future runtime backtracking-budget guard; it is not raised here.
	if hasNestedQuantifier(re) {
		return nil, apperrors.New(apperrors.SearchInvalidRegex, "pattern rejected: nested quantifier shape")
	}
	if hasQuantifiedGroupOfQuantifiers(re) {
		return nil, apperrors.New(apperrors.SearchInvalidRegex, "pattern rejected: nested-group quantifier shape")
	}

	altCount := countAlternations(pattern)
	optionalCount := countOptionalGroups(re)
	if altCount > 50 {
		return nil, apperrors.New(apperrors.SearchInvalidRegex, "pattern rejected: excessive alternation")
	}
	if altCount > 10 {
		warnings = append(warnings, "high alternation count")
	}
	if optionalCount > 10 {
		warnings = append(warnings, "high optional-group count")
	}

	if _, compileErr := regexp.Compile(pattern); compileErr != nil {
		return nil, apperrors.Wrap(apperrors.SearchInvalidRegex, compileErr, "pattern failed to compile")
	}
	return warnings, nil
}

// hasNestedQuantifier detects shapes like (a+)+ or (a*)* : a repeat op
// whose sole/primary sub-expression is itself a repeat op over
// non-trivial content -- the classic catastrophic-backtracking shape
// (spec E4: "(a+)+b" MUST be rejected).
func hasNestedQuantifier(re *syntax.Regexp) bool {
	var walk func(r *syntax.Regexp, underRepeat bool) bool
	walk = func(r *syntax.Regexp, underRepeat bool) bool {
		isRepeat := r.Op == syntax.OpStar || r.Op == syntax.OpPlus || r.Op == syntax.OpRepeat || r.Op == syntax.OpQuest

		if isRepeat && underRepeat {
			return true
		}
		nextUnder := underRepeat || isRepeat
		for _, sub := range r.Sub {
			if walk(sub, nextUnder && isInnerCapture(r)) {
				return true
			}
		}
		return false
	}
	return walk(re, false)
}

// isInnerCapture treats capture groups and plain concatenation/repeat
// nodes as transparent for the "repeat-of-repeat" check, so (a+)+ is
// caught through the intervening OpCapture node.
func isInnerCapture(r *syntax.Regexp) bool {
	switch r.Op {
	case syntax.OpCapture, syntax.OpStar, syntax.OpPlus, syntax.OpRepeat, syntax.OpQuest, syntax.OpConcat:
		return true
	default:
		return false
	}
}

// hasQuantifiedGroupOfQuantifiers finds a repeat operator directly over a
// capture/group containing two or more repeat operators inside it (e.g.
// (a+b+)+), a second catastrophic-backtracking family.
func hasQuantifiedGroupOfQuantifiers(re *syntax.Regexp) bool {
	var countRepeats func(r *syntax.Regexp) int
	countRepeats = func(r *syntax.Regexp) int {
		n := 0
		if r.Op == syntax.OpStar || r.Op == syntax.OpPlus || r.Op == syntax.OpRepeat {
			n++
		}
		for _, sub := range r.Sub {
			n += countRepeats(sub)
		}
		return n
	}

	var walk func(r *syntax.Regexp) bool
	walk = func(r *syntax.Regexp) bool {
		isRepeat := r.Op == syntax.OpStar || r.Op == syntax.OpPlus || r.Op == syntax.OpRepeat
		if isRepeat && len(r.Sub) > 0 {
			inner := r.Sub[0]
			if inner.Op == syntax.OpCapture && len(inner.Sub) > 0 {
				if countRepeats(inner.Sub[0]) >= 2 {
					return true
				}
			}
		}
		for _, sub := range r.Sub {
			if walk(sub) {
				return true
			}
		}
		return false
	}
	return walk(re)
}

// countAlternations counts the '|' operators as written, outside escapes
// and character classes. The parsed tree is not used because the parser
// merges alternatives (x|x|x becomes x, a|b becomes [ab]).
func countAlternations(pattern string) int {
	n, inClass := 0, false
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; {
		case c == '\\':
			i++
		case inClass:
			inClass = c != ']'
		case c == '[':
			inClass = true
		case c == '|':
			n++
		}
	}
	return n
}

func countOptionalGroups(re *syntax.Regexp) int {
	n := 0
	if re.Op == syntax.OpQuest {
		n++
	}
	for _, sub := range re.Sub {
		n += countOptionalGroups(sub)
	}
	return n
}
