package search

import (
	"context"
	"regexp"
	"time"

	"github.com/ctxrelay/rlm-server/internal/apperrors"
)

// DefaultBudget and DefaultMatchCap mirror spec §4.5's stated defaults.
const (
	DefaultBudget   = 1000 * time.Millisecond
	DefaultMatchCap = 10000
)

// Match is one regex or substring hit, reported with its line number (via
// a LineTable), literal text, offset, optional capture groups, and a
// surrounding context window.
type Match struct {
	Line     int      `json:"line"`
	Text     string   `json:"text"`
	Offset   int      `json:"offset"`
	EndOffset int     `json:"endOffset"`
	Groups   []string `json:"groups,omitempty"`
	Context  string   `json:"context,omitempty"`
}

// RegexOptions configures a single regex search call.
type RegexOptions struct {
	Budget        time.Duration
	MatchCap      int
	ContextWindow int // characters of surrounding context; 0 = compact (no window)
}

// Regex runs a validated pattern against text under a wall-clock budget.
// Zero-length matches advance the scan position by one byte to prevent a
// livelock (spec §4.5).
func Regex(ctx context.Context, text, pattern string, opts RegexOptions) ([]Match, error) {
	if _, err := ValidateRegex(pattern); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.SearchInvalidRegex, err, "pattern failed to compile")
	}

	budget := opts.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}
	cap := opts.MatchCap
	if cap <= 0 {
		cap = DefaultMatchCap
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	lt := NewLineTable(text)
	var matches []Match

	done := make(chan struct{})
	var workErr error

	go func() {
		defer close(done)
		pos := 0
		for pos <= len(text) && len(matches) < cap {
			select {
			case <-deadlineCtx.Done():
				workErr = apperrors.New(apperrors.SearchRegexTimeout, "regex search exceeded time budget")
				return
			default:
			}

			loc := re.FindStringSubmatchIndex(text[pos:])
			if loc == nil {
				break
			}
			start, end := pos+loc[0], pos+loc[1]

			m := Match{
				Line:      lt.LineAt(start),
				Text:      text[start:end],
				Offset:    start,
				EndOffset: end,
			}
			if len(loc) > 2 {
				for i := 2; i < len(loc); i += 2 {
					if loc[i] < 0 {
						m.Groups = append(m.Groups, "")
						continue
					}
					m.Groups = append(m.Groups, text[pos+loc[i]:pos+loc[i+1]])
				}
			}
			if opts.ContextWindow > 0 {
				m.Context = windowAround(text, start, end, opts.ContextWindow)
			}
			matches = append(matches, m)

			if end == start {
				pos = end + 1
			} else {
				pos = end
			}
		}
	}()

	select {
	case <-done:
		if workErr != nil {
			return nil, workErr
		}
		return matches, nil
	case <-deadlineCtx.Done():
		return nil, apperrors.New(apperrors.SearchRegexTimeout, "regex search exceeded time budget")
	}
}

func windowAround(text string, start, end, window int) string {
	lo := start - window
	if lo < 0 {
		lo = 0
	}
	hi := end + window
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}
