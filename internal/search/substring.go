package search

import "strings"

// SubstringOptions configures FindAll.
type SubstringOptions struct {
	CaseSensitive bool
	MatchCap      int
	ContextWindow int
}

// FindAll performs a plain substring scan, capped at the same match limit
// as regex search.
func FindAll(text, needle string, opts SubstringOptions) []Match {
	if needle == "" {
		return nil
	}
	cap := opts.MatchCap
	if cap <= 0 {
		cap = DefaultMatchCap
	}

	haystack, pattern := text, needle
	if !opts.CaseSensitive {
		haystack = strings.ToLower(text)
		pattern = strings.ToLower(needle)
	}

	lt := NewLineTable(text)
	var matches []Match
	pos := 0
	for len(matches) < cap {
		idx := strings.Index(haystack[pos:], pattern)
		if idx < 0 {
			break
		}
		start := pos + idx
		end := start + len(needle)
		m := Match{
			Line:      lt.LineAt(start),
			Text:      text[start:end],
			Offset:    start,
			EndOffset: end,
		}
		if opts.ContextWindow > 0 {
			m.Context = windowAround(text, start, end, opts.ContextWindow)
		}
		matches = append(matches, m)
		pos = end
	}
	return matches
}
