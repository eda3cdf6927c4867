package textstore

import (
	"encoding/json"
	"regexp"
)

var (
	xmlStart       = regexp.MustCompile(`^\s*<\?xml|^\s*<[A-Za-z][\w:.-]*[\s>]`)
	mdHeaderOrList = regexp.MustCompile(`(?m)^(#{1,6}\s+\S|[-*+]\s+\S|\d+\.\s+\S)`)
	codeKeyword    = regexp.MustCompile(`(?m)^\s*(func|def|class|import|package|public|private|#include|fn\s)\b`)
	isoTimestamp   = regexp.MustCompile(`(?m)^\s*\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}`)
	csvCommaLine   = regexp.MustCompile(`^[^,\n]*(,[^,\n]*){1,}$`)
)

// detectStructure runs the ordered heuristics of spec §3 with short-circuit
// semantics: once a non-plain-text tag is assigned, later rules do not
// override it.
func detectStructure(content string) Structure {
	trimmed := trimLeadingSpace(content)
	if trimmed == "" {
		return StructurePlainText
	}

	if looksLikeJSON(trimmed) {
		return StructureJSON
	}
	if xmlStart.MatchString(trimmed) {
		return StructureXML
	}
	if looksLikeCSV(content) {
		return StructureCSV
	}
	if mdHeaderOrList.MatchString(content) {
		return StructureMarkdown
	}
	if codeKeyword.MatchString(content) {
		return StructureCode
	}
	if isoTimestamp.MatchString(content) {
		return StructureLog
	}
	return StructurePlainText
}

func trimLeadingSpace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return s[i:]
}

// looksLikeJSON requires JSON-parse success (spec §3), not just bracket
// pairing: a bracket-matched but malformed body like "{not: valid}" must
// not be tagged json. json.Valid walks the input in one pass without
// materializing a value, so this stays O(len) the way bracket pairing was.
func looksLikeJSON(trimmed string) bool {
	if trimmed == "" {
		return false
	}
	first := trimmed[0]
	if first != '{' && first != '[' {
		return false
	}
	return json.Valid([]byte(trimmed))
}

// looksLikeCSV checks comma regularity over the first 10 lines; blank
// lines among them are skipped.
func looksLikeCSV(content string) bool {
	lines := splitLinesLimit(content, 10)
	if len(lines) < 2 {
		return false
	}
	counts := make([]int, 0, len(lines))
	for _, ln := range lines {
		if ln == "" {
			continue
		}
		if !csvCommaLine.MatchString(ln) {
			return false
		}
		counts = append(counts, countRune(ln, ','))
	}
	if len(counts) < 2 {
		return false
	}
	first := counts[0]
	for _, c := range counts[1:] {
		if c != first {
			return false
		}
	}
	return first > 0
}

func countRune(s string, r byte) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == r {
			n++
		}
	}
	return n
}

func splitLinesLimit(content string, limit int) []string {
	lines := make([]string, 0, limit)
	start := 0
	for i := 0; i < len(content) && len(lines) < limit; i++ {
		if content[i] == '\n' {
			lines = append(lines, content[start:i])
			start = i + 1
		}
	}
	if len(lines) < limit && start < len(content) {
		lines = append(lines, content[start:])
	}
	return lines
}
