package decompose

import "strings"

// Named thresholds per SPEC_FULL.md §D.3: kept as exported constants
// rather than inline magic numbers. No tool reports them.
const (
	ParagraphCountThreshold = 10
	LargeInputThreshold     = 50_000
)

// SuggestStrategy implements the heuristic recommendation named in spec
// §9's open questions: a large input with many paragraph breaks favors
// by_paragraphs or by_sections; Markdown headers favor by_sections; short
// plain text favors by_sentences; everything else defaults to fixed_size.
func SuggestStrategy(text string) Strategy {
	if sectionHeader.MatchString(text) {
		return BySections
	}

	paragraphCount := len(paragraphSplit.Split(text, -1))
	if len(text) > LargeInputThreshold && paragraphCount > ParagraphCountThreshold {
		return ByParagraphs
	}
	if len(text) <= LargeInputThreshold && strings.ContainsAny(text, ".!?") {
		return BySentences
	}
	return FixedSize
}
