package decompose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestStrategyPrefersSectionsWhenHeadersPresent(t *testing.T) {
	assert.Equal(t, BySections, SuggestStrategy("# Title\n\nbody text here."))
}

func TestSuggestStrategyPrefersSentencesForShortProse(t *testing.T) {
	assert.Equal(t, BySentences, SuggestStrategy("A short sentence. Another one."))
}

func TestSuggestStrategyPrefersParagraphsForLargeManyParagraphInput(t *testing.T) {
	var b strings.Builder
	for i := 0; i < ParagraphCountThreshold+5; i++ {
		b.WriteString(strings.Repeat("word ", 50))
		b.WriteString("\n\n")
	}
	text := b.String()
	if len(text) <= LargeInputThreshold {
		text += strings.Repeat("x", LargeInputThreshold-len(text)+1)
	}
	assert.Equal(t, ByParagraphs, SuggestStrategy(text))
}

func TestSuggestStrategyDefaultsToFixedSize(t *testing.T) {
	assert.Equal(t, FixedSize, SuggestStrategy("nothingspecialhere"))
}
