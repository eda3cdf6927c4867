// Package decompose implements the Decomposer (C3): seven chunking
// strategies sharing one chunk-emit pipeline and a MAX_CHUNKS guard,
// modeled as a tagged variant per spec §9 ("Polymorphism across chunking
// strategies"). Grounded on the teacher's LanguageParser registry pattern
// (internal/chunking/chunking.go: a map[Language]Parser dispatch plus a
// fallback path), generalized here from per-language parsers to
// per-strategy splitters.
package decompose

import (
	"time"

	"github.com/google/uuid"

	"github.com/ctxrelay/rlm-server/internal/apperrors"
	"github.com/ctxrelay/rlm-server/internal/tokenizer"
)

// Strategy names the seven chunking variants.
type Strategy string

const (
	FixedSize    Strategy = "fixed_size"
	ByLines      Strategy = "by_lines"
	ByParagraphs Strategy = "by_paragraphs"
	BySections   Strategy = "by_sections"
	ByRegex      Strategy = "by_regex"
	BySentences  Strategy = "by_sentences"
	ByTokens     Strategy = "by_tokens"
)

// DefaultMaxChunks is the MAX_CHUNKS guard shared by every strategy.
const DefaultMaxChunks = 100000

// Chunk is one slice of a context with stable offsets into the original
// text and per-strategy metadata.
type Chunk struct {
	Index       int                    `json:"index"`
	StartOffset int                    `json:"startOffset"`
	EndOffset   int                    `json:"endOffset"`
	Content     string                 `json:"content"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Record is an opaque, immutable-after-creation pointer letting later
// calls reproduce a prior split without re-transmitting parameters.
type Record struct {
	ID        string
	ContextID string
	Strategy  Strategy
	Options   map[string]interface{}
	CreatedAt time.Time
}

// NewRecord stamps a fresh DecompositionRecord.
func NewRecord(contextID string, strategy Strategy, options map[string]interface{}) *Record {
	return &Record{
		ID:        uuid.NewString(),
		ContextID: contextID,
		Strategy:  strategy,
		Options:   options,
		CreatedAt: time.Now().UTC(),
	}
}

// Deps carries the external collaborators a strategy may need.
type Deps struct {
	MaxChunks int
	Tokenizer tokenizer.Provider // required only for ByTokens
}

// Decompose dispatches text to the named strategy's splitter and enforces
// the MAX_CHUNKS guard shared across every strategy.
func Decompose(text string, strategy Strategy, options map[string]interface{}, deps Deps) ([]Chunk, error) {
	maxChunks := deps.MaxChunks
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}

	var (
		chunks []Chunk
		err    error
	)

	switch strategy {
	case FixedSize:
		chunks, err = fixedSize(text, options)
	case ByLines:
		chunks, err = byLines(text, options)
	case ByParagraphs:
		chunks, err = byParagraphs(text, options)
	case BySections:
		chunks, err = bySections(text, options)
	case ByRegex:
		chunks, err = byRegex(text, options)
	case BySentences:
		chunks, err = bySentences(text, options)
	case ByTokens:
		chunks, err = byTokens(text, options, deps.Tokenizer)
	default:
		return nil, apperrors.Newf(apperrors.ValidationInvalidInput, "unknown decomposition strategy %q", strategy)
	}
	if err != nil {
		return nil, err
	}

	if len(chunks) > maxChunks {
		return nil, apperrors.Newf(apperrors.ResourceChunkLimit, "decomposition produced %d chunks, exceeding the %d limit", len(chunks), maxChunks)
	}
	return chunks, nil
}

func optInt(options map[string]interface{}, key string, def int) int {
	if options == nil {
		return def
	}
	v, ok := options[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

func optString(options map[string]interface{}, key, def string) string {
	if options == nil {
		return def
	}
	if v, ok := options[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func optBool(options map[string]interface{}, key string, def bool) bool {
	if options == nil {
		return def
	}
	if v, ok := options[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}
