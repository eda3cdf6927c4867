package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// defaultEncoding is the Unicode-BPE-compatible fallback spec §6 requires
// when neither model nor encoding is specified.
const defaultEncoding = "cl100k_base"

// TiktokenProvider is the default Provider, backed by
// github.com/pkoukk/tiktoken-go -- the same BPE library
// jordigilh-kubernaut uses for LLM token accounting, repurposed here as
// the by_tokens decomposition backend.
type TiktokenProvider struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenProvider resolves an encoding by model name, by explicit
// encoding name, or falls back to defaultEncoding.
func NewTiktokenProvider(opts Options) (*TiktokenProvider, error) {
	var enc *tiktoken.Tiktoken
	var err error

	switch {
	case opts.Model != "":
		enc, err = tiktoken.EncodingForModel(opts.Model)
	case opts.Encoding != "":
		enc, err = tiktoken.GetEncoding(opts.Encoding)
	default:
		enc, err = tiktoken.GetEncoding(defaultEncoding)
	}
	if err != nil {
		return nil, fmt.Errorf("tokenizer unavailable: %w", err)
	}
	return &TiktokenProvider{enc: enc}, nil
}

func (t *TiktokenProvider) Encode(text string) ([]int, error) {
	return t.enc.Encode(text, nil, nil), nil
}

func (t *TiktokenProvider) Decode(tokens []int) (string, error) {
	return t.enc.Decode(tokens), nil
}

// Release is a no-op: tiktoken-go's encodings hold no native handles, but
// the Provider interface requires the method so implementations that do
// hold native resources (e.g. a cgo-backed tokenizer) have somewhere to
// release them.
func (t *TiktokenProvider) Release() {}
