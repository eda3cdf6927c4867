// Package tokenizer defines the pluggable tokenizer-provider boundary
// described in spec §6: "external capability turning text into tokens and
// back, selected by model or encoding name."
package tokenizer

// Provider turns text into tokens and back. Implementations are expected
// to be safe for concurrent use; Release lets an implementation free any
// per-encoding native resources.
type Provider interface {
	Encode(text string) ([]int, error)
	Decode(tokens []int) (string, error)
	Release()
}

// Options selects an encoding: Model picks an encoding for a named model
// family, Encoding picks a named encoding directly, and an empty Options
// falls back to the default Unicode-BPE-compatible encoding.
type Options struct {
	Model    string
	Encoding string
}
