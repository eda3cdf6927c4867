package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiktokenProviderEncodeDecodeRoundTrip(t *testing.T) {
	p, err := NewTiktokenProvider(Options{})
	require.NoError(t, err)
	defer p.Release()

	text := "the quick brown fox jumps over the lazy dog"
	tokens, err := p.Encode(text)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens)

	decoded, err := p.Decode(tokens)
	require.NoError(t, err)
	assert.Equal(t, text, decoded)
}

func TestTiktokenProviderEncodePrefixesAreMonotonicallyLonger(t *testing.T) {
	p, err := NewTiktokenProvider(Options{})
	require.NoError(t, err)
	defer p.Release()

	tokens, err := p.Encode("one two three four five")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(tokens), 2)

	short, err := p.Decode(tokens[:1])
	require.NoError(t, err)
	long, err := p.Decode(tokens[:2])
	require.NoError(t, err)
	assert.Greater(t, len(long), len(short))
}

func TestNewTiktokenProviderFallsBackToDefaultEncoding(t *testing.T) {
	p, err := NewTiktokenProvider(Options{})
	require.NoError(t, err)
	defer p.Release()
	assert.NotNil(t, p)
}

func TestNewTiktokenProviderRejectsUnknownEncoding(t *testing.T) {
	_, err := NewTiktokenProvider(Options{Encoding: "not-a-real-encoding"})
	assert.Error(t, err)
}
