package decompose

import (
	"regexp"
	"strings"

	"github.com/ctxrelay/rlm-server/internal/apperrors"
	"github.com/ctxrelay/rlm-server/internal/search"
	"github.com/ctxrelay/rlm-server/internal/tokenizer"
)

func fixedSize(text string, options map[string]interface{}) ([]Chunk, error) {
	chunkSize := optInt(options, "chunkSize", 1000)
	overlap := optInt(options, "overlap", 0)
	if chunkSize < 1 {
		return nil, apperrors.New(apperrors.ValidationInvalidInput, "chunkSize must be >= 1")
	}
	step := chunkSize - overlap
	if step <= 0 {
		return nil, apperrors.New(apperrors.ValidationInvalidInput, "overlap must be smaller than chunkSize")
	}

	var chunks []Chunk
	n := len(text)
	for i, start := 0, 0; start < n; i, start = i+1, start+step {
		end := start + chunkSize
		if end > n {
			end = n
		}
		chunks = append(chunks, Chunk{Index: i, StartOffset: start, EndOffset: end, Content: text[start:end]})
	}
	if len(chunks) == 0 && n == 0 {
		chunks = []Chunk{{Index: 0, StartOffset: 0, EndOffset: 0, Content: ""}}
	}
	return chunks, nil
}

// lineStarts returns the byte offset where each line (0-indexed) begins,
// plus a final sentinel entry at len(text).
func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	starts = append(starts, len(text))
	return starts
}

func byLines(text string, options map[string]interface{}) ([]Chunk, error) {
	linesPerChunk := optInt(options, "linesPerChunk", 50)
	overlap := optInt(options, "overlap", 0)
	if linesPerChunk < 1 {
		return nil, apperrors.New(apperrors.ValidationInvalidInput, "linesPerChunk must be >= 1")
	}
	step := linesPerChunk - overlap
	if step < 1 {
		step = 1
	}

	starts := lineStarts(text)
	numLines := len(starts) - 1 // sentinel excluded
	if text == "" {
		return []Chunk{{Index: 0, StartOffset: 0, EndOffset: 0, Content: "", Metadata: map[string]interface{}{
			"startLine": 0, "endLine": 0, "lineCount": 0,
		}}}, nil
	}

	var chunks []Chunk
	idx := 0
	for lineStart := 0; lineStart < numLines; lineStart += step {
		lineEnd := lineStart + linesPerChunk
		if lineEnd > numLines {
			lineEnd = numLines
		}
		startOffset := starts[lineStart]
		endOffset := starts[lineEnd]
		content := text[startOffset:endOffset]
		content = strings.TrimSuffix(content, "\n")

		chunks = append(chunks, Chunk{
			Index: idx, StartOffset: startOffset, EndOffset: endOffset, Content: content,
			Metadata: map[string]interface{}{
				"startLine": lineStart, "endLine": lineEnd - 1, "lineCount": lineEnd - lineStart,
			},
		})
		idx++
	}
	return chunks, nil
}

var paragraphSplit = regexp.MustCompile(`\n{2,}`)

func byParagraphs(text string, _ map[string]interface{}) ([]Chunk, error) {
	var chunks []Chunk
	idx := 0
	pos := 0
	locs := paragraphSplit.FindAllStringIndex(text, -1)
	segStart := 0
	emit := func(rawStart, rawEnd int) {
		raw := text[rawStart:rawEnd]
		trimmedStart, trimmedEnd := trimRange(raw)
		if trimmedStart >= trimmedEnd {
			return
		}
		content := raw[trimmedStart:trimmedEnd]
		chunks = append(chunks, Chunk{
			Index: idx, StartOffset: rawStart + trimmedStart, EndOffset: rawStart + trimmedEnd,
			Content: content, Metadata: map[string]interface{}{"type": "paragraph"},
		})
		idx++
	}
	for _, loc := range locs {
		emit(segStart, loc[0])
		segStart = loc[1]
	}
	emit(segStart, len(text))
	_ = pos
	return chunks, nil
}

// trimRange returns the [start,end) slice of s with leading/trailing
// whitespace trimmed, expressed as offsets so callers can translate back
// into the original text.
func trimRange(s string) (int, int) {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return start, end
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

var sectionHeader = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

func bySections(text string, options map[string]interface{}) ([]Chunk, error) {
	mergeEmpty := optBool(options, "mergeEmptySections", false)
	minLen := optInt(options, "minSectionLength", 0)

	locs := sectionHeader.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return []Chunk{{Index: 0, StartOffset: 0, EndOffset: len(text), Content: text,
			Metadata: map[string]interface{}{"type": "single"}}}, nil
	}

	var chunks []Chunk
	idx := 0

	if preambleEnd := locs[0][0]; preambleEnd > 0 {
		pStart, pEnd := trimRange(text[0:preambleEnd])
		if pEnd > pStart {
			chunks = append(chunks, Chunk{
				Index: idx, StartOffset: pStart, EndOffset: pEnd, Content: text[pStart:pEnd],
				Metadata: map[string]interface{}{"type": "preamble"},
			})
			idx++
		}
	}

	for i, loc := range locs {
		headerStart := loc[0]
		level := loc[3] - loc[2]
		title := text[loc[4]:loc[5]]

		sectionEnd := len(text)
		if i+1 < len(locs) {
			sectionEnd = locs[i+1][0]
		}
		sStart, sEnd := headerStart, sectionEnd
		trimmedStart, trimmedEnd := trimRange(text[sStart:sEnd])
		content := text[sStart : sStart+trimmedEnd][trimmedStart:]

		if mergeEmpty && len(chunks) > 0 && len(strings.TrimSpace(content)) <= minLen {
			prev := &chunks[len(chunks)-1]
			prev.EndOffset = sStart + trimmedEnd
			prev.Content = text[prev.StartOffset:prev.EndOffset]
			continue
		}

		chunks = append(chunks, Chunk{
			Index: idx, StartOffset: sStart, EndOffset: sStart + trimmedEnd, Content: content,
			Metadata: map[string]interface{}{
				"level": level, "title": title, "type": "section",
				"tags": []string{"section", sectionLevelTag(level)},
			},
		})
		idx++
	}
	return chunks, nil
}

func sectionLevelTag(level int) string {
	return "level-" + itoa(level)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	buf := [8]byte{}
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func byRegex(text string, options map[string]interface{}) ([]Chunk, error) {
	pattern := optString(options, "pattern", "")
	if pattern == "" {
		return nil, apperrors.New(apperrors.ValidationMissingField, "pattern is required for by_regex")
	}
	// The same ReDoS-safe validation path used by the Searcher, imported
	// here rather than reimplemented, per spec §4.6 ("a ReDoS-safe regex
	// facility used both inside and outside the sandbox").
	if _, err := search.ValidateRegex(pattern); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.SearchInvalidRegex, err, "pattern failed to compile")
	}

	var chunks []Chunk
	idx := 0
	segStart := 0
	locs := re.FindAllStringIndex(text, -1)
	emit := func(rawStart, rawEnd int) {
		raw := text[rawStart:rawEnd]
		ts, te := trimRange(raw)
		if ts >= te {
			return
		}
		chunks = append(chunks, Chunk{
			Index: idx, StartOffset: rawStart + ts, EndOffset: rawStart + te, Content: raw[ts:te],
		})
		idx++
	}
	for _, loc := range locs {
		emit(segStart, loc[0])
		segStart = loc[1]
	}
	emit(segStart, len(text))
	return chunks, nil
}

var sentenceSplit = regexp.MustCompile(`[^.!?]+[.!?]+\s*`)

func bySentences(text string, _ map[string]interface{}) ([]Chunk, error) {
	locs := sentenceSplit.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		if text == "" {
			return nil, nil
		}
		return []Chunk{{Index: 0, StartOffset: 0, EndOffset: len(text), Content: text,
			Metadata: map[string]interface{}{"type": "sentence"}}}, nil
	}
	var chunks []Chunk
	idx := 0
	for _, loc := range locs {
		ts, te := trimRange(text[loc[0]:loc[1]])
		start, end := loc[0]+ts, loc[0]+te
		if start >= end {
			continue
		}
		chunks = append(chunks, Chunk{
			Index: idx, StartOffset: start, EndOffset: end, Content: text[start:end],
			Metadata: map[string]interface{}{"type": "sentence"},
		})
		idx++
	}
	return chunks, nil
}

func byTokens(text string, options map[string]interface{}, provider tokenizer.Provider) ([]Chunk, error) {
	if provider == nil {
		return nil, apperrors.New(apperrors.ValidationInvalidInput, "tokenizer is unavailable")
	}
	tokensPerChunk := optInt(options, "tokensPerChunk", 500)
	tokenOverlap := optInt(options, "tokenOverlap", 0)
	if tokensPerChunk < 1 {
		return nil, apperrors.New(apperrors.ValidationInvalidInput, "tokensPerChunk must be >= 1")
	}
	step := tokensPerChunk - tokenOverlap
	if step <= 0 {
		return nil, apperrors.New(apperrors.ValidationInvalidInput, "tokenOverlap must be smaller than tokensPerChunk")
	}

	tokens, err := provider.Encode(text)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ValidationInvalidInput, err, "tokenizer failed to encode text")
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	// Reconstruct character offsets by decoding token prefixes and summing
	// their lengths, per spec §4.3.
	prefixLen := make([]int, len(tokens)+1)
	for i := 1; i <= len(tokens); i++ {
		decoded, derr := provider.Decode(tokens[:i])
		if derr != nil {
			return nil, apperrors.Wrap(apperrors.ExecutionSandboxError, derr, "tokenizer failed to decode prefix")
		}
		prefixLen[i] = len(decoded)
	}

	var chunks []Chunk
	idx := 0
	for start := 0; start < len(tokens); start += step {
		end := start + tokensPerChunk
		if end > len(tokens) {
			end = len(tokens)
		}
		content, derr := provider.Decode(tokens[start:end])
		if derr != nil {
			return nil, apperrors.Wrap(apperrors.ExecutionSandboxError, derr, "tokenizer failed to decode chunk")
		}
		chunks = append(chunks, Chunk{
			Index: idx, StartOffset: prefixLen[start], EndOffset: prefixLen[end], Content: content,
			Metadata: map[string]interface{}{
				"token_start": start, "token_end": end, "token_count": end - start,
			},
		})
		idx++
		if end == len(tokens) {
			break
		}
	}
	return chunks, nil
}
