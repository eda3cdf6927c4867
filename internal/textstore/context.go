// Package textstore implements the Context Store (C2): per-session named
// text entities with derived metadata, append/prepend, and structure
// detection. Grounded on the teacher's SessionContext CRUD shape in
// apps/edge-mcp's context tool provider, generalized from an arbitrary
// JSON blob to "text plus derived structure".
package textstore

import "time"

// Structure is the tagged enum spec §3 assigns at load time.
type Structure string

const (
	StructurePlainText Structure = "plain_text"
	StructureJSON      Structure = "json"
	StructureCSV       Structure = "csv"
	StructureCode      Structure = "code"
	StructureMarkdown  Structure = "markdown"
	StructureXML       Structure = "xml"
	StructureLog       Structure = "log"
	StructureMixed     Structure = "mixed"
)

// Metadata is the derived block re-computed on every load/append.
type Metadata struct {
	Length    int       `json:"length"`
	LineCount int       `json:"lineCount"`
	WordCount int       `json:"wordCount"`
	Structure Structure `json:"structure"`
}

// Context is a session-local named text entity. ID matches
// [A-Za-z0-9_-]+, max 100 chars (validated by the owning session).
type Context struct {
	ID        string
	Content   string
	Metadata  Metadata
	CreatedAt time.Time
}

// New derives metadata and returns a fresh Context, preserving createdAt
// across append/prepend calls made by the owning session.
func New(id, content string, createdAt time.Time) *Context {
	return &Context{ID: id, Content: content, Metadata: deriveMetadata(content), CreatedAt: createdAt}
}

// WithContent returns a new Context value with freshly derived metadata
// and the same id/createdAt -- append/prepend never mutate in place so a
// failed admission check leaves the prior Context intact (atomicity A1).
func (c *Context) WithContent(content string) *Context {
	return &Context{ID: c.ID, Content: content, Metadata: deriveMetadata(content), CreatedAt: c.CreatedAt}
}

func deriveMetadata(content string) Metadata {
	return Metadata{
		Length:    len(content),
		LineCount: countLines(content),
		WordCount: countWords(content),
		Structure: detectStructure(content),
	}
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := 1
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			n++
		}
	}
	return n
}

func countWords(content string) int {
	n := 0
	inWord := false
	for _, r := range content {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if isSpace {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}
