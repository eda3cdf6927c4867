package textstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDetectStructure(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    Structure
	}{
		{"json object", `{"a": 1, "b": [1,2,3]}`, StructureJSON},
		{"xml", "<?xml version=\"1.0\"?>\n<root><a/></root>", StructureXML},
		{"markdown headers", "# Title\n\nSome body text.\n\n- item one\n- item two", StructureMarkdown},
		{"code", "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n", StructureCode},
		{"csv", "a,b,c\n1,2,3\n4,5,6\n7,8,9\n", StructureCSV},
		{"plain text", "just some ordinary sentences with no special shape.", StructurePlainText},
		{"bracket-matched but malformed object must not be tagged json", "{not: valid}", StructurePlainText},
		{"bracket-matched but malformed array must not be tagged json", "[1, 2,]", StructurePlainText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New("id", tc.content, time.Now())
			assert.Equal(t, tc.want, c.Metadata.Structure)
		})
	}
}

func TestMetadataCounts(t *testing.T) {
	c := New("id", "hello world\nsecond line", time.Now())
	assert.Equal(t, len("hello world\nsecond line"), c.Metadata.Length)
	assert.Equal(t, 2, c.Metadata.LineCount)
	assert.Equal(t, 4, c.Metadata.WordCount)
}

func TestWithContentPreservesIdentityAndCreatedAt(t *testing.T) {
	created := time.Now().Add(-time.Hour)
	c := New("ctx-1", "hello", created)
	updated := c.WithContent("hello world")

	assert.Equal(t, c.ID, updated.ID)
	assert.Equal(t, created, updated.CreatedAt)
	assert.Equal(t, "hello", c.Content, "WithContent must not mutate the receiver")
	assert.Equal(t, "hello world", updated.Content)
}
