package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		header  string
		body    string
		present bool
		newline string
	}{
		{name: "no header", src: "# Title\n\nHello\n", body: "# Title\n\nHello\n", newline: "\n"},
		{name: "header and body", src: "---\ntitle: Hi\n---\n# Title\n", header: "title: Hi\n", body: "# Title\n", present: true, newline: "\n"},
		{name: "empty header", src: "---\n---\nbody\n", body: "body\n", present: true, newline: "\n"},
		{name: "crlf", src: "---\r\ntitle: Hi\r\n---\r\nbody\r\n", header: "title: Hi\r\n", body: "body\r\n", present: true, newline: "\r\n"},
		{name: "close at end of file", src: "---\ntitle: Hi\n---", header: "title: Hi\n", present: true, newline: "\n"},
		{name: "delimiter inside body", src: "---\na: 1\n---\nintro\n---\nmore\n", header: "a: 1\n", body: "intro\n---\nmore\n", present: true, newline: "\n"},
		{name: "dashes without line break", src: "---", body: "---", newline: "\n"},
		{name: "longer rule is not a delimiter", src: "----\ntext\n", body: "----\ntext\n", newline: "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Split([]byte(tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.header, string(b.Header))
			assert.Equal(t, tt.body, string(b.Body))
			assert.Equal(t, tt.present, b.Present)
			assert.Equal(t, tt.newline, b.Newline)
		})
	}
}

func TestSplit_Unterminated(t *testing.T) {
	for _, src := range []string{"---\ntitle: x\n\nbody\n", "---\n", "---\r\ntitle: x\r\n"} {
		_, err := Split([]byte(src))
		assert.ErrorIs(t, err, ErrUnterminated, src)
	}
}

func TestBlock_BytesReassemblesSource(t *testing.T) {
	for _, src := range []string{
		"# Title\n\nHello\n",
		"---\ntitle: Hi\n---\n# Title\n",
		"---\n---\n# Title\n",
		"---\r\ntitle: Hi\r\n---\r\n# Title\r\n",
	} {
		b, err := Split([]byte(src))
		require.NoError(t, err)
		assert.Equal(t, src, string(b.Bytes()))
	}
}

func TestBlock_BytesTerminatesHeaderLine(t *testing.T) {
	b := Block{Header: []byte("a: 1"), Body: []byte("x"), Present: true, Newline: "\r\n"}
	assert.Equal(t, "---\r\na: 1\r\n---\r\nx", string(b.Bytes()))
}
