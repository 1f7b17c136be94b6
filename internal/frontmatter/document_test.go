package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func TestParse_NoHeader(t *testing.T) {
	doc, err := Parse([]byte("Just prose.\n"))
	require.NoError(t, err)
	assert.False(t, doc.Present)
	assert.Empty(t, doc.Header.Content)
	assert.Equal(t, "Just prose.\n", doc.Body)
}

func TestParse_ErrorKinds(t *testing.T) {
	tests := []struct {
		src  string
		kind ferrors.ErrorKind
	}{
		{"---\ntitle: hello\n\nbody text\n", ferrors.MalformedFrontMatterKind},
		{"---\njust a string\n---\nbody\n", ferrors.InvalidMetadataSyntaxKind},
		{"---\n- a\n- b\n---\nbody\n", ferrors.InvalidMetadataSyntaxKind},
		{"---\ntitle: [unclosed\n---\nbody\n", ferrors.InvalidMetadataSyntaxKind},
	}
	for _, tt := range tests {
		_, err := Parse([]byte(tt.src))
		require.Error(t, err, tt.src)
		assert.Equal(t, tt.kind, ferrors.KindOf(err), tt.src)
	}
}

func TestRender_BodyOpeningWithDelimiterGetsHeader(t *testing.T) {
	out, err := Render(Document{Header: EmptyMapping(), Body: "---\nnot a header\n"})
	require.NoError(t, err)
	assert.Equal(t, "---\n---\n---\nnot a header\n", string(out))

	doc, err := Parse(out)
	require.NoError(t, err)
	assert.Empty(t, doc.Header.Content)
	assert.Equal(t, "---\nnot a header\n", doc.Body)
}

func TestRender_ReproducesParsedSource(t *testing.T) {
	for _, src := range []string{
		"---\n---\nbody\n",
		"plain body\n",
		"---\ntitle: Hello\ntags:\n  - go\n---\nbody\n",
		"---\r\ntitle: Hello\r\n---\r\nbody\r\n",
	} {
		doc, err := Parse([]byte(src))
		require.NoError(t, err, src)
		out, err := Render(doc)
		require.NoError(t, err, src)
		assert.Equal(t, src, string(out))
	}
}
