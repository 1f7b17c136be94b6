package frontmatter

import (
	"strings"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Document is a parsed source: the header mapping and the text after it.
type Document struct {
	Header  *yaml.Node // mapping node, empty when the source had no header
	Body    string
	Present bool
	Newline string
}

// Parse splits raw source text into header and body.
//
// A missing header is not an error. An opened but unterminated header fails
// with MalformedFrontMatterKind; a header that is not a YAML mapping fails
// with InvalidMetadataSyntaxKind.
func Parse(raw []byte) (Document, error) {
	b, err := Split(raw)
	if err != nil {
		return Document{}, ferrors.ContentError(ferrors.MalformedFrontMatterKind, "front matter is opened but never closed").
			WithCause(err).
			Build()
	}
	header, err := Decode(b.Header)
	if err != nil {
		return Document{}, ferrors.ContentError(ferrors.InvalidMetadataSyntaxKind, "front matter is not a valid key/value mapping").
			WithCause(err).
			Build()
	}
	return Document{Header: header, Body: string(b.Body), Present: b.Present, Newline: b.Newline}, nil
}

// Render assembles a document. The header block is written when it has
// entries, when doc.Present is set, or when the body opens with a delimiter
// line that would otherwise be read back as a header.
func Render(doc Document) ([]byte, error) {
	header, err := Encode(doc.Header, doc.Newline)
	if err != nil {
		return nil, ferrors.ContentError(ferrors.InvalidMetadataSyntaxKind, "front matter cannot be serialized").
			WithCause(err).
			Build()
	}
	b := Block{
		Header:  header,
		Body:    []byte(doc.Body),
		Present: doc.Present || len(header) > 0 || opensWithDelimiter(doc.Body),
		Newline: doc.Newline,
	}
	return b.Bytes(), nil
}

func opensWithDelimiter(body string) bool {
	line, _, _ := strings.Cut(body, "\n")
	return strings.TrimSuffix(line, "\r") == delimiter
}
