package content

import (
	"path"
	"slices"
	"strings"

	"github.com/inful/mdfp"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
)

// Kind classifies a source unit.
type Kind string

const (
	KindPage Kind = "page"
	KindPost Kind = "post"
)

// Format is the markup language of a document body.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Document is a parsed content source: metadata plus body.
type Document struct {
	Path        string // site-root relative, slash separated
	RelPath     string // relative to the content directory
	Kind        Kind
	Format      Format
	Collection  string // owning collection for posts, "" for pages
	Meta        Metadata
	Body        string
	Hash        string // hash of the raw bytes
	Fingerprint string // canonical metadata+body fingerprint
	MetaHash    string // canonical metadata-only fingerprint
}

// Name is the file name without extension.
func (d *Document) Name() string {
	base := path.Base(d.RelPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Dir is the directory of RelPath, "" at the content root.
func (d *Document) Dir() string {
	dir := path.Dir(d.RelPath)
	if dir == "." {
		return ""
	}
	return dir
}

// ParseDocument parses a discovered document source. Failures carry
// MalformedFrontMatterKind or InvalidMetadataSyntaxKind and the source path.
func ParseDocument(src SourceFile) (*Document, error) {
	parsed, err := frontmatter.Parse(src.Data)
	if err != nil {
		if ce, ok := ferrors.AsClassified(err); ok {
			return nil, ce.WithContext("path", src.Path)
		}
		return nil, err
	}
	meta, err := MetadataFromNode(parsed.Header)
	if err != nil {
		return nil, ferrors.ContentError(ferrors.InvalidMetadataSyntaxKind, "front matter is not a valid key/value mapping").
			WithCause(err).
			WithContext("path", src.Path).
			Build()
	}

	doc := &Document{
		Path:       src.Path,
		RelPath:    src.RelPath,
		Kind:       KindPage,
		Format:     formatFor(src.Path),
		Collection: src.Collection,
		Meta:       meta,
		Body:       parsed.Body,
		Hash:       src.Hash,
	}
	if src.Collection != "" {
		doc.Kind = KindPost
	}

	header, err := canonicalHeader(meta)
	if err != nil {
		return nil, ferrors.ContentError(ferrors.InvalidMetadataSyntaxKind, "metadata cannot be canonicalized").
			WithCause(err).
			WithContext("path", src.Path).
			Build()
	}
	doc.Fingerprint = mdfp.CalculateFingerprintFromParts(header, parsed.Body)
	doc.MetaHash = mdfp.CalculateFingerprintFromParts(header, "")
	return doc, nil
}

// RenderDocument writes metadata and body back as header+body source.
// Parsing the result yields equal metadata and the same body.
func RenderDocument(meta Metadata, body string) ([]byte, error) {
	return frontmatter.Render(frontmatter.Document{Header: meta.Node(), Body: body, Newline: "\n"})
}

// canonicalHeader serializes the metadata, minus any stored fingerprint
// field, as sorted YAML without the trailing newline.
func canonicalHeader(meta Metadata) (string, error) {
	header := meta.Node()
	for i := 0; i+1 < len(header.Content); i += 2 {
		if header.Content[i].Value == mdfp.FingerprintField {
			header.Content = slices.Delete(header.Content, i, i+2)
			break
		}
	}
	out, err := frontmatter.Encode(header, "\n")
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

func formatFor(p string) Format {
	switch strings.ToLower(path.Ext(p)) {
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatMarkdown
	}
}

// IsDocument reports whether a file name is a content document.
func IsDocument(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown", ".html", ".htm":
		return true
	}
	return false
}
