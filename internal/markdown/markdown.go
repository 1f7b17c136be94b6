package markdown

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Options controls Markdown conversion.
type Options struct {
	// Unsafe lets raw HTML in the Markdown source through to the output.
	Unsafe bool
	// Sanitize runs the converted HTML through a UGC sanitizing policy.
	Sanitize bool
}

// Converter turns Markdown bodies into HTML. It holds no per-call state and
// is safe for concurrent use.
type Converter struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New builds a Converter with GFM, footnotes and automatic heading IDs.
func New(opts Options) *Converter {
	rendererOpts := []goldmark.Option{
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}
	if opts.Unsafe {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(gmhtml.WithUnsafe()))
	}

	c := &Converter{md: goldmark.New(rendererOpts...)}
	if opts.Sanitize {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6", "li", "sup")
		p.AllowAttrs("class").OnElements("code", "div", "sup", "a", "li", "section")
		c.policy = p
	}
	return c
}

// Convert renders a Markdown body (front matter already removed) to HTML.
func (c *Converter) Convert(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.md.Convert(body, &buf); err != nil {
		return nil, err
	}
	if c.policy != nil {
		return c.policy.SanitizeBytes(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}
