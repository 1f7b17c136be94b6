// Package linkverify finds internal links in rendered HTML that point at
// nothing in the output tree.
package linkverify

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Link is one URL-bearing attribute found in a page.
type Link struct {
	URL       string
	Tag       string
	Attribute string
}

// linkAttrs lists, per element, the attribute carrying a URL.
var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"img":    "src",
	"script": "src",
	"video":  "src",
	"audio":  "src",
	"source": "src",
	"iframe": "src",
}

// ExtractLinks returns every link of interest in document order.
func ExtractLinks(r io.Reader) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "failed to parse HTML").
			WithSeverity(ferrors.SeverityWarning).Build()
	}

	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := linkAttrs[n.Data]; ok {
				if v := strings.TrimSpace(getAttr(n, attr)); v != "" {
					links = append(links, Link{URL: v, Tag: n.Data, Attribute: attr})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
