package linkverify

import (
	"bytes"
	"net/url"
	"path"
	"strings"
)

// BrokenLink is an internal link whose target is missing.
type BrokenLink struct {
	Page string // output path of the page holding the link
	URL  string
}

// Checker resolves internal links against the output tree.
type Checker struct {
	base   *url.URL
	exists func(outputPath string) bool
}

// NewChecker builds a Checker. exists answers whether an output-relative
// path (no leading slash) is present in the site.
func NewChecker(baseURL string, exists func(outputPath string) bool) (*Checker, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Checker{base: base, exists: exists}, nil
}

// Check extracts links from body, the rendered page at outputPath, and
// returns those that resolve to no output file.
func (c *Checker) Check(outputPath string, body []byte) ([]BrokenLink, error) {
	links, err := ExtractLinks(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var broken []BrokenLink
	for _, l := range links {
		target, ok := c.target(outputPath, l.URL)
		if !ok || c.found(target) {
			continue
		}
		broken = append(broken, BrokenLink{Page: outputPath, URL: l.URL})
	}
	return broken, nil
}

// target maps a link to a site path, reporting false for external and
// non-navigational links.
func (c *Checker) target(page, raw string) (string, bool) {
	if strings.HasPrefix(raw, "#") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return "", false // mailto:, tel:, data:, javascript:
	}
	p := u.Path
	if u.Host != "" {
		if u.Host != c.base.Host {
			return "", false
		}
		p = strings.TrimPrefix(p, strings.TrimSuffix(c.base.Path, "/"))
	}
	if p == "" {
		return "", false
	}
	if !strings.HasPrefix(p, "/") {
		p = path.Join("/", path.Dir(page), p)
		if strings.HasSuffix(u.Path, "/") {
			p += "/"
		}
	}
	return p, true
}

func (c *Checker) found(p string) bool {
	rel := strings.TrimPrefix(path.Clean(p), "/")
	if strings.HasSuffix(p, "/") || rel == "" || rel == "." {
		return c.exists(path.Join(rel, "index.html"))
	}
	if c.exists(rel) {
		return true
	}
	return path.Ext(rel) == "" && c.exists(path.Join(rel, "index.html"))
}
