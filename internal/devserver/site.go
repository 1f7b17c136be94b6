package devserver

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	scriptTag = `<script src="/__livereload.js"></script>`
	bannerFmt = `<div id="sitebuilder-error" style="position:fixed;top:0;left:0;right:0;z-index:2147483647;padding:12px 16px;background:#d32f2f;color:#fff;font:14px/1.4 monospace;white-space:pre-wrap">Build failed: %s</div>`
)

// siteHandler serves the output tree. HTML pages get the live reload
// script and, after a failed build, an error banner injected.
type siteHandler struct {
	root    string
	live    bool
	problem func() string
	files   http.Handler
}

func newSiteHandler(root string, live bool, problem func() string) *siteHandler {
	return &siteHandler{root: root, live: live, problem: problem, files: http.FileServer(http.Dir(root))}
}

func (h *siteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	upath := path.Clean("/" + r.URL.Path)
	file := filepath.Join(h.root, filepath.FromSlash(upath))
	info, err := os.Stat(file)
	switch {
	case err == nil && info.IsDir():
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		file = filepath.Join(file, "index.html")
	case errors.Is(err, fs.ErrNotExist) && upath == "/":
		h.pending(w)
		return
	}

	if !isHTML(file) {
		h.files.ServeHTTP(w, r)
		return
	}
	page, err := os.ReadFile(file)
	if err != nil {
		if upath == "/" {
			h.pending(w)
			return
		}
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(inject(page, h.extras()))
}

// pending answers the root path before any build produced a home page.
func (h *siteHandler) pending(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	body := []byte(`<!doctype html><html><head><meta charset="utf-8"><title>Site building</title></head><body><h1>Site is being built</h1><p>This page reloads once a home page is rendered.</p></body></html>`)
	_, _ = w.Write(inject(body, h.extras()))
}

func (h *siteHandler) extras() string {
	var b strings.Builder
	if msg := h.problem(); msg != "" {
		fmt.Fprintf(&b, bannerFmt, html.EscapeString(msg))
	}
	if h.live {
		b.WriteString(scriptTag)
	}
	return b.String()
}

// inject places extra before the last closing body tag, or appends it
// when the page has none.
func inject(page []byte, extra string) []byte {
	if extra == "" {
		return page
	}
	idx := lastBodyClose(page)
	if idx < 0 {
		return append(page, extra...)
	}
	out := make([]byte, 0, len(page)+len(extra))
	out = append(out, page[:idx]...)
	out = append(out, extra...)
	return append(out, page[idx:]...)
}

func lastBodyClose(page []byte) int {
	tag := []byte("</body>")
	for i := len(page) - len(tag); i >= 0; i-- {
		if page[i] == '<' && bytes.EqualFold(page[i:i+len(tag)], tag) {
			return i
		}
	}
	return -1
}

func isHTML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".htm"
}
