package commands

import (
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// starterFiles are written next to a new configuration unless they exist.
var starterFiles = map[string]string{
	"layouts/default.html": `<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{ .Title }} | {{ .Site.Title }}</title></head>
<body>
<main>{{ .Content }}</main>
</body>
</html>
`,
	"layouts/post.html": `---
layout: default
---
<article>
<h1>{{ .Title }}</h1>
{{ .Content }}
<nav>
{{ with .Prev }}<a rel="prev" href="{{ .Permalink }}">{{ .Title }}</a>{{ end }}
{{ with .Next }}<a rel="next" href="{{ .Permalink }}">{{ .Title }}</a>{{ end }}
</nav>
</article>
`,
	"layouts/list.html": `---
layout: default
---
<h1>{{ .Title }}</h1>
{{ with .Paginator }}
<ul>
{{ range .Items }}<li><a href="{{ .Permalink }}">{{ .Title }}</a></li>
{{ end }}
</ul>
{{ with .PrevURL }}<a href="{{ . }}">Newer</a>{{ end }}
{{ with .NextURL }}<a href="{{ . }}">Older</a>{{ end }}
{{ end }}
`,
}

// starterDocs are serialized from metadata so their headers come out in the
// same canonical form the builder fingerprints.
var starterDocs = map[string]struct {
	meta content.Metadata
	body string
}{
	"content/index.md": {
		meta: content.Metadata{content.KeyTitle: content.String("Home")},
		body: "Welcome to your new site.\n",
	},
	"content/posts/hello-world.md": {
		meta: content.Metadata{
			content.KeyTitle: content.String("Hello, world"),
			content.KeyDate:  content.String("2025-01-01"),
			content.KeyTags:  content.List(content.String("intro")),
		},
		body: "The first post.\n",
	},
}

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite an existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	return RunInit(g, root.Config, i.Force)
}

// RunInit writes the example configuration and any missing starter files.
func RunInit(g *Global, configPath string, force bool) error {
	printf(g, "Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		return err
	}
	files := make(map[string][]byte, len(starterFiles)+len(starterDocs))
	for rel, body := range starterFiles {
		files[rel] = []byte(body)
	}
	for rel, doc := range starterDocs {
		data, err := content.RenderDocument(doc.meta, doc.body)
		if err != nil {
			return err
		}
		files[rel] = data
	}

	dir := filepath.Dir(configPath)
	for _, rel := range slices.Sorted(maps.Keys(files)) {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if _, err := os.Stat(p); err == nil || !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return ferrors.FileSystemError("failed to create directory").WithCause(err).WithContext("path", filepath.Dir(p)).Build()
		}
		if err := os.WriteFile(p, files[rel], 0o600); err != nil {
			return ferrors.FileSystemError("failed to write starter file").WithCause(err).WithContext("path", p).Build()
		}
		printf(g, "  created %s\n", rel)
	}
	printf(g, "Initialized successfully\n")
	return nil
}
