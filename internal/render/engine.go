// Package render resolves content entities against their layout chains and
// produces final HTML together with the set of inputs each render touched.
package render

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/graph"
	"git.home.luguber.info/inful/sitebuilder/internal/layout"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
)

// maxPartialDepth bounds partial-in-partial nesting.
const maxPartialDepth = 32

// Result is one rendered artifact body and its dependencies.
type Result struct {
	HTML []byte
	Deps Deps
}

// Renderer renders one entity against an immutable graph snapshot.
type Renderer interface {
	Render(ctx context.Context, e *graph.Entity, g *graph.Graph) (Result, error)
}

type compiled struct {
	name string
	path string
	tpl  *template.Template
	err  error
}

// Engine is the html/template backed Renderer. All state is fixed at
// construction, so concurrent Render calls never interfere.
type Engine struct {
	layouts  *layout.Set
	compiled map[string]*compiled
	partials map[string]*compiled
	data     map[string]content.DataFile
	md       *markdown.Converter
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine compiles every layout and partial up front. Compile errors are
// kept per template and surface only for entities that use them.
func NewEngine(set *layout.Set, data []content.DataFile, md *markdown.Converter, opts ...Option) *Engine {
	e := &Engine{
		layouts:  set,
		compiled: map[string]*compiled{},
		partials: map[string]*compiled{},
		data:     map[string]content.DataFile{},
		md:       md,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.md == nil {
		e.md = markdown.New(markdown.Options{})
	}
	for _, df := range data {
		e.data[df.Name] = df
	}
	for _, name := range set.Names() {
		t, _ := set.Layout(name)
		e.compiled[name] = compile(t)
	}
	for _, name := range set.PartialNames() {
		t, _ := set.Partial(name)
		e.partials[name] = compile(t)
	}
	return e
}

func compile(t *layout.Template) *compiled {
	c := &compiled{name: t.Name, path: t.Path}
	if t.Err != nil {
		c.err = t.Err
		return c
	}
	tpl, err := template.New(t.Name).Funcs(funcMap()).Option("missingkey=zero").Parse(t.Source)
	if err != nil {
		c.err = ferrors.TemplateError(ferrors.TemplateSyntaxErrorKind, "template cannot be parsed").
			WithCause(err).
			WithContext("template", t.Path).
			Build()
		return c
	}
	c.tpl = tpl
	return c
}

// Render produces the HTML for e by rendering its body and wrapping it in
// each layout of its chain from innermost to outermost. Failures are
// entity-scoped and carry the entity source path.
func (eng *Engine) Render(ctx context.Context, e *graph.Entity, g *graph.Graph) (Result, error) {
	if e.Err != nil {
		return Result{}, e.Err
	}
	rc := &renderCtx{ctx: ctx, eng: eng, g: g, deps: NewDeps(), bodies: map[string]template.HTML{}}

	body, err := rc.body(e)
	if err != nil {
		return Result{}, entityErr(err, e)
	}
	if e.Doc != nil {
		rc.deps.Files.Add(e.Doc.Path)
	}
	if e.Layout == "" {
		return Result{HTML: []byte(body), Deps: rc.deps}, nil
	}

	chain, err := eng.layouts.Chain(e.Layout)
	if err != nil {
		return Result{}, entityErr(err, e)
	}

	current := body
	for _, t := range chain {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		rc.deps.Files.Add(t.Path)
		c := eng.compiled[t.Name]
		if c.err != nil {
			return Result{}, entityErr(c.err, e)
		}
		out, err := rc.execute(c, &Page{e: e, rc: rc, content: current, primary: true})
		if err != nil {
			return Result{}, entityErr(err, e)
		}
		current = template.HTML(out) //nolint:gosec // output of html/template is already escaped
	}
	return Result{HTML: []byte(current), Deps: rc.deps}, nil
}

// renderCtx is the per-render state: the dependency recorder and caches.
// It lives for exactly one Render call.
type renderCtx struct {
	ctx      context.Context
	eng      *Engine
	g        *graph.Graph
	deps     Deps
	depth    int
	firstErr error
	bodies   map[string]template.HTML
}

func (rc *renderCtx) execute(c *compiled, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.tpl.Execute(&buf, data); err != nil {
		if rc.firstErr != nil {
			return nil, rc.firstErr
		}
		return nil, ferrors.TemplateError(ferrors.TemplateExecutionKind, "template execution failed").
			WithCause(err).
			WithContext("template", c.path).
			Build()
	}
	return buf.Bytes(), nil
}

// body converts an entity's document body to HTML once per render.
func (rc *renderCtx) body(e *graph.Entity) (template.HTML, error) {
	if e.Doc == nil {
		return "", nil
	}
	if b, ok := rc.bodies[e.ID]; ok {
		return b, nil
	}
	var out template.HTML
	switch e.Doc.Format {
	case content.FormatHTML:
		out = template.HTML(e.Doc.Body) //nolint:gosec // HTML documents are trusted site sources
	default:
		converted, err := rc.eng.md.Convert([]byte(e.Doc.Body))
		if err != nil {
			return "", ferrors.ContentError(ferrors.TemplateExecutionKind, "markdown conversion failed").WithCause(err).Build()
		}
		out = template.HTML(converted) //nolint:gosec // produced by the markdown converter
	}
	rc.bodies[e.ID] = out
	return out, nil
}

func (rc *renderCtx) fail(err error) error {
	if rc.firstErr == nil {
		rc.firstErr = err
	}
	return err
}

func entityErr(err error, e *graph.Entity) error {
	if ce, ok := ferrors.AsClassified(err); ok {
		if _, has := ce.Context().GetString("path"); !has {
			return ce.WithContext("path", e.Source())
		}
		return ce
	}
	return ferrors.TemplateError(ferrors.TemplateExecutionKind, "render failed").
		WithCause(err).
		WithContext("path", e.Source()).
		Build()
}
