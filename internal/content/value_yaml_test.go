package content

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
)

func TestMetadataFromNode_Shapes(t *testing.T) {
	m := metaFromYAML(t, `
title: "2025"
date: 2025-03-01
updated: 2025-03-01T10:30:00+02:00
tags:
  - go
  - 42
published: false
weight: 1.5
params:
  depth: 3
  owner: ~
`)

	assert.True(t, m["title"].Equal(String("2025")))
	assert.True(t, m["date"].Equal(String("2025-03-01")))
	assert.True(t, m["updated"].Equal(String("2025-03-01T10:30:00+02:00")))
	assert.Equal(t, []string{"go", "42"}, m.Tags())
	assert.False(t, m.Published())
	assert.InDelta(t, 1.5, m.Weight(), 0)

	depth, ok := m["params"].Get("depth")
	require.True(t, ok)
	assert.True(t, depth.Equal(Number(3)))
	owner, ok := m["params"].Get("owner")
	require.True(t, ok)
	assert.True(t, owner.IsNull())
}

func TestMetadataFromNode_AliasesAndMerge(t *testing.T) {
	m := metaFromYAML(t, `
defaults: &d
  author: ada
  lang: en
params:
  <<: *d
  lang: nb
copy: *d
`)
	params := m["params"]
	author, _ := params.Get("author")
	lang, _ := params.Get("lang")
	assert.True(t, author.Equal(String("ada")))
	assert.True(t, lang.Equal(String("nb")))
	assert.True(t, m["copy"].Equal(m["defaults"]))
}

func TestMetadataFromNode_DuplicateKey(t *testing.T) {
	n, err := frontmatter.Decode([]byte("title: a\ntitle: b\n"))
	require.NoError(t, err)
	_, err = MetadataFromNode(n)
	assert.ErrorContains(t, err, `"title"`)
}

func TestValueNode_ScalarForms(t *testing.T) {
	tests := []struct {
		value Value
		want  string
	}{
		{String("2025-01-01"), "v: 2025-01-01\n"},
		{String("2025-03-01 10:30"), "v: 2025-03-01 10:30\n"},
		{String("true"), "v: \"true\"\n"},
		{String("12"), "v: \"12\"\n"},
		{String(""), "v: \"\"\n"},
		{Number(3), "v: 3\n"},
		{Number(0.25), "v: 0.25\n"},
		{Bool(false), "v: false\n"},
		{Value{}, "v: null\n"},
		{List(String("go"), Number(1)), "v:\n  - go\n  - 1\n"},
		{Map(map[string]Value{"b": Number(2), "a": Number(1)}), "v:\n  a: 1\n  b: 2\n"},
	}
	for _, tt := range tests {
		out, err := frontmatter.Encode(Metadata{"v": tt.value}.Node(), "\n")
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(out))
	}
}

func TestParseData_UsesValueDecoding(t *testing.T) {
	df, err := ParseData(SourceFile{Path: "data/site.yaml", RelPath: "site.yaml", Data: []byte("launched: 2024-05-01\nsizes: [1, 2]\n")})
	require.NoError(t, err)
	launched, _ := df.Value.Get("launched")
	assert.True(t, launched.Equal(String("2024-05-01")))
	assert.Equal(t, "site", df.Name)

	_, err = ParseData(SourceFile{Path: "data/bad.json", RelPath: "bad.json", Data: []byte(`{"a": [1, }`)})
	require.Error(t, err)
}

type documentSample struct {
	meta Metadata
	body string
}

func documentSampleGen() gopter.Gen {
	text := gen.OneGenOf(
		gen.AlphaString(),
		gen.OneConstOf("", "true", "12", "null", "yes", "a: b", "#hash", " padded", "2025-01-01", "line one\nline two"),
	)
	date := gen.IntRange(0, 20000).Map(func(days int) string {
		return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days).Format("2006-01-02")
	})
	return gopter.CombineGens(
		text,
		date,
		gen.SliceOf(gen.AlphaString()),
		gen.Bool(),
		gen.Int64Range(-1<<40, 1<<40),
		gen.Float64Range(-1e6, 1e6),
		gen.Identifier(),
		gen.SliceOf(gen.AlphaString()),
		gen.Bool(),
	).Map(func(vals []any) documentSample {
		var tags []Value
		for _, s := range vals[2].([]string) {
			tags = append(tags, String(s))
		}
		meta := Metadata{
			KeyTitle:     String(vals[0].(string)),
			KeyDate:      String(vals[1].(string)),
			KeyTags:      List(tags...),
			KeyPublished: Bool(vals[3].(bool)),
			"params": Map(map[string]Value{
				"count": Number(float64(vals[4].(int64))),
				"ratio": Number(vals[5].(float64)),
				"name":  String(vals[6].(string)),
				"empty": {},
			}),
		}
		body := strings.Join(vals[7].([]string), "\n")
		if vals[8].(bool) {
			body = "---\n" + body
		}
		return documentSample{meta: meta, body: body}
	})
}

func TestRenderDocument_RoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("parse(render(m, b)) == (m, b)", prop.ForAll(
		func(s documentSample) bool {
			src, err := RenderDocument(s.meta, s.body)
			if err != nil {
				return false
			}
			doc, err := ParseDocument(SourceFile{Path: "content/x.md", RelPath: "x.md", Data: src})
			return err == nil && doc.Meta.Equal(s.meta) && doc.Body == s.body
		},
		documentSampleGen(),
	))

	properties.Property("render is a fixpoint after one parse", prop.ForAll(
		func(s documentSample) bool {
			first, err := RenderDocument(s.meta, s.body)
			if err != nil {
				return false
			}
			doc, err := ParseDocument(SourceFile{Path: "content/x.md", RelPath: "x.md", Data: first})
			if err != nil {
				return false
			}
			second, err := RenderDocument(doc.Meta, doc.Body)
			return err == nil && string(first) == string(second)
		},
		documentSampleGen(),
	))

	properties.TestingRun(t)
}

func TestRenderDocument_EmptyMetadata(t *testing.T) {
	out, err := RenderDocument(Metadata{}, "plain\n")
	require.NoError(t, err)
	assert.Equal(t, "plain\n", string(out))
}

func TestMetadataNode_IsMapping(t *testing.T) {
	n := Metadata{"b": Number(1), "a": Bool(true)}.Node()
	require.Equal(t, yaml.MappingNode, n.Kind)
	assert.Equal(t, "a", n.Content[0].Value)
	assert.Equal(t, "b", n.Content[2].Value)
}
