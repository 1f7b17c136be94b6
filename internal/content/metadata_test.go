package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
)

func metaFromYAML(t *testing.T, src string) Metadata {
	t.Helper()
	n, err := frontmatter.Decode([]byte(src))
	require.NoError(t, err)
	m, err := MetadataFromNode(n)
	require.NoError(t, err)
	return m
}

func TestMetadata_ReservedAccessors(t *testing.T) {
	m := metaFromYAML(t, `
title: " Hello "
date: 2025-02-01
layout: post
tags: [go, containers]
categories: ops, notes
published: false
draft: true
weight: 10
mood: sunny
`)

	assert.Equal(t, "Hello", m.Title())
	assert.Equal(t, "post", m.Layout())
	assert.Equal(t, []string{"go", "containers"}, m.Tags())
	assert.Equal(t, []string{"ops", "notes"}, m.Categories())
	assert.False(t, m.Published())
	assert.True(t, m.Draft())
	assert.InDelta(t, 10.0, m.Weight(), 0)
	assert.Equal(t, []string{"mood"}, m.CustomKeys())

	d, ok, err := m.Date()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), d)
}

func TestMetadata_Defaults(t *testing.T) {
	m := Metadata{}
	assert.True(t, m.Published())
	assert.False(t, m.Draft())
	_, ok, err := m.Date()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestParseDate_Formats(t *testing.T) {
	for _, in := range []string{"2025-03-01", "2025-03-01 10:30", "2025-03-01T10:30:00", "2025-03-01T10:30:00+02:00"} {
		_, err := ParseDate(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseDate("March 1st")
	assert.Error(t, err)
}
