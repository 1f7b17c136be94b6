package content

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Reserved metadata keys with defined effects on graph placement and rendering.
const (
	KeyTitle      = "title"
	KeyDate       = "date"
	KeyLayout     = "layout"
	KeyPermalink  = "permalink"
	KeyTags       = "tags"
	KeyCategories = "categories"
	KeyPublished  = "published"
	KeyDraft      = "draft"
	KeySlug       = "slug"
	KeySummary    = "summary"
	KeyWeight     = "weight"
)

// ReservedKeys lists every key the builder interprets itself.
var ReservedKeys = []string{
	KeyTitle, KeyDate, KeyLayout, KeyPermalink, KeyTags, KeyCategories,
	KeyPublished, KeyDraft, KeySlug, KeySummary, KeyWeight,
}

// dateLayouts are tried in order when parsing date metadata.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Metadata is the parsed header of a document. Unknown keys are kept as-is.
type Metadata map[string]Value

// Equal reports whether both hold the same keys with equal values.
func (m Metadata) Equal(other Metadata) bool {
	return maps.EqualFunc(m, other, Value.Equal)
}

// Fields converts the metadata back to native values.
func (m Metadata) Fields() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Interface()
	}
	return out
}

// Keys returns the metadata keys in sorted order.
func (m Metadata) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// CustomKeys returns the sorted keys that are not reserved.
func (m Metadata) CustomKeys() []string {
	var out []string
	for _, k := range m.Keys() {
		if !slices.Contains(ReservedKeys, k) {
			out = append(out, k)
		}
	}
	return out
}

// Text returns the trimmed text form of key, or "".
func (m Metadata) Text(key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.Text())
}

func (m Metadata) Title() string     { return m.Text(KeyTitle) }
func (m Metadata) Layout() string    { return m.Text(KeyLayout) }
func (m Metadata) Permalink() string { return m.Text(KeyPermalink) }
func (m Metadata) Slug() string      { return m.Text(KeySlug) }
func (m Metadata) Summary() string   { return m.Text(KeySummary) }
func (m Metadata) Tags() []string    { return m[KeyTags].Strings() }

func (m Metadata) Categories() []string { return m[KeyCategories].Strings() }

// Weight returns the numeric weight, or 0.
func (m Metadata) Weight() float64 {
	n, _ := m[KeyWeight].Num()
	return n
}

// Published is false only when published is explicitly false.
func (m Metadata) Published() bool {
	b, ok := m[KeyPublished].Bool()
	return !ok || b
}

// Draft reports draft: true.
func (m Metadata) Draft() bool {
	b, ok := m[KeyDraft].Bool()
	return ok && b
}

// Date parses the date key. ok is false when no date is set.
func (m Metadata) Date() (t time.Time, ok bool, err error) {
	v, present := m[KeyDate]
	if !present || v.IsNull() {
		return time.Time{}, false, nil
	}
	s := strings.TrimSpace(v.Text())
	if s == "" {
		return time.Time{}, false, nil
	}
	t, err = ParseDate(s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// ParseDate accepts the date formats supported in front matter.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
