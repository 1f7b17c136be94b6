package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny_Variants(t *testing.T) {
	v := FromAny(map[string]any{
		"name":   "ada",
		"count":  3,
		"ratio":  0.5,
		"ok":     true,
		"none":   nil,
		"tags":   []any{"a", 1},
		"nested": map[string]any{"k": "v"},
	})
	require.Equal(t, MapValue, v.Kind())

	name, _ := v.Get("name")
	s, ok := name.Str()
	assert.True(t, ok)
	assert.Equal(t, "ada", s)

	count, _ := v.Get("count")
	n, ok := count.Num()
	assert.True(t, ok)
	assert.InDelta(t, 3.0, n, 0)

	none, _ := v.Get("none")
	assert.True(t, none.IsNull())

	tags, _ := v.Get("tags")
	assert.Equal(t, []string{"a", "1"}, tags.Strings())

	assert.Equal(t, map[string]any{
		"name":   "ada",
		"count":  3,
		"ratio":  0.5,
		"ok":     true,
		"none":   nil,
		"tags":   []any{"a", 1},
		"nested": map[string]any{"k": "v"},
	}, v.Interface())
}

func TestValue_EqualAndText(t *testing.T) {
	a := List(String("x"), Number(2), Bool(false))
	b := FromAny([]any{"x", 2, false})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(List(String("x"))))
	assert.False(t, String("1").Equal(Number(1)))

	assert.Equal(t, "2.5", Number(2.5).Text())
	assert.Equal(t, "true", Bool(true).Text())
	assert.Equal(t, "", Value{}.Text())
}

func TestValue_StringsFromCommaList(t *testing.T) {
	assert.Equal(t, []string{"go", "web dev"}, String("go, web dev ,").Strings())
	assert.Nil(t, Number(1).Strings())
}
