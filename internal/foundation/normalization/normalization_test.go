package normalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

type mode string

const (
	modeFast mode = "fast"
	modeSafe mode = "safe"
)

func modes() *Enum[mode] {
	return NewEnum("mode", map[string]mode{"fast": modeFast, "Safe": modeSafe, "careful": modeSafe}, modeSafe)
}

func TestEnum_Normalize(t *testing.T) {
	e := modes()
	tests := []struct {
		in   string
		want mode
	}{
		{"fast", modeFast},
		{"  FAST ", modeFast},
		{"careful", modeSafe},
		{"", modeSafe},
		{"warp", modeSafe},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Normalize(tt.in), tt.in)
	}
}

func TestEnum_Parse(t *testing.T) {
	e := modes()

	v, err := e.Parse(" Fast")
	require.NoError(t, err)
	assert.Equal(t, modeFast, v)

	v, err = e.Parse("")
	require.NoError(t, err)
	assert.Equal(t, modeSafe, v)

	_, err = e.Parse("warp")
	require.Error(t, err)
	assert.True(t, ferrors.IsKind(err, ferrors.InvalidConfigKind))
	assert.Contains(t, err.Error(), "valid: careful, fast, safe")
}

func TestEnum_KeysAreSortedCopies(t *testing.T) {
	e := modes()
	keys := e.Keys()
	assert.Equal(t, []string{"careful", "fast", "safe"}, keys)
	keys[0] = "mutated"
	assert.Equal(t, "careful", e.Keys()[0])
}
