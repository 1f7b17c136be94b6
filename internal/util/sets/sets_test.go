package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetOperations(t *testing.T) {
	s := New("b", "a")
	s.Add("c", "a")

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has("c"))
	assert.Equal(t, []string{"a", "b", "c"}, Sorted(s))
}
