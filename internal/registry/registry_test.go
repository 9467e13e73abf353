package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderedInsertionOrder(t *testing.T) {
	r := New[int, string]()
	r.Set(3, "three")
	r.Set(1, "one")
	r.Set(2, "two")
	assert.Equal(t, []int{3, 1, 2}, r.Keys())
	assert.Equal(t, []string{"three", "one", "two"}, r.Values())

	r.Set(1, "ONE")
	assert.Equal(t, []int{3, 1, 2}, r.Keys(), "re-setting an existing key must not move it")

	assert.True(t, r.Delete(1))
	assert.Equal(t, []int{3, 2}, r.Keys())
	assert.False(t, r.Delete(1))
	assert.Equal(t, 2, r.Len())
}
