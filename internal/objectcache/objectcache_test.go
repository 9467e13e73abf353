package objectcache

import (
	"testing"

	"github.com/mabhi256/jdiag-bridge/internal/jdi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obj(id int64) jdi.Value {
	return jdi.Value{Kind: jdi.KindObject, Object: &jdi.ObjectValue{UniqueID: id, ClassName: "com.example.Foo"}}
}

func TestHandleStableAndUnique(t *testing.T) {
	c := New()
	h1, ok := c.Handle(obj(100))
	require.True(t, ok)
	h2, ok := c.Handle(obj(200))
	require.True(t, ok)
	assert.NotEqual(t, h1, h2)

	// Same unique id always yields the same handle.
	h1Again, ok := c.Handle(obj(100))
	require.True(t, ok)
	assert.Equal(t, h1, h1Again)
}

func TestHandleRejectsNonReferenceValues(t *testing.T) {
	c := New()
	_, ok := c.Handle(jdi.Value{Kind: jdi.KindInt, Number: 5})
	assert.False(t, ok)
}

func TestLookupAndInvalidate(t *testing.T) {
	c := New()
	h, _ := c.Handle(obj(1))
	v, ok := c.Lookup(h)
	require.True(t, ok)
	assert.Equal(t, int64(1), v.Object.UniqueID)

	c.Invalidate()
	_, ok = c.Lookup(h)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}
