// Package objectcache implements the session's object-identity cache
// (spec.md §3/§4.F): a bidirectional map from a JDI object's unique id to
// a synthesized "obj_N" handle, invalidated wholesale on any VM-wide or
// owning-thread resume.
package objectcache

import (
	"fmt"
	"sync"

	"github.com/mabhi256/jdiag-bridge/internal/jdi"
)

type Cache struct {
	mu         sync.Mutex
	byUniqueID map[int64]string
	refs       map[string]jdi.Value
	next       int64
}

func New() *Cache {
	return &Cache{
		byUniqueID: make(map[int64]string),
		refs:       make(map[string]jdi.Value),
	}
}

// uniqueID extracts the identity key for any reference-kind Value.
func uniqueID(v jdi.Value) (int64, bool) {
	switch v.Kind {
	case jdi.KindObject:
		return v.Object.UniqueID, true
	case jdi.KindArray:
		return v.Array.UniqueID, true
	default:
		return 0, false
	}
}

// Handle returns the stable obj_N handle for v, minting one on first sight.
// Non-reference values (primitives, strings, null) are not cacheable and
// return ok=false.
func (c *Cache) Handle(v jdi.Value) (handle string, ok bool) {
	id, ok := uniqueID(v)
	if !ok {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, exists := c.byUniqueID[id]; exists {
		c.refs[h] = v // refresh to the latest live reference
		return h, true
	}
	c.next++
	h := fmt.Sprintf("obj_%d", c.next)
	c.byUniqueID[id] = h
	c.refs[h] = v
	return h, true
}

// Lookup resolves a previously issued obj_N handle back to its Value.
func (c *Cache) Lookup(handle string) (jdi.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.refs[handle]
	return v, ok
}

// Invalidate drops every cached handle; called on any VM-wide resume and
// on resume/step of a handle's owning thread (spec.md invariant 4).
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byUniqueID = make(map[int64]string)
	c.refs = make(map[string]jdi.Value)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.refs)
}
