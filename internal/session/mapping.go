package session

import (
	"github.com/mabhi256/jdiag-bridge/internal/mapping"
	"github.com/mabhi256/jdiag-bridge/internal/rpcerr"
)

// LoadMappingResult is load_mapping's response shape.
type LoadMappingResult struct {
	Status      string `json:"status"`
	ClassCount  int    `json:"class_count"`
	MemberCount int    `json:"member_count"`
}

// LoadMapping implements load_mapping (spec.md §4.J): parses the mapping
// file and swaps it in under the session lock, invalidating nothing else —
// deobfuscation is applied fresh on every subsequent render.
func (s *Session) LoadMapping(path string) (LoadMappingResult, error) {
	m, err := mapping.Load(path)
	if err != nil {
		return LoadMappingResult{}, rpcerr.InvalidRequest("failed to load mapping: %v", err)
	}

	s.mu.Lock()
	s.mapping = m
	s.mu.Unlock()

	return LoadMappingResult{
		Status:      "loaded",
		ClassCount:  m.ClassCount(),
		MemberCount: m.MemberCount(),
	}, nil
}

// ClearMapping implements clear_mapping.
func (s *Session) ClearMapping() {
	s.mu.Lock()
	s.mapping = nil
	s.mu.Unlock()
}
