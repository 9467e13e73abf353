// Package mapping implements spec.md §4.C's bidirectional name remapper:
// a ProGuard/R8-style mapping file parsed into obfuscated<->original
// lookup tables for classes, methods (disambiguated by arity), and
// fields. The mapping FILE FORMAT itself is out of spec.md's scope (it
// treats Mapping as an opaque capability), but ProGuard's mapping grammar
// is the de facto standard for exactly the Android-deobfuscation use case
// spec.md §1 names, so it is what an implementation must parse.
package mapping

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

type fieldEntry struct {
	original   string
	obfuscated string
}

type methodEntry struct {
	original   string
	obfuscated string
	arity      int
}

type classEntry struct {
	original   string
	obfuscated string

	fieldsByObf  map[string]fieldEntry
	fieldsByOrig map[string]fieldEntry

	// methodsByObf maps obfuscated name -> candidates, disambiguated by
	// arity at lookup time since the mapping file loses full type
	// fidelity for overload resolution beyond argument count.
	methodsByObf map[string][]methodEntry
}

// Mapping is immutable once parsed; concurrent reads need no locking.
type Mapping struct {
	byObfClass  map[string]*classEntry
	byOrigClass map[string]*classEntry
	classCount  int
	memberCount int
}

var classHeaderPattern = regexp.MustCompile(`^(\S+)\s*->\s*(\S+):$`)

// fieldLine: "    int profileId -> seed"
var fieldLinePattern = regexp.MustCompile(`^\s+([\w.$\[\]]+)\s+(\w+)\s*->\s*(\w+)$`)

// methodLine: "    4:7:void originalMethod(int,java.lang.String) -> n"
var methodLinePattern = regexp.MustCompile(`^\s+(?:\d+:\d+:)?[\w.$\[\]]+\s+(\w+)\(([^)]*)\)\s*->\s*(\w+)$`)

// Load reads and parses a mapping file from path.
func Load(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a ProGuard-style mapping from r.
func Parse(r io.Reader) (*Mapping, error) {
	m := &Mapping{
		byObfClass:  make(map[string]*classEntry),
		byOrigClass: make(map[string]*classEntry),
	}

	var current *classEntry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			match := classHeaderPattern.FindStringSubmatch(strings.TrimSpace(line))
			if match == nil {
				return nil, fmt.Errorf("mapping: line %d: malformed class header %q", lineNo, line)
			}
			current = &classEntry{
				original:     match[1],
				obfuscated:   match[2],
				fieldsByObf:  make(map[string]fieldEntry),
				fieldsByOrig: make(map[string]fieldEntry),
				methodsByObf: make(map[string][]methodEntry),
			}
			m.byObfClass[current.obfuscated] = current
			m.byOrigClass[current.original] = current
			m.classCount++
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("mapping: line %d: member line before any class header", lineNo)
		}

		if mm := methodLinePattern.FindStringSubmatch(line); mm != nil {
			arity := 0
			if strings.TrimSpace(mm[2]) != "" {
				arity = len(strings.Split(mm[2], ","))
			}
			entry := methodEntry{original: mm[1], obfuscated: mm[3], arity: arity}
			current.methodsByObf[entry.obfuscated] = append(current.methodsByObf[entry.obfuscated], entry)
			m.memberCount++
			continue
		}

		if fm := fieldLinePattern.FindStringSubmatch(line); fm != nil {
			entry := fieldEntry{original: fm[2], obfuscated: fm[3]}
			current.fieldsByObf[entry.obfuscated] = entry
			current.fieldsByOrig[entry.original] = entry
			m.memberCount++
			continue
		}

		return nil, fmt.Errorf("mapping: line %d: unrecognized member line %q", lineNo, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mapping: %w", err)
	}
	return m, nil
}

func (m *Mapping) ClassCount() int  { return m.classCount }
func (m *Mapping) MemberCount() int { return m.memberCount }

// DeobfuscateClass maps an obfuscated class name to its original, if known.
func (m *Mapping) DeobfuscateClass(raw string) (string, bool) {
	if c, ok := m.byObfClass[raw]; ok {
		return c.original, true
	}
	return "", false
}

// DeobfuscateTypeName deobfuscates raw, preserving any trailing "[]" array
// suffixes (spec.md §4.C).
func (m *Mapping) DeobfuscateTypeName(raw string) string {
	base, suffix := splitArraySuffix(raw)
	if orig, ok := m.DeobfuscateClass(base); ok {
		return orig + suffix
	}
	return raw
}

func splitArraySuffix(raw string) (base, suffix string) {
	base = raw
	for strings.HasSuffix(base, "[]") {
		base = strings.TrimSuffix(base, "[]")
		suffix += "[]"
	}
	return base, suffix
}

// DeobfuscateMethod resolves an obfuscated method name to its original,
// disambiguating overloads by arity when provided. hasArity=false matches
// any candidate, returning the first if there are several (ambiguous).
func (m *Mapping) DeobfuscateMethod(rawClass, rawMethod string, arity int, hasArity bool) (string, bool) {
	c, ok := m.byObfClass[rawClass]
	if !ok {
		return "", false
	}
	candidates := c.methodsByObf[rawMethod]
	if len(candidates) == 0 {
		return "", false
	}
	if !hasArity {
		return candidates[0].original, true
	}
	for _, cand := range candidates {
		if cand.arity == arity {
			return cand.original, true
		}
	}
	return "", false
}

// DeobfuscateField maps an obfuscated field name on an obfuscated class to
// its original name.
func (m *Mapping) DeobfuscateField(rawClass, rawField string) (string, bool) {
	c, ok := m.byObfClass[rawClass]
	if !ok {
		return "", false
	}
	f, ok := c.fieldsByObf[rawField]
	if !ok {
		return "", false
	}
	return f.original, true
}

// ObfuscateField maps a user-typed original field name back to the raw
// (obfuscated) name on rawClass, the live object's obfuscated class name.
// This is what lets "inspect helper.profileId" locate the obfuscated
// field "seed" on the live object (spec.md §4.C).
func (m *Mapping) ObfuscateField(rawClass, originalField string) (string, bool) {
	c, ok := m.byObfClass[rawClass]
	if !ok {
		return "", false
	}
	f, ok := c.fieldsByOrig[originalField]
	if !ok {
		return "", false
	}
	return f.obfuscated, true
}
