package fake

import "github.com/mabhi256/jdiag-bridge/internal/jdi"

type ReferenceType struct {
	name  string
	lines map[int]bool
}

func (c *ReferenceType) Name() string { return c.name }

func (c *ReferenceType) LocationOfLine(line int) (jdi.Location, bool) {
	if !c.lines[line] {
		return nil, false
	}
	return &Location{class: c.name, method: "run", line: line}, true
}

type Location struct {
	class  string
	method string
	line   int
}

func NewLocation(class, method string, line int) *Location {
	return &Location{class: class, method: method, line: line}
}

func (l *Location) ClassName() string  { return l.class }
func (l *Location) MethodName() string { return l.method }
func (l *Location) LineNumber() int    { return l.line }
