package breakpoint

import (
	"regexp"
	"strings"
)

// compilePattern implements spec.md §4.G's glob rule: literal equality
// when classPattern has no "*", otherwise a regex with "." escaped and
// "*" turned into ".*".
func compilePattern(classPattern string) *regexp.Regexp {
	if !strings.Contains(classPattern, "*") {
		return nil
	}
	escaped := regexp.QuoteMeta(classPattern)
	escaped = strings.ReplaceAll(escaped, `\*`, ".*")
	return regexp.MustCompile("^" + escaped + "$")
}

func patternMatches(classPattern string, re *regexp.Regexp, className string) bool {
	if re != nil {
		return re.MatchString(className)
	}
	return classPattern == className
}

// matchesAllExceptions reports spec.md §4.G's "class_pattern is '*' or
// empty ⇒ all exceptions" rule.
func matchesAllExceptions(classPattern string) bool {
	return classPattern == "" || classPattern == "*"
}
