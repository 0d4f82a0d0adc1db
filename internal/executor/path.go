package executor

import (
	"slices"
	"strconv"
	"strings"
)

// Path locates a value in the response: field names and list indices.
type Path []PathElement

// PathElement is a string response name or an int list index.
type PathElement any

// with returns a new path extended by elem; p is not modified.
func (p Path) with(elem PathElement) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, elem)
}

func (p Path) hasPrefix(prefix Path) bool {
	return len(prefix) <= len(p) && p[:len(prefix)].equal(prefix)
}

func (p Path) equal(other Path) bool {
	return slices.EqualFunc(p, other, func(a, b PathElement) bool { return a == b })
}

// String renders p as in "books[0].author".
func (p Path) String() string {
	var b strings.Builder
	for _, elem := range p {
		switch v := elem.(type) {
		case string:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			b.WriteString("[" + strconv.Itoa(v) + "]")
		}
	}
	return b.String()
}

// setValueAtPath writes value into tree at p. Missing or null containers on
// the way are left alone, so a value below a nulled ancestor is dropped.
func setValueAtPath(tree map[string]any, p Path, value any) {
	if len(p) == 0 {
		return
	}
	var cur any = tree
	for _, elem := range p[:len(p)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return
			}
			cur = m[e]
		case int:
			l, ok := cur.([]any)
			if !ok || e >= len(l) {
				return
			}
			cur = l[e]
		}
	}
	switch e := p[len(p)-1].(type) {
	case string:
		if m, ok := cur.(map[string]any); ok {
			m[e] = value
		}
	case int:
		if l, ok := cur.([]any); ok && e < len(l) {
			l[e] = value
		}
	}
}
