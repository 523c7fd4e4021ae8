// Package diagram defines the closed set of diagram kinds and detects the kind
// of a diagram description from its opening keyword.
package diagram

import (
	"fmt"
	"strings"
)

// Type is a supported diagram kind.
type Type string

const (
	Flowchart Type = "flowchart"
	Sequence  Type = "sequence"
	Gantt     Type = "gantt"
	Timeline  Type = "timeline"
	Class     Type = "class"
	State     Type = "state"
	Pie       Type = "pie"
	GitGraph  Type = "gitgraph"
	ER        Type = "er"
	Journey   Type = "journey"
)

// Types lists every supported kind in canonical order.
var Types = []Type{Flowchart, Sequence, Gantt, Timeline, Class, State, Pie, GitGraph, ER, Journey}

// keywords maps a type to the opening keyword that declares it.
var keywords = map[Type]string{
	Flowchart: "flowchart",
	Sequence:  "sequenceDiagram",
	Gantt:     "gantt",
	Timeline:  "timeline",
	Class:     "classDiagram",
	State:     "stateDiagram",
	Pie:       "pie",
	GitGraph:  "gitGraph",
	ER:        "erDiagram",
	Journey:   "journey",
}

type prefix struct {
	text string
	typ  Type
}

// prefixes is matched in order against the lower-cased first line.
var prefixes = []prefix{
	{"flowchart", Flowchart},
	{"graph", Flowchart},
	{"sequencediagram", Sequence},
	{"gantt", Gantt},
	{"timeline", Timeline},
	{"classdiagram", Class},
	{"statediagram", State},
	{"pie", Pie},
	{"gitgraph", GitGraph},
	{"erdiagram", ER},
	{"journey", Journey},
}

// Valid reports whether t is one of the supported kinds.
func (t Type) Valid() bool {
	_, ok := keywords[t]
	return ok
}

// Keyword returns the opening keyword for t, or "" for an unknown type.
func (t Type) Keyword() string {
	return keywords[t]
}

// Parse validates an explicit type annotation. Annotations use the canonical
// spelling and are case-sensitive.
func Parse(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid diagram type: %q", s)
	}
	return t, nil
}

// Detect infers the diagram kind from the first meaningful line of text.
// Blank lines, %% comments and a leading --- front matter block are skipped.
func Detect(text string) (Type, bool) {
	line := strings.ToLower(Declaration(text))
	if line == "" {
		return "", false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(line, p.text) {
			return p.typ, true
		}
	}
	return "", false
}

// Declaration returns the trimmed first line that should carry the diagram
// keyword, or "" when text has none.
func Declaration(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	inFrontmatter := false
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case line == "---" && i == 0:
			inFrontmatter = true
			continue
		case inFrontmatter:
			if line == "---" {
				inFrontmatter = false
			}
			continue
		case line == "", strings.HasPrefix(line, "%%"):
			continue
		}
		return line
	}
	return ""
}
