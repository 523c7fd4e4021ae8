package nested

import (
	"strings"

	"github.com/starford/nestmaid/internal/diagram"
)

// Definition is one named diagram block available for embedding.
type Definition struct {
	ID      string       `json:"id"`
	Type    diagram.Type `json:"type,omitempty"` // explicit annotation, if any
	RawText string       `json:"raw_text"`
	Line    int          `json:"line"` // 1-based line of the header
}

// Registry maps definition ids to their blocks.
type Registry map[string]Definition

// DefinitionIssue describes a definition block that was not registered as
// written: an invalid type annotation (block skipped) or a repeated id
// (later block wins).
type DefinitionIssue struct {
	ID   string `json:"id"`
	Line int    `json:"line"`
	Kind Kind   `json:"kind"`
	Err  error  `json:"-"`
}

// ExtractDefinitions returns every well-formed definition block in source.
// Blocks nested inside another definition's body are registered too, and are
// removed from the enclosing body.
func ExtractDefinitions(source string) (Registry, []DefinitionIssue) {
	blocks, _ := splitDefinitions(source)
	reg := make(Registry, len(blocks))
	var issues []DefinitionIssue
	for _, b := range blocks {
		def := Definition{ID: b.id, RawText: b.body, Line: b.header + 1}
		if b.typ != "" {
			typ, err := diagram.Parse(b.typ)
			if err != nil {
				issues = append(issues, DefinitionIssue{ID: b.id, Line: def.Line, Kind: KindInvalidType, Err: err})
				continue
			}
			def.Type = typ
		}
		if _, dup := reg[b.id]; dup {
			issues = append(issues, DefinitionIssue{ID: b.id, Line: def.Line, Kind: KindDuplicateDefinition})
		}
		reg[b.id] = def
	}
	return reg, issues
}

// StripDefinitions returns source with all definition blocks removed.
func StripDefinitions(source string) string {
	_, rest := splitDefinitions(source)
	return rest
}

type block struct {
	id     string
	typ    string
	header int // line index of the header
	end    int // line index of the terminator
	body   string
}

// splitDefinitions pairs headers with terminators (innermost open header
// closes first) and distributes every other line to its innermost enclosing
// block, or to the top level. Unterminated headers stay as plain text.
func splitDefinitions(source string) ([]block, string) {
	lines := strings.Split(source, "\n")

	var open []int
	pairs := make(map[int]int) // header -> end
	for i, line := range lines {
		if _, _, ok := parseHeader(line); ok {
			open = append(open, i)
			continue
		}
		if isEnd(line) && len(open) > 0 {
			h := open[len(open)-1]
			open = open[:len(open)-1]
			pairs[h] = i
		}
	}
	if len(pairs) == 0 {
		return nil, source
	}

	markers := make(map[int]bool, 2*len(pairs))
	for h, e := range pairs {
		markers[h] = true
		markers[e] = true
	}

	// Headers in source order; owner lookups walk them innermost-last.
	var headers []int
	for i := range lines {
		if _, ok := pairs[i]; ok {
			headers = append(headers, i)
		}
	}

	bodies := make(map[int][]string, len(pairs))
	var top []string
	for i, line := range lines {
		if markers[i] {
			continue
		}
		owner := -1
		for _, h := range headers {
			if h > i {
				break
			}
			if i < pairs[h] {
				owner = h
			}
		}
		if owner < 0 {
			top = append(top, line)
			continue
		}
		bodies[owner] = append(bodies[owner], line)
	}

	blocks := make([]block, 0, len(headers))
	for _, h := range headers {
		typ, id, _ := parseHeader(lines[h])
		blocks = append(blocks, block{
			id:     id,
			typ:    typ,
			header: h,
			end:    pairs[h],
			body:   strings.TrimSpace(strings.Join(bodies[h], "\n")),
		})
	}
	return blocks, strings.Join(top, "\n")
}
