// Package document extracts front matter, the root diagram, definitions and
// embed edges from a diagram document.
package document

import (
	"bytes"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/nestmaid/internal/diagram"
	"github.com/starford/nestmaid/internal/models"
	"github.com/starford/nestmaid/internal/nested"
)

var (
	mermaidFenceRe = regexp.MustCompile("(?s)```mermaid[ \t]*\r?\n(.*?)\r?\n```")
	titleLineRe    = regexp.MustCompile(`(?m)^\s*title\s+(.+?)\s*$`)
)

// DefinitionRef describes one definition block without its body.
type DefinitionRef struct {
	ID   string       `json:"id"`
	Type diagram.Type `json:"type,omitempty"`
	Line int          `json:"line"`
}

// Document holds the output of parsing a diagram document.
type Document struct {
	Frontmatter map[string]interface{}
	// Source is the text handed to the resolver: the first mermaid fence of
	// a Markdown document, or the whole file otherwise.
	Source      string
	Title       string
	RootType    diagram.Type
	Definitions []DefinitionRef
	Embeds      []models.Embed
	Registry    nested.Registry
}

// Parse extracts everything the index needs from raw document bytes. Embeds
// carry no path; the caller fills it in.
func Parse(data []byte) (*Document, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	source := string(data)
	if m := mermaidFenceRe.FindStringSubmatch(body); m != nil {
		source = m[1]
	}

	reg, _ := nested.ExtractDefinitions(source)
	root := nested.StripDefinitions(source)
	rootType, _ := diagram.Detect(root)

	return &Document{
		Frontmatter: fm,
		Source:      source,
		Title:       deriveTitle(fm, root),
		RootType:    rootType,
		Definitions: definitionRefs(reg),
		Embeds:      extractEmbeds(root, reg),
		Registry:    reg,
	}, nil
}

// splitFrontmatter separates YAML front matter (a leading line that is exactly
// ---, up to the next such line) from the rest of the document. A
// ---definition:...--- header is never front matter.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	first, rest, ok := bytes.Cut(trimmed, []byte("\n"))
	if !ok || string(bytes.TrimSpace(first)) != delim {
		return nil, string(data), nil
	}

	idx := bytes.Index(rest, []byte("\n"+delim))
	var yamlBlock, after []byte
	switch {
	case bytes.HasPrefix(rest, []byte(delim)):
		after = rest[len(delim):]
	case idx >= 0:
		yamlBlock = rest[:idx]
		after = rest[idx+1+len(delim):]
	default:
		return nil, string(data), nil
	}
	body := strings.TrimLeft(string(after), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: keep the whole document as body.
		return nil, string(data), nil
	}
	return fm, body, nil
}

// deriveTitle returns the front matter "title", otherwise the first title
// directive of the root diagram, otherwise empty string.
func deriveTitle(fm map[string]interface{}, root string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	if m := titleLineRe.FindStringSubmatch(root); m != nil {
		return m[1]
	}
	return ""
}

func definitionRefs(reg nested.Registry) []DefinitionRef {
	out := make([]DefinitionRef, 0, len(reg))
	for _, def := range reg {
		out = append(out, DefinitionRef{ID: def.ID, Type: def.Type, Line: def.Line})
	}
	slices.SortFunc(out, func(a, b DefinitionRef) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// extractEmbeds lists the edges of the document: root embeds have an empty
// Source, definition embeds have the embedding definition's id.
func extractEmbeds(root string, reg nested.Registry) []models.Embed {
	var out []models.Embed
	for _, target := range nested.References(root) {
		out = append(out, models.Embed{Target: target})
	}
	ids := make([]string, 0, len(reg))
	for id := range reg {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		for _, target := range nested.References(reg[id].RawText) {
			out = append(out, models.Embed{Source: id, Target: target})
		}
	}
	return out
}
