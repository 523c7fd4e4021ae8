package nested

import (
	"regexp"
	"strings"
)

const definitionEnd = "---end---"

var (
	definitionHeaderRe = regexp.MustCompile(`^---definition:(?:([A-Za-z]+):)?([A-Za-z0-9_-]+)---$`)
	referenceRe        = regexp.MustCompile(`\{\{embed:(?:([A-Za-z]+):)?([A-Za-z0-9_-]+)\}\}`)
)

// reference is one {{embed:[type:]id}} site. Start and End are byte offsets
// of the whole marker in the scanned content.
type reference struct {
	Start int
	End   int
	Type  string
	ID    string
}

// scanReferences returns every embed marker in content, in order.
func scanReferences(content string) []reference {
	matches := referenceRe.FindAllStringSubmatchIndex(content, -1)
	refs := make([]reference, 0, len(matches))
	for _, m := range matches {
		ref := reference{Start: m[0], End: m[1], ID: content[m[4]:m[5]]}
		if m[2] >= 0 {
			ref.Type = content[m[2]:m[3]]
		}
		refs = append(refs, ref)
	}
	return refs
}

// referencedIDs returns the distinct ids embedded in content, in order of
// first appearance.
func referencedIDs(content string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, ref := range scanReferences(content) {
		if _, dup := seen[ref.ID]; dup {
			continue
		}
		seen[ref.ID] = struct{}{}
		out = append(out, ref.ID)
	}
	return out
}

// inLinkStatement reports whether ref sits directly inside a double-quoted
// string, as in `click A "{{embed:x}}"`.
func inLinkStatement(content string, ref reference) bool {
	return ref.Start > 0 && ref.End < len(content) &&
		content[ref.Start-1] == '"' && content[ref.End] == '"'
}

// substitute replaces every reference site in one pass. Link statements get
// the bare id inside their existing quotes; inline labels get a quoted id.
func substitute(content string, refs []reference) string {
	if len(refs) == 0 {
		return content
	}
	var b strings.Builder
	b.Grow(len(content))
	last := 0
	for _, ref := range refs {
		b.WriteString(content[last:ref.Start])
		if inLinkStatement(content, ref) {
			b.WriteString(ref.ID)
		} else {
			b.WriteString(`"` + ref.ID + `"`)
		}
		last = ref.End
	}
	b.WriteString(content[last:])
	return b.String()
}

// parseHeader matches a definition header line.
func parseHeader(line string) (typ, id string, ok bool) {
	m := definitionHeaderRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func isEnd(line string) bool {
	return strings.TrimSpace(line) == definitionEnd
}

// References returns the distinct ids embedded in content, in order of first use.
func References(content string) []string {
	return referencedIDs(content)
}
