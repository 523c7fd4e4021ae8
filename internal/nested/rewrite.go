package nested

import (
	"slices"

	"github.com/starford/nestmaid/internal/diagram"
)

// pass holds the mutable state of one resolution. It is never shared.
type pass struct {
	registry  Registry
	maxDepth  int
	warnDepth int
	warnings  []NestingWarning
}

// resolve builds the node for one diagram. id is empty for the root.
func (p *pass) resolve(id string, typ diagram.Type, content string, ancestors []string, depth int) (*Node, error) {
	chain := ancestors
	if id != "" {
		chain = append(slices.Clip(ancestors), id)
	}
	rewritten, nested, err := p.rewriteReferences(content, chain, depth)
	if err != nil {
		return nil, err
	}
	return &Node{
		Type:             typ,
		Content:          rewritten,
		Nested:           nested,
		ParentReferences: append([]string{}, ancestors...),
	}, nil
}

// rewriteReferences resolves every embed site in content, recursing into the
// referenced definitions, then substitutes the sites in a single pass.
// chain is the path of ids from the root down to the diagram owning content.
func (p *pass) rewriteReferences(content string, chain []string, depth int) (string, map[string]*Node, error) {
	current := ""
	if len(chain) > 0 {
		current = chain[len(chain)-1]
	}
	if depth > p.maxDepth {
		return "", nil, depthExceededError(current, depth, p.maxDepth, slices.Clone(chain))
	}
	if depth >= p.warnDepth && current != "" {
		p.warnings = append(p.warnings, NestingWarning{
			DiagramID:    current,
			CurrentDepth: depth,
			MaxDepth:     p.maxDepth,
			Path:         slices.Clone(chain),
		})
	}

	refs := scanReferences(content)
	nested := make(map[string]*Node, len(refs))
	for _, ref := range refs {
		def, ok := p.registry[ref.ID]
		if !ok {
			return "", nil, missingReferenceError(ref.ID)
		}
		typ, err := effectiveType(ref, def)
		if err != nil {
			return "", nil, err
		}
		// Every site of an id resolves the same body, so a repeat only
		// retypes the node; the last site wins.
		if prev, done := nested[ref.ID]; done {
			prev.Type = typ
			continue
		}
		if i := slices.Index(chain, ref.ID); i >= 0 {
			path := append(slices.Clone(chain[i:]), ref.ID)
			return "", nil, cycleError(path)
		}
		child, err := p.resolve(ref.ID, typ, def.RawText, chain, depth+1)
		if err != nil {
			return "", nil, err
		}
		nested[ref.ID] = child
	}
	return substitute(content, refs), nested, nil
}

// effectiveType picks the reference annotation, then the definition
// annotation, then the type detected from the definition body.
func effectiveType(ref reference, def Definition) (diagram.Type, error) {
	if ref.Type != "" {
		typ, err := diagram.Parse(ref.Type)
		if err != nil {
			return "", invalidTypeError(ref.ID, err)
		}
		return typ, nil
	}
	if def.Type != "" {
		return def.Type, nil
	}
	typ, ok := diagram.Detect(def.RawText)
	if !ok {
		return "", typeDetectionError(def.ID)
	}
	return typ, nil
}
