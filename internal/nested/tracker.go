package nested

import "strings"

type definitionState struct {
	typ  string
	text string
}

// snapshot is the comparable form of a registry.
type snapshot map[string]definitionState

func snapshotOf(reg Registry) snapshot {
	s := make(snapshot, len(reg))
	for id, def := range reg {
		s[id] = definitionState{typ: string(def.Type), text: strings.TrimSpace(def.RawText)}
	}
	return s
}

// differs reports whether any id was added, removed or changed.
func (s snapshot) differs(other snapshot) bool {
	if len(s) != len(other) {
		return true
	}
	for id, st := range other {
		prev, ok := s[id]
		if !ok || prev != st {
			return true
		}
	}
	return false
}

func (r *Resolver) remember(reg Registry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = snapshotOf(reg)
}

// HasChanged reports whether the definition blocks of source differ from
// those seen by the previous Resolve. The root diagram text is not compared:
// it exists so caches of rendered output can be dropped when only an
// embedded definition changed.
func (r *Resolver) HasChanged(source string) bool {
	reg, _ := ExtractDefinitions(source)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last.differs(snapshotOf(reg))
}
