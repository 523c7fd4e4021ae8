package nested

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a fatal resolution error.
type Kind string

const (
	KindSyntax              Kind = "syntax"
	KindMissingReference    Kind = "missing_reference"
	KindTypeDetection       Kind = "type_detection"
	KindInvalidType         Kind = "invalid_type"
	KindCycle               Kind = "cycle"
	KindDepthExceeded       Kind = "depth_exceeded"
	KindDuplicateDefinition Kind = "duplicate_definition"
)

// Error is a fatal condition that aborts one resolution pass. It is returned
// as data inside Result, never panicked.
type Error struct {
	Kind    Kind     `json:"kind"`
	Message string   `json:"message"`
	ID      string   `json:"id,omitempty"`
	Path    []string `json:"path,omitempty"`
	Err     error    `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a resolution error of the given kind.
func IsKind(err error, kind Kind) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}

func syntaxError(declaration string) *Error {
	msg := "unable to detect root diagram type"
	if declaration != "" {
		msg = fmt.Sprintf("%s from: %q", msg, declaration)
	}
	return &Error{Kind: KindSyntax, Message: msg}
}

func missingReferenceError(id string) *Error {
	return &Error{
		Kind:    KindMissingReference,
		Message: fmt.Sprintf("referenced diagram not found: %s", id),
		ID:      id,
	}
}

func typeDetectionError(id string) *Error {
	return &Error{
		Kind:    KindTypeDetection,
		Message: fmt.Sprintf("unable to detect diagram type for: %s", id),
		ID:      id,
	}
}

func invalidTypeError(id string, err error) *Error {
	return &Error{
		Kind:    KindInvalidType,
		Message: fmt.Sprintf("invalid type annotation for: %s", id),
		ID:      id,
		Err:     err,
	}
}

func cycleError(path []string) *Error {
	return &Error{
		Kind:    KindCycle,
		Message: "Circular reference detected: " + strings.Join(path, " -> "),
		Path:    path,
	}
}

func depthExceededError(id string, depth, limit int, path []string) *Error {
	return &Error{
		Kind:    KindDepthExceeded,
		Message: fmt.Sprintf("maximum nesting depth exceeded: %d > %d at %s", depth, limit, id),
		ID:      id,
		Path:    path,
	}
}

func duplicateDefinitionError(id string) *Error {
	return &Error{
		Kind:    KindDuplicateDefinition,
		Message: fmt.Sprintf("diagram defined more than once: %s", id),
		ID:      id,
	}
}
