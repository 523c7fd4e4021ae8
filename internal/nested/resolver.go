// Package nested resolves diagram documents that embed other diagrams.
//
// A document holds one root diagram plus any number of definition blocks:
//
//	flowchart TD
//	  A --> {{embed:login}}
//	---definition:login---
//	sequenceDiagram
//	  U->>S: hi
//	---end---
//
// Resolve extracts the definitions, resolves every {{embed:[type:]id}} site
// recursively into a tree of typed, fully substituted diagram descriptions,
// and validates the embed graph (cycles, nesting depth, types).
package nested

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/nestmaid/internal/diagram"
)

// Nesting limits.
const (
	DefaultMaxDepth  = 10
	DefaultWarnDepth = 7
)

// NestingWarning is a non-fatal advisory for deeply nested diagrams.
type NestingWarning struct {
	DiagramID    string   `json:"diagram_id"`
	CurrentDepth int      `json:"current_depth"`
	MaxDepth     int      `json:"max_depth"`
	Path         []string `json:"path"`
}

// Result is the outcome of one resolution pass. On failure Tree is nil and
// Error is set; the dependency report is still filled when it was buildable.
type Result struct {
	Success          bool                `json:"success"`
	Tree             *Node               `json:"resolved_tree,omitempty"`
	Error            *Error              `json:"error,omitempty"`
	DependencyReport []GraphNode         `json:"dependency_report"`
	Warnings         []NestingWarning    `json:"warnings"`
	TopologicalOrder []string            `json:"topological_order"`
	Dangling         map[string][]string `json:"dangling,omitempty"`
}

// Err returns the fatal error as an error value, or nil on success.
func (r *Result) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxDepth sets the hard nesting cap.
func WithMaxDepth(n int) Option {
	return func(r *Resolver) {
		r.maxDepth = n
	}
}

// WithWarnDepth sets the depth at which nesting warnings start.
func WithWarnDepth(n int) Option {
	return func(r *Resolver) {
		r.warnDepth = n
	}
}

// WithStrictDefinitions makes repeated definition ids a fatal error instead
// of letting the last block win.
func WithStrictDefinitions(strict bool) Option {
	return func(r *Resolver) {
		r.strict = strict
	}
}

// WithLogger sets the logger used for pass diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// Resolver resolves one document at a time and remembers the definitions of
// its last pass for change detection. Use one Resolver per document; passes
// never share registries.
type Resolver struct {
	maxDepth  int
	warnDepth int
	strict    bool
	logger    *slog.Logger

	mu   sync.Mutex
	last snapshot
}

// New creates a Resolver with the default limits.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		maxDepth:  DefaultMaxDepth,
		warnDepth: DefaultWarnDepth,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs a full resolution pass over source.
func (r *Resolver) Resolve(source string) *Result {
	start := time.Now()
	passID := uuid.NewString()

	registry, issues := ExtractDefinitions(source)
	r.remember(registry)

	res := r.resolve(source, registry, issues)

	attrs := []any{
		slog.String("pass", passID),
		slog.Int("definitions", len(registry)),
		slog.Bool("success", res.Success),
		slog.Int("warnings", len(res.Warnings)),
		slog.Duration("elapsed", time.Since(start)),
	}
	if res.Error != nil {
		attrs = append(attrs, slog.String("error", res.Error.Message))
	}
	r.logger.Debug("resolve: done", attrs...)
	return res
}

func (r *Resolver) resolve(source string, registry Registry, issues []DefinitionIssue) *Result {
	res := &Result{
		DependencyReport: []GraphNode{},
		Warnings:         []NestingWarning{},
		TopologicalOrder: []string{},
	}

	rootText := strings.TrimSpace(StripDefinitions(source))
	rootType, ok := diagram.Detect(rootText)
	if !ok {
		res.Error = syntaxError(diagram.Declaration(rootText))
		return res
	}

	// Everything below can report the graph, even on failure.
	graph := BuildGraph(registry)
	res.DependencyReport = graph.Report()
	if len(graph.Dangling) > 0 {
		res.Dangling = graph.Dangling
	}

	if err := r.checkIssues(issues); err != nil {
		res.Error = err
		return res
	}

	p := &pass{registry: registry, maxDepth: r.maxDepth, warnDepth: r.warnDepth}
	tree, err := p.resolve("", rootType, rootText, nil, 0)
	res.Warnings = append(res.Warnings, p.warnings...)
	if err != nil {
		res.Error = asError(err)
		return res
	}

	if cycle := graph.FindCycle(); cycle != nil {
		res.Error = cycleError(cycle)
		return res
	}

	order, err := graph.TopologicalOrder()
	if err != nil {
		res.Error = asError(err)
		return res
	}

	res.Success = true
	res.Tree = tree
	res.TopologicalOrder = order
	return res
}

// checkIssues turns definition issues into a fatal error. Invalid type
// annotations always fail; repeated ids fail only in strict mode.
func (r *Resolver) checkIssues(issues []DefinitionIssue) *Error {
	for _, is := range issues {
		switch is.Kind {
		case KindInvalidType:
			return invalidTypeError(is.ID, is.Err)
		case KindDuplicateDefinition:
			if r.strict {
				return duplicateDefinitionError(is.ID)
			}
			r.logger.Warn("resolve: duplicate definition, last one wins",
				slog.String("id", is.ID), slog.Int("line", is.Line))
		}
	}
	return nil
}

func asError(err error) *Error {
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	return &Error{Kind: KindSyntax, Message: err.Error(), Err: err}
}
