// Package docservice coordinates vault storage, the document index and the
// resolution engine.
package docservice

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/starford/nestmaid/internal/apperr"
	"github.com/starford/nestmaid/internal/checksum"
	"github.com/starford/nestmaid/internal/depgraph"
	"github.com/starford/nestmaid/internal/document"
	"github.com/starford/nestmaid/internal/index"
	"github.com/starford/nestmaid/internal/models"
	"github.com/starford/nestmaid/internal/nested"
	"github.com/starford/nestmaid/internal/storage"
)

// DocumentDetail is the full representation of a document.
type DocumentDetail struct {
	Path        string                   `json:"path"`
	Title       string                   `json:"title"`
	RootType    string                   `json:"root_type"`
	Content     string                   `json:"content"`
	Checksum    string                   `json:"checksum"`
	Frontmatter map[string]any           `json:"frontmatter,omitempty"`
	Definitions []document.DefinitionRef `json:"definitions"`
	Status      string                   `json:"status"`
	Error       *nested.Error            `json:"error,omitempty"`
	Warnings    []nested.NestingWarning  `json:"warnings"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	RootType  string    `json:"root_type"`
	Checksum  string    `json:"checksum"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GraphView is the dependency report of one document.
type GraphView struct {
	Path             string              `json:"path"`
	RootEmbeds       []string            `json:"root_embeds"`
	Nodes            []nested.GraphNode  `json:"nodes"`
	Dangling         map[string][]string `json:"dangling,omitempty"`
	Cycle            []string            `json:"cycle,omitempty"`
	TopologicalOrder []string            `json:"topological_order"`
}

// Dependent is a diagram embedding a definition id somewhere in the vault.
type Dependent struct {
	Path string `json:"path"`
	// Source is the embedding definition id, empty for a root diagram.
	Source string `json:"source,omitempty"`
}

// Service coordinates storage and index operations.
type Service struct {
	store storage.Provider
	ix    *index.Indexer
}

// NewService creates a new document service.
func NewService(store storage.Provider, ix *index.Indexer) *Service {
	return &Service{store: store, ix: ix}
}

// read returns the raw bytes of path, mapping a missing file to ErrNotFound.
func (s *Service) read(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Service) checkPath(path string) error {
	if !s.store.IsDocument(path) {
		return apperr.ErrInvalidPath
	}
	return nil
}

// GetDocument reads a document from storage and enriches it with its last
// resolution outcome.
func (s *Service) GetDocument(_ context.Context, path string) (*DocumentDetail, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(path, data, nil)
}

// CreateDocument writes a new document and indexes it.
func (s *Service) CreateDocument(_ context.Context, path string, content []byte) (*DocumentDetail, error) {
	if err := s.checkPath(path); err != nil {
		return nil, err
	}
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	return s.write(path, content)
}

// UpdateDocument writes updated content with optimistic concurrency.
func (s *Service) UpdateDocument(_ context.Context, path string, content []byte, ifMatch string) (*DocumentDetail, error) {
	existing, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	return s.write(path, content)
}

// ImportDocument writes content at path, replacing any existing document
// when overwrite is set.
func (s *Service) ImportDocument(_ context.Context, path string, content []byte, overwrite bool) (*DocumentDetail, error) {
	if err := s.checkPath(path); err != nil {
		return nil, err
	}
	if _, err := s.store.Read(path); err == nil && !overwrite {
		return nil, apperr.ErrAlreadyExists
	}
	return s.write(path, content)
}

func (s *Service) write(path string, content []byte) (*DocumentDetail, error) {
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	out, err := s.ix.IndexFile(path, content)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(path, content, out)
}

// DeleteDocument removes a document from storage and index.
func (s *Service) DeleteDocument(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.ix.Forget(path)
}

// ListDocuments returns paginated documents with an optional root type filter.
func (s *Service) ListDocuments(_ context.Context, limit, offset int, rootType string) ([]DocumentListItem, int, error) {
	rows, total, err := s.ix.DB().ListDocuments(limit, offset, rootType)
	if err != nil {
		return nil, 0, err
	}
	items := make([]DocumentListItem, len(rows))
	for i, r := range rows {
		items[i] = DocumentListItem{
			Path:      r.Path,
			Title:     r.Title,
			RootType:  r.RootType,
			Checksum:  r.Checksum,
			Status:    r.Status,
			Error:     r.Error,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.ix.DB().Search(query, limit)
}

// Resolve runs a stateless resolution of source with the configured limits.
func (s *Service) Resolve(_ context.Context, source string) *nested.Result {
	start := time.Now()
	res := nested.New(s.ix.Options()...).Resolve(source)
	index.Observe(res, "adhoc", time.Since(start))
	return res
}

// ResolveDocument resolves the stored document at path. A failed resolution
// is reported inside the result, not as an error.
func (s *Service) ResolveDocument(ctx context.Context, path string) (*nested.Result, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, doc.Source), nil
}

// ResolvedNode resolves the document at path and returns the nested node at
// nodePath (a chain of definition ids below the root). An empty nodePath
// returns the root.
func (s *Service) ResolvedNode(ctx context.Context, path string, nodePath []string) (*nested.Node, error) {
	res, err := s.ResolveDocument(ctx, path)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, res.Error
	}
	n, ok := res.Tree.Lookup(nodePath...)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return n, nil
}

// Graph builds the dependency report of the document at path without
// resolving it, so cyclic or broken documents can still be inspected.
func (s *Service) Graph(_ context.Context, path string) (*GraphView, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, err
	}
	g := nested.BuildGraph(doc.Registry)
	view := &GraphView{
		Path:             path,
		RootEmbeds:       nested.References(nested.StripDefinitions(doc.Source)),
		Nodes:            g.Report(),
		Dangling:         g.Dangling,
		Cycle:            g.FindCycle(),
		TopologicalOrder: []string{},
	}
	if view.RootEmbeds == nil {
		view.RootEmbeds = []string{}
	}
	if order, err := g.TopologicalOrder(); err == nil {
		view.TopologicalOrder = order
	}
	return view, nil
}

// GraphSVG renders the dependency graph of the document at path.
func (s *Service) GraphSVG(ctx context.Context, path string) ([]byte, error) {
	view, err := s.Graph(ctx, path)
	if err != nil {
		return nil, err
	}
	return depgraph.RenderSVG(ctx, depgraph.View{
		Title:      path,
		RootEmbeds: view.RootEmbeds,
		Nodes:      view.Nodes,
		Dangling:   view.Dangling,
		Cycle:      view.Cycle,
	})
}

// Dependents returns every indexed diagram that embeds id.
func (s *Service) Dependents(_ context.Context, id string) ([]Dependent, error) {
	rows, err := s.ix.DB().Dependents(id)
	if err != nil {
		return nil, err
	}
	out := make([]Dependent, len(rows))
	for i, r := range rows {
		out[i] = Dependent{Path: r.Path, Source: r.Source}
	}
	return out, nil
}

// IndexFile resolves data and upserts it into the index.
func (s *Service) IndexFile(path string, data []byte) (*index.Outcome, error) {
	return s.ix.IndexFile(path, data)
}

// buildDetail constructs a DocumentDetail from raw data without re-reading
// the file. out is the fresh indexing outcome, or nil to use the stored one.
func (s *Service) buildDetail(path string, data []byte, out *index.Outcome) (*DocumentDetail, error) {
	doc, err := document.Parse(data)
	if err != nil {
		return nil, err
	}
	d := &DocumentDetail{
		Path:        path,
		Title:       doc.Title,
		RootType:    string(doc.RootType),
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Frontmatter: doc.Frontmatter,
		Definitions: nonNilSlice(doc.Definitions),
		UpdatedAt:   time.Now(),
	}

	if out != nil {
		d.Status = statusOf(out.Result)
		d.Error = out.Result.Error
		d.Warnings = nonNilSlice(out.Result.Warnings)
		return d, nil
	}

	row, err := s.ix.DB().GetDocument(path)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		// Not indexed yet (e.g. written before the watcher caught up).
		d.Warnings = []nested.NestingWarning{}
		return d, nil
	case err != nil:
		return nil, err
	}
	d.Status = row.Status
	d.UpdatedAt = row.UpdatedAt
	if row.Error != "" {
		d.Error = &nested.Error{Kind: nested.Kind(row.ErrorKind), Message: row.Error}
	}
	warnings, err := s.ix.DB().Warnings(path)
	if err != nil {
		return nil, err
	}
	d.Warnings = nonNilSlice(warnings)
	return d, nil
}

func statusOf(res *nested.Result) string {
	if res.Success {
		return models.StatusResolved
	}
	return models.StatusFailed
}

// SplitNodePath turns "a/b" into ["a", "b"], dropping empty segments.
func SplitNodePath(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
