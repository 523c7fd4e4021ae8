package index

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/nestmaid/internal/checksum"
	"github.com/starford/nestmaid/internal/document"
	"github.com/starford/nestmaid/internal/metrics"
	"github.com/starford/nestmaid/internal/models"
	"github.com/starford/nestmaid/internal/nested"
)

// Outcome is the result of indexing one document.
type Outcome struct {
	Document *document.Document
	Result   *nested.Result
	// DefinitionsChanged is set when the definition blocks differ from the
	// previously indexed version of the same path.
	DefinitionsChanged bool
}

// Indexer resolves documents and writes the results to the index. It keeps
// one nested.Resolver per path so definition changes can be tracked between
// passes.
type Indexer struct {
	db     DocumentIndex
	logger *slog.Logger
	opts   []nested.Option

	mu        sync.Mutex
	resolvers map[string]*nested.Resolver
	onEvent   EventCallback
}

// NewIndexer creates an Indexer. opts are applied to every per-path resolver.
func NewIndexer(db DocumentIndex, logger *slog.Logger, opts ...nested.Option) *Indexer {
	return &Indexer{
		db:        db,
		logger:    logger,
		opts:      append([]nested.Option{nested.WithLogger(logger)}, opts...),
		resolvers: make(map[string]*nested.Resolver),
	}
}

// DB returns the underlying index.
func (ix *Indexer) DB() DocumentIndex {
	return ix.db
}

// Options returns the resolver options used for stored documents, so
// ad-hoc resolutions can use the same limits.
func (ix *Indexer) Options() []nested.Option {
	return ix.opts
}

// SetEventCallback sets the callback that receives EventDefinitionsChanged
// from IndexFile, whichever caller triggered the indexing.
func (ix *Indexer) SetEventCallback(cb EventCallback) {
	ix.mu.Lock()
	ix.onEvent = cb
	ix.mu.Unlock()
}

func (ix *Indexer) callback() EventCallback {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.onEvent
}

// resolver returns the resolver for path and whether it already existed.
func (ix *Indexer) resolver(path string) (*nested.Resolver, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	r, ok := ix.resolvers[path]
	if !ok {
		r = nested.New(ix.opts...)
		ix.resolvers[path] = r
	}
	return r, ok
}

// IndexFile parses and resolves data and upserts the outcome for path.
// Resolution failures are stored as document status, not returned. When the
// definition blocks changed since the last pass over path, the event
// callback receives EventDefinitionsChanged.
func (ix *Indexer) IndexFile(path string, data []byte) (*Outcome, error) {
	doc, err := document.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("index: parse %s: %w", path, err)
	}
	defsSum := checksum.Definitions(doc.Registry)

	r, known := ix.resolver(path)
	var changed bool
	if known {
		changed = r.HasChanged(doc.Source)
	} else {
		prev, err := ix.db.GetDefinitionsChecksum(path)
		if err != nil {
			return nil, err
		}
		changed = prev != "" && prev != defsSum
	}

	start := time.Now()
	res := r.Resolve(doc.Source)
	Observe(res, "index", time.Since(start))

	row := DocumentRow{
		Path:                path,
		Title:               doc.Title,
		RootType:            string(doc.RootType),
		Checksum:            checksum.Sum(data),
		DefinitionsChecksum: defsSum,
		Status:              models.StatusResolved,
		UpdatedAt:           time.Now(),
	}
	if res.Error != nil {
		row.Status = models.StatusFailed
		row.ErrorKind = string(res.Error.Kind)
		row.Error = res.Error.Message
	}

	embeds := make([]models.Embed, len(doc.Embeds))
	for i, e := range doc.Embeds {
		e.Path = path
		embeds[i] = e
	}

	err = ix.db.UpsertDocument(Entry{
		Row:         row,
		Body:        string(data),
		Definitions: doc.Definitions,
		Embeds:      embeds,
		Warnings:    res.Warnings,
	})
	if err != nil {
		return nil, err
	}
	if changed {
		notify(ix.callback(), EventDefinitionsChanged, path)
	}
	return &Outcome{Document: doc, Result: res, DefinitionsChanged: changed}, nil
}

// Forget removes path from the index and drops its resolver.
func (ix *Indexer) Forget(path string) error {
	ix.mu.Lock()
	delete(ix.resolvers, path)
	ix.mu.Unlock()
	return ix.db.DeleteDocument(path)
}

// Observe records one resolution pass in the metrics collectors.
func Observe(res *nested.Result, origin string, elapsed time.Duration) {
	metrics.ResolveDuration.WithLabelValues(origin).Observe(elapsed.Seconds())
	outcome := models.StatusResolved
	if res.Error != nil {
		outcome = string(res.Error.Kind)
	}
	metrics.ResolveTotal.WithLabelValues(outcome).Inc()
	metrics.NestingWarningsTotal.Add(float64(len(res.Warnings)))
}
