package index

import (
	"github.com/starford/nestmaid/internal/document"
	"github.com/starford/nestmaid/internal/nested"
)

// DocumentIndex defines the interface for document indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type DocumentIndex interface {
	UpsertDocument(e Entry) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDefinitionsChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	ListDocuments(limit, offset int, rootType string) ([]DocumentRow, int, error)
	Definitions(path string) ([]document.DefinitionRef, error)
	Warnings(path string) ([]nested.NestingWarning, error)
	Dependents(id string) ([]Dependent, error)
	DefinedIn(id string) ([]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Count() (int, error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
