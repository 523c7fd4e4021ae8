package api

import (
	"github.com/starford/nestmaid/internal/docservice"
)

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Path    string `json:"path" example:"flows/checkout.mmd" validate:"required"`
	Content string `json:"content" example:"flowchart TD\n  A --> B" validate:"required"`
}

// UpdateDocumentRequest is the request body for updating a document.
type UpdateDocumentRequest struct {
	Content string `json:"content" example:"flowchart TD\n  A --> C" validate:"required"`
}

// ResolveRequest is the request body for a stateless resolution.
type ResolveRequest struct {
	Source string `json:"source" example:"flowchart TD\n  A --> {{embed:b}}" validate:"required"`
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// DocumentListItem is a lightweight item in a list response (aliased from the domain layer).
type DocumentListItem = docservice.DocumentListItem

// GraphView is the dependency report of one document (aliased from the domain layer).
type GraphView = docservice.GraphView

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"flows/checkout.mmd" validate:"required"`
	Title   string `json:"title" example:"Checkout" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// DependentsResponse lists the diagrams embedding one definition id.
type DependentsResponse struct {
	ID         string                 `json:"id" example:"login" validate:"required"`
	Dependents []docservice.Dependent `json:"dependents" validate:"required"`
}

// ImportResponse is returned after a successful document import.
type ImportResponse struct {
	Path     string `json:"path" example:"imports/checkout.mmd" validate:"required"`
	Size     int64  `json:"size" example:"512" validate:"required"`
	Status   string `json:"status" example:"resolved" validate:"required"`
	Checksum string `json:"checksum" validate:"required"`
}
