// Package models defines the domain types for nestmaid.
package models

import "time"

// DocumentMetadata is a lightweight representation returned by list operations.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Embed is a directed edge from a diagram to the definition it embeds.
// Source is empty for the document's root diagram.
type Embed struct {
	Path   string `json:"path"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Status of the last resolution of a document.
const (
	StatusResolved = "resolved"
	StatusFailed   = "failed"
)
