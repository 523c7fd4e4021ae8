// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/nestmaid/internal/models"

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every diagram document under dir (relative to vault root).
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to vault root).
	Move(oldPath, newPath string) error
	// IsDocument reports whether path (relative to vault root) names a
	// diagram document that is not ignored.
	IsDocument(path string) bool
}
