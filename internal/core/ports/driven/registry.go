package driven

import (
	"context"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

// DocumentRegistry persists document metadata: filenames, checksums,
// material links and ingestion diagnostics. Backed by SQLite.
// Chunk text and vectors live in the vector store, not here.
type DocumentRegistry interface {
	// Save stores or updates a document record.
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// GetByChecksum retrieves a document by content checksum.
	// Returns domain.ErrNotFound when no document matches.
	GetByChecksum(ctx context.Context, checksum string) (*domain.Document, error)

	// ListByMaterial returns all documents for a material.
	ListByMaterial(ctx context.Context, materialID string) ([]domain.Document, error)

	// List returns all registered documents.
	List(ctx context.Context) ([]domain.Document, error)

	// Delete removes a document record.
	Delete(ctx context.Context, id string) error
}
