package driving

import (
	"context"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

// IngestReport summarises the ingestion of one document.
type IngestReport struct {
	// Document is the registered document record.
	Document domain.Document

	// Material is the canonical material the document was attached to.
	Material domain.Material

	// Chunks is the number of chunks written to the vector store.
	Chunks int

	// Skipped is true when the checksum was already known and ingestion
	// was a no-op.
	Skipped bool

	// Replaced is true when an older revision of the same material's SDS
	// was replaced.
	Replaced bool

	// Conflict carries an alias conflict diagnostic, when one occurred.
	Conflict string
}

// BatchReport summarises a batch ingestion run.
type BatchReport struct {
	Reports []IngestReport

	// Failed maps file paths to the error that stopped their ingestion.
	// A failed document does not abort the batch.
	Failed map[string]error
}

// IngestService turns SDS PDFs into a queryable knowledge base.
type IngestService interface {
	// IngestFile ingests one PDF from disk.
	IngestFile(ctx context.Context, path string) (*IngestReport, error)

	// IngestBytes ingests one PDF supplied as bytes, using filename for
	// provenance and fallback naming.
	IngestBytes(ctx context.Context, filename string, data []byte) (*IngestReport, error)

	// IngestDir ingests every PDF under a directory with a bounded
	// worker pool. Per-document failures are collected, not fatal.
	IngestDir(ctx context.Context, dir string) (*BatchReport, error)
}

// MaterialAdmin exposes alias index administration to the CLI.
type MaterialAdmin interface {
	// Materials lists all known materials.
	Materials(ctx context.Context) ([]domain.Material, error)

	// Resolve maps a surface name to its material, nil when unknown.
	Resolve(ctx context.Context, text string) (*domain.Material, error)

	// AddAlias records an extra alias for an existing material.
	AddAlias(ctx context.Context, materialID, alias string, source domain.AliasSource) error
}
