package domain

import "time"

// ExtractionMethod records how text was recovered from a page.
type ExtractionMethod string

// Recognised extraction methods.
const (
	// ExtractionDigital is native text extraction from the PDF content stream.
	ExtractionDigital ExtractionMethod = "digital"

	// ExtractionOCR is optical character recognition over a rasterised page.
	ExtractionOCR ExtractionMethod = "ocr"
)

// Document is one ingested SDS. Documents and their chunks are immutable
// after ingestion; replacement is keyed by checksum.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Filename is the source filename as uploaded.
	Filename string

	// Checksum is the SHA-256 of the PDF bytes, hex encoded.
	Checksum string

	// MaterialID links to the primary material described by this SDS.
	// The material must exist in the alias index before chunks are written.
	MaterialID string

	// Vendor is an optional manufacturer tag.
	Vendor string

	// RevisionDate is the SDS revision date as printed, when recovered.
	RevisionDate string

	// PageCount is the number of pages in the source PDF.
	PageCount int

	// DroppedPages counts pages that yielded no text under either
	// extraction strategy. Partial failure is tolerated.
	DroppedPages int

	// ChunkCount is the number of chunks written to the vector store.
	ChunkCount int

	// IngestedAt is when ingestion completed.
	IngestedAt time.Time
}

// Region is an optional bounding region for a block, in PDF points.
type Region struct {
	X0, Y0, X1, Y1 float64
}

// Block is a contiguous span of text extracted from one page.
// Blocks are ordered within a document.
type Block struct {
	// DocumentID links to the owning document.
	DocumentID string

	// Page is the 1-based page number.
	Page int

	// Region is the bounding region when the extractor recovered one.
	Region *Region

	// Text is the raw extracted text.
	Text string

	// Method records whether the text came from the digital or OCR path.
	Method ExtractionMethod

	// Confidence is 1.0 for digital extraction, the engine-reported value
	// in [0,1] for OCR.
	Confidence float64

	// TableCandidate flags blocks whose layout looks tabular. Tables are
	// captured as text, not interpreted structurally.
	TableCandidate bool

	// Section is the SDS section number assigned by the segmenter,
	// SectionUnknown before segmentation or ahead of the first header.
	Section SectionNumber

	// SectionTitle is the heading text that opened the section.
	SectionTitle string
}
