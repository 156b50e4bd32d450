package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Ingestion errors.

	// ErrExtractionFailed indicates a PDF yielded no usable text after both
	// the digital and OCR strategies. Surfaced per document; a batch continues
	// past it.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrAliasConflict indicates two ingestion paths would merge materials
	// that carry different CAS numbers. Both materials are retained and the
	// conflict is reported for manual resolution.
	ErrAliasConflict = errors.New("alias conflict")

	// Query errors.

	// ErrInsufficientContext indicates retrieval did not produce enough
	// passages above the similarity floor. The orchestrator converts this
	// into a refusal.
	ErrInsufficientContext = errors.New("insufficient context")

	// ErrValidationFailed indicates generator output did not meet the
	// grounding contract. The draft is discarded and never surfaced.
	ErrValidationFailed = errors.New("answer validation failed")

	// ErrUpstreamUnavailable indicates the embedder, generator or vector
	// store returned a transport error after retries were exhausted.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// Service availability errors.

	// ErrGeneratorUnavailable indicates no generative model is configured.
	ErrGeneratorUnavailable = errors.New("generator unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")
)
