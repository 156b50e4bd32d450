// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): the embedder, the generative model, the
// vector store, OCR, the document registry, the alias log and the
// prompt store.
package driven
