// Package services contains the application core: the alias index, the
// ingestion pipeline, the retriever and the answer orchestrator. Services
// depend only on domain types and ports; adapters are injected at startup.
package services
