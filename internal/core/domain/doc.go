// Package domain contains the core entities of the SDS assistant:
// materials and their aliases, ingested documents with their extracted
// blocks and chunks, hazard findings, queries and answers.
//
// Domain types carry no behaviour beyond validation and derivation
// helpers. Persistence and transport live in the adapters.
package domain
