// Package driving provides interfaces for user-facing adapters
// (primary/inbound ports). The CLI is a thin presentation layer over
// these interfaces.
package driving
