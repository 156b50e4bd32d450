package driven

import (
	"time"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

// AliasOp is the operation recorded in one alias log entry.
type AliasOp string

// Alias log operations.
const (
	// AliasOpAdd records a new alias for a material.
	AliasOpAdd AliasOp = "add"

	// AliasOpRemove records removal of an alias.
	AliasOpRemove AliasOp = "remove"

	// AliasOpMaterial records creation of a material (its display name
	// and CAS, so the index can be rebuilt from the log alone).
	AliasOpMaterial AliasOp = "material"
)

// AliasRecord is one entry in the append-only alias log.
type AliasRecord struct {
	Timestamp  time.Time          `json:"ts"`
	Op         AliasOp            `json:"op"`
	MaterialID string             `json:"material_id"`
	Alias      string             `json:"alias"`
	Source     domain.AliasSource `json:"source,omitempty"`

	// DisplayName, CAS and HazardCodes are set on material records only.
	DisplayName string   `json:"display_name,omitempty"`
	CAS         string   `json:"cas,omitempty"`
	HazardCodes []string `json:"hazard_codes,omitempty"`
}

// AliasLog is the persistence behind the alias index: an append-only
// record stream, compacted on startup. The index itself lives in memory
// and is the single owner of material identity.
type AliasLog interface {
	// Append writes one record durably.
	Append(rec AliasRecord) error

	// Replay returns all records in write order.
	Replay() ([]AliasRecord, error)

	// Compact rewrites the log to the given snapshot of records,
	// dropping superseded entries.
	Compact(recs []AliasRecord) error

	// Close releases resources.
	Close() error
}
