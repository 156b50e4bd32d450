package domain

import "strings"

// AliasSource describes where a surface name for a material came from.
type AliasSource string

// Recognised alias sources.
const (
	// AliasSourceCAS is a Chemical Abstracts Service registry number.
	AliasSourceCAS AliasSource = "cas"

	// AliasSourceSynonym is a synonym listed in Section 1 of an SDS.
	AliasSourceSynonym AliasSource = "synonym"

	// AliasSourceTradeName is a vendor or product trade name.
	AliasSourceTradeName AliasSource = "trade_name"

	// AliasSourceProductCode is a catalogue or product code.
	AliasSourceProductCode AliasSource = "product_code"
)

// IsValid returns true if the alias source is recognised.
func (s AliasSource) IsValid() bool {
	switch s {
	case AliasSourceCAS, AliasSourceSynonym, AliasSourceTradeName, AliasSourceProductCode:
		return true
	default:
		return false
	}
}

// Alias is one surface name recorded for a material.
type Alias struct {
	// Text is the surface form as observed, original case preserved.
	Text string

	// Source classifies where the alias came from.
	Source AliasSource
}

// Material is the canonical entity for one substance. Every alias resolves
// to exactly one material; a material always has at least one alias
// (its display name).
type Material struct {
	// ID is an opaque identifier generated on first ingestion.
	ID string

	// DisplayName is the preferred human-readable name.
	DisplayName string

	// CAS is the primary CAS registry number, empty when unknown.
	CAS string

	// Aliases are all surface names recorded for this material,
	// including the display name itself.
	Aliases []Alias

	// HazardClasses are GHS hazard codes (e.g. H271, H314) gathered from
	// ingested documents. Used by the hazard rule engine.
	HazardClasses []string
}

// HasAlias reports whether the material already records the given surface
// name, compared case-insensitively with whitespace normalised.
func (m *Material) HasAlias(text string) bool {
	want := NormalizeAlias(text)
	for _, a := range m.Aliases {
		if NormalizeAlias(a.Text) == want {
			return true
		}
	}
	return false
}

// HasHazardClass reports whether the material carries the given GHS code.
func (m *Material) HasHazardClass(code string) bool {
	for _, c := range m.HazardClasses {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// NormalizeAlias lowercases a surface name and collapses internal
// whitespace so that "Sodium  Hypochlorite " and "sodium hypochlorite"
// compare equal.
func NormalizeAlias(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// DocumentFacts is the material identity a segmenter recovers from
// Section 1 of an SDS. It seeds the alias index during ingestion.
type DocumentFacts struct {
	// PrimaryName is the product identifier, or the filename stem when
	// Section 1 is missing.
	PrimaryName string

	// CAS is the CAS number found in Section 1, empty when absent.
	CAS string

	// Vendor is the manufacturer or supplier name, when present.
	Vendor string

	// RevisionDate is the SDS revision date as printed, when present.
	RevisionDate string

	// Synonyms are additional surface names listed in Section 1.
	Synonyms []string

	// HazardCodes are GHS H-codes found in Section 2.
	HazardCodes []string
}
