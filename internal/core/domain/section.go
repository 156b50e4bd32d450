package domain

import "strconv"

// SectionNumber is a canonical SDS section number, 1 through 16.
// SectionUnknown marks blocks that precede the first recognised header.
type SectionNumber int

// SectionUnknown is the sentinel for unsectioned text.
const SectionUnknown SectionNumber = 0

// Canonical section titles per the 16-section SDS standard.
var sectionTitles = map[SectionNumber]string{
	1:  "Identification",
	2:  "Hazard identification",
	3:  "Composition / information on ingredients",
	4:  "First-aid measures",
	5:  "Fire-fighting measures",
	6:  "Accidental release measures",
	7:  "Handling and storage",
	8:  "Exposure controls / personal protection",
	9:  "Physical and chemical properties",
	10: "Stability and reactivity",
	11: "Toxicological information",
	12: "Ecological information",
	13: "Disposal considerations",
	14: "Transport information",
	15: "Regulatory information",
	16: "Other information",
}

// IsValid returns true for section numbers 1-16.
func (n SectionNumber) IsValid() bool {
	return n >= 1 && n <= 16
}

// String returns the section number as text, or "unknown".
func (n SectionNumber) String() string {
	if !n.IsValid() {
		return "unknown"
	}
	return strconv.Itoa(int(n))
}

// Title returns the canonical title for the section, or "Unknown".
func (n SectionNumber) Title() string {
	if t, ok := sectionTitles[n]; ok {
		return t
	}
	return "Unknown"
}

// ParseSectionNumber converts text to a SectionNumber, returning
// SectionUnknown for anything outside 1-16.
func ParseSectionNumber(s string) SectionNumber {
	v, err := strconv.Atoi(s)
	if err != nil {
		return SectionUnknown
	}
	n := SectionNumber(v)
	if !n.IsValid() {
		return SectionUnknown
	}
	return n
}
