// Package segment tags extracted blocks with canonical SDS section
// numbers (1-16) and recovers the document's material identity from
// Section 1.
package segment

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/labsafe/sdsassist/internal/core/domain"
	"github.com/labsafe/sdsassist/internal/logger"
)

// headerPatterns is the bank of section heading shapes. Every pattern
// captures the section number in group 1 and the title remainder in
// group 2. Word variants cover the common English headings plus the
// German, Spanish, French and Italian equivalents seen on vendor sheets.
var headerPatterns = []*regexp.Regexp{
	// "SECTION 1: Identification", "Abschnitt 4 - Erste-Hilfe-Maßnahmen"
	regexp.MustCompile(`(?i)^\s*(?:SECTION|ABSCHNITT|SECCI[ÓO]N|RUBRIQUE|SEZIONE)\s+(\d{1,2})\s*[.:\-–—]?\s*(.*)$`),
	// "1. Identification", "4: First-aid measures"
	regexp.MustCompile(`^\s*(\d{1,2})\s*[.:]\s+(\pL.*)$`),
	// "1 — Identification", "1 - Identification"
	regexp.MustCompile(`^\s*(\d{1,2})\s*[-–—]\s+(\pL.*)$`),
}

// maxHeaderLineLen guards against numbered prose being read as a header.
const maxHeaderLineLen = 90

// Identity patterns for Section 1, after common sheet layouts.
var (
	casPattern      = regexp.MustCompile(`\b\d{2,7}-\d{2}-\d\b`)
	namePattern     = regexp.MustCompile(`(?i)\b(?:Product\s*name|Substance\s*name|Chemical\s*name|Product\s*identifier)\s*[:\-]\s*(.+)`)
	synonymPattern  = regexp.MustCompile(`(?i)\bSynonyms?\s*[:\-]\s*(.+)`)
	vendorPattern   = regexp.MustCompile(`(?i)\b(?:Manufacturer|Supplier|Company)(?:\s*name)?\s*[:\-]\s*(.+)`)
	revisionPattern = regexp.MustCompile(`(?i)\b(?:Revision|Issue|Version)\s*(?:date)?\s*[:\-]?\s*(\d{4}[./-]\d{1,2}[./-]\d{1,2}|\d{1,2}[./-]\d{1,2}[./-]\d{4})`)
	hazardPattern   = regexp.MustCompile(`\bH\d{3}\b`)
)

// Segment assigns each block a section number. Blocks before the first
// matched header receive SectionUnknown. filename supplies the fallback
// display name when Section 1 is missing.
//
// Blocks are modified in place and returned together with the recovered
// DocumentFacts.
func Segment(blocks []domain.Block, filename string) ([]domain.Block, domain.DocumentFacts) {
	current := domain.SectionUnknown
	currentTitle := ""

	for i := range blocks {
		if sec, title, ok := matchHeader(blocks[i].Text); ok {
			current = sec
			currentTitle = title
		}
		blocks[i].Section = current
		blocks[i].SectionTitle = currentTitle
	}

	facts := extractFacts(blocks, filename)
	logger.Debug("Segmented %d blocks: material %q, CAS %q",
		len(blocks), facts.PrimaryName, facts.CAS)
	return blocks, facts
}

// matchHeader scans a block's lines for a section heading. The last
// heading found wins, so a block that closes one section and opens the
// next is tagged with the new section.
func matchHeader(text string) (domain.SectionNumber, string, bool) {
	found := domain.SectionUnknown
	title := ""
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || len(ln) > maxHeaderLineLen {
			continue
		}
		for _, pat := range headerPatterns {
			m := pat.FindStringSubmatch(ln)
			if m == nil {
				continue
			}
			sec := domain.ParseSectionNumber(m[1])
			if sec == domain.SectionUnknown {
				continue
			}
			found = sec
			title = strings.TrimSpace(m[2])
			if title == "" {
				title = sec.Title()
			}
			break
		}
	}
	return found, title, found != domain.SectionUnknown
}

// extractFacts recovers material identity from Section 1 and GHS codes
// from Section 2. When no Section 1 text exists, the filename stem
// becomes the display name and no CAS is recorded.
func extractFacts(blocks []domain.Block, filename string) domain.DocumentFacts {
	var sec1, sec2 strings.Builder
	for _, b := range blocks {
		switch b.Section {
		case 1:
			sec1.WriteString(b.Text)
			sec1.WriteByte('\n')
		case 2:
			sec2.WriteString(b.Text)
			sec2.WriteByte('\n')
		}
	}

	facts := domain.DocumentFacts{}
	idText := sec1.String()
	if strings.TrimSpace(idText) == "" {
		facts.PrimaryName = filenameStem(filename)
		return facts
	}

	if m := namePattern.FindStringSubmatch(idText); m != nil {
		facts.PrimaryName = cleanValue(m[1])
	}
	if facts.PrimaryName == "" {
		facts.PrimaryName = filenameStem(filename)
	}
	if m := casPattern.FindString(idText); m != "" {
		facts.CAS = m
	}
	if m := vendorPattern.FindStringSubmatch(idText); m != nil {
		facts.Vendor = cleanValue(m[1])
	}
	if m := revisionPattern.FindStringSubmatch(idText); m != nil {
		facts.RevisionDate = m[1]
	}

	seen := map[string]bool{}
	for _, ln := range strings.Split(idText, "\n") {
		m := synonymPattern.FindStringSubmatch(ln)
		if m == nil {
			continue
		}
		for _, s := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ';' || r == ',' }) {
			s = cleanValue(s)
			if s == "" || seen[strings.ToLower(s)] {
				continue
			}
			seen[strings.ToLower(s)] = true
			facts.Synonyms = append(facts.Synonyms, s)
		}
	}

	codeSeen := map[string]bool{}
	for _, code := range hazardPattern.FindAllString(sec2.String(), -1) {
		if !codeSeen[code] {
			codeSeen[code] = true
			facts.HazardCodes = append(facts.HazardCodes, code)
		}
	}

	return facts
}

// cleanValue trims a captured field value down to its first line and
// strips trailing punctuation.
func cleanValue(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(strings.TrimSpace(s), ".,;:")
}

func filenameStem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
