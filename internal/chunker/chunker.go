// Package chunker splits section-tagged blocks into retrieval units.
// Chunks never cross a section boundary and never mix digital with OCR
// text; split points prefer paragraph breaks, then sentence boundaries,
// then a hard token limit.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

// charsPerToken is the approximate average characters per token for the
// tokenizers behind the supported embedding models.
const charsPerToken = 4

// Default chunk bounds in tokens.
const (
	DefaultMinTokens    = 300
	DefaultTargetTokens = 550
	DefaultMaxTokens    = 800
)

// Chunker splits blocks into bounded chunks.
type Chunker struct {
	minTokens    int
	targetTokens int
	maxTokens    int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithTokenBounds sets the minimum, target and maximum chunk size in
// tokens. Non-positive values keep the defaults.
func WithTokenBounds(minT, target, maxT int) Option {
	return func(c *Chunker) {
		if minT > 0 {
			c.minTokens = minT
		}
		if target > 0 {
			c.targetTokens = target
		}
		if maxT > 0 {
			c.maxTokens = maxT
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		minTokens:    DefaultMinTokens,
		targetTokens: DefaultTargetTokens,
		maxTokens:    DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.targetTokens > c.maxTokens {
		c.targetTokens = c.maxTokens
	}
	if c.minTokens > c.targetTokens {
		c.minTokens = c.targetTokens
	}
	return c
}

// run is a maximal sequence of consecutive blocks sharing section and
// extraction method. Chunks are built within a single run.
type run struct {
	section      domain.SectionNumber
	sectionTitle string
	method       domain.ExtractionMethod
	blocks       []domain.Block
}

// Split turns segmented blocks into chunks for one document.
func (c *Chunker) Split(blocks []domain.Block, docID, materialID string) []domain.Chunk {
	var chunks []domain.Chunk
	for _, r := range groupRuns(blocks) {
		chunks = append(chunks, c.splitRun(r, docID, materialID)...)
	}
	return chunks
}

func groupRuns(blocks []domain.Block) []run {
	var runs []run
	for _, b := range blocks {
		if strings.TrimSpace(b.Text) == "" {
			continue
		}
		n := len(runs)
		if n > 0 && runs[n-1].section == b.Section && runs[n-1].method == b.Method {
			runs[n-1].blocks = append(runs[n-1].blocks, b)
			if runs[n-1].sectionTitle == "" {
				runs[n-1].sectionTitle = b.SectionTitle
			}
			continue
		}
		runs = append(runs, run{
			section:      b.Section,
			sectionTitle: b.SectionTitle,
			method:       b.Method,
			blocks:       []domain.Block{b},
		})
	}
	return runs
}

// pending accumulates text plus provenance for the chunk being built.
type pending struct {
	parts      []string
	tokens     int
	pageMin    int
	pageMax    int
	confidence float64
}

func (p *pending) add(text string, page int, confidence float64) {
	p.parts = append(p.parts, text)
	p.tokens += estimateTokens(text)
	if p.pageMin == 0 || page < p.pageMin {
		p.pageMin = page
	}
	if page > p.pageMax {
		p.pageMax = page
	}
	if p.confidence == 0 || confidence < p.confidence {
		p.confidence = confidence
	}
}

func (p *pending) empty() bool { return len(p.parts) == 0 }

func (c *Chunker) splitRun(r run, docID, materialID string) []domain.Chunk {
	var chunks []domain.Chunk
	cur := &pending{}

	flush := func() {
		if cur.empty() {
			return
		}
		chunks = append(chunks, domain.Chunk{
			ID:           uuid.New().String(),
			DocumentID:   docID,
			MaterialID:   materialID,
			Section:      r.section,
			SectionTitle: r.sectionTitle,
			PageMin:      cur.pageMin,
			PageMax:      cur.pageMax,
			Text:         strings.Join(cur.parts, "\n\n"),
			Method:       r.method,
			Confidence:   cur.confidence,
		})
		cur = &pending{}
	}

	for _, b := range r.blocks {
		// Paragraph breaks within a block are preferred split points.
		for _, para := range splitParagraphs(b.Text) {
			for _, piece := range c.fitPieces(para) {
				t := estimateTokens(piece)
				if cur.tokens+t > c.maxTokens && cur.tokens >= c.minTokens {
					flush()
				}
				cur.add(piece, b.Page, b.Confidence)
				if cur.tokens >= c.targetTokens {
					flush()
				}
			}
		}
	}
	flush()
	return chunks
}

// fitPieces breaks a paragraph that alone exceeds the maximum into
// sentence-bounded pieces, hard-cutting sentences that are still too long.
func (c *Chunker) fitPieces(para string) []string {
	if estimateTokens(para) <= c.maxTokens {
		return []string{para}
	}

	var pieces []string
	var sb strings.Builder
	tokens := 0
	for _, sent := range splitSentences(para) {
		st := estimateTokens(sent)
		if st > c.maxTokens {
			if sb.Len() > 0 {
				pieces = append(pieces, sb.String())
				sb.Reset()
				tokens = 0
			}
			pieces = append(pieces, hardCut(sent, c.maxTokens*charsPerToken)...)
			continue
		}
		if tokens+st > c.targetTokens && sb.Len() > 0 {
			pieces = append(pieces, sb.String())
			sb.Reset()
			tokens = 0
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(sent)
		tokens += st
	}
	if sb.Len() > 0 {
		pieces = append(pieces, sb.String())
	}
	return pieces
}

func estimateTokens(s string) int {
	n := len([]rune(s)) / charsPerToken
	if n == 0 && s != "" {
		n = 1
	}
	return n
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			out = append(out, strings.TrimSpace(p))
		}
	}
	return out
}

// splitSentences splits text on common terminators, keeping them.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func hardCut(s string, maxChars int) []string {
	runes := []rune(s)
	var out []string
	for len(runes) > maxChars {
		out = append(out, string(runes[:maxChars]))
		runes = runes[maxChars:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}
