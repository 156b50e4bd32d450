// Package extract turns SDS PDF bytes into an ordered sequence of text
// blocks with page and region provenance. Each page is handled by one of
// two strategies: native text extraction when the page carries enough
// recoverable glyphs, rasterise-plus-OCR otherwise.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/labsafe/sdsassist/internal/core/domain"
	"github.com/labsafe/sdsassist/internal/core/ports/driven"
	"github.com/labsafe/sdsassist/internal/logger"
)

// DefaultGlyphThreshold is the minimum number of non-space glyphs a page
// must yield natively before the digital path is trusted. Pages below it
// are treated as scanned.
const DefaultGlyphThreshold = 180

// rasterDPI is the resolution used when rasterising pages for OCR.
const rasterDPI = 200

// Config controls extraction behaviour.
type Config struct {
	// OCREnabled turns the rasterise-plus-OCR fallback on.
	OCREnabled bool

	// MaxPages caps the number of pages read per document, 0 = no cap.
	MaxPages int

	// GlyphThreshold overrides DefaultGlyphThreshold when positive.
	GlyphThreshold int
}

// Result is the outcome of extracting one document.
type Result struct {
	// Blocks are in reading order: page by page, left column before
	// right, top to bottom within a column.
	Blocks []domain.Block

	// PageCount is the number of pages considered.
	PageCount int

	// DroppedPages counts pages that yielded no text under either
	// strategy.
	DroppedPages int
}

// pdfDocument is the slice of PDF access Extract needs, implemented
// over ledongthuc/pdf in production and faked in tests.
type pdfDocument interface {
	numPages() int
	pageFragments(pageNo int) []fragment
}

// pdfFile adapts a parsed PDF to pdfDocument.
type pdfFile struct {
	reader *pdf.Reader
}

func openPDF(data []byte) (pdfDocument, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &pdfFile{reader: reader}, nil
}

func (f *pdfFile) numPages() int { return f.reader.NumPage() }

func (f *pdfFile) pageFragments(pageNo int) []fragment {
	page := f.reader.Page(pageNo)
	if page.V.IsNull() {
		return nil
	}
	content := page.Content()
	frags := make([]fragment, 0, len(content.Text))
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		frags = append(frags, fragment{
			text: t.S,
			x:    t.X,
			y:    t.Y,
			w:    t.W,
			size: t.FontSize,
		})
	}
	return frags
}

// Extractor produces ordered blocks from PDF bytes.
type Extractor struct {
	cfg    Config
	ocr    driven.OCREngine
	runner driven.CommandRunner
	open   func(data []byte) (pdfDocument, error)
}

// New creates an extractor. ocr and runner may be nil when OCR is
// disabled; scanned pages are then dropped and counted.
func New(cfg Config, ocr driven.OCREngine, runner driven.CommandRunner) *Extractor {
	if cfg.GlyphThreshold <= 0 {
		cfg.GlyphThreshold = DefaultGlyphThreshold
	}
	return &Extractor{cfg: cfg, ocr: ocr, runner: runner, open: openPDF}
}

// Extract reads every page of the PDF and returns ordered blocks.
// Partial failure is tolerated: unreadable pages are dropped and counted.
// Returns domain.ErrExtractionFailed when no page yields any text.
func (e *Extractor) Extract(ctx context.Context, docID string, data []byte) (*Result, error) {
	doc, err := e.open(data)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", domain.ErrExtractionFailed, err)
	}

	pageCount := doc.numPages()
	if e.cfg.MaxPages > 0 && pageCount > e.cfg.MaxPages {
		logger.Warn("Document %s has %d pages, capping at %d", docID, pageCount, e.cfg.MaxPages)
		pageCount = e.cfg.MaxPages
	}

	// Lazily written temp copy for the rasteriser, one per document.
	var pdfPath string
	defer func() {
		if pdfPath != "" {
			os.Remove(pdfPath)
		}
	}()

	result := &Result{PageCount: pageCount}
	for pageNo := 1; pageNo <= pageCount; pageNo++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		blocks, ok := e.digitalPage(doc, docID, pageNo)
		if ok {
			result.Blocks = append(result.Blocks, blocks...)
			continue
		}

		if !e.cfg.OCREnabled || e.ocr == nil || e.runner == nil {
			logger.Debug("Page %d of %s: below glyph threshold, OCR disabled, dropping", pageNo, docID)
			result.DroppedPages++
			continue
		}

		if pdfPath == "" {
			pdfPath, err = writeTemp(data)
			if err != nil {
				return nil, fmt.Errorf("stage pdf for raster: %w", err)
			}
		}

		block, err := e.ocrPage(ctx, pdfPath, docID, pageNo)
		if err != nil {
			logger.Warn("Page %d of %s: OCR failed: %v", pageNo, docID, err)
			result.DroppedPages++
			continue
		}
		result.Blocks = append(result.Blocks, *block)
	}

	if len(result.Blocks) == 0 {
		return nil, fmt.Errorf("%w: no page yielded text (%d pages)", domain.ErrExtractionFailed, pageCount)
	}

	logger.Debug("Extracted %d blocks from %s (%d pages, %d dropped)",
		len(result.Blocks), docID, result.PageCount, result.DroppedPages)
	return result, nil
}

// digitalPage attempts native extraction. The second return is false when
// the page is below the glyph threshold and should go to OCR.
func (e *Extractor) digitalPage(doc pdfDocument, docID string, pageNo int) ([]domain.Block, bool) {
	frags := doc.pageFragments(pageNo)
	glyphs := 0
	for _, f := range frags {
		glyphs += len([]rune(strings.TrimSpace(f.text)))
	}
	if glyphs < e.cfg.GlyphThreshold {
		return nil, false
	}
	return assemblePage(frags, docID, pageNo), true
}

// ocrPage rasterises one page and runs it through the OCR engine.
func (e *Extractor) ocrPage(ctx context.Context, pdfPath, docID string, pageNo int) (*domain.Block, error) {
	image, err := e.rasterise(ctx, pdfPath, pageNo)
	if err != nil {
		return nil, fmt.Errorf("rasterise: %w", err)
	}

	res, err := e.ocr.Recognise(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("recognise: %w", err)
	}
	if strings.TrimSpace(res.Text) == "" {
		return nil, fmt.Errorf("empty recognition result")
	}

	return &domain.Block{
		DocumentID: docID,
		Page:       pageNo,
		Text:       res.Text,
		Method:     domain.ExtractionOCR,
		Confidence: res.Confidence,
	}, nil
}

// rasterise renders a single page to PNG via pdftoppm.
func (e *Extractor) rasterise(ctx context.Context, pdfPath string, pageNo int) ([]byte, error) {
	dir, err := os.MkdirTemp("", "sdsassist-raster-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	p := fmt.Sprintf("%d", pageNo)
	_, err = e.runner.Run(ctx, "pdftoppm",
		"-f", p, "-l", p, "-r", fmt.Sprintf("%d", rasterDPI),
		"-png", "-singlefile", pdfPath, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w", err)
	}

	return os.ReadFile(prefix + ".png")
}

func writeTemp(data []byte) (string, error) {
	f, err := os.CreateTemp("", "sdsassist-*.pdf")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
