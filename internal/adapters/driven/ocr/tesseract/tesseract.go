// Package tesseract provides an OCREngine adapter that shells out to
// the tesseract binary. Scanned SDS pages are rasterised upstream and
// recognised here page by page.
package tesseract

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/labsafe/sdsassist/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.OCREngine = (*Engine)(nil)

// Defaults.
const (
	DefaultBinary = "tesseract"
	DefaultLang   = "eng"

	// psm 6: assume a uniform block of text. SDS pages are dense
	// paragraph and table layouts, not sparse scene text.
	pageSegMode = "6"
)

// Config holds configuration for the tesseract engine.
type Config struct {
	// Binary is the tesseract executable (default: "tesseract" on PATH).
	Binary string

	// Lang is the recognition language (default: eng). Multiple
	// languages combine with "+", e.g. "eng+deu".
	Lang string
}

// Engine recognises page images with tesseract.
type Engine struct {
	runner driven.CommandRunner
	binary string
	lang   string
}

// New creates a tesseract engine over the given runner.
func New(cfg Config, runner driven.CommandRunner) *Engine {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Lang == "" {
		cfg.Lang = DefaultLang
	}
	return &Engine{runner: runner, binary: cfg.Binary, lang: cfg.Lang}
}

// Recognise runs tesseract in TSV mode over the image and reassembles
// the text with a mean word confidence.
func (e *Engine) Recognise(ctx context.Context, image []byte) (driven.OCRResult, error) {
	tmp, err := os.CreateTemp("", "sdsassist-ocr-*.png")
	if err != nil {
		return driven.OCRResult{}, fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return driven.OCRResult{}, fmt.Errorf("write temp image: %w", err)
	}
	tmp.Close()

	out, err := e.runner.Run(ctx, e.binary,
		tmp.Name(), "stdout", "-l", e.lang, "--psm", pageSegMode, "tsv")
	if err != nil {
		return driven.OCRResult{}, fmt.Errorf("run tesseract: %w", err)
	}
	return parseTSV(string(out)), nil
}

// Ping checks the binary is runnable.
func (e *Engine) Ping(ctx context.Context) error {
	if _, err := e.runner.Run(ctx, e.binary, "--version"); err != nil {
		return fmt.Errorf("tesseract unavailable: %w", err)
	}
	return nil
}

// parseTSV rebuilds text from tesseract's TSV output. Level 4 rows open
// a new line, level 5 rows are words with a confidence column.
func parseTSV(tsv string) driven.OCRResult {
	var b strings.Builder
	var confSum float64
	var words int

	for _, line := range strings.Split(tsv, "\n") {
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		level, err := strconv.Atoi(cols[0])
		if err != nil {
			continue
		}
		switch level {
		case 4:
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
		case 5:
			word := strings.TrimSpace(cols[11])
			if word == "" {
				continue
			}
			conf, err := strconv.ParseFloat(cols[10], 64)
			if err != nil || conf < 0 {
				continue
			}
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte(' ')
			}
			b.WriteString(word)
			confSum += conf
			words++
		}
	}

	res := driven.OCRResult{Text: strings.TrimSpace(b.String())}
	if words > 0 {
		res.Confidence = confSum / float64(words) / 100.0
	}
	return res
}
