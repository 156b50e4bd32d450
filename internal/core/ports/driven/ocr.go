package driven

import "context"

// OCRResult is the text recovered from one page image.
type OCRResult struct {
	// Text is the recognised text.
	Text string

	// Confidence is the engine-reported mean confidence in [0,1].
	Confidence float64
}

// OCREngine recognises text in a rasterised page image.
// This is an optional service: when nil, scanned pages are dropped and
// counted against the document's DroppedPages.
type OCREngine interface {
	// Recognise extracts text from an image (PNG or TIFF bytes).
	Recognise(ctx context.Context, image []byte) (OCRResult, error)

	// Ping validates the engine is usable (binary present, model loaded).
	Ping(ctx context.Context) error
}

// CommandRunner executes an external command and returns its combined
// output. Extracted as an interface so adapters that shell out
// (pdftoppm, tesseract) can be tested without the binaries installed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
