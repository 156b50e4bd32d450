package tesseract

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/labsafe/sdsassist/internal/core/ports/driven"
)

// Ensure ExecRunner implements the interface.
var _ driven.CommandRunner = (*ExecRunner)(nil)

// ExecRunner executes commands with os/exec. It backs both the OCR
// engine and the page rasteriser.
type ExecRunner struct{}

// Run executes the command and returns its combined output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %w: %s", name, err, string(out))
	}
	return out, nil
}
