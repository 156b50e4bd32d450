// Package mock provides a scriptable Generator for tests and offline
// runs. It answers by quoting the numbered passages it finds in the
// prompt, so the orchestrator's citation validation passes.
package mock

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/labsafe/sdsassist/internal/core/ports/driven"
)

// Ensure Generator implements the interface.
var _ driven.Generator = (*Generator)(nil)

var passageHeader = regexp.MustCompile(`(?m)^\[(\d+)\] (.+?), Section (\d+)`)

// Generator is an offline stand-in for a chat model.
type Generator struct {
	// Response, when set, is returned verbatim for every call.
	Response string

	// Err, when set, is returned for every call.
	Err error
}

// New creates a mock generator that echoes the supplied passages.
func New() *Generator {
	return &Generator{}
}

// Complete returns the scripted response, or composes a minimal cited
// answer referencing the first passages named in the prompt.
func (g *Generator) Complete(ctx context.Context, _ string, userPrompt string, _ int) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.Response != "" {
		return g.Response, nil
	}

	headers := passageHeader.FindAllStringSubmatch(userPrompt, 3)
	if len(headers) == 0 {
		return "No passages were provided.", nil
	}
	var b strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&b, "Consult %s, Section %s [%s]. ", h[2], h[3], h[1])
	}
	return strings.TrimSpace(b.String()), nil
}

// ModelName returns a fixed identifier.
func (g *Generator) ModelName() string { return "mock" }

// Ping always succeeds.
func (g *Generator) Ping(_ context.Context) error { return nil }

// Close releases nothing.
func (g *Generator) Close() error { return nil }
