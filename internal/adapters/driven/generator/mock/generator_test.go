package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteComposesCitedAnswerFromPassages(t *testing.T) {
	prompt := `Question: what do I do?

Safety data sheet passages:
[1] Acetone, Section 4 (First aid measures), page 3:
Rinse skin with plenty of water.
[2] Acetone, Section 10 (Stability and reactivity), page 7:
Keep away from oxidisers.`

	got, err := New().Complete(context.Background(), "system", prompt, 700)
	require.NoError(t, err)

	assert.Contains(t, got, "Consult Acetone, Section 4 [1].")
	assert.Contains(t, got, "Consult Acetone, Section 10 [2].")
}

func TestCompleteScriptedResponseWins(t *testing.T) {
	gen := New()
	gen.Response = "Scripted [1]."

	got, err := gen.Complete(context.Background(), "s", "[1] X, Section 4", 10)
	require.NoError(t, err)
	assert.Equal(t, "Scripted [1].", got)
}

func TestCompleteScriptedError(t *testing.T) {
	gen := New()
	gen.Err = errors.New("boom")

	_, err := gen.Complete(context.Background(), "s", "u", 10)
	assert.Error(t, err)
}

func TestCompleteWithoutPassages(t *testing.T) {
	got, err := New().Complete(context.Background(), "s", "no headers here", 10)
	require.NoError(t, err)
	assert.Equal(t, "No passages were provided.", got)
}

func TestCompleteHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Complete(ctx, "s", "u", 10)
	assert.ErrorIs(t, err, context.Canceled)
}
