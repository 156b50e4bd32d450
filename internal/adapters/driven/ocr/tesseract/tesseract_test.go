package tesseract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRunner scripts command output without the binary installed.
type mockRunner struct {
	output []byte
	err    error

	name string
	args []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	return m.output, m.err
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t0\t0\t100\t10\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t0\t0\t40\t10\t96\tRinse\n" +
	"5\t1\t1\t1\t1\t2\t45\t0\t40\t10\t92\timmediately\n" +
	"4\t1\t1\t1\t2\t0\t0\t12\t100\t10\t-1\t\n" +
	"5\t1\t1\t1\t2\t1\t0\t12\t40\t10\t88\twith\n" +
	"5\t1\t1\t1\t2\t2\t45\t12\t40\t10\t84\twater\n"

func TestRecognise(t *testing.T) {
	runner := &mockRunner{output: []byte(sampleTSV)}
	engine := New(Config{}, runner)

	res, err := engine.Recognise(context.Background(), []byte("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "Rinse immediately\nwith water", res.Text)
	assert.InDelta(t, 0.90, res.Confidence, 0.001)

	assert.Equal(t, "tesseract", runner.name)
	assert.Contains(t, runner.args, "stdout")
	assert.Contains(t, runner.args, "tsv")
	assert.Contains(t, runner.args, "eng")
}

func TestRecogniseLanguageConfig(t *testing.T) {
	runner := &mockRunner{output: []byte(sampleTSV)}
	engine := New(Config{Lang: "eng+deu"}, runner)

	_, err := engine.Recognise(context.Background(), []byte("png"))
	require.NoError(t, err)
	assert.Contains(t, runner.args, "eng+deu")
}

func TestRecogniseRunnerError(t *testing.T) {
	runner := &mockRunner{err: errors.New("no such binary")}
	engine := New(Config{}, runner)

	_, err := engine.Recognise(context.Background(), []byte("png"))
	assert.Error(t, err)
}

func TestRecogniseEmptyPage(t *testing.T) {
	runner := &mockRunner{output: []byte("level\tpage_num\n")}
	engine := New(Config{}, runner)

	res, err := engine.Recognise(context.Background(), []byte("png"))
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.Zero(t, res.Confidence)
}

func TestPing(t *testing.T) {
	engine := New(Config{}, &mockRunner{output: []byte("tesseract 5.3.0")})
	assert.NoError(t, engine.Ping(context.Background()))

	broken := New(Config{}, &mockRunner{err: errors.New("not found")})
	assert.Error(t, broken.Ping(context.Background()))
}
