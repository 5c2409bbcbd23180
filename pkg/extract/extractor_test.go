package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	output  []byte
	err     error
	gotName string
	gotArgs []string
	invoked bool
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.invoked = true
	m.gotName = name
	m.gotArgs = args
	return m.output, m.err
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("notes.txt"))
	assert.True(t, Supported("report.PDF"))
	assert.False(t, Supported("image.png"))
	assert.False(t, Supported("archive.tar.gz"))
	assert.False(t, Supported("no-extension"))
}

func TestTextReadsPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	got, err := New().Text(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestTextShellsOutForPdf(t *testing.T) {
	runner := &mockRunner{output: []byte("extracted pdf text")}
	e := NewWithRunner(runner)

	got, err := e.Text(context.Background(), "/tmp/doc.pdf")

	require.NoError(t, err)
	assert.Equal(t, "extracted pdf text", got)
	assert.True(t, runner.invoked)
	assert.Equal(t, "pdftotext", runner.gotName)
	assert.Equal(t, []string{"-enc", "UTF-8", "/tmp/doc.pdf", "-"}, runner.gotArgs)
}

func TestTextWrapsPdftotextError(t *testing.T) {
	runner := &mockRunner{err: errors.New("exit status 1")}
	e := NewWithRunner(runner)

	_, err := e.Text(context.Background(), "/tmp/broken.pdf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestTextRejectsUnknownExtension(t *testing.T) {
	_, err := New().Text(context.Background(), "/tmp/slides.pptx")

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
