package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported file format, only pdf and txt are accepted")

// Runner executes an external command and returns its stdout. It exists so
// tests can substitute the pdftotext binary.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

type Extractor struct {
	runner Runner
}

func New() *Extractor {
	return &Extractor{runner: execRunner{}}
}

func NewWithRunner(r Runner) *Extractor {
	return &Extractor{runner: r}
}

// Supported reports whether the filename carries an ingestible extension.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".pdf":
		return true
	}
	return false
}

// Text extracts the plain text of the file at path, dispatching on the
// file extension. PDF extraction shells out to poppler's pdftotext.
func (e *Extractor) Text(ctx context.Context, path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read text file: %w", err)
		}
		return string(data), nil
	case ".pdf":
		out, err := e.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", path, "-")
		if err != nil {
			return "", fmt.Errorf("pdftotext failed: %w", err)
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
