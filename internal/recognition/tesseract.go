package recognition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/preprocess"
)

// processWaitDelay bounds how long a killed child may keep its output pipes
// open (e.g. through a grandchild) before Run gives up on it.
const processWaitDelay = 5 * time.Second

// Tesseract runs the tesseract executable, feeding a PNG on stdin and
// reading the text from stdout.
type Tesseract struct {
	path        string
	tessdataDir string
	waitDelay   time.Duration
	err         error
}

// NewTesseract resolves the executable once. When it cannot be found the
// engine is still returned and reports ErrEngineUnavailable on every call.
func NewTesseract(path, tessdataDir string) *Tesseract {
	t := &Tesseract{tessdataDir: tessdataDir, waitDelay: processWaitDelay}

	resolved, err := exec.LookPath(path)
	if err != nil {
		t.err = fmt.Errorf("%w: tesseract executable %q not found: %v", ErrEngineUnavailable, path, err)
		return t
	}
	t.path = resolved

	if tessdataDir != "" {
		if info, err := os.Stat(tessdataDir); err != nil || !info.IsDir() {
			t.err = fmt.Errorf("%w: tessdata directory %q not found", ErrEngineUnavailable, tessdataDir)
		}
	}
	return t
}

// Name identifies the engine in logs
func (t *Tesseract) Name() string { return "tesseract" }

// Available reports the startup resolution error, if any
func (t *Tesseract) Available() error { return t.err }

// Recognize runs tesseract on img
func (t *Tesseract) Recognize(ctx context.Context, img *image.Gray, params Params) (string, error) {
	if t.err != nil {
		return "", t.err
	}

	data, err := preprocess.EncodePNG(img)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.path, tesseractArgs(params)...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = t.waitDelay
	if t.tessdataDir != "" {
		cmd.Env = append(os.Environ(), "TESSDATA_PREFIX="+t.tessdataDir)
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		return "", fmt.Errorf("running tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Close is a no-op; every call runs its own process
func (t *Tesseract) Close() error {
	return nil
}

// tesseractArgs builds the command line: image from stdin, text to stdout
func tesseractArgs(params Params) []string {
	return []string{
		"stdin", "stdout",
		"-l", strings.Join(params.Languages, "+"),
		"--psm", strconv.Itoa(int(params.SegMode)),
		"--oem", strconv.Itoa(int(params.EngineMode)),
	}
}
