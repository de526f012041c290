//go:build gosseract

package recognition

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/preprocess"
)

// Gosseract runs libtesseract in-process. Build with -tags gosseract.
//
// Params.EngineMode is not applied: gosseract exposes no engine mode setter
// and tesseract only reads tessedit_ocr_engine_mode during initialization,
// so SetVariable cannot change it. The library default (3) is used, which
// matches EngineModeDefault.
type Gosseract struct {
	tessdataDir string
}

// NewGosseract creates the in-process tesseract engine
func NewGosseract(tessdataDir string) (*Gosseract, error) {
	return &Gosseract{tessdataDir: tessdataDir}, nil
}

// Name identifies the engine in logs
func (g *Gosseract) Name() string { return "gosseract" }

type gosseractResult struct {
	text string
	err  error
}

// Recognize runs libtesseract on img. The library call cannot be
// interrupted, so a cancelled ctx returns early and the client finishes in
// the background.
func (g *Gosseract) Recognize(ctx context.Context, img *image.Gray, params Params) (string, error) {
	data, err := preprocess.EncodePNG(img)
	if err != nil {
		return "", err
	}

	done := make(chan gosseractResult, 1)
	go func() {
		text, err := g.run(data, params)
		done <- gosseractResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.text, res.err
	}
}

func (g *Gosseract) run(data []byte, params Params) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if g.tessdataDir != "" {
		if err := client.SetTessdataPrefix(g.tessdataDir); err != nil {
			return "", fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(params.Languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(params.SegMode)); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		// initialization fails when language data is missing
		if strings.Contains(err.Error(), "initialize") {
			return "", fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

// Close is a no-op; a client is created per call
func (g *Gosseract) Close() error {
	return nil
}
