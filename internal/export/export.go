// Package export turns converted text into downloadable documents.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/logger"
)

// BaseName is the file name every export is saved under, before the extension
const BaseName = "notes"

var (
	// ErrUnknownFormat is returned for a format no writer is registered for
	ErrUnknownFormat = errors.New("unknown export format")

	// ErrRendererUnavailable is returned when the PDF renderer executable is missing
	ErrRendererUnavailable = errors.New("PDF renderer unavailable")
)

// Format is an export target
type Format string

const (
	TXT  Format = "txt"
	DOCX Format = "docx"
	PDF  Format = "pdf"
)

// Formats lists the built-in formats in display order
var Formats = []Format{TXT, DOCX, PDF}

// ParseFormat accepts a format name or extension in any case ("PDF", ".docx")
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	switch f {
	case TXT, DOCX, PDF:
		return f, nil
	case "text":
		return TXT, nil
	case "word":
		return DOCX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Request asks for text to be exported in one format
type Request struct {
	Text   string `json:"text"`
	Format Format `json:"format"`
}

// Download is a rendered export ready to be sent or saved
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Writer renders text into one document format
type Writer interface {
	Extension() string
	ContentType() string
	Write(ctx context.Context, text string) ([]byte, error)
}

// Exporter dispatches export requests to the writer registered for the format
type Exporter struct {
	writers map[Format]Writer
}

// NewExporter creates an Exporter with the TXT, DOCX and PDF writers. The PDF
// renderer path is resolved here, once.
func NewExporter(wkhtmltopdfPath string, timeout time.Duration) *Exporter {
	e := &Exporter{writers: make(map[Format]Writer)}
	e.Register(TXT, TextWriter{})
	e.Register(DOCX, DocxWriter{})
	e.Register(PDF, NewPDFWriter(wkhtmltopdfPath, timeout))
	return e
}

// Register adds or replaces the writer for a format
func (e *Exporter) Register(f Format, w Writer) {
	e.writers[f] = w
}

// Available reports why the writer for f cannot render, or nil
func (e *Exporter) Available(f Format) error {
	w, ok := e.writers[f]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if a, ok := w.(interface{ Available() error }); ok {
		return a.Available()
	}
	return nil
}

// Export renders req.Text with the writer for req.Format
func (e *Exporter) Export(ctx context.Context, req Request) (Download, error) {
	w, ok := e.writers[req.Format]
	if !ok {
		return Download{}, fmt.Errorf("%w: %q", ErrUnknownFormat, req.Format)
	}

	data, err := w.Write(ctx, req.Text)
	if err != nil {
		return Download{}, fmt.Errorf("exporting %s: %w", req.Format, err)
	}

	logger.WithComponent("export").Debug().
		Str("format", string(req.Format)).
		Int("bytes", len(data)).
		Msg("Export rendered")

	return Download{
		Filename:    BaseName + "." + w.Extension(),
		ContentType: w.ContentType(),
		Data:        data,
	}, nil
}

// TextWriter writes the text as UTF-8, unchanged
type TextWriter struct{}

func (TextWriter) Extension() string   { return "txt" }
func (TextWriter) ContentType() string { return "text/plain; charset=utf-8" }

func (TextWriter) Write(_ context.Context, text string) ([]byte, error) {
	return []byte(text), nil
}
