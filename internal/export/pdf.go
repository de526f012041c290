package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// DefaultRenderTimeout bounds one wkhtmltopdf run when none is configured
const DefaultRenderTimeout = time.Minute

// renderWaitDelay bounds how long a killed renderer may keep its output pipes open
const renderWaitDelay = 5 * time.Second

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: "Noto Sans", "Noto Sans Devanagari", "DejaVu Sans", sans-serif; font-size: 12pt; margin: 2cm; }
pre { font-family: inherit; white-space: pre-wrap; word-wrap: break-word; }
</style>
</head>
<body><pre>%s</pre></body>
</html>
`

// PDFWriter renders the text as an HTML page through wkhtmltopdf
type PDFWriter struct {
	path      string
	timeout   time.Duration
	waitDelay time.Duration
	err       error
}

// NewPDFWriter resolves the renderer executable. A missing renderer is not an
// error here; every Write then fails with ErrRendererUnavailable.
func NewPDFWriter(path string, timeout time.Duration) *PDFWriter {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	if path == "" {
		path = "wkhtmltopdf"
	}

	p := &PDFWriter{timeout: timeout, waitDelay: renderWaitDelay}
	resolved, err := exec.LookPath(path)
	if err != nil {
		p.err = fmt.Errorf("%w: %v", ErrRendererUnavailable, err)
		return p
	}
	p.path = resolved
	return p
}

func (p *PDFWriter) Extension() string   { return "pdf" }
func (p *PDFWriter) ContentType() string { return "application/pdf" }

// Available reports whether the renderer was found
func (p *PDFWriter) Available() error { return p.err }

func (p *PDFWriter) Write(ctx context.Context, text string) ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.path, "--quiet", "--encoding", "utf-8", "-", "-")
	cmd.Stdin = strings.NewReader(PageHTML(text))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = p.waitDelay

	if err := cmd.Run(); err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, fmt.Errorf("rendering PDF: %w", ctx.Err())
		case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: %v", ErrRendererUnavailable, err)
		default:
			return nil, fmt.Errorf("rendering PDF: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("rendering PDF: renderer produced no output: %s", strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// PageHTML wraps the escaped text in a UTF-8 page, keeping line breaks
func PageHTML(text string) string {
	return fmt.Sprintf(pageTemplate, html.EscapeString(text))
}
