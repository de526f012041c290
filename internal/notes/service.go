// Package notes is the presentation layer: a per-session service over the
// recognition pipeline and the exporters, and the HTTP server in front of it.
package notes

import (
	"context"
	"fmt"
	"time"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/export"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/history"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/preprocess"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/recognition"
)

// Conversion is the result of one uploaded batch
type Conversion struct {
	Items []recognition.Outcome `json:"items"`
	Text  string                `json:"text"`
}

// Status describes what the service can currently do
type Status struct {
	Engine          string          `json:"engine"`
	EngineAvailable bool            `json:"engine_available"`
	EngineError     string          `json:"engine_error,omitempty"`
	Languages       []string        `json:"languages"`
	Formats         []export.Format `json:"formats"`
	PDFAvailable    bool            `json:"pdf_available"`
	PDFError        string          `json:"pdf_error,omitempty"`
}

// Service handles conversions, history and exports for sessions
type Service struct {
	engine     recognition.Engine
	params     recognition.Params
	ocrTimeout time.Duration
	exporter   *export.Exporter
	sessions   *Sessions
	timeSource recognition.TimeSource
}

// NewService creates a new Service with the wall clock as time source
func NewService(engine recognition.Engine, params recognition.Params, ocrTimeout time.Duration, exporter *export.Exporter, sessions *Sessions) *Service {
	return NewServiceWithDeps(engine, params, ocrTimeout, exporter, sessions, timeNow{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(engine recognition.Engine, params recognition.Params, ocrTimeout time.Duration, exporter *export.Exporter, sessions *Sessions, timeSrc recognition.TimeSource) *Service {
	return &Service{
		engine:     engine,
		params:     params,
		ocrTimeout: ocrTimeout,
		exporter:   exporter,
		sessions:   sessions,
		timeSource: timeSrc,
	}
}

// Session returns the session for id, creating one when needed
func (s *Service) Session(id string) *Session {
	return s.sessions.Get(id)
}

// LookupSession returns the live session for id, or nil
func (s *Service) LookupSession(id string) *Session {
	return s.sessions.Lookup(id)
}

// Sessions returns the session store
func (s *Service) Sessions() *Sessions {
	return s.sessions
}

// Convert runs a batch through the recognition pipeline on the session's
// ledger. Batches of one session never overlap.
func (s *Service) Convert(ctx context.Context, sess *Session, uploads []recognition.Upload) Conversion {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	pipeline := recognition.NewPipelineWithDeps(s.engine, s.params, sess.ledger, s.ocrTimeout, s.timeSource)
	outcomes := pipeline.RecognizeBatch(ctx, uploads)
	return Conversion{
		Items: outcomes,
		Text:  recognition.JoinText(outcomes),
	}
}

// History returns up to n of the session's most recent records, newest first.
// A nil session has no history.
func (s *Service) History(sess *Session, n int) []history.Record {
	if sess == nil {
		return []history.Record{}
	}
	return sess.ledger.Recent(n)
}

// Export renders text in the requested format
func (s *Service) Export(ctx context.Context, req export.Request) (export.Download, error) {
	return s.exporter.Export(ctx, req)
}

// Preview returns the binarized image the engine would see, as PNG
func (s *Service) Preview(upload recognition.Upload) ([]byte, error) {
	img, err := preprocess.DecodeWithLimit(upload.Data, upload.ContentType, s.params.MaxPixels)
	if err != nil {
		return nil, err
	}
	binary, err := preprocess.Preprocess(img)
	if err != nil {
		return nil, err
	}
	data, err := preprocess.EncodePNG(binary)
	if err != nil {
		return nil, fmt.Errorf("encoding preview: %w", err)
	}
	return data, nil
}

// Status reports engine and renderer availability
func (s *Service) Status() Status {
	st := Status{
		Engine:          s.engine.Name(),
		EngineAvailable: true,
		Languages:       s.params.Languages,
		Formats:         export.Formats,
		PDFAvailable:    true,
	}
	if err := recognition.Available(s.engine); err != nil {
		st.EngineAvailable = false
		st.EngineError = err.Error()
	}
	if err := s.exporter.Available(export.PDF); err != nil {
		st.PDFAvailable = false
		st.PDFError = err.Error()
	}
	return st
}
