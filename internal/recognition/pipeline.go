package recognition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/history"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/logger"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/preprocess"
)

// DefaultTimeout bounds a single engine call when none is configured
const DefaultTimeout = 2 * time.Minute

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Recorder receives every successful recognition
type Recorder interface {
	Append(record history.Record)
}

// Upload is one raw file of a batch
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Status of one batch item
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Outcome is the per-item result of a batch
type Outcome struct {
	Filename string          `json:"filename"`
	Status   Status          `json:"status"`
	Record   *history.Record `json:"record,omitempty"`
	Kind     string          `json:"kind,omitempty"`
	Message  string          `json:"error,omitempty"`
	Err      error           `json:"-"`
}

// Pipeline preprocesses images, runs them through an engine and appends the
// results to a ledger. A Pipeline is used by one session at a time.
type Pipeline struct {
	engine     Engine
	params     Params
	ledger     Recorder
	timeout    time.Duration
	timeSource TimeSource
}

// NewPipeline creates a Pipeline with the wall clock as time source
func NewPipeline(engine Engine, params Params, ledger Recorder, timeout time.Duration) *Pipeline {
	return NewPipelineWithDeps(engine, params, ledger, timeout, &defaultTimeSource{})
}

// NewPipelineWithDeps creates a Pipeline with a custom time source for testing
func NewPipelineWithDeps(engine Engine, params Params, ledger Recorder, timeout time.Duration, timeSrc TimeSource) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Pipeline{
		engine:     engine,
		params:     params,
		ledger:     ledger,
		timeout:    timeout,
		timeSource: timeSrc,
	}
}

// Recognize preprocesses img, extracts its text and appends the resulting
// record to the ledger. Nothing is appended on failure.
func (p *Pipeline) Recognize(ctx context.Context, img image.Image, filename string) (history.Record, error) {
	const op = "Recognize"

	binary, err := preprocess.Preprocess(img)
	if err != nil {
		return history.Record{}, &Error{Op: op, Filename: filename, Err: err}
	}

	text, err := p.callEngine(ctx, binary)
	if err != nil {
		return history.Record{}, &Error{Op: op, Filename: filename, Err: err}
	}

	record := history.Record{
		Filename:  filename,
		Text:      text,
		Timestamp: p.timeSource.Now().Format(history.TimestampLayout),
	}
	p.ledger.Append(record)
	return record, nil
}

// Process decodes an uploaded file and recognizes it
func (p *Pipeline) Process(ctx context.Context, upload Upload) (history.Record, error) {
	img, err := preprocess.DecodeWithLimit(upload.Data, upload.ContentType, p.params.MaxPixels)
	if err != nil {
		return history.Record{}, &Error{Op: "Process", Filename: upload.Filename, Err: err}
	}
	return p.Recognize(ctx, img, upload.Filename)
}

// RecognizeBatch processes uploads one after another in the given order. A
// failing item does not stop the batch; its outcome carries the reason.
// Once ctx is done the remaining items fail without being processed.
func (p *Pipeline) RecognizeBatch(ctx context.Context, uploads []Upload) []Outcome {
	log := logger.WithComponent("pipeline")
	outcomes := make([]Outcome, 0, len(uploads))

	for i, upload := range uploads {
		log.Info().
			Str("filename", upload.Filename).
			Int("item", i+1).
			Int("total", len(uploads)).
			Msg("Processing image")

		var record history.Record
		err := ctx.Err()
		if err != nil {
			err = &Error{Op: "RecognizeBatch", Filename: upload.Filename, Err: err}
		} else {
			record, err = p.Process(ctx, upload)
		}

		if err != nil {
			log.Warn().
				Err(err).
				Str("filename", upload.Filename).
				Str("kind", Kind(err)).
				Msg("Image failed")
			outcomes = append(outcomes, Outcome{
				Filename: upload.Filename,
				Status:   StatusFailure,
				Kind:     Kind(err),
				Message:  err.Error(),
				Err:      err,
			})
			continue
		}

		log.Debug().
			Str("filename", upload.Filename).
			Int("text_length", len(record.Text)).
			Msg("Image recognized")
		outcomes = append(outcomes, Outcome{
			Filename: upload.Filename,
			Status:   StatusSuccess,
			Record:   &record,
		})
	}
	return outcomes
}

// callEngine bounds the engine call and separates our own timeout from the
// caller giving up.
func (p *Pipeline) callEngine(parent context.Context, img *image.Gray) (string, error) {
	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()

	text, err := p.engine.Recognize(ctx, img, p.params)
	if err == nil {
		return text, nil
	}

	switch {
	case errors.Is(err, ErrEngineUnavailable):
		return "", err
	case parent.Err() != nil:
		return "", parent.Err()
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "", fmt.Errorf("%w after %s (%s)", ErrEngineTimeout, p.timeout, p.engine.Name())
	default:
		return "", fmt.Errorf("%s engine: %w", p.engine.Name(), err)
	}
}

// JoinText concatenates the text of successful outcomes, separated by a blank line
func JoinText(outcomes []Outcome) string {
	var texts []string
	for _, o := range outcomes {
		if o.Status == StatusSuccess && o.Record != nil {
			texts = append(texts, o.Record.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}
