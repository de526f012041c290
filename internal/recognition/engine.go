// Package recognition runs preprocessed images through an OCR engine and
// records the results in a session history ledger.
package recognition

import (
	"context"
	"image"
	"os"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/config"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/logger"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/preprocess"
)

// SegMode is a page segmentation hint (tesseract --psm numbering)
type SegMode int

// SegModeSingleBlock assumes a single uniform block of text
const SegModeSingleBlock SegMode = 6

// EngineMode selects the recognizer (tesseract --oem numbering)
type EngineMode int

// EngineModeDefault combines the legacy and neural recognizers and prefers
// the neural one where its models are installed.
const EngineModeDefault EngineMode = 3

// Params are the fixed recognition parameters passed with every call
type Params struct {
	// Languages lists the expected scripts, primary first (tesseract codes).
	Languages  []string
	SegMode    SegMode
	EngineMode EngineMode
	// MaxPixels bounds the size of a decoded upload
	MaxPixels int
}

// DefaultParams returns the parameters every recognition uses
func DefaultParams(languages []string) Params {
	return Params{
		Languages:  append([]string(nil), languages...),
		SegMode:    SegModeSingleBlock,
		EngineMode: EngineModeDefault,
		MaxPixels:  preprocess.DefaultMaxPixels,
	}
}

// Engine extracts text from a binarized image
type Engine interface {
	// Name identifies the engine in logs
	Name() string
	// Recognize returns the text found in img. An empty string is a valid
	// result for a blank page.
	Recognize(ctx context.Context, img *image.Gray, params Params) (string, error)
	// Close releases the engine's resources
	Close() error
}

// Available reports why an engine cannot serve requests, or nil.
func Available(e Engine) error {
	if a, ok := e.(interface{ Available() error }); ok {
		return a.Available()
	}
	return nil
}

// NewEngine builds the engine selected in cfg. Construction never fails: an
// engine that cannot be set up is replaced by one that reports
// ErrEngineUnavailable on every call, so that each image gets an actionable
// status instead of the process refusing to start.
func NewEngine(ctx context.Context, cfg config.Config) Engine {
	log := logger.WithComponent("recognition")

	var e Engine
	var err error
	switch cfg.Engine {
	case config.EngineGosseract:
		e, err = NewGosseract(cfg.TessdataDir)
	case config.EngineVision:
		e, err = NewVision(ctx, cfg.VisionCredFile)
	case config.EngineGemini:
		apiKey := cfg.GeminiAPIKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		e, err = NewGemini(ctx, apiKey, cfg.GeminiModel)
	case config.EngineOllama:
		e, err = NewOllama(cfg.OllamaURL, cfg.OllamaModel)
	default:
		e = NewTesseract(cfg.TesseractPath, cfg.TessdataDir)
	}
	if err != nil {
		log.Error().Err(err).Str("engine", cfg.Engine).Msg("OCR engine could not be initialized")
		return &unavailableEngine{name: cfg.Engine, err: err}
	}
	return e
}

// unavailableEngine stands in for an engine whose setup failed
type unavailableEngine struct {
	name string
	err  error
}

func (u *unavailableEngine) Name() string { return u.name }

func (u *unavailableEngine) Available() error { return u.err }

func (u *unavailableEngine) Recognize(context.Context, *image.Gray, Params) (string, error) {
	return "", u.err
}

func (u *unavailableEngine) Close() error { return nil }
