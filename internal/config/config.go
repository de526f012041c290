package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v4"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/logger"
)

// EnvVarPrefix is the prefix of environment variables that mirror flags,
// e.g. NOTES_OCR_TESSERACT_PATH for --tesseract-path.
const EnvVarPrefix = "NOTES_OCR"

// Engine names accepted by --engine
const (
	EngineTesseract = "tesseract"
	EngineGosseract = "gosseract"
	EngineVision    = "vision"
	EngineGemini    = "gemini"
	EngineOllama    = "ollama"
)

// Config is the startup configuration shared by every command.
type Config struct {
	// OCR
	Engine         string
	TesseractPath  string
	TessdataDir    string
	Languages      []string
	OCRTimeout     time.Duration
	MaxMegapixels  int
	GeminiAPIKey   string
	GeminiModel    string
	OllamaURL      string
	OllamaModel    string
	VisionCredFile string

	// Export
	WkhtmltopdfPath string
	ExportTimeout   time.Duration

	// Logging
	LogLevel  string
	LogFormat string
	LogOutput string
}

// Flags binds the shared configuration to an ff flag set.
type Flags struct {
	engine          *string
	tesseractPath   *string
	tessdataDir     *string
	languages       *string
	ocrTimeout      *time.Duration
	maxMegapixels   *int
	geminiKey       *string
	geminiModel     *string
	ollamaURL       *string
	ollamaModel     *string
	visionCredFile  *string
	wkhtmltopdfPath *string
	exportTimeout   *time.Duration
	logLevel        *string
	logFormat       *string
	logOutput       *string
}

// RegisterFlags declares the shared flags on fs.
func RegisterFlags(fs *ff.FlagSet) *Flags {
	return &Flags{
		engine:          fs.StringLong("engine", EngineTesseract, "OCR engine: tesseract, gosseract, vision, gemini or ollama"),
		tesseractPath:   fs.StringLong("tesseract-path", "tesseract", "Path or name of the tesseract executable"),
		tessdataDir:     fs.StringLong("tessdata-dir", "", "Tesseract language data directory (sets TESSDATA_PREFIX)"),
		languages:       fs.StringLong("languages", "eng+hin", "Tesseract language set, primary script first"),
		ocrTimeout:      fs.DurationLong("ocr-timeout", 2*time.Minute, "Upper bound for a single OCR engine call"),
		maxMegapixels:   fs.IntLong("max-megapixels", 50, "Largest image accepted, in millions of pixels"),
		geminiKey:       fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)"),
		geminiModel:     fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name"),
		ollamaURL:       fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL"),
		ollamaModel:     fs.StringLong("ollama-model", "llava", "Ollama vision model name"),
		visionCredFile:  fs.StringLong("vision-credentials", "", "Service account JSON for Cloud Vision (default: application default credentials)"),
		wkhtmltopdfPath: fs.StringLong("wkhtmltopdf-path", "wkhtmltopdf", "Path or name of the wkhtmltopdf executable"),
		exportTimeout:   fs.DurationLong("export-timeout", time.Minute, "Upper bound for rendering a PDF export"),
		logLevel:        fs.StringLong("log-level", "info", "Log level: trace, debug, info, warn, error, disabled"),
		logFormat:       fs.StringLong("log-format", "console", "Log format: console or json"),
		logOutput:       fs.StringLong("log-output", "stderr", "Log output: stdout, stderr or a file path"),
	}
}

// Config returns the parsed configuration. Call it after ff has parsed the flag set.
func (f *Flags) Config() (Config, error) {
	c := Config{
		Engine:          strings.ToLower(strings.TrimSpace(*f.engine)),
		TesseractPath:   *f.tesseractPath,
		TessdataDir:     *f.tessdataDir,
		Languages:       SplitLanguages(*f.languages),
		OCRTimeout:      *f.ocrTimeout,
		MaxMegapixels:   *f.maxMegapixels,
		GeminiAPIKey:    *f.geminiKey,
		GeminiModel:     *f.geminiModel,
		OllamaURL:       *f.ollamaURL,
		OllamaModel:     *f.ollamaModel,
		VisionCredFile:  *f.visionCredFile,
		WkhtmltopdfPath: *f.wkhtmltopdfPath,
		ExportTimeout:   *f.exportTimeout,
		LogLevel:        *f.logLevel,
		LogFormat:       *f.logFormat,
		LogOutput:       *f.logOutput,
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

// Validate checks values that would otherwise fail late at runtime.
// Missing executables are not validation errors: they surface as typed
// errors from the engine and the PDF exporter.
func (c Config) Validate() error {
	switch c.Engine {
	case EngineTesseract, EngineGosseract, EngineVision, EngineGemini, EngineOllama:
	default:
		return fmt.Errorf("unknown engine %q", c.Engine)
	}
	if len(c.Languages) == 0 {
		return fmt.Errorf("at least one OCR language is required")
	}
	if c.OCRTimeout <= 0 {
		return fmt.Errorf("ocr-timeout must be positive")
	}
	if c.MaxMegapixels <= 0 {
		return fmt.Errorf("max-megapixels must be positive")
	}
	if c.ExportTimeout <= 0 {
		return fmt.Errorf("export-timeout must be positive")
	}
	return nil
}

// LoggerConfig returns a logger configuration from the main config
func (c Config) LoggerConfig() logger.LogConfig {
	lc := logger.DefaultConfig()
	lc.Level = c.LogLevel
	lc.Format = c.LogFormat
	lc.Output = c.LogOutput
	return lc
}

// MaxPixels returns the image size limit in pixels
func (c Config) MaxPixels() int {
	return c.MaxMegapixels * 1_000_000
}

// SplitLanguages splits a tesseract style language set ("eng+hin") into codes.
func SplitLanguages(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' || r == ' ' })
}
