package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/peterbourgon/ff/v4"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/config"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/export"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/history"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/logger"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/notes"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/preprocess"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/recognition"
)

var errAllFailed = errors.New("no image could be converted")

func newRootCommand(stdout, stderr io.Writer) *ff.Command {
	rootFlags := ff.NewFlagSet("notes-ocr")
	shared := config.RegisterFlags(rootFlags)

	root := &ff.Command{
		Name:      "notes-ocr",
		Usage:     "notes-ocr [FLAGS] <SUBCOMMAND> ...",
		ShortHelp: "convert handwritten notes to editable text",
		Flags:     rootFlags,
	}
	root.Subcommands = []*ff.Command{
		newServeCommand(rootFlags, shared),
		newConvertCommand(rootFlags, shared, stdout, stderr),
		newPreprocessCommand(rootFlags, shared),
		{
			Name:      "version",
			Usage:     "notes-ocr version",
			ShortHelp: "print the version",
			Exec: func(context.Context, []string) error {
				fmt.Fprintln(stdout, version)
				return nil
			},
		},
	}
	return root
}

// loadConfig turns the parsed shared flags into a Config and sets up logging
func loadConfig(shared *config.Flags) (config.Config, error) {
	cfg, err := shared.Config()
	if err != nil {
		return config.Config{}, err
	}
	if err := logger.Setup(cfg.LoggerConfig()); err != nil {
		return config.Config{}, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, nil
}

// newService wires the engine, exporter and session store. The caller closes
// the returned engine.
func newService(ctx context.Context, cfg config.Config, sessionTTL time.Duration) (*notes.Service, recognition.Engine) {
	log := logger.WithComponent("main")

	engine := recognition.NewEngine(ctx, cfg)
	if err := recognition.Available(engine); err != nil {
		log.Warn().Err(err).Str("engine", cfg.Engine).Msg("OCR engine unavailable, conversions will fail until it is installed")
	} else {
		log.Info().Str("engine", engine.Name()).Strs("languages", cfg.Languages).Msg("OCR engine ready")
	}

	exporter := export.NewExporter(cfg.WkhtmltopdfPath, cfg.ExportTimeout)
	if err := exporter.Available(export.PDF); err != nil {
		log.Warn().Err(err).Msg("PDF export disabled")
	}

	params := recognition.DefaultParams(cfg.Languages)
	params.MaxPixels = cfg.MaxPixels()

	service := notes.NewService(
		engine,
		params,
		cfg.OCRTimeout,
		exporter,
		notes.NewSessions(sessionTTL),
	)
	return service, engine
}

func newServeCommand(parent *ff.FlagSet, shared *config.Flags) *ff.Command {
	fs := ff.NewFlagSet("serve").SetParent(parent)
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		maxUploadMB = fs.IntLong("max-upload-mb", notes.DefaultMaxUploadBytes>>20, "Maximum size of one upload request in MB")
		sessionTTL  = fs.DurationLong("session-ttl", notes.DefaultSessionTTL, "Idle time after which a session's history is discarded")
	)

	return &ff.Command{
		Name:      "serve",
		Usage:     "notes-ocr serve [FLAGS]",
		ShortHelp: "run the web interface",
		Flags:     fs,
		Exec: func(ctx context.Context, _ []string) error {
			cfg, err := loadConfig(shared)
			if err != nil {
				return err
			}
			log := logger.WithComponent("main")

			service, engine := newService(ctx, cfg, *sessionTTL)
			defer engine.Close()

			server := notes.NewServer(service, notes.Options{
				BasicAuth: notes.BasicAuth{
					Username: *authUser,
					Password: *authPass,
				},
				MaxUploadBytes: int64(*maxUploadMB) << 20,
			})
			if *authUser != "" || *authPass != "" {
				log.Info().Str("user", *authUser).Msg("Basic auth enabled")
			}

			sweepCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go service.Sessions().Run(sweepCtx, time.Minute)

			addr := fmt.Sprintf(":%d", *port)
			log.Info().Str("url", fmt.Sprintf("http://localhost%s", addr)).Msg("Server started")
			return server.Run(ctx, addr)
		},
	}
}

func newConvertCommand(parent *ff.FlagSet, shared *config.Flags, stdout, stderr io.Writer) *ff.Command {
	fs := ff.NewFlagSet("convert").SetParent(parent)
	var (
		exportFormat = fs.StringLong("export", "", "Write the combined text as txt, docx or pdf instead of printing it")
		outDir       = fs.StringLong("out", ".", "Directory the export is written to")
		historyN     = fs.IntLong("history", history.DefaultWindow, "Number of recent conversions to list afterwards (0 to skip)")
	)

	return &ff.Command{
		Name:      "convert",
		Usage:     "notes-ocr convert [FLAGS] FILE...",
		ShortHelp: "convert images of handwritten notes to text",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("convert: at least one image file is required")
			}

			var format export.Format
			if *exportFormat != "" {
				f, err := export.ParseFormat(*exportFormat)
				if err != nil {
					return err
				}
				format = f
			}

			cfg, err := loadConfig(shared)
			if err != nil {
				return err
			}
			log := logger.WithComponent("main")

			service, engine := newService(ctx, cfg, 0)
			defer engine.Close()
			sess := service.Session("")

			uploads := make([]recognition.Upload, 0, len(args))
			failed := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					log.Error().Err(err).Str("file", path).Msg("Cannot read file")
					failed++
					continue
				}
				uploads = append(uploads, recognition.Upload{
					Filename:    filepath.Base(path),
					ContentType: preprocess.ContentTypeFromExt(path),
					Data:        data,
				})
			}

			conversion := service.Convert(ctx, sess, uploads)
			for _, item := range conversion.Items {
				if item.Status == recognition.StatusSuccess {
					log.Info().Str("file", item.Filename).Msg("Converted")
					continue
				}
				failed++
				log.Error().Str("file", item.Filename).Str("kind", item.Kind).Msg(item.Message)
			}

			if format != "" {
				download, err := service.Export(ctx, export.Request{Text: conversion.Text, Format: format})
				if err != nil {
					return err
				}
				store, err := export.NewLocalStorage(*outDir)
				if err != nil {
					return err
				}
				path, err := store.Save(download)
				if err != nil {
					return err
				}
				log.Info().Str("path", path).Msg("Export written")
			} else {
				fmt.Fprintln(stdout, conversion.Text)
			}

			if *historyN > 0 {
				records := service.History(sess, *historyN)
				if len(records) > 0 {
					fmt.Fprintln(stderr, "Recent conversions:")
				}
				for _, r := range records {
					fmt.Fprintf(stderr, "  %s  %s (%d characters)\n", r.Timestamp, r.Filename, len([]rune(r.Text)))
				}
			}

			if failed == len(args) {
				return errAllFailed
			}
			return nil
		},
	}
}

func newPreprocessCommand(parent *ff.FlagSet, shared *config.Flags) *ff.Command {
	fs := ff.NewFlagSet("preprocess").SetParent(parent)
	out := fs.StringLong("out", "preprocessed.png", "Output PNG path")

	return &ff.Command{
		Name:      "preprocess",
		Usage:     "notes-ocr preprocess [--out FILE] IMAGE",
		ShortHelp: "write the binarized image the OCR engine sees",
		Flags:     fs,
		Exec: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("preprocess: exactly one image file is required")
			}
			cfg, err := loadConfig(shared)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading image: %w", err)
			}

			img, err := preprocess.DecodeWithLimit(data, preprocess.ContentTypeFromExt(args[0]), cfg.MaxPixels())
			if err != nil {
				return err
			}
			binary, err := preprocess.Preprocess(img)
			if err != nil {
				return err
			}
			png, err := preprocess.EncodePNG(binary)
			if err != nil {
				return err
			}
			if err := os.WriteFile(*out, png, 0644); err != nil {
				return fmt.Errorf("writing preview: %w", err)
			}
			logger.WithComponent("main").Info().Str("path", *out).Msg("Preprocessed image written")
			return nil
		},
	}
}
