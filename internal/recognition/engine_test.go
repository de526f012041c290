package recognition

import (
	"context"
	"errors"
	"fmt"
	"image"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/config"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/preprocess"
)

var _ = Describe("NewEngine", func() {
	var cfg config.Config

	BeforeEach(func() {
		cfg = config.Config{
			Engine:        config.EngineTesseract,
			TesseractPath: "/nonexistent/bin/tesseract",
			Languages:     []string{"eng", "hin"},
		}
	})

	It("returns an engine that reports a missing tesseract", func() {
		engine := NewEngine(context.Background(), cfg)
		Expect(engine.Name()).To(Equal("tesseract"))
		Expect(errors.Is(Available(engine), ErrEngineUnavailable)).To(BeTrue())

		_, err := engine.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)), DefaultParams(cfg.Languages))
		Expect(errors.Is(err, ErrEngineUnavailable)).To(BeTrue())
	})

	It("degrades to an unavailable engine when gemini has no key", func() {
		GinkgoT().Setenv("GEMINI_API_KEY", "")
		cfg.Engine = config.EngineGemini

		engine := NewEngine(context.Background(), cfg)
		Expect(engine.Name()).To(Equal(config.EngineGemini))
		Expect(errors.Is(Available(engine), ErrEngineUnavailable)).To(BeTrue())
		Expect(engine.Close()).To(Succeed())
	})

	It("builds an ollama engine without contacting the server", func() {
		cfg.Engine = config.EngineOllama
		cfg.OllamaURL = "http://127.0.0.1:1"

		engine := NewEngine(context.Background(), cfg)
		Expect(engine.Name()).To(Equal("ollama"))
		Expect(Available(engine)).To(Succeed())
	})
})

var _ = Describe("DefaultParams", func() {
	It("copies the language list", func() {
		langs := []string{"eng", "hin"}
		params := DefaultParams(langs)
		langs[0] = "fra"
		Expect(params.Languages).To(Equal([]string{"eng", "hin"}))
	})

	It("uses the library default engine mode and the default pixel limit", func() {
		params := DefaultParams([]string{"eng"})
		Expect(int(params.EngineMode)).To(Equal(3))
		Expect(params.MaxPixels).To(Equal(preprocess.DefaultMaxPixels))
	})
})

var _ = Describe("Kind", func() {
	DescribeTable("classifies errors",
		func(err error, want string) {
			Expect(Kind(err)).To(Equal(want))
		},
		Entry("nil", nil, ""),
		Entry("decode", &Error{Op: "Process", Err: fmt.Errorf("%w: bad header", preprocess.ErrDecode)}, KindDecode),
		Entry("unavailable", fmt.Errorf("%w: missing", ErrEngineUnavailable), KindEngineUnavailable),
		Entry("timeout", &Error{Op: "Recognize", Err: ErrEngineTimeout}, KindEngineTimeout),
		Entry("canceled", &Error{Op: "Recognize", Err: context.Canceled}, KindCanceled),
		Entry("other", errors.New("boom"), KindFailed),
	)
})

var _ = Describe("Error", func() {
	It("includes the operation and the file name", func() {
		err := &Error{Op: "Process", Filename: "page.jpg", Err: errors.New("boom")}
		Expect(err.Error()).To(Equal(`recognition: Process "page.jpg": boom`))
	})

	It("omits an unknown file name", func() {
		err := &Error{Op: "Process", Err: errors.New("boom")}
		Expect(err.Error()).To(Equal("recognition: Process: boom"))
	})
})
