package recognition

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/history"
)

var _ = Describe("Tesseract", func() {
	var (
		dir    string
		params Params
		img    *image.Gray
	)

	BeforeEach(func() {
		if runtime.GOOS == "windows" {
			Skip("fake tesseract is a shell script")
		}
		dir = GinkgoT().TempDir()
		params = DefaultParams([]string{"eng", "hin"})
		img = image.NewGray(image.Rect(0, 0, 8, 8))
	})

	It("builds the documented command line", func() {
		Expect(tesseractArgs(params)).To(Equal([]string{
			"stdin", "stdout", "-l", "eng+hin", "--psm", "6", "--oem", "3",
		}))
	})

	When("the executable works", func() {
		var (
			engine   *Tesseract
			argsFile string
			envFile  string
			pngFile  string
		)

		BeforeEach(func() {
			argsFile = filepath.Join(dir, "args")
			envFile = filepath.Join(dir, "env")
			pngFile = filepath.Join(dir, "stdin.png")
			script := writeScript(dir, "tesseract", `echo "$@" > "`+argsFile+`"
echo "$TESSDATA_PREFIX" > "`+envFile+`"
cat > "`+pngFile+`"
printf 'first line\nदूसरी पंक्ति\n'
`)
			Expect(os.Mkdir(filepath.Join(dir, "tessdata"), 0755)).To(Succeed())
			engine = NewTesseract(script, filepath.Join(dir, "tessdata"))
		})

		It("is available", func() {
			Expect(engine.Available()).To(Succeed())
		})

		It("returns stdout unchanged", func() {
			text, err := engine.Recognize(context.Background(), img, params)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("first line\nदूसरी पंक्ति\n"))
		})

		It("passes the languages and modes", func() {
			_, err := engine.Recognize(context.Background(), img, params)
			Expect(err).NotTo(HaveOccurred())
			args, err := os.ReadFile(argsFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.TrimSpace(string(args))).To(Equal("stdin stdout -l eng+hin --psm 6 --oem 3"))
		})

		It("points TESSDATA_PREFIX at the data directory", func() {
			_, err := engine.Recognize(context.Background(), img, params)
			Expect(err).NotTo(HaveOccurred())
			env, err := os.ReadFile(envFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.TrimSpace(string(env))).To(Equal(filepath.Join(dir, "tessdata")))
		})

		It("feeds a PNG on stdin", func() {
			_, err := engine.Recognize(context.Background(), img, params)
			Expect(err).NotTo(HaveOccurred())
			data, err := os.ReadFile(pngFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data[1:4])).To(Equal("PNG"))
		})
	})

	When("the executable is missing", func() {
		var engine *Tesseract

		BeforeEach(func() {
			engine = NewTesseract(filepath.Join(dir, "no-such-tesseract"), "")
		})

		It("reports ErrEngineUnavailable up front", func() {
			Expect(errors.Is(engine.Available(), ErrEngineUnavailable)).To(BeTrue())
		})

		It("fails every call with ErrEngineUnavailable", func() {
			_, err := engine.Recognize(context.Background(), img, params)
			Expect(errors.Is(err, ErrEngineUnavailable)).To(BeTrue())
		})
	})

	When("the tessdata directory is missing", func() {
		It("reports ErrEngineUnavailable", func() {
			script := writeScript(dir, "tesseract", "cat > /dev/null\n")
			engine := NewTesseract(script, filepath.Join(dir, "missing"))
			Expect(errors.Is(engine.Available(), ErrEngineUnavailable)).To(BeTrue())
		})
	})

	When("the executable fails", func() {
		It("returns its error output", func() {
			script := writeScript(dir, "tesseract", "cat > /dev/null\necho 'Failed loading language hin' >&2\nexit 1\n")
			engine := NewTesseract(script, "")
			_, err := engine.Recognize(context.Background(), img, params)
			Expect(err).To(MatchError(ContainSubstring("Failed loading language hin")))
			Expect(errors.Is(err, ErrEngineUnavailable)).To(BeFalse())
		})
	})

	When("the executable hangs", func() {
		It("is stopped by the pipeline timeout", func() {
			script := writeScript(dir, "tesseract", "exec sleep 5\n")
			engine := NewTesseract(script, "")
			ledger := history.NewLedger()
			pipeline := NewPipeline(engine, params, ledger, 200*time.Millisecond)

			start := time.Now()
			_, err := pipeline.Process(context.Background(), pngUpload("slow.png"))
			Expect(errors.Is(err, ErrEngineTimeout)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", 4*time.Second))
			Expect(ledger.Len()).To(Equal(0))
		})

		It("does not wait for a child that keeps stdout open", func() {
			script := writeScript(dir, "tesseract", "sleep 10 &\nexec sleep 10\n")
			engine := NewTesseract(script, "")
			engine.waitDelay = 300 * time.Millisecond
			pipeline := NewPipeline(engine, params, history.NewLedger(), 200*time.Millisecond)

			start := time.Now()
			_, err := pipeline.Process(context.Background(), pngUpload("stuck.png"))
			Expect(errors.Is(err, ErrEngineTimeout)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
		})
	})
})
