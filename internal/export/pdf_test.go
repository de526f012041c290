package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PDFWriter", func() {
	var dir string

	BeforeEach(func() {
		if runtime.GOOS == "windows" {
			Skip("fake wkhtmltopdf is a shell script")
		}
		dir = GinkgoT().TempDir()
	})

	When("the renderer works", func() {
		var (
			argsFile  string
			inputFile string
			data      []byte
			err       error
		)

		BeforeEach(func() {
			argsFile = filepath.Join(dir, "args")
			inputFile = filepath.Join(dir, "input.html")
			script := writeScript(dir, "wkhtmltopdf", `echo "$@" > "`+argsFile+`"
cat > "`+inputFile+`"
printf '%%PDF-1.4 fake'
`)
			data, err = NewPDFWriter(script, time.Second).Write(context.Background(), "<b>bold</b>\nनमस्ते")
		})

		It("returns the rendered document", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("%PDF-1.4 fake"))
		})

		It("reads HTML from stdin and writes to stdout", func() {
			args, readErr := os.ReadFile(argsFile)
			Expect(readErr).NotTo(HaveOccurred())
			Expect(strings.TrimSpace(string(args))).To(Equal("--quiet --encoding utf-8 - -"))
		})

		It("sends the escaped text in a UTF-8 page", func() {
			page, readErr := os.ReadFile(inputFile)
			Expect(readErr).NotTo(HaveOccurred())
			Expect(string(page)).To(ContainSubstring(`<meta charset="utf-8">`))
			Expect(string(page)).To(ContainSubstring("&lt;b&gt;bold&lt;/b&gt;\nनमस्ते"))
		})
	})

	When("the renderer is missing", func() {
		It("fails with ErrRendererUnavailable", func() {
			w := NewPDFWriter(filepath.Join(dir, "missing"), time.Second)
			Expect(errors.Is(w.Available(), ErrRendererUnavailable)).To(BeTrue())

			_, err := w.Write(context.Background(), "text")
			Expect(errors.Is(err, ErrRendererUnavailable)).To(BeTrue())
		})
	})

	When("the renderer fails", func() {
		It("returns its error output", func() {
			script := writeScript(dir, "wkhtmltopdf", "cat > /dev/null\necho 'cannot connect to X server' >&2\nexit 1\n")
			_, err := NewPDFWriter(script, time.Second).Write(context.Background(), "text")
			Expect(err).To(MatchError(ContainSubstring("cannot connect to X server")))
			Expect(errors.Is(err, ErrRendererUnavailable)).To(BeFalse())
		})
	})

	When("the renderer hangs", func() {
		It("gives up after the timeout", func() {
			script := writeScript(dir, "wkhtmltopdf", "exec sleep 5\n")
			_, err := NewPDFWriter(script, 100*time.Millisecond).Write(context.Background(), "text")
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		})

		It("does not wait for a child that keeps stdout open", func() {
			script := writeScript(dir, "wkhtmltopdf", "sleep 10 &\nexec sleep 10\n")
			writer := NewPDFWriter(script, 100*time.Millisecond)
			writer.waitDelay = 300 * time.Millisecond

			start := time.Now()
			_, err := writer.Write(context.Background(), "text")
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
		})
	})
})

var _ = Describe("PageHTML", func() {
	It("escapes markup and keeps line breaks", func() {
		page := PageHTML("<script>alert(1)</script>\n& more")
		Expect(page).To(ContainSubstring("<pre>&lt;script&gt;alert(1)&lt;/script&gt;\n&amp; more</pre>"))
		Expect(page).NotTo(ContainSubstring("<script>"))
	})
})
