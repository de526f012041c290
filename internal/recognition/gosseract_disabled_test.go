//go:build !gosseract

package recognition

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/config"
)

var _ = Describe("Gosseract without the build tag", func() {
	It("reports the engine as unavailable", func() {
		engine := NewEngine(context.Background(), config.Config{
			Engine:    config.EngineGosseract,
			Languages: []string{"eng"},
		})
		Expect(engine.Name()).To(Equal(config.EngineGosseract))

		err := Available(engine)
		Expect(errors.Is(err, ErrEngineUnavailable)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("gosseract"))
	})
})
