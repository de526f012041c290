//go:build !gosseract

package recognition

import "fmt"

// Gosseract is only available when built with -tags gosseract
type Gosseract struct {
	unavailableEngine
}

// NewGosseract reports ErrEngineUnavailable in builds without libtesseract
func NewGosseract(string) (*Gosseract, error) {
	return nil, fmt.Errorf("%w: built without the gosseract tag (go build -tags gosseract)", ErrEngineUnavailable)
}
