package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// ErrDecode is returned when the input cannot be interpreted as a raster image.
var ErrDecode = errors.New("cannot decode image")

// pdfRenderDPI is the resolution a scanned PDF page is rasterized at.
const pdfRenderDPI = 300

// DefaultMaxPixels bounds the size of a decoded image (50 megapixels, well
// above a 48 MP phone photo). Preprocessing needs about ten bytes per pixel.
const DefaultMaxPixels = 50_000_000

// Decode turns an uploaded file into an image, rejecting images larger than
// DefaultMaxPixels.
func Decode(data []byte, contentType string) (image.Image, error) {
	return DecodeWithLimit(data, contentType, DefaultMaxPixels)
}

// DecodeWithLimit turns an uploaded file into an image. Phone photos
// (HEIC/HEIF) and scanned PDFs (first page) are supported next to the usual
// raster formats. EXIF orientation is applied so that photos taken sideways
// come out upright. The dimensions are read from the header first and
// images above maxPixels fail with ErrDecode before any pixel is decoded.
// maxPixels <= 0 means DefaultMaxPixels.
func DecodeWithLimit(data []byte, contentType string, maxPixels int) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrDecode)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	mimeType := strings.ToLower(strings.TrimSpace(contentType))

	var img image.Image
	var err error
	switch {
	case isPDF(data, mimeType):
		img, err = pdfFirstPage(data, maxPixels)
	case isHEICFormat(data) || isHEICMimeType(mimeType):
		var cfg image.Config
		cfg, err = heic.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("reading HEIC/HEIF header: %w", err)
			break
		}
		if err = checkPixels(cfg.Width, cfg.Height, maxPixels); err != nil {
			break
		}
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	default:
		var cfg image.Config
		cfg, _, err = image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("reading image header: %w", err)
			break
		}
		if err = checkPixels(cfg.Width, cfg.Height, maxPixels); err != nil {
			break
		}
		img, err = imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			err = fmt.Errorf("decoding image: %w", err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: image has zero dimensions", ErrDecode)
	}
	return img, nil
}

// checkPixels rejects dimensions whose pixel count exceeds maxPixels
func checkPixels(width, height, maxPixels int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image has zero dimensions")
	}
	if int64(width)*int64(height) > int64(maxPixels) {
		return fmt.Errorf("image is %dx%d, larger than the limit of %d pixels", width, height, maxPixels)
	}
	return nil
}

// pdfFirstPage renders the first page of a PDF. Oversized pages are rendered
// at a lower resolution so the result stays within maxPixels.
func pdfFirstPage(data []byte, maxPixels int) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	// page bounds are in points (1/72 inch)
	bounds, err := doc.Bound(0)
	if err != nil {
		return nil, fmt.Errorf("reading PDF page size: %w", err)
	}
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("PDF page has zero dimensions")
	}

	dpi := float64(pdfRenderDPI)
	points := float64(bounds.Dx()) * float64(bounds.Dy())
	if fit := 72 * math.Sqrt(float64(maxPixels)/points); fit < dpi {
		dpi = math.Floor(fit * 0.99)
	}
	if dpi < 1 {
		return nil, fmt.Errorf("PDF page is too large to render within %d pixels", maxPixels)
	}

	img, err := doc.ImageDPI(0, dpi)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	if b := img.Bounds(); int64(b.Dx())*int64(b.Dy()) > int64(maxPixels) {
		return nil, fmt.Errorf("rendered PDF page is %dx%d, larger than the limit of %d pixels", b.Dx(), b.Dy(), maxPixels)
	}
	return img, nil
}

func isPDF(data []byte, mimeType string) bool {
	return mimeType == "application/pdf" || bytes.HasPrefix(data, []byte("%PDF"))
}

// isHEICFormat checks the ftyp box brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// ContentTypeFromExt guesses a MIME type from a file name when the client
// did not send one.
func ContentTypeFromExt(filename string) string {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".jpg"), strings.HasSuffix(name, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	case strings.HasSuffix(name, ".gif"):
		return "image/gif"
	case strings.HasSuffix(name, ".bmp"):
		return "image/bmp"
	case strings.HasSuffix(name, ".tif"), strings.HasSuffix(name, ".tiff"):
		return "image/tiff"
	case strings.HasSuffix(name, ".webp"):
		return "image/webp"
	case strings.HasSuffix(name, ".heic"):
		return "image/heic"
	case strings.HasSuffix(name, ".heif"):
		return "image/heif"
	case strings.HasSuffix(name, ".pdf"):
		return "application/pdf"
	}
	return "application/octet-stream"
}
