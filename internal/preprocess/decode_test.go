package preprocess

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/image/bmp"
)

func encodedPNG(w, h int) []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, uniformImage(w, h, color.White))).To(Succeed())
	return buf.Bytes()
}

// pngHeader returns the signature and IHDR chunk of an 8-bit grayscale PNG
// with the given dimensions and no pixel data. A small file can claim a huge
// image this way.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 0 // grayscale

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	Expect(binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))).To(Succeed())
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	Expect(binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Decode", func() {
	var (
		data        []byte
		contentType string
		img         image.Image
		err         error
	)

	JustBeforeEach(func() {
		img, err = Decode(data, contentType)
	})

	When("the file is a PNG", func() {
		BeforeEach(func() {
			data = encodedPNG(21, 13)
			contentType = "image/png"
		})

		It("decodes it", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Dx()).To(Equal(21))
			Expect(img.Bounds().Dy()).To(Equal(13))
		})
	})

	When("the file is a JPEG with no content type", func() {
		BeforeEach(func() {
			var buf bytes.Buffer
			Expect(jpeg.Encode(&buf, uniformImage(8, 6, color.Gray{Y: 128}), nil)).To(Succeed())
			data = buf.Bytes()
			contentType = ""
		})

		It("detects the format from the data", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Size()).To(Equal(image.Pt(8, 6)))
		})
	})

	When("the file is a BMP", func() {
		BeforeEach(func() {
			var buf bytes.Buffer
			Expect(bmp.Encode(&buf, uniformImage(5, 4, color.Black))).To(Succeed())
			data = buf.Bytes()
			contentType = "image/bmp"
		})

		It("decodes it", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Size()).To(Equal(image.Pt(5, 4)))
		})
	})

	When("the file is empty", func() {
		BeforeEach(func() {
			data = nil
			contentType = "image/png"
		})

		It("returns a decode error", func() {
			Expect(errors.Is(err, ErrDecode)).To(BeTrue())
		})
	})

	When("the file is not an image", func() {
		BeforeEach(func() {
			data = []byte("these are not the pixels you are looking for")
			contentType = "image/jpeg"
		})

		It("returns a decode error", func() {
			Expect(errors.Is(err, ErrDecode)).To(BeTrue())
		})
	})

	When("the PNG is truncated", func() {
		BeforeEach(func() {
			full := encodedPNG(30, 30)
			data = full[:len(full)/2]
			contentType = "image/png"
		})

		It("returns a decode error", func() {
			Expect(errors.Is(err, ErrDecode)).To(BeTrue())
		})
	})

	When("the header claims more pixels than the limit", func() {
		BeforeEach(func() {
			data = pngHeader(12000, 12000)
			contentType = "image/png"
		})

		It("rejects the image before decoding pixels", func() {
			Expect(errors.Is(err, ErrDecode)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("12000x12000"))
			Expect(err.Error()).To(ContainSubstring("larger than the limit"))
			Expect(img).To(BeNil())
		})
	})

	When("the image is just within the limit", func() {
		BeforeEach(func() {
			data = encodedPNG(21, 13)
			contentType = "image/png"
		})

		It("decodes it", func() {
			img, err := DecodeWithLimit(data, contentType, 21*13)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Size()).To(Equal(image.Pt(21, 13)))
		})
	})

	When("a caller sets a lower limit", func() {
		BeforeEach(func() {
			data = encodedPNG(21, 13)
			contentType = "image/png"
		})

		It("rejects larger images", func() {
			_, err := DecodeWithLimit(data, contentType, 21*13-1)
			Expect(errors.Is(err, ErrDecode)).To(BeTrue())
		})

		It("falls back to the default for a non-positive limit", func() {
			_, err := DecodeWithLimit(data, contentType, 0)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	When("a HEIC header is followed by garbage", func() {
		BeforeEach(func() {
			data = append([]byte{0, 0, 0, 24, 'f', 't', 'y', 'p', 'h', 'e', 'i', 'c'}, bytes.Repeat([]byte{0xAB}, 64)...)
			contentType = "image/heic"
		})

		It("returns a decode error", func() {
			Expect(errors.Is(err, ErrDecode)).To(BeTrue())
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	DescribeTable("recognizes the ftyp brand",
		func(brand string, want bool) {
			data := append([]byte{0, 0, 0, 24, 'f', 't', 'y', 'p'}, []byte(brand)...)
			Expect(isHEICFormat(data)).To(Equal(want))
		},
		Entry("heic", "heic", true),
		Entry("heif", "heif", true),
		Entry("mif1", "mif1", true),
		Entry("mp4", "isom", false),
	)

	It("rejects short input", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
	})
})

var _ = Describe("ContentTypeFromExt", func() {
	DescribeTable("maps extensions",
		func(name, want string) {
			Expect(ContentTypeFromExt(name)).To(Equal(want))
		},
		Entry("jpeg", "Page1.JPG", "image/jpeg"),
		Entry("png", "scan.png", "image/png"),
		Entry("heic", "IMG_0001.HEIC", "image/heic"),
		Entry("pdf", "notes.pdf", "application/pdf"),
		Entry("unknown", "notes.xyz", "application/octet-stream"),
	)
})
