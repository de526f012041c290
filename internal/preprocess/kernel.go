package preprocess

import (
	"image"
	"math"
)

// kernelScale is the fixed-point scale of a 1D kernel (Q8). A 2D pass is
// therefore scaled by kernelScale^2.
const kernelScale = 256

// fixedKernels are the kernels used for small sizes when no sigma is given
var fixedKernels = map[int][]uint32{
	1: {256},
	3: {64, 128, 64},
	5: {16, 64, 96, 64, 16},
	7: {8, 28, 56, 72, 56, 28, 8},
}

// gaussianKernel returns a symmetric 1D Gaussian kernel of the given odd
// size in Q8 fixed point. The coefficients always sum to kernelScale.
func gaussianKernel(size int) []uint32 {
	if k, ok := fixedKernels[size]; ok {
		return k
	}

	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	r := size / 2
	weights := make([]float64, size)
	var total float64
	for i := range weights {
		d := float64(i - r)
		weights[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		total += weights[i]
	}

	k := make([]uint32, size)
	var sum uint32
	for i, w := range weights {
		k[i] = uint32(math.Round(w / total * kernelScale))
		sum += k[i]
	}
	// rounding drift goes to the centre tap
	k[r] = k[r] + kernelScale - sum
	return k
}

// borderFunc maps an out-of-range coordinate back into [0, n)
type borderFunc func(i, n int) int

// reflect101 mirrors around the edge pixel without repeating it: gfedcb|abcdefgh|gfedcba
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

// replicate repeats the edge pixel: aaaaaa|abcdefgh|hhhhhhh
func replicate(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// gaussianBlur applies a separable size x size Gaussian in integer arithmetic
// and rounds to the nearest value. src must be anchored at (0,0).
func gaussianBlur(src *image.Gray, size int, border borderFunc) *image.Gray {
	k := gaussianKernel(size)
	r := size / 2
	w, h := src.Rect.Dx(), src.Rect.Dy()

	rows := make([]uint32, w*h)
	idx := make([]int, size)
	for x := 0; x < w; x++ {
		for i := range idx {
			idx[i] = border(x+i-r, w)
		}
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w]
			var sum uint32
			for i, kv := range k {
				sum += kv * uint32(row[idx[i]])
			}
			rows[y*w+x] = sum
		}
	}

	const half = kernelScale * kernelScale / 2
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for i := range idx {
			idx[i] = border(y+i-r, h) * w
		}
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x := range dst {
			var sum uint32
			for i, kv := range k {
				sum += kv * rows[idx[i]+x]
			}
			dst[x] = uint8((sum + half) / (kernelScale * kernelScale))
		}
	}
	return out
}
