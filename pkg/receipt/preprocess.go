package receipt

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// minHeight is the height small photos are upscaled to before recognition.
const minHeight = 1300

// Prepare turns a photo into a high contrast grayscale image suited to OCR.
func Prepare(img image.Image) *image.NRGBA {
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)
	gray = imaging.Sharpen(gray, 0.7)
	if gray.Bounds().Dy() < minHeight-400 {
		gray = imaging.Resize(gray, 0, minHeight, imaging.Lanczos)
	}
	return binarize(gray, 210)
}

// binarize performs a global threshold on a grayscale image.
func binarize(img image.Image, threshold uint8) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var v uint8 = 255
			if luma(img.At(x, y)) <= threshold {
				v = 0
			}
			out.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}

// adaptiveThreshold applies a mean threshold over a window x window
// neighbourhood using an integral image. Useful for unevenly lit photos.
func adaptiveThreshold(img image.Image, window, bias int) *image.NRGBA {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	half := window / 2

	ints := make([]int, w*h)
	for y := 0; y < h; y++ {
		row := 0
		for x := 0; x < w; x++ {
			row += int(luma(img.At(b.Min.X+x, b.Min.Y+y)))
			if y == 0 {
				ints[y*w+x] = row
			} else {
				ints[y*w+x] = ints[(y-1)*w+x] + row
			}
		}
	}
	at := func(x, y int) int {
		if x < 0 || y < 0 {
			return 0
		}
		return ints[y*w+x]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, y0 := max(x-half, 0), max(y-half, 0)
			x1, y1 := min(x+half, w-1), min(y+half, h-1)
			sum := at(x1, y1) - at(x0-1, y1) - at(x1, y0-1) + at(x0-1, y0-1)
			mean := sum / ((x1 - x0 + 1) * (y1 - y0 + 1))
			if int(luma(img.At(b.Min.X+x, b.Min.Y+y))) < max(mean-bias, 0) {
				out.Set(x, y, color.NRGBA{0, 0, 0, 255})
			}
		}
	}
	return out
}

func luma(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	return uint8((r + g + b) / 3 >> 8)
}
