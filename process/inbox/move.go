package inbox

import (
	"io"
	"math"
	"os"

	"github.com/disintegration/imaging"
)

// maxStoredBytes is the size above which processed images are downscaled.
const maxStoredBytes = 1_000_000

// moveToProcessed moves src to dst. Large images are resized on the way so
// the processed directory stays small; anything that cannot be decoded is
// moved as is.
func moveToProcessed(src, dst string) error {
	fi, err := os.Stat(src)
	if err != nil {
		return err
	}
	if fi.Size() <= maxStoredBytes {
		return rename(src, dst)
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return rename(src, dst)
	}
	// file size scales roughly with area
	scale := math.Sqrt(float64(maxStoredBytes) / float64(fi.Size()))
	scale = math.Max(0.1, math.Min(scale, 0.95))
	w := int(math.Max(1, math.Round(float64(img.Bounds().Dx())*scale)))
	img = imaging.Resize(img, w, 0, imaging.Lanczos)
	if err := imaging.Save(img, dst); err != nil {
		return rename(src, dst)
	}
	return os.Remove(src)
}

func rename(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyRemove(src, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		_ = in.Close()
		return err
	}
	_, err = io.Copy(out, in)
	_ = in.Close()
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
