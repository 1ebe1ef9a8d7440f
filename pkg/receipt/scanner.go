package receipt

import (
	"fmt"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

const (
	amountWhitelist = "0123456789$€£.,:-/ ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	digitWhitelist  = "0123456789., "
)

// TextReader recognizes the text of an image file.
type TextReader interface {
	ReadText(path string) (string, error)
}

// Tesseract runs several recognition passes over a receipt photo and joins
// their output line by line.
type Tesseract struct {
	Language string
}

func (t Tesseract) ReadText(path string) (string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	prepared := Prepare(img)

	tmp, err := os.CreateTemp("", "receipt-*.png")
	if err != nil {
		return "", fmt.Errorf("temp image: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)
	if err := imaging.Save(prepared, tmpPath); err != nil {
		return "", fmt.Errorf("save prepared image: %w", err)
	}

	lang := t.Language
	if lang == "" {
		lang = "eng"
	}
	passes := []struct {
		image     string
		whitelist string
		mode      gosseract.PageSegMode
	}{
		{tmpPath, amountWhitelist, gosseract.PSM_AUTO},
		{tmpPath, digitWhitelist, gosseract.PSM_SPARSE_TEXT},
		{path, amountWhitelist, gosseract.PSM_SINGLE_BLOCK},
	}

	var (
		texts   []string
		lastErr error
	)
	for _, p := range passes {
		txt, err := recognize(lang, p.image, p.whitelist, p.mode)
		if err != nil {
			lastErr = err
			continue
		}
		if strings.TrimSpace(txt) != "" {
			texts = append(texts, txt)
		}
	}

	adv := adaptiveThreshold(imaging.Grayscale(img), 15, 7)
	if err := imaging.Save(adv, tmpPath); err == nil {
		if txt, err := recognize(lang, tmpPath, amountWhitelist, gosseract.PSM_AUTO); err == nil {
			texts = append(texts, txt)
		}
	}

	if len(texts) == 0 && lastErr != nil {
		return "", fmt.Errorf("ocr: %w", lastErr)
	}
	return strings.Join(texts, "\n"), nil
}

func recognize(lang, image, whitelist string, mode gosseract.PageSegMode) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(lang); err != nil {
		return "", err
	}
	if err := client.SetWhitelist(whitelist); err != nil {
		return "", err
	}
	if err := client.SetPageSegMode(mode); err != nil {
		return "", err
	}
	if err := client.SetImage(image); err != nil {
		return "", err
	}
	return client.Text()
}
