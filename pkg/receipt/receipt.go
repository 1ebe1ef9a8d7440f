// Package receipt extracts the total amount from photographed receipts.
package receipt

import (
	"errors"
	"fmt"
	"strings"

	"worktrack/models"
	"worktrack/pkg/money"
)

// ErrNoAmount is returned when no plausible monetary amount can be extracted.
var ErrNoAmount = errors.New("no amount detected")

// Result of a successful extraction.
type Result struct {
	Amount     float64 `json:"amount"`
	Confidence float64 `json:"confidence"`
	Raw        string  `json:"raw"`
}

type Extractor struct {
	reader TextReader
}

func NewExtractor(r TextReader) *Extractor {
	if r == nil {
		r = Tesseract{}
	}
	return &Extractor{reader: r}
}

// Extract recognizes the image at path and returns the most likely total.
func (e *Extractor) Extract(path string) (Result, error) {
	text, err := e.reader.ReadText(path)
	if err != nil {
		return Result{}, fmt.Errorf("read receipt: %w", err)
	}
	return FromText(text)
}

// FromText runs amount detection over already recognized text.
func FromText(text string) (Result, error) {
	best, ok := Best(Candidates(text))
	if !ok {
		return Result{}, ErrNoAmount
	}
	return Result{
		Amount:     money.Round2(best.Amount),
		Confidence: confidence(best, text),
		Raw:        best.Raw,
	}, nil
}

// confidence is a proxy in [0,1]: the score of the winning candidate with a
// floor for explicit currency or total context.
func confidence(c Candidate, text string) float64 {
	conf := float64(c.Score) / 27
	if strings.TrimSpace(text) != "" {
		conf += float64(len(c.Raw)) / float64(len(text)+1)
	}
	if c.Score >= 10 && conf < 0.85 {
		conf = 0.85
	}
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return money.Round2(conf)
}

// Usable reports whether the detected amount is trustworthy enough to
// store, given the configured confidence floor.
func (r Result) Usable(minConfidence float64) bool {
	return r.Amount > 0 && r.Confidence >= minConfidence
}

// Describe records an extraction outcome on a receipt row. Rows are always
// filled in, even when detection failed, so they can be reviewed later.
func Describe(rec *models.Receipt, res Result, err error, minConfidence float64) {
	switch {
	case err != nil:
		rec.Failed = true
		rec.FailedReason = truncate(err.Error(), 255)
	case !res.Usable(minConfidence):
		rec.Failed = true
		rec.Confidence = res.Confidence
		rec.RawMatch = truncate(res.Raw, 64)
		rec.FailedReason = "low confidence"
	default:
		amount := res.Amount
		rec.DetectedAmount = &amount
		rec.Confidence = res.Confidence
		rec.RawMatch = truncate(res.Raw, 64)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
