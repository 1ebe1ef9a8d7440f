package receipt

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	amountRE   = regexp.MustCompile(`(?i)([$€£]|usd|eur|gbp)?\s?(\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?)`)
	centsRE    = regexp.MustCompile(`[.,]\d{2}$`)
	dateLikeRE = regexp.MustCompile(`\d{1,4}[/\-]\d{1,2}[/\-]\d{1,4}|\d{1,2}:\d{2}`)
)

// keyword weights; the first match in a line wins, so longer phrases come first.
var keywords = []struct {
	word  string
	score int
}{
	{"grand total", 12},
	{"amount due", 12},
	{"balance due", 12},
	{"total due", 12},
	{"subtotal", 3},
	{"sub total", 3},
	{"total", 10},
	{"amount", 6},
	{"tax", -4},
	{"change", -6},
	{"cash", -2},
	{"tip", -2},
}

// Candidate is one amount-looking token found in the recognized text.
type Candidate struct {
	Amount float64
	Raw    string
	Line   string
	Score  int
}

// Candidates scans every line for amounts, skipping dates, times and long
// numeric ids.
func Candidates(text string) []Candidate {
	var out []Candidate
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		cleaned := dateLikeRE.ReplaceAllString(line, " ")
		lineScore := 0
		low := strings.ToLower(line)
		for _, k := range keywords {
			if strings.Contains(low, k.word) {
				lineScore = k.score
				break
			}
		}
		for _, m := range amountRE.FindAllStringSubmatch(cleaned, -1) {
			raw := strings.TrimSpace(m[0])
			if !plausible(m[2]) {
				continue
			}
			amt, err := ParseAmount(m[2])
			if err != nil || amt <= 0 {
				continue
			}
			score := lineScore
			if m[1] != "" {
				score += 10
			}
			if centsRE.MatchString(m[2]) {
				score += 5
			}
			out = append(out, Candidate{Amount: amt, Raw: raw, Line: line, Score: score})
		}
	}
	return out
}

// Best picks the highest scoring candidate. Ties go to the larger amount,
// since totals dominate the other figures on a receipt.
func Best(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	sorted := append([]Candidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		if sorted[i].Amount != sorted[j].Amount {
			return sorted[i].Amount > sorted[j].Amount
		}
		return len(sorted[i].Raw) > len(sorted[j].Raw)
	})
	return sorted[0], true
}

// ParseAmount normalizes "1,234.56", "1.234,56", "12,50" or "1 234" to a
// decimal value. A separator followed by exactly three digits groups
// thousands; the last separator followed by one or two digits is decimal.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£ ")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	lastSep := strings.LastIndexAny(s, ".,")
	intPart, frac := s, ""
	if lastSep >= 0 {
		tail := s[lastSep+1:]
		if len(tail) == 1 || len(tail) == 2 {
			intPart, frac = s[:lastSep], tail
		}
	}
	digits := onlyDigits(intPart)
	if digits == "" {
		return 0, fmt.Errorf("no digits in %q", s)
	}
	if frac != "" {
		digits += "." + frac
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}

// plausible rejects long bare digit runs (card numbers, ids, phone
// numbers) and zero-prefixed tokens.
func plausible(s string) bool {
	d := onlyDigits(s)
	if d == "" {
		return false
	}
	if strings.ContainsAny(s, ".,") {
		return len(d) <= 9
	}
	if len(d) > 1 && d[0] == '0' {
		return false
	}
	return len(d) <= 5
}

func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
