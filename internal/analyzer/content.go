package analyzer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FormatAuto marks a date column recognized only by the generic
// parseability fallback, with no single fixed pattern.
const FormatAuto = "auto"

// datePattern pairs a recognition regexp with a stable format label and the
// Go layout used to parse values of that shape.
type datePattern struct {
	re     *regexp.Regexp
	label  string
	layout string
}

// Ordered: more specific shapes first so the label of the first match wins.
var datePatterns = []datePattern{
	{regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`), "YYYY-MM-DD", "2006-1-2"},
	{regexp.MustCompile(`^\d{4}/\d{1,2}/\d{1,2}$`), "YYYY/MM/DD", "2006/1/2"},
	{regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), "MM/DD/YYYY", "1/2/2006"},
	{regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2}$`), "MM/DD/YY", "1/2/06"},
	{regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`), "DD-MM-YYYY", "2-1-2006"},
	{regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}$`), "DD.MM.YYYY", "2.1.2006"},
	{regexp.MustCompile(`^[A-Za-z]{3}\.? \d{1,2},? \d{4}$`), "MMM DD, YYYY", "Jan 2, 2006"},
	{regexp.MustCompile(`^\d{1,2} [A-Za-z]{3} \d{4}$`), "DD MMM YYYY", "2 Jan 2006"},
}

// genericDateLayouts back the parseability fallback for values no fixed
// pattern recognizes.
var genericDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"2 January 2006",
	"02/01/2006 15:04",
}

var (
	slashDateRe = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`)

	amountPatterns = []*regexp.Regexp{
		// Signed, optional currency symbol, thousands separators.
		regexp.MustCompile(`^-?[$€£]?\d{1,3}(,\d{3})+(\.\d{1,2})?$`),
		// European decimal comma with optional dot thousands separators.
		regexp.MustCompile(`^-?\d{1,3}(\.\d{3})*,\d{2}$`),
		// Parenthesized negative.
		regexp.MustCompile(`^\([$€£]?\d{1,3}(,\d{3})*(\.\d{1,2})?\)$`),
		// Plain signed number with up to two decimals.
		regexp.MustCompile(`^[+-]?\d+(\.\d{1,2})?$`),
		// Currency symbol prefix, two decimals.
		regexp.MustCompile(`^[$€£]\s?-?\d+(\.\d{1,2})?$`),
	}

	letterRe  = regexp.MustCompile(`[A-Za-zÀ-ÿ]`)
	numericRe = regexp.MustCompile(`^[\d\s.,+-]+$`)
)

// cleanValue strips surrounding quotes and whitespace from a raw cell.
func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.Trim(v, `"'`)
	return strings.TrimSpace(v)
}

// matchDateValue returns the format label for a date-like value, or "".
func matchDateValue(v string) string {
	for _, p := range datePatterns {
		if p.re.MatchString(v) {
			return p.label
		}
	}
	// Generic fallback: long enough and parseable by a known layout.
	if len(v) < 8 {
		return ""
	}
	for _, layout := range genericDateLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return FormatAuto
		}
	}
	return ""
}

// IsDateColumn scores how date-like a column's sample values are and reports
// the dominant format label ("auto" when only the generic fallback matched).
func IsDateColumn(values []string) (float64, string) {
	if len(values) == 0 {
		return 0, ""
	}
	matched := 0
	counts := make(map[string]int)
	for _, raw := range values {
		v := cleanValue(raw)
		if v == "" {
			continue
		}
		label := matchDateValue(v)
		if label == "" {
			continue
		}
		matched++
		counts[label]++
	}
	if matched == 0 {
		return 0, ""
	}
	return float64(matched) / float64(len(values)), dominantFormat(counts)
}

// dominantFormat picks the most frequent fixed-pattern label, preferring any
// fixed pattern over the generic fallback.
func dominantFormat(counts map[string]int) string {
	best, bestCount := "", 0
	for _, p := range datePatterns {
		if c := counts[p.label]; c > bestCount {
			best, bestCount = p.label, c
		}
	}
	if best != "" {
		return best
	}
	if counts[FormatAuto] > 0 {
		return FormatAuto
	}
	return ""
}

// matchAmountValue reports whether a value looks like a monetary amount.
// Slash-separated dates are rejected first: "01/02/2024" must never count.
func matchAmountValue(v string) bool {
	if slashDateRe.MatchString(v) {
		return false
	}
	for _, re := range amountPatterns {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

// IsAmountColumn scores how amount-like a column's sample values are.
func IsAmountColumn(values []string) float64 {
	if len(values) == 0 {
		return 0
	}
	matched := 0
	for _, raw := range values {
		if matchAmountValue(cleanValue(raw)) {
			matched++
		}
	}
	return float64(matched) / float64(len(values))
}

// IsDescriptionColumn scores how description-like a column's sample values
// are: bounded length, contains a letter, not purely numeric, and not
// recognizable as a date or an amount.
func IsDescriptionColumn(values []string) float64 {
	if len(values) == 0 {
		return 0
	}
	matched := 0
	for _, raw := range values {
		v := cleanValue(raw)
		if len(v) < 2 || len(v) > 200 {
			continue
		}
		if !letterRe.MatchString(v) || numericRe.MatchString(v) {
			continue
		}
		if matchDateValue(v) != "" || matchAmountValue(v) {
			continue
		}
		matched++
	}
	return float64(matched) / float64(len(values))
}

// balanceScore is the fixed confidence for the balance heuristic.
const balanceScore = 0.7

// IsBalanceColumn applies the running-balance heuristic: all values numeric,
// average magnitude above 1000, and at least 80% non-negative. Balance
// columns are identified so they are excluded from field assignment, not
// imported as transaction amounts.
func IsBalanceColumn(values []string) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	nonNegative, parsed := 0, 0
	for _, raw := range values {
		f, ok := parseNumeric(cleanValue(raw))
		if !ok {
			return 0
		}
		parsed++
		if f >= 0 {
			nonNegative++
		}
		if f < 0 {
			f = -f
		}
		sum += f
	}
	if parsed == 0 {
		return 0
	}
	avg := sum / float64(parsed)
	if avg > 1000 && float64(nonNegative)/float64(parsed) >= 0.8 {
		return balanceScore
	}
	return 0
}

// parseNumeric parses a cell as a float after stripping currency noise.
// Parenthesized values parse as negative.
func parseNumeric(v string) (float64, bool) {
	if v == "" {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		negative = true
		v = v[1 : len(v)-1]
	}
	v = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(v)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

// DetectDateFormat infers the dominant format label over date-like values,
// using the same pattern table as IsDateColumn.
func DetectDateFormat(values []string) string {
	_, format := IsDateColumn(values)
	return format
}

// DateLayout returns the Go time layout for a format label produced by
// IsDateColumn. The "auto" label has no single layout and returns false.
func DateLayout(label string) (string, bool) {
	for _, p := range datePatterns {
		if p.label == label {
			return p.layout, true
		}
	}
	return "", false
}

// GenericDateLayouts returns the layouts tried by the parseability fallback,
// for callers that need to parse "auto"-format values.
func GenericDateLayouts() []string {
	layouts := make([]string, 0, len(genericDateLayouts)+len(datePatterns))
	for _, p := range datePatterns {
		layouts = append(layouts, p.layout)
	}
	return append(layouts, genericDateLayouts...)
}
