package analyzer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// ErrEmptyInput is returned when a file has no rows to analyze.
var ErrEmptyInput = errors.New("no rows to analyze")

// Thresholds holds the tuned decision constants. The values are empirical;
// override via config rather than editing code.
type Thresholds struct {
	// AutoAccept is the per-field confidence bar for skipping manual mapping.
	AutoAccept float64
	// Assignment is the minimum confidence for a file-level best match.
	Assignment float64
	// Unknown is the floor below which a column's type is forced to unknown.
	Unknown float64
	// DebitCreditHeader gates debit/credit candidates on header evidence.
	DebitCreditHeader float64
	// ContentDecisive and ContentStrong bound the blend-weight bands.
	ContentDecisive float64
	ContentStrong   float64
}

// DefaultThresholds returns the tuned values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AutoAccept:        0.85,
		Assignment:        0.5,
		Unknown:           0.3,
		DebitCreditHeader: 0.5,
		ContentDecisive:   0.9,
		ContentStrong:     0.7,
	}
}

// Blend weight bands, keyed by how decisive the content signal is.
const (
	headerWeightDecisive = 0.2
	headerWeightStrong   = 0.3
	headerWeightWeak     = 0.6
)

// SampleSize bounds how many non-empty values per column feed the content
// matchers.
const SampleSize = 10

// sampleValuesShown caps the sample values carried on a ColumnAnalysis.
const sampleValuesShown = 3

// Analyzer classifies the columns of a tokenized bank export.
type Analyzer struct {
	thresholds Thresholds
}

// New creates an Analyzer.
func New(thresholds Thresholds) *Analyzer {
	return &Analyzer{thresholds: thresholds}
}

// Analyze classifies every column and picks file-level best matches.
// The input is the full tokenized file including any header row.
func (a *Analyzer) Analyze(rows [][]string) (model.AnalysisResult, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return model.AnalysisResult{}, ErrEmptyInput
	}

	hasHeaders := detectHeaders(rows)
	numCols := len(rows[0])

	result := model.AnalysisResult{
		HasHeaders:  hasHeaders,
		DateCol:     -1,
		AmountCol:   -1,
		DescCol:     -1,
		DebitCol:    -1,
		CreditCol:   -1,
		Fingerprint: Fingerprint(rows),
	}

	for col := 0; col < numCols; col++ {
		header := ""
		if hasHeaders {
			header = cellAt(rows[0], col)
		}
		values := sampleColumn(rows, col, hasHeaders)
		result.Columns = append(result.Columns, a.analyzeColumn(col, header, values, hasHeaders))
	}

	a.assignFields(&result)

	if result.DateCol >= 0 {
		result.DateFormat = DetectDateFormat(sampleColumn(rows, result.DateCol, hasHeaders))
	}
	return result, nil
}

// analyzeColumn blends header and content evidence into one classification.
func (a *Analyzer) analyzeColumn(col int, header string, values []string, hasHeaders bool) model.ColumnAnalysis {
	headerName := header
	if headerName == "" {
		headerName = fmt.Sprintf("Column %d", col+1)
	}

	contentScores := map[model.FieldType]float64{}
	dateScore, _ := IsDateColumn(values)
	contentScores[model.FieldDate] = dateScore
	contentScores[model.FieldAmount] = IsAmountColumn(values)
	contentScores[model.FieldDescription] = IsDescriptionColumn(values)
	contentScores[model.FieldBalance] = IsBalanceColumn(values)
	// Debit and credit columns look exactly like amount columns; only the
	// header can tell them apart.
	contentScores[model.FieldDebit] = contentScores[model.FieldAmount]
	contentScores[model.FieldCredit] = contentScores[model.FieldAmount]

	headerScores := map[model.FieldType]float64{}
	if hasHeaders {
		for ft := range headerSynonyms {
			headerScores[ft] = FuzzyMatchHeader(header, ft)
		}
	}

	maxContent := 0.0
	for _, s := range contentScores {
		if s > maxContent {
			maxContent = s
		}
	}
	headerWeight, contentWeight := a.blendWeights(hasHeaders, maxContent)

	// Suppress the debit/credit split unless the header unambiguously
	// separates them; otherwise a single signed amount column wins.
	dcHeader := headerScores[model.FieldDebit]
	if headerScores[model.FieldCredit] > dcHeader {
		dcHeader = headerScores[model.FieldCredit]
	}
	if dcHeader <= a.thresholds.DebitCreditHeader {
		contentScores[model.FieldDebit] = 0
		contentScores[model.FieldCredit] = 0
		headerScores[model.FieldDebit] = 0
		headerScores[model.FieldCredit] = 0
	}

	// A running balance looks exactly like an amount column and its content
	// score is capped below a clean amount match, so a strong balance header
	// arbitrates: knock out the amount candidates so the column is excluded
	// from field assignment instead of being imported as amounts.
	if contentScores[model.FieldBalance] > 0 && headerScores[model.FieldBalance] > a.thresholds.DebitCreditHeader {
		contentScores[model.FieldAmount] = 0
		headerScores[model.FieldAmount] = 0
		contentScores[model.FieldDebit] = 0
		headerScores[model.FieldDebit] = 0
		contentScores[model.FieldCredit] = 0
		headerScores[model.FieldCredit] = 0
	}

	best := model.FieldUnknown
	bestScore := 0.0
	candidates := []model.FieldType{
		model.FieldDate, model.FieldAmount, model.FieldDescription,
		model.FieldDebit, model.FieldCredit, model.FieldBalance,
	}
	for _, ft := range candidates {
		combined := headerScores[ft]*headerWeight + contentScores[ft]*contentWeight
		if combined > bestScore {
			best, bestScore = ft, combined
		}
	}
	if bestScore <= a.thresholds.Unknown {
		best = model.FieldUnknown
	}

	method := model.DetectionHeader
	switch {
	case !hasHeaders || headerScores[best] <= 0.5:
		method = model.DetectionContent
	case bestScore > 0.7:
		method = model.DetectionHybrid
	}

	samples := values
	if len(samples) > sampleValuesShown {
		samples = samples[:sampleValuesShown]
	}

	return model.ColumnAnalysis{
		ColumnIndex:     col,
		HeaderName:      headerName,
		FieldType:       best,
		Confidence:      clamp01(bestScore),
		SampleValues:    samples,
		DetectionMethod: method,
	}
}

// blendWeights picks the header/content weighting by how decisive the
// content signal is.
func (a *Analyzer) blendWeights(hasHeaders bool, maxContent float64) (headerW, contentW float64) {
	switch {
	case !hasHeaders:
		return 0, 1
	case maxContent >= a.thresholds.ContentDecisive:
		return headerWeightDecisive, 1 - headerWeightDecisive
	case maxContent >= a.thresholds.ContentStrong:
		return headerWeightStrong, 1 - headerWeightStrong
	default:
		return headerWeightWeak, 1 - headerWeightWeak
	}
}

// assignFields picks, per assignable field, the highest-confidence column
// classified as that field, requiring confidence above the assignment bar.
func (a *Analyzer) assignFields(result *model.AnalysisResult) {
	for _, ft := range model.AssignableFields {
		bestCol, bestConf := -1, a.thresholds.Assignment
		for _, col := range result.Columns {
			if col.FieldType == ft && col.Confidence > bestConf {
				bestCol, bestConf = col.ColumnIndex, col.Confidence
			}
		}
		switch ft {
		case model.FieldDate:
			result.DateCol = bestCol
		case model.FieldAmount:
			result.AmountCol = bestCol
		case model.FieldDescription:
			result.DescCol = bestCol
		case model.FieldDebit:
			result.DebitCol = bestCol
		case model.FieldCredit:
			result.CreditCol = bestCol
		}
	}
}

// AutoAccept reports whether the layout may be imported without manual
// mapping: date, amount (or a debit/credit leg), and description all matched
// with each winning column at or above the auto-accept bar.
func (a *Analyzer) AutoAccept(result model.AnalysisResult) bool {
	amountCol := result.AmountCol
	if amountCol < 0 {
		if result.DebitCol >= 0 {
			amountCol = result.DebitCol
		} else {
			amountCol = result.CreditCol
		}
	}
	for _, col := range []int{result.DateCol, amountCol, result.DescCol} {
		if col < 0 || result.Columns[col].Confidence < a.thresholds.AutoAccept {
			return false
		}
	}
	return true
}

// Mapping converts an analysis result into a resolved column mapping.
func Mapping(result model.AnalysisResult) model.ColumnMapping {
	return model.ColumnMapping{
		DateCol:    result.DateCol,
		AmountCol:  result.AmountCol,
		DescCol:    result.DescCol,
		DebitCol:   result.DebitCol,
		CreditCol:  result.CreditCol,
		DateFormat: result.DateFormat,
		HasHeaders: result.HasHeaders,
	}
}

// detectHeaders decides whether row 0 is a header row: with at least two
// rows, row 0 is a header only if row 1 has strictly more numeric cells.
// Single-row files are assumed to have headers.
func detectHeaders(rows [][]string) bool {
	if len(rows) < 2 {
		return true
	}
	first, second := numericCells(rows[0]), numericCells(rows[1])
	if second > first {
		return true
	}
	// Neither row carries numbers: keep the headers-present default. When
	// both rows are equally numeric, no row is "more numeric" and the file
	// is treated as having no header.
	return first == 0 && second == 0
}

// numericCells counts the cells in a row that parse as numbers after
// stripping currency formatting.
func numericCells(row []string) int {
	n := 0
	for _, cell := range row {
		if _, ok := parseNumeric(cleanValue(cell)); ok {
			n++
		}
	}
	return n
}

// Fingerprint derives a stable identifier for a file's column structure from
// the literal first row, independent of header detection: lowercase-trimmed
// cells joined and run through a 31-polynomial rolling hash truncated to
// signed 32 bits, formatted as "{column count}-{abs hash in hex}".
func Fingerprint(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	cells := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		cells[i] = strings.ToLower(strings.TrimSpace(cell))
	}
	joined := strings.Join(cells, "|")

	var hash int32
	for _, r := range joined {
		hash = hash*31 + int32(r)
	}
	if hash < 0 {
		hash = -hash
	}
	return fmt.Sprintf("%d-%x", len(rows[0]), hash)
}

// sampleColumn returns up to SampleSize non-empty values from a column,
// skipping the header row when present.
func sampleColumn(rows [][]string, col int, hasHeaders bool) []string {
	start := 0
	if hasHeaders {
		start = 1
	}
	var values []string
	for _, row := range rows[start:] {
		v := cleanValue(cellAt(row, col))
		if v == "" {
			continue
		}
		values = append(values, v)
		if len(values) >= SampleSize {
			break
		}
	}
	return values
}

// cellAt tolerates ragged rows.
func cellAt(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return row[col]
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
