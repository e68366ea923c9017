package analyzer

import (
	"strings"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// headerSynonyms lists known header vocabulary per field type, including
// common multilingual variants seen in real bank exports.
var headerSynonyms = map[model.FieldType][]string{
	model.FieldDate: {
		"date", "transaction date", "trans date", "posting date", "post date",
		"value date", "booking date", "datum", "fecha", "data", "dato",
	},
	model.FieldAmount: {
		"amount", "transaction amount", "value", "sum", "total",
		"betrag", "montant", "importe", "importo", "bedrag",
	},
	model.FieldDescription: {
		"description", "desc", "details", "memo", "narrative", "reference",
		"payee", "merchant", "transaction details", "particulars",
		"beschreibung", "libelle", "concepto", "omschrijving",
	},
	model.FieldDebit: {
		"debit", "debit amount", "withdrawal", "withdrawals", "money out",
		"paid out", "soll", "debito", "af",
	},
	model.FieldCredit: {
		"credit", "credit amount", "deposit", "deposits", "money in",
		"paid in", "haben", "credito", "bij",
	},
	model.FieldBalance: {
		"balance", "running balance", "closing balance", "available balance",
		"saldo", "solde",
	},
}

// Edit-distance score bands for near-miss headers.
const (
	substringScore = 0.85
	distNearScore  = 0.7
	distMidScore   = 0.5
	distFarScore   = 0.3
)

// FuzzyMatchHeader scores how well a raw header matches a field type's
// synonym vocabulary: exact 1.0, substring 0.85, otherwise banded by the
// minimum edit distance to any synonym.
func FuzzyMatchHeader(header string, field model.FieldType) float64 {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return 0
	}
	synonyms := headerSynonyms[field]
	if len(synonyms) == 0 {
		return 0
	}

	minDist := -1
	for _, syn := range synonyms {
		if h == syn {
			return 1.0
		}
		if strings.Contains(h, syn) || strings.Contains(syn, h) {
			return substringScore
		}
		if d := editDistance(h, syn); minDist < 0 || d < minDist {
			minDist = d
		}
	}

	switch {
	case minDist <= 2:
		return distNearScore
	case minDist <= 4:
		return distMidScore
	case minDist <= 6:
		return distFarScore
	default:
		score := 1 - float64(minDist)/10
		if score < 0 {
			return 0
		}
		return score
	}
}

// editDistance computes the Levenshtein distance between two strings.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
