package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/BerylCAtieno/argus/internal/models"
)

const (
	DocumentTypeInvoice  = "invoice"
	DocumentTypeContract = "contract"
	DocumentTypeUnknown  = "unknown"
)

var (
	reTotal         = regexp.MustCompile(`(?i)\b(?:grand\s+total|total\s+due|amount\s+due|balance\s+due|total)\b[^\d$\n]{0,20}\$?\s*(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`)
	reDate          = regexp.MustCompile(`\b(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}[/-]\d{1,2}[/-]\d{1,2})\b`)
	reVendor        = regexp.MustCompile(`(?i:\b(?:bill(?:ed)?\s+from|sold\s+by|vendor|seller|supplier|from))[ \t]*(?::[ \t]*|[ \t]+)([A-Z][A-Za-z0-9&.,'-]*(?:[ \t]+[A-Z][A-Za-z0-9&.,'-]*)*)`)
	reInvoiceNumber = regexp.MustCompile(`(?i)\binvoice\s*(?:#|no\.?|number|num\.?|id)?\s*[:#]?\s*([A-Za-z0-9-]*\d[A-Za-z0-9-]*)`)
	reEmail         = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	reDigit         = regexp.MustCompile(`\d`)
	reCurrency      = regexp.MustCompile(`\$|USD|EUR|GBP`)
)

// TextStatistics are computed for every heuristic run, even on empty text.
type TextStatistics struct {
	WordCount   int  `json:"wordCount"`
	CharCount   int  `json:"charCount"`
	HasNumbers  bool `json:"hasNumbers"`
	HasCurrency bool `json:"hasCurrency"`
}

// HeuristicResult is the best-effort output of ExtractHeuristically.
type HeuristicResult struct {
	Fields       map[string]any
	DocumentType string
	Confidence   float64
	Statistics   TextStatistics
}

// ExtractHeuristically runs the regex field patterns and the keyword
// classifier over text. It never fails; missing fields are simply absent.
func ExtractHeuristically(text, datasetID string) HeuristicResult {
	fields := make(map[string]any)

	if m := reTotal.FindStringSubmatch(text); m != nil {
		fields["total"] = "$" + strings.ReplaceAll(m[1], ",", "")
	}

	// Dates are lexical matches only; no calendar validation.
	if dates := reDate.FindAllString(text, -1); len(dates) > 0 {
		fields["date"] = dates[0]
		if len(dates) > 1 {
			rest := dates[1:]
			if len(rest) > 2 {
				rest = rest[:2]
			}
			fields["additionalDates"] = append([]string(nil), rest...)
		}
	}

	if m := reVendor.FindStringSubmatch(text); m != nil {
		if v := strings.TrimRight(strings.TrimSpace(m[1]), ".,"); v != "" {
			fields["vendor"] = v
		}
	}

	if m := reInvoiceNumber.FindStringSubmatch(text); m != nil {
		fields["invoiceNumber"] = m[1]
	}

	if email := reEmail.FindString(text); email != "" {
		fields["email"] = email
	}

	docType, conf := classify(text, datasetID)

	return HeuristicResult{
		Fields:       fields,
		DocumentType: docType,
		Confidence:   conf,
		Statistics: TextStatistics{
			WordCount:   len(strings.Fields(text)),
			CharCount:   utf8.RuneCountInString(text),
			HasNumbers:  reDigit.MatchString(text),
			HasCurrency: reCurrency.MatchString(text),
		},
	}
}

func classify(text, datasetID string) (string, float64) {
	lower := strings.ToLower(text)
	switch {
	case datasetID == models.DatasetInvoice || strings.Contains(lower, "invoice"):
		return DocumentTypeInvoice, 0.8
	case datasetID == models.DatasetContract || strings.Contains(lower, "contract") || strings.Contains(lower, "agreement"):
		return DocumentTypeContract, 0.75
	default:
		return DocumentTypeUnknown, 0.5
	}
}

// AsFields flattens the result into the envelope's extractedFields shape.
func (r HeuristicResult) AsFields() map[string]any {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["documentType"] = r.DocumentType
	out["statistics"] = r.Statistics
	return out
}
