// Package recognizer turns raw statement text lines into candidate
// transactions via pattern matching. It knows nothing about templates or AI;
// callers hand it a PatternSet and a categorization function.
package recognizer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dvloznov/statement-pipeline/internal/model"
)

// PatternSet is one bank's line-parsing recipe. The generic entry is just
// another row in the table; there is no special-cased control flow per bank.
type PatternSet struct {
	ID       string
	BankName string

	// Line captures a whole single-line transaction with named groups
	// "date", "desc", "amount" and optional "balance".
	Line *regexp.Regexp

	// DateToken matches a bare date at the start of a line; AmountToken
	// matches amount-like tokens anywhere. Both drive the windowed strategy.
	DateToken   *regexp.Regexp
	AmountToken *regexp.Regexp
}

const (
	amountExpr = `\(?-?[$£€]?\s?-?[\d,]+\.\d{2}\)?`
	dateExpr   = `\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`
)

var defaultAmountToken = regexp.MustCompile(amountExpr)

// patternSets is the data-driven per-bank table. Lookup falls back to the
// "generic" row for unknown banks.
var patternSets = map[string]*PatternSet{
	"generic": {
		ID:          "generic",
		BankName:    "",
		Line:        regexp.MustCompile(`^\s*(?P<date>` + dateExpr + `)\s+(?P<desc>.*?)\s+(?P<amount>` + amountExpr + `)(?:\s+(?P<balance>` + amountExpr + `))?\s*$`),
		DateToken:   regexp.MustCompile(`^\s*(` + dateExpr + `|\d{1,2}\s+[A-Za-z]{3,9}\.?(?:\s+\d{2,4})?|[A-Za-z]{3,9}\s+\d{1,2},?\s+\d{4})\b`),
		AmountToken: defaultAmountToken,
	},
	"chase": {
		ID:          "chase",
		BankName:    "Chase",
		Line:        regexp.MustCompile(`^\s*(?P<date>\d{2}/\d{2}(?:/\d{2,4})?)\s+(?P<desc>.*?)\s+(?P<amount>-?[\d,]+\.\d{2})(?:\s+(?P<balance>-?[\d,]+\.\d{2}))?\s*$`),
		DateToken:   regexp.MustCompile(`^\s*(\d{2}/\d{2}(?:/\d{2,4})?)\b`),
		AmountToken: defaultAmountToken,
	},
	"barclays": {
		ID:          "barclays",
		BankName:    "Barclays",
		Line:        regexp.MustCompile(`^\s*(?P<date>\d{1,2}\s+[A-Za-z]{3}(?:\s+\d{4})?)\s+(?P<desc>.*?)\s+(?P<amount>` + amountExpr + `)(?:\s+(?P<balance>` + amountExpr + `))?\s*$`),
		DateToken:   regexp.MustCompile(`^\s*(\d{1,2}\s+[A-Za-z]{3}(?:\s+\d{4})?)\b`),
		AmountToken: defaultAmountToken,
	},
}

// ForBank returns the pattern set for a bank id, falling back to generic.
func ForBank(id string) *PatternSet {
	if set, ok := patternSets[strings.ToLower(id)]; ok {
		return set
	}
	return patternSets["generic"]
}

// Generic returns the fallback pattern set.
func Generic() *PatternSet {
	return patternSets["generic"]
}

// FromTemplate compiles a template's parsing block into a PatternSet. An
// invalid pattern in the template is a template parse failure, not a crash.
func FromTemplate(t *model.Template) (*PatternSet, error) {
	dateFormats := t.Parsing.DateFormats
	if len(dateFormats) == 0 {
		return nil, fmt.Errorf("FromTemplate: template %s has no date formats: %w", t.ID, model.ErrTemplateParse)
	}

	amountPattern := amountExpr
	if len(t.Parsing.AmountPatterns) > 0 {
		amountPattern = t.Parsing.AmountPatterns[0]
	}

	dateAlt := "(?:" + strings.Join(dateFormats, "|") + ")"
	lineExpr := `^\s*(?P<date>` + dateAlt + `)\s+(?P<desc>.*?)\s+(?P<amount>` + amountPattern + `)(?:\s+(?P<balance>` + amountPattern + `))?\s*$`

	line, err := regexp.Compile(lineExpr)
	if err != nil {
		return nil, fmt.Errorf("FromTemplate: compiling line pattern for template %s: %v: %w", t.ID, err, model.ErrTemplateParse)
	}
	dateToken, err := regexp.Compile(`^\s*(` + dateAlt + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("FromTemplate: compiling date token for template %s: %v: %w", t.ID, err, model.ErrTemplateParse)
	}
	amountToken, err := regexp.Compile(amountPattern)
	if err != nil {
		return nil, fmt.Errorf("FromTemplate: compiling amount token for template %s: %v: %w", t.ID, err, model.ErrTemplateParse)
	}

	return &PatternSet{
		ID:          "template:" + t.ID,
		BankName:    t.BankName,
		Line:        line,
		DateToken:   dateToken,
		AmountToken: amountToken,
	}, nil
}
