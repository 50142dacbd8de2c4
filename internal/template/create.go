package template

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-pipeline/internal/fields"
	"github.com/dvloznov/statement-pipeline/internal/model"
)

// dateFormatCandidates are the regexes a new template may learn as its date
// formats. Each one is kept only when the raw statement text actually
// contains a match.
var dateFormatCandidates = []string{
	`\d{4}-\d{2}-\d{2}`,
	`\d{1,2}/\d{1,2}/\d{4}`,
	`\d{1,2}/\d{1,2}/\d{2}`,
	`\d{1,2}-\d{1,2}-\d{4}`,
	`\d{1,2} (?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{4}`,
}

// The plain numeric form comes first: it is the one compiled into the line
// pattern, and it matches the amount column whether or not the statement
// prints currency symbols next to it.
var amountPatternCandidates = []string{
	`-?[\d,]+\.\d{2}`,
	`[$£€]\s?[\d,]+\.\d{2}`,
	`\([\d,]+\.\d{2}\)`,
}

var balancePatternCandidates = []string{
	`(?i)(?:opening|beginning)\s+balance[:\s]+[$£€]?\s?-?[\d,]+\.\d{2}`,
	`(?i)(?:closing|ending)\s+balance[:\s]+[$£€]?\s?-?[\d,]+\.\d{2}`,
	`(?i)balance\s+(?:forward|brought\s+forward)[:\s]+[$£€]?\s?-?[\d,]+\.\d{2}`,
}

var defaultCreditKeywords = []string{"deposit", "credit", "refund", "interest paid", "payment received"}
var defaultDebitKeywords = []string{"withdrawal", "debit", "purchase", "payment", "card fee"}

var (
	digitRun = regexp.MustCompile(`\d{4,}`)
	// Sort-code style sequences: three or more short digit groups joined by
	// dashes or spaces, individually too short for digitRun to catch.
	groupedDigits = regexp.MustCompile(`\b\d{2}(?:[- ]\d{2}){2,}\b`)
	// Mixed letter/digit identifiers such as IBAN prefixes and account
	// references.
	accountToken = regexp.MustCompile(`\b(?:[A-Z]+\d|\d+[A-Z])[A-Z0-9]{2,}\b`)
)

// CreateFromAI turns a successful AI extraction into a reusable template for
// the statement's bank and registers it. The new template starts unverified
// with a single usage and an assumed accuracy of 0.85; real accuracy
// observations correct that estimate over subsequent uses.
func (c *Catalogue) CreateFromAI(ctx context.Context, rec *model.StatementRecord, rawText, userID string) (*model.Template, error) {
	if rec == nil || len(rec.Transactions) == 0 {
		return nil, fmt.Errorf("CreateFromAI: empty statement, nothing to learn")
	}

	now := time.Now().UTC()
	currency := statementCurrency(rec, rawText)
	t := &model.Template{
		ID:       uuid.NewString(),
		BankName: rec.BankName,
		Name:     templateName(rec.BankName),
		Version:  "1.0",
		Parsing: model.TemplateParsing{
			DateFormats:            matchingPatterns(dateFormatCandidates, rawText),
			AmountPatterns:         matchingPatterns(amountPatternCandidates, rawText),
			DescriptionPatterns:    []string{`[A-Za-z][A-Za-z0-9 &.'\-/*]+`},
			BalancePatterns:        matchingPatterns(balancePatternCandidates, rawText),
			AccountNumberPattern:   wildcardDigits(rec.AccountNumber),
			StatementPeriodPattern: `\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\s*(?:-|to|through)\s*\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`,
			CreditKeywords:         defaultCreditKeywords,
			DebitKeywords:          defaultDebitKeywords,
		},
		AIInstructions: model.TemplateAI{
			ExtractionPrompt: extractionPrompt(rec.BankName),
			ValidationRules: []string{
				"dates are ISO YYYY-MM-DD",
				"amounts are non-negative magnitudes with direction in type",
				"transactions are sorted by date ascending",
			},
			CategoryMappings: categoryMappings(rec.Transactions),
		},
		Metadata: model.TemplateMetadata{
			SupportedFormats: []string{"pdf"},
			Language:         "en",
			Region:           regionForCurrency(currency),
			Currency:         currency,
			AvgAccuracy:      0.85,
			SampleSnippets:   sampleSnippets(rawText),
		},
		UsageCount: 1,
		IsVerified: false,
		CreatedAt:  now,
		UpdatedAt:  now,
		CreatedBy:  userID,
	}

	c.Add(ctx, t)
	return t, nil
}

func templateName(bank string) string {
	if bank == "" || bank == model.UnknownBank {
		return "Unrecognized bank statement"
	}
	return bank + " statement"
}

func extractionPrompt(bank string) string {
	name := bank
	if name == "" || name == model.UnknownBank {
		name = "this bank"
	}
	return "Extract all transactions from a " + name + " statement. " +
		"Return the statement metadata and every transaction with its date, " +
		"description, amount, direction and running balance where shown."
}

// matchingPatterns keeps only the candidates that actually occur in text. A
// template never claims a format its source document did not exhibit; an
// empty list is rejected later when the template's patterns are compiled,
// which routes the document back to AI extraction.
func matchingPatterns(candidates []string, text string) []string {
	var out []string
	for _, p := range candidates {
		if regexp.MustCompile(p).MatchString(text) {
			out = append(out, p)
		}
	}
	return out
}

// wildcardDigits generalizes a concrete account number into a regex with
// the same shape: digit runs become \d{n}, everything else is quoted. The
// original digits never end up in the template.
func wildcardDigits(account string) string {
	if account == "" || account == model.UnknownAccount {
		return ""
	}
	var b strings.Builder
	run := 0
	flush := func() {
		if run > 0 {
			fmt.Fprintf(&b, `\d{%d}`, run)
			run = 0
		}
	}
	for _, r := range account {
		if r >= '0' && r <= '9' {
			run++
			continue
		}
		flush()
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	flush()
	return b.String()
}

// categoryMappings learns a description-prefix to category map from the
// categorized transactions. Only the first word of the description is kept;
// uncategorized entries contribute nothing.
func categoryMappings(txs []model.Transaction) map[string]string {
	m := make(map[string]string)
	for _, tx := range txs {
		if tx.Category == "" || tx.Category == fields.DefaultCategory {
			continue
		}
		prefix, _, _ := strings.Cut(strings.TrimSpace(tx.Description), " ")
		if prefix == "" {
			continue
		}
		if _, seen := m[prefix]; !seen {
			m[prefix] = tx.Category
		}
	}
	return m
}

// regionForCurrency maps the detected statement currency to the region code
// stored in template metadata. An unknown currency leaves the region empty.
func regionForCurrency(currency string) string {
	switch currency {
	case "USD":
		return "US"
	case "GBP":
		return "GB"
	case "EUR":
		return "EU"
	case "CAD":
		return "CA"
	case "AUD":
		return "AU"
	case "CHF":
		return "CH"
	case "JPY":
		return "JP"
	case "INR":
		return "IN"
	case "NZD":
		return "NZ"
	default:
		return ""
	}
}

func statementCurrency(rec *model.StatementRecord, rawText string) string {
	for _, tx := range rec.Transactions {
		if tx.Currency != "" && tx.Currency != model.UnknownCurrency {
			return tx.Currency
		}
	}
	return fields.Currency(rawText)
}

// sampleSnippets keeps a few anonymized lines of the source text as layout
// examples. Long digit runs, grouped short digit sequences such as sort
// codes, and alphanumeric account-like tokens are all redacted before
// storage.
func sampleSnippets(rawText string) []string {
	var out []string
	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, redactLine(line))
		if len(out) == 3 {
			break
		}
	}
	return out
}

func redactLine(line string) string {
	line = accountToken.ReplaceAllString(line, "####")
	line = groupedDigits.ReplaceAllString(line, "####")
	return digitRun.ReplaceAllString(line, "####")
}
