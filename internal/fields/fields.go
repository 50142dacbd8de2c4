// Package fields contains pure-function extractors for statement metadata:
// statement period, opening/closing balances, account numbers, bank names,
// currency, plus date normalization and the offline keyword categorizer.
package fields

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/statement-pipeline/internal/model"
)

// dateToken matches the date spellings that show up in statement headers:
// 03/15/2024, 15-03-2024, Jan 15, 2024, 15 Jan 2024.
const dateToken = `(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|[A-Za-z]{3,9}\.?\s+\d{1,2},?\s+\d{4}|\d{1,2}\s+[A-Za-z]{3,9}\.?,?\s*\d{2,4})`

// Labeled patterns are tried before generic ones; the first match wins.
var periodPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)statement\s+period[:\s]+(` + dateToken + `)\s*(?:to|through|thru|[-\x{2013}])\s*(` + dateToken + `)`),
	regexp.MustCompile(`(?i)(?:for\s+the\s+period|billing\s+period|period)[:\s]+(` + dateToken + `)\s*(?:to|through|[-\x{2013}])\s*(` + dateToken + `)`),
	regexp.MustCompile(`(?i)from\s+(` + dateToken + `)\s+(?:to|through)\s+(` + dateToken + `)`),
	regexp.MustCompile(`(` + dateToken + `)\s*(?:to|[-\x{2013}])\s*(` + dateToken + `)`),
}

var singleDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)statement\s+date[:\s]+(` + dateToken + `)`),
	regexp.MustCompile(`(?i)as\s+of[:\s]+(` + dateToken + `)`),
}

// StatementPeriod extracts the statement period from raw text as
// "start - end" or "start". It returns model.UnknownPeriod when no pattern
// matches.
func StatementPeriod(text string) string {
	for _, re := range periodPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]) + " - " + strings.TrimSpace(m[2])
		}
	}
	for _, re := range singleDatePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return model.UnknownPeriod
}

const numberToken = `(-?[$£€]?\s?-?[\d,]+(?:\.\d{1,2})?)`

var openingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)opening\s+balance[^\d\-]{0,12}` + numberToken),
	regexp.MustCompile(`(?i)beginning\s+balance[^\d\-]{0,12}` + numberToken),
	regexp.MustCompile(`(?i)balance\s+brought\s+forward[^\d\-]{0,12}` + numberToken),
	regexp.MustCompile(`(?i)previous\s+balance[^\d\-]{0,12}` + numberToken),
	regexp.MustCompile(`(?i)start\s+balance[^\d\-]{0,12}` + numberToken),
}

var closingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)closing\s+balance[^\d\-]{0,12}` + numberToken),
	regexp.MustCompile(`(?i)ending\s+balance[^\d\-]{0,12}` + numberToken),
	regexp.MustCompile(`(?i)balance\s+carried\s+forward[^\d\-]{0,12}` + numberToken),
	regexp.MustCompile(`(?i)new\s+balance[^\d\-]{0,12}` + numberToken),
	regexp.MustCompile(`(?i)end\s+balance[^\d\-]{0,12}` + numberToken),
}

// Balances extracts the opening and closing balances independently. Either
// pointer may be nil; absence is distinct from a zero balance.
func Balances(text string) (opening, closing *float64) {
	opening = firstNumber(text, openingPatterns)
	closing = firstNumber(text, closingPatterns)
	return opening, closing
}

func firstNumber(text string, patterns []*regexp.Regexp) *float64 {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := CleanAmount(m[1])
		if err != nil {
			continue
		}
		return &v
	}
	return nil
}

// CleanAmount strips currency symbols, thousands separators and parentheses
// from an amount string and parses it as a float. Parenthesized amounts are
// negative, following the accounting convention.
func CleanAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	for _, sym := range []string{"£", "$", "€", ",", " ", " "} {
		s = strings.ReplaceAll(s, sym, "")
	}
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if negative {
		v = -v
	}
	return v, nil
}

// dateLayouts are tried in order by NormalizeDate. ISO layouts come first so
// already-normalized input round-trips unchanged.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"02 January 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"Jan 02, 2006",
	"January 2, 2006",
	"02-Jan-2006",
	"2-Jan-2006",
}

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsISODate reports whether s is a normalized "YYYY-MM-DD" date. Callers use
// it to detect dates that NormalizeDate could not parse.
func IsISODate(s string) bool {
	if !isoDatePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// NormalizeDate converts a raw date token to ISO "YYYY-MM-DD". It first
// tries the known layouts; failing that it splits on "/" or "-" and assumes
// month/day/year ordering with a two-digit year pivot (<50 means 2000s).
// When nothing parses, the input is returned unchanged so the degradation is
// detectable rather than silent.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return raw
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}

	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return raw
	}
	month, err1 := strconv.Atoi(parts[0])
	day, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return raw
	}
	// A four-digit leading part means year-first ordering.
	if len(parts[0]) == 4 {
		year, month, day = month, day, year
	}
	if year < 100 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1900 || year > 2200 {
		return raw
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

var currencyCodePattern = regexp.MustCompile(`\b(GBP|USD|EUR|CAD|AUD|CHF|JPY|INR|NZD)\b`)

// Currency detects the statement currency from explicit codes or symbols,
// returning model.UnknownCurrency when nothing is found.
func Currency(text string) string {
	if m := currencyCodePattern.FindString(text); m != "" {
		return m
	}
	switch {
	case strings.Contains(text, "£"):
		return "GBP"
	case strings.Contains(text, "€"):
		return "EUR"
	case strings.Contains(text, "$"):
		return "USD"
	}
	return model.UnknownCurrency
}

var accountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)account\s+(?:number|no\.?)[:#\s]*((?:[\dXx*][\d\sXx*-]{4,18})?\d)`),
	regexp.MustCompile(`(?i)a/c\s*(?:no\.?)?[:\s]*(\d[\d\s-]{5,18}\d)`),
	regexp.MustCompile(`(?i)account[:\s]+(\d{6,18})`),
	regexp.MustCompile(`\b(\d{8})\b`),
}

// AccountNumber extracts the account number, preferring labeled forms over a
// bare 8-digit run. Masked forms like "****1234" are kept as-is.
func AccountNumber(text string) string {
	for _, re := range accountPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return model.UnknownAccount
}

// knownBanks maps lowercase identifiers to canonical bank names. Checked in
// order so multi-word names win over substrings of each other.
var knownBanks = []struct {
	needle string
	name   string
}{
	{"bank of america", "Bank of America"},
	{"wells fargo", "Wells Fargo"},
	{"metro bank", "Metro Bank"},
	{"capital one", "Capital One"},
	{"jpmorgan chase", "Chase"},
	{"chase", "Chase"},
	{"barclays", "Barclays"},
	{"hsbc", "HSBC"},
	{"lloyds", "Lloyds"},
	{"natwest", "NatWest"},
	{"santander", "Santander"},
	{"citibank", "Citibank"},
	{"monzo", "Monzo"},
	{"starling", "Starling"},
	{"revolut", "Revolut"},
	{"halifax", "Halifax"},
	{"nationwide", "Nationwide"},
	{"td bank", "TD Bank"},
	{"us bank", "U.S. Bank"},
}

var genericBankPattern = regexp.MustCompile(`(?m)^\s*([A-Z][A-Za-z&.\s]{2,40}\s(?:Bank|BANK|Credit Union))\b`)

// BankName detects the issuing bank from the statement text. Unrecognized
// banks fall back to a generic "<Something> Bank" header match, then to
// model.UnknownBank.
func BankName(text string) string {
	lower := strings.ToLower(text)
	for _, b := range knownBanks {
		if strings.Contains(lower, b.needle) {
			return b.name
		}
	}
	if m := genericBankPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return model.UnknownBank
}
