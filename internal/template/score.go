package template

import (
	"regexp"
	"strings"

	"github.com/dvloznov/statement-pipeline/internal/model"
)

// minScore is the match threshold below which a template is not trusted
// for a document.
const minScore = 0.3

// Signal weights, out of 100.
const (
	weightBank     = 30
	weightAccount  = 20
	weightDate     = 25
	weightKeywords = 25
	weightOneSide  = 15
)

// FindBestTemplate scores every registered template against the document
// text and returns a copy of the best match, or nil when no template scores
// at least minScore. Equal scores resolve to the earliest-registered
// template, so repeated runs over the same catalogue pick the same winner.
func (c *Catalogue) FindBestTemplate(text string) *model.Template {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var best *model.Template
	bestScore := 0.0
	for _, id := range c.order {
		t := c.templates[id]
		if s := Score(t, text); s > bestScore {
			best, bestScore = t, s
		}
	}
	if best == nil || bestScore < minScore {
		return nil
	}
	cp := *best
	return &cp
}

// Score rates how well a template fits a document, in [0,1]. Four signals
// contribute: the bank name appearing in the text, the account number
// pattern matching, any known date format matching, and coverage of the
// credit/debit keyword vocabularies.
func Score(t *model.Template, text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0

	if t.BankName != "" && t.BankName != model.UnknownBank &&
		strings.Contains(lower, strings.ToLower(t.BankName)) {
		score += weightBank
	}

	if p := t.Parsing.AccountNumberPattern; p != "" {
		if re, err := regexp.Compile(p); err == nil && re.MatchString(text) {
			score += weightAccount
		}
	}

	for _, p := range t.Parsing.DateFormats {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			score += weightDate
			break
		}
	}

	credit := anyKeyword(lower, t.Parsing.CreditKeywords)
	debit := anyKeyword(lower, t.Parsing.DebitKeywords)
	switch {
	case credit && debit:
		score += weightKeywords
	case credit || debit:
		score += weightOneSide
	}

	return score / 100
}

func anyKeyword(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
