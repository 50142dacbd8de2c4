package recognizer

import (
	"math"
	"sort"
	"strings"

	"github.com/dvloznov/statement-pipeline/internal/fields"
	"github.com/dvloznov/statement-pipeline/internal/model"
)

// lookahead is how many lines past a bare date the windowed strategy scans
// for an amount.
const lookahead = 2

// Recognize converts raw statement text into transactions. The line-pattern
// strategy runs first; the windowed strategy runs only when it yields
// nothing for the whole document. Malformed rows are skipped, never fatal,
// and an empty result is a valid outcome.
//
// The returned list is sorted by normalized date ascending; equal dates keep
// their recognition order.
func Recognize(text string, set *PatternSet, categorize func(string) string) []model.Transaction {
	lines := strings.Split(text, "\n")

	txs := recognizeLines(lines, set, categorize)
	if len(txs) == 0 {
		txs = recognizeWindowed(lines, set, categorize)
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date < txs[j].Date
	})
	return txs
}

// recognizeLines is the primary strategy: one transaction per line matching
// the composite pattern {date, description, amount, optional balance}.
func recognizeLines(lines []string, set *PatternSet, categorize func(string) string) []model.Transaction {
	dateIdx := set.Line.SubexpIndex("date")
	descIdx := set.Line.SubexpIndex("desc")
	amountIdx := set.Line.SubexpIndex("amount")
	balanceIdx := set.Line.SubexpIndex("balance")

	var txs []model.Transaction
	for _, line := range lines {
		m := set.Line.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		dateStr := strings.TrimSpace(m[dateIdx])
		desc := strings.TrimSpace(m[descIdx])
		amountStr := strings.TrimSpace(m[amountIdx])
		if dateStr == "" || desc == "" || amountStr == "" {
			continue
		}

		signed, err := fields.CleanAmount(amountStr)
		if err != nil {
			continue
		}

		tx := buildTransaction(dateStr, desc, signed, line, categorize)
		if balanceIdx >= 0 && m[balanceIdx] != "" {
			if b, err := fields.CleanAmount(m[balanceIdx]); err == nil {
				tx.Balance = &b
			}
		}
		txs = append(txs, tx)
	}
	return txs
}

// recognizeWindowed is the fallback strategy for statements that split one
// transaction across lines: a bare date line followed within two lines by an
// amount line, with description text accumulating in between.
func recognizeWindowed(lines []string, set *PatternSet, categorize func(string) string) []model.Transaction {
	var txs []model.Transaction

	for i := 0; i < len(lines); i++ {
		dm := set.DateToken.FindStringSubmatch(lines[i])
		if dm == nil {
			continue
		}
		dateStr := strings.TrimSpace(dm[1])

		var descParts []string
		var signed float64
		var balance *float64
		var amountLine string
		found := false
		consumed := i

		for j := i; j <= i+lookahead && j < len(lines); j++ {
			l := lines[j]
			if j == i {
				l = strings.Replace(l, dm[1], "", 1)
			}

			toks := set.AmountToken.FindAllString(l, -1)
			if len(toks) == 0 {
				// No amount yet: the stripped text extends the description.
				if s := strings.TrimSpace(l); s != "" {
					descParts = append(descParts, s)
				}
				continue
			}

			v, err := fields.CleanAmount(toks[0])
			if err != nil {
				break
			}
			signed = v
			if len(toks) > 1 {
				if b, err := fields.CleanAmount(toks[1]); err == nil {
					balance = &b
				}
			}

			stripped := l
			for _, tk := range toks {
				stripped = strings.Replace(stripped, tk, "", 1)
			}
			if s := strings.TrimSpace(stripped); s != "" {
				descParts = append(descParts, s)
			}

			amountLine = lines[j]
			found = true
			consumed = j
			break
		}

		if !found {
			continue
		}

		desc := strings.TrimSpace(strings.Join(descParts, " "))
		if desc == "" || signed == 0 || math.IsNaN(signed) {
			continue
		}

		txs = append(txs, buildTransactionWithBalance(dateStr, desc, signed, amountLine, balance, categorize))
		i = consumed
	}
	return txs
}

func buildTransaction(dateStr, desc string, signed float64, sourceLine string, categorize func(string) string) model.Transaction {
	return buildTransactionWithBalance(dateStr, desc, signed, sourceLine, nil, categorize)
}

func buildTransactionWithBalance(dateStr, desc string, signed float64, sourceLine string, balance *float64, categorize func(string) string) model.Transaction {
	txType := model.TypeCredit
	if signed < 0 {
		txType = model.TypeDebit
	}

	return model.Transaction{
		Date:        fields.NormalizeDate(dateStr),
		Description: desc,
		Amount:      math.Abs(signed),
		Type:        txType,
		Currency:    fields.Currency(sourceLine),
		Category:    categorize(desc),
		Balance:     balance,
	}
}
