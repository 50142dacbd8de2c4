// Package export renders a normalized statement as an xlsx workbook.
package export

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/statement-pipeline/internal/model"
)

const (
	transactionsSheet = "Transactions"
	summarySheet      = "Summary"
)

// ExportOptions tunes the workbook layout.
type ExportOptions struct {
	// GroupByCategory orders the transaction sheet by category instead of
	// date, with a blank spacer row between groups.
	GroupByCategory bool
	// IncludeSummary adds a per-category totals sheet.
	IncludeSummary bool
}

var transactionHeader = []string{"Date", "Description", "Amount", "Type", "Currency", "Category", "Balance"}

// WriteXLSX builds a workbook from a parsed statement. The caller owns the
// returned file and is responsible for saving or streaming it.
func WriteXLSX(rec *model.StatementRecord, opts ExportOptions) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return nil, fmt.Errorf("WriteXLSX: renaming sheet: %w", err)
	}

	if err := writeTransactions(f, rec, opts); err != nil {
		return nil, err
	}
	if opts.IncludeSummary {
		if err := writeSummary(f, rec); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeTransactions(f *excelize.File, rec *model.StatementRecord, opts ExportOptions) error {
	rows := [][]interface{}{
		{"Bank", rec.BankName},
		{"Account", rec.AccountNumber},
		{"Period", rec.StatementPeriod},
	}
	if rec.OpeningBalance != nil {
		rows = append(rows, []interface{}{"Opening Balance", *rec.OpeningBalance})
	}
	if rec.ClosingBalance != nil {
		rows = append(rows, []interface{}{"Closing Balance", *rec.ClosingBalance})
	}
	rows = append(rows, nil, toAny(transactionHeader))

	if opts.GroupByCategory {
		for _, group := range groupByCategory(rec.Transactions) {
			for _, tx := range group {
				rows = append(rows, transactionRow(tx))
			}
			rows = append(rows, nil)
		}
	} else {
		for _, tx := range rec.Transactions {
			rows = append(rows, transactionRow(tx))
		}
	}

	for i, row := range rows {
		if row == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("WriteXLSX: row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(transactionsSheet, cell, &row); err != nil {
			return fmt.Errorf("WriteXLSX: writing row %d: %w", i+1, err)
		}
	}
	return f.SetColWidth(transactionsSheet, "B", "B", 40)
}

// writeSummary adds per-category debit and credit totals. Sums run through
// decimal so a long statement does not accumulate float drift.
func writeSummary(f *excelize.File, rec *model.StatementRecord) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("WriteXLSX: creating summary sheet: %w", err)
	}

	type totals struct {
		debit  decimal.Decimal
		credit decimal.Decimal
	}
	byCategory := make(map[string]*totals)
	var order []string
	for _, tx := range rec.Transactions {
		t, ok := byCategory[tx.Category]
		if !ok {
			t = &totals{}
			byCategory[tx.Category] = t
			order = append(order, tx.Category)
		}
		amount := decimal.NewFromFloat(tx.Amount)
		if tx.Type == model.TypeDebit {
			t.debit = t.debit.Add(amount)
		} else {
			t.credit = t.credit.Add(amount)
		}
	}

	rows := [][]interface{}{{"Category", "Debits", "Credits"}}
	grand := totals{}
	for _, cat := range order {
		t := byCategory[cat]
		rows = append(rows, []interface{}{cat, t.debit.InexactFloat64(), t.credit.InexactFloat64()})
		grand.debit = grand.debit.Add(t.debit)
		grand.credit = grand.credit.Add(t.credit)
	}
	rows = append(rows, []interface{}{"Total", grand.debit.InexactFloat64(), grand.credit.InexactFloat64()})

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("WriteXLSX: summary row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("WriteXLSX: writing summary row %d: %w", i+1, err)
		}
	}
	return nil
}

func transactionRow(tx model.Transaction) []interface{} {
	row := []interface{}{tx.Date, tx.Description, tx.Amount, string(tx.Type), tx.Currency, tx.Category}
	if tx.Balance != nil {
		row = append(row, *tx.Balance)
	}
	return row
}

// groupByCategory buckets transactions by category, preserving the date
// order inside each bucket and first-seen order across buckets.
func groupByCategory(txs []model.Transaction) [][]model.Transaction {
	index := make(map[string]int)
	var groups [][]model.Transaction
	for _, tx := range txs {
		i, ok := index[tx.Category]
		if !ok {
			i = len(groups)
			index[tx.Category] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], tx)
	}
	return groups
}

func toAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
