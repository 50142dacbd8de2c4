package template

import (
	"context"
	"strings"
	"testing"

	"github.com/dvloznov/statement-pipeline/internal/model"
)

func TestCreateFromAI(t *testing.T) {
	rec := &model.StatementRecord{
		BankName:        "Acme Bank",
		AccountNumber:   "1234-5678",
		StatementPeriod: "01/01/2024 - 01/31/2024",
		Transactions: []model.Transaction{
			{Date: "2024-01-15", Description: "STARBUCKS COFFEE", Amount: 5.75, Type: model.TypeDebit, Currency: "USD", Category: "Food & Dining"},
			{Date: "2024-01-10", Description: "PAYROLL ACME CORP", Amount: 2500.00, Type: model.TypeCredit, Currency: "USD", Category: "Income"},
			{Date: "2024-01-11", Description: "MYSTERY CHARGE", Amount: 9.99, Type: model.TypeDebit, Currency: "USD", Category: "Other"},
		},
	}
	raw := "Acme Bank\nAccount Number: 1234-5678\n01/15/2024 STARBUCKS COFFEE $5.75\n"

	store := &stubStore{}
	c := newTestCatalogue(t, store)

	tpl, err := c.CreateFromAI(context.Background(), rec, raw, "user-42")
	if err != nil {
		t.Fatalf("CreateFromAI() error = %v", err)
	}

	if tpl.ID == "" {
		t.Error("template has no id")
	}
	if tpl.BankName != "Acme Bank" || tpl.Name != "Acme Bank statement" {
		t.Errorf("bank/name = %q/%q", tpl.BankName, tpl.Name)
	}
	if tpl.Metadata.AvgAccuracy != 0.85 {
		t.Errorf("avg accuracy = %v, want seed 0.85", tpl.Metadata.AvgAccuracy)
	}
	if tpl.UsageCount != 1 {
		t.Errorf("usage count = %d, want 1", tpl.UsageCount)
	}
	if tpl.IsVerified {
		t.Error("new template must start unverified")
	}
	if tpl.CreatedBy != "user-42" {
		t.Errorf("created by = %q", tpl.CreatedBy)
	}
	if tpl.Metadata.Currency != "USD" {
		t.Errorf("currency = %q, want USD", tpl.Metadata.Currency)
	}
	if tpl.Metadata.Region != "US" {
		t.Errorf("region = %q, want US", tpl.Metadata.Region)
	}

	// Learned date formats cover what the raw text actually shows.
	joined := strings.Join(tpl.Parsing.DateFormats, " ")
	if !strings.Contains(joined, `\d{1,2}/\d{1,2}/\d{4}`) {
		t.Errorf("date formats %v missing slash format", tpl.Parsing.DateFormats)
	}

	// Category mappings come from categorized transactions only.
	if got := tpl.AIInstructions.CategoryMappings["STARBUCKS"]; got != "Food & Dining" {
		t.Errorf("mapping STARBUCKS = %q, want Food & Dining", got)
	}
	if got := tpl.AIInstructions.CategoryMappings["PAYROLL"]; got != "Income" {
		t.Errorf("mapping PAYROLL = %q, want Income", got)
	}
	if _, ok := tpl.AIInstructions.CategoryMappings["MYSTERY"]; ok {
		t.Error("uncategorized transactions must not contribute mappings")
	}

	// The template is registered and persisted.
	if c.Len() != 1 {
		t.Errorf("catalogue len = %d, want 1", c.Len())
	}
	if len(store.templates) != 1 {
		t.Errorf("store rows = %d, want 1", len(store.templates))
	}
}

func TestCreateFromAI_EmptyStatement(t *testing.T) {
	c := newTestCatalogue(t, &stubStore{})

	if _, err := c.CreateFromAI(context.Background(), &model.StatementRecord{}, "text", "u"); err == nil {
		t.Error("empty statement should not produce a template")
	}
	if _, err := c.CreateFromAI(context.Background(), nil, "text", "u"); err == nil {
		t.Error("nil statement should not produce a template")
	}
}

func TestCreateFromAI_UnobservedFormatsNotClaimed(t *testing.T) {
	rec := &model.StatementRecord{
		BankName: "Acme Bank",
		Transactions: []model.Transaction{
			{Date: "2024-01-15", Description: "COFFEE", Amount: 5.75, Type: model.TypeDebit},
		},
	}
	c := newTestCatalogue(t, &stubStore{})

	tpl, err := c.CreateFromAI(context.Background(), rec, "nothing here resembles a date or an amount", "u")
	if err != nil {
		t.Fatalf("CreateFromAI() error = %v", err)
	}

	// A learned template only claims formats its source document exhibited.
	if len(tpl.Parsing.DateFormats) != 0 {
		t.Errorf("date formats = %v, want none", tpl.Parsing.DateFormats)
	}
	if len(tpl.Parsing.AmountPatterns) != 0 {
		t.Errorf("amount patterns = %v, want none", tpl.Parsing.AmountPatterns)
	}
	if len(tpl.Parsing.BalancePatterns) != 0 {
		t.Errorf("balance patterns = %v, want none", tpl.Parsing.BalancePatterns)
	}
}

func TestRegionForCurrency(t *testing.T) {
	tests := []struct {
		currency string
		want     string
	}{
		{"USD", "US"},
		{"GBP", "GB"},
		{"EUR", "EU"},
		{model.UnknownCurrency, ""},
	}
	for _, tt := range tests {
		if got := regionForCurrency(tt.currency); got != tt.want {
			t.Errorf("regionForCurrency(%q) = %q, want %q", tt.currency, got, tt.want)
		}
	}
}

func TestWildcardDigits(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"12345678", `\d{8}`},
		{"1234-5678", `\d{4}-\d{4}`},
		{"GB12 3456 78", `GB\d{2} \d{4} \d{2}`},
		{model.UnknownAccount, ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := wildcardDigits(tt.input); got != tt.want {
			t.Errorf("wildcardDigits(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSampleSnippets_Anonymized(t *testing.T) {
	raw := "Account Number: 12345678\nCard 4111 1111 1111 1111\n01/15/2024 COFFEE 5.75\n"

	snippets := sampleSnippets(raw)

	if len(snippets) != 3 {
		t.Fatalf("got %d snippets, want 3", len(snippets))
	}
	for _, s := range snippets {
		if strings.Contains(s, "12345678") || strings.Contains(s, "4111") {
			t.Errorf("snippet leaks digits: %q", s)
		}
	}
	if snippets[0] != "Account Number: ####" {
		t.Errorf("snippet = %q, want redacted account line", snippets[0])
	}
}

func TestSampleSnippets_AccountLikeTokensRedacted(t *testing.T) {
	raw := "Sort Code: 12-34-56 IBAN GB29NWBK\nAccount Ref: AB12CD34\n01/15/2024 COFFEE 5.75\n"

	snippets := sampleSnippets(raw)

	if len(snippets) != 3 {
		t.Fatalf("got %d snippets, want 3", len(snippets))
	}
	for _, leak := range []string{"12-34-56", "GB29NWBK", "AB12CD34"} {
		for _, s := range snippets {
			if strings.Contains(s, leak) {
				t.Errorf("snippet leaks %q: %q", leak, s)
			}
		}
	}
	if snippets[0] != "Sort Code: #### IBAN ####" {
		t.Errorf("snippet = %q, want sort code and IBAN redacted", snippets[0])
	}
	if snippets[1] != "Account Ref: ####" {
		t.Errorf("snippet = %q, want account reference redacted", snippets[1])
	}
}
