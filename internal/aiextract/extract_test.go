package aiextract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dvloznov/statement-pipeline/internal/model"
)

// mockClient implements Client with a canned function.
type mockClient struct {
	fn func(prompt string) (string, error)
}

func (m *mockClient) Complete(_ context.Context, prompt string) (string, error) {
	return m.fn(prompt)
}

func fixed(response string) *mockClient {
	return &mockClient{fn: func(string) (string, error) { return response, nil }}
}

var testCategories = []string{"Income", "Food & Dining", "Other"}

const statementJSON = `{
	"bank_name": "Acme Bank",
	"account_number": "12345678",
	"statement_period": "01/01/2024 - 01/31/2024",
	"opening_balance": 1250.00,
	"closing_balance": 980.45,
	"transactions": [
		{"date": "2024-01-15", "description": "STARBUCKS COFFEE", "amount": 5.75, "type": "debit", "currency": "USD", "category": "Food & Dining", "balance": 1244.25},
		{"date": "2024-01-10", "description": "PAYROLL", "amount": 2500.00, "type": "credit", "currency": "USD", "category": "Income", "balance": null}
	]
}`

func TestExtractStatement_FencedJSON(t *testing.T) {
	client := fixed("Here is the parsed result:\n```json\n" + statementJSON + "\n```\nLet me know if you need more.")

	rec, err := ExtractStatement(context.Background(), client, "raw text", testCategories)
	if err != nil {
		t.Fatalf("ExtractStatement() error = %v", err)
	}

	if rec.BankName != "Acme Bank" {
		t.Errorf("bank = %q, want Acme Bank", rec.BankName)
	}
	if rec.OpeningBalance == nil || *rec.OpeningBalance != 1250.00 {
		t.Errorf("opening balance = %v, want 1250.00", rec.OpeningBalance)
	}
	if len(rec.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(rec.Transactions))
	}
	// Sorted ascending by date: payroll (Jan 10) first.
	if rec.Transactions[0].Description != "PAYROLL" {
		t.Errorf("first transaction = %q, want PAYROLL", rec.Transactions[0].Description)
	}
	if rec.Transactions[1].Balance == nil || *rec.Transactions[1].Balance != 1244.25 {
		t.Errorf("balance = %v, want 1244.25", rec.Transactions[1].Balance)
	}
	if rec.Transactions[0].Balance != nil {
		t.Errorf("null balance should map to nil, got %v", *rec.Transactions[0].Balance)
	}
}

func TestExtractStatement_RawJSON(t *testing.T) {
	rec, err := ExtractStatement(context.Background(), fixed(statementJSON), "raw text", testCategories)
	if err != nil {
		t.Fatalf("ExtractStatement() error = %v", err)
	}
	if len(rec.Transactions) != 2 {
		t.Errorf("got %d transactions, want 2", len(rec.Transactions))
	}
}

func TestExtractStatement_ProseResponse(t *testing.T) {
	client := fixed("I am sorry, I could not find any transactions in this document.")

	_, err := ExtractStatement(context.Background(), client, "raw text", testCategories)
	if !errors.Is(err, model.ErrAIResponseInvalid) {
		t.Errorf("error = %v, want ErrAIResponseInvalid", err)
	}
}

func TestExtractStatement_MissingTransactionsKey(t *testing.T) {
	_, err := ExtractStatement(context.Background(), fixed(`{"bank_name": "Acme"}`), "raw text", testCategories)
	if !errors.Is(err, model.ErrAIResponseInvalid) {
		t.Errorf("error = %v, want ErrAIResponseInvalid", err)
	}
}

func TestExtractStatement_TransportFailure(t *testing.T) {
	client := &mockClient{fn: func(string) (string, error) {
		return "", fmt.Errorf("quota exceeded")
	}}

	_, err := ExtractStatement(context.Background(), client, "raw text", testCategories)
	if !errors.Is(err, model.ErrAICall) {
		t.Errorf("error = %v, want ErrAICall", err)
	}
}

func TestExtractStatement_InvalidTypeFallsBackToSign(t *testing.T) {
	payload := `{"transactions": [
		{"date": "2024-01-15", "description": "MYSTERY", "amount": -10.00, "type": "payment"},
		{"date": "2024-01-16", "description": "MYSTERY IN", "amount": 10.00, "type": "PAYMENT"}
	]}`

	rec, err := ExtractStatement(context.Background(), fixed(payload), "raw text", testCategories)
	if err != nil {
		t.Fatalf("ExtractStatement() error = %v", err)
	}
	if len(rec.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(rec.Transactions))
	}
	if rec.Transactions[0].Type != model.TypeDebit {
		t.Errorf("negative amount with bad type = %q, want debit", rec.Transactions[0].Type)
	}
	if rec.Transactions[0].Amount != 10.00 {
		t.Errorf("amount = %v, want positive magnitude 10.00", rec.Transactions[0].Amount)
	}
	if rec.Transactions[1].Type != model.TypeCredit {
		t.Errorf("positive amount with bad type = %q, want credit", rec.Transactions[1].Type)
	}
}

func TestExtractStatement_SkipsMalformedElements(t *testing.T) {
	payload := `{"transactions": [
		{"date": "2024-01-15", "description": "GOOD", "amount": 5.00, "type": "debit"},
		{"description": "NO DATE", "amount": 5.00},
		"not even an object"
	]}`

	rec, err := ExtractStatement(context.Background(), fixed(payload), "raw text", testCategories)
	if err != nil {
		t.Fatalf("ExtractStatement() error = %v", err)
	}
	if len(rec.Transactions) != 1 || rec.Transactions[0].Description != "GOOD" {
		t.Errorf("malformed elements should be skipped, got %v", rec.Transactions)
	}
}

func TestClampConfidence(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name  string
		input *float64
		want  *float64
	}{
		{"nil stays nil", nil, nil},
		{"in range", f(0.7), f(0.7)},
		{"above one", f(3.5), f(1)},
		{"below zero", f(-0.2), f(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampConfidence(tt.input)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %v, want nil", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("got %v, want %v", got, *tt.want)
			}
		})
	}
}

func TestJSONBody(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"fenced with language", "prefix\n```json\n{\"a\":1}\n```\nsuffix", `{"a":1}`},
		{"fenced bare", "```\n[1,2]\n```", "[1,2]"},
		{"no fence", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jsonBody(tt.input); got != tt.want {
				t.Errorf("jsonBody() = %q, want %q", got, tt.want)
			}
		})
	}
}
