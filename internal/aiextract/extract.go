package aiextract

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/dvloznov/statement-pipeline/internal/fields"
	"github.com/dvloznov/statement-pipeline/internal/model"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractStatement runs one whole-document extraction: a single completion
// call whose response must be the full structured payload. An unparseable
// response is a hard failure (model.ErrAIResponseInvalid); no partial record
// is fabricated from it. Transport failures surface as model.ErrAICall.
func ExtractStatement(ctx context.Context, c Client, text string, categories []string) (*model.StatementRecord, error) {
	raw, err := c.Complete(ctx, statementPrompt(text, categories))
	if err != nil {
		return nil, fmt.Errorf("ExtractStatement: %w: %v", model.ErrAICall, err)
	}

	payload, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("ExtractStatement: %w: %v", model.ErrAIResponseInvalid, err)
	}

	rec := model.NewStatementRecord()
	if v := optString(payload, "bank_name"); v != "" {
		rec.BankName = v
	}
	if v := optString(payload, "account_number"); v != "" {
		rec.AccountNumber = v
	}
	if v := optString(payload, "statement_period"); v != "" {
		rec.StatementPeriod = v
	}
	rec.OpeningBalance = optFloat(payload, "opening_balance")
	rec.ClosingBalance = optFloat(payload, "closing_balance")

	txsAny, ok := payload["transactions"]
	if !ok {
		return nil, fmt.Errorf("ExtractStatement: %w: payload missing 'transactions'", model.ErrAIResponseInvalid)
	}
	items, ok := txsAny.([]interface{})
	if !ok {
		return nil, fmt.Errorf("ExtractStatement: %w: 'transactions' is %T, want array", model.ErrAIResponseInvalid, txsAny)
	}

	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		tx, ok := mapTransaction(obj)
		if !ok {
			// One malformed element does not abort the document.
			continue
		}
		rec.Transactions = append(rec.Transactions, tx)
	}

	sort.SliceStable(rec.Transactions, func(i, j int) bool {
		return rec.Transactions[i].Date < rec.Transactions[j].Date
	})
	return rec, nil
}

// mapTransaction converts one payload element into a Transaction. Elements
// missing a date, description or amount are dropped.
func mapTransaction(obj map[string]interface{}) (model.Transaction, bool) {
	date := optString(obj, "date")
	desc := strings.TrimSpace(optString(obj, "description"))
	amountPtr := optFloat(obj, "amount")
	if date == "" || desc == "" || amountPtr == nil {
		return model.Transaction{}, false
	}

	signed := *amountPtr
	txType := model.TransactionType(strings.ToLower(optString(obj, "type")))
	if !txType.Valid() {
		// The declared direction is untrustworthy; fall back to the sign.
		txType = model.TypeCredit
		if signed < 0 {
			txType = model.TypeDebit
		}
	}

	currency := optString(obj, "currency")
	if currency == "" {
		currency = model.UnknownCurrency
	}
	category := optString(obj, "category")
	if category == "" {
		category = fields.DefaultCategory
	}

	return model.Transaction{
		Date:        fields.NormalizeDate(date),
		Description: desc,
		Amount:      math.Abs(signed),
		Type:        txType,
		Currency:    currency,
		Category:    category,
		Confidence:  clampConfidence(optFloat(obj, "confidence")),
		Balance:     optFloat(obj, "balance"),
	}, true
}

// decodeObject parses a completion into a JSON object: a fenced block when
// present, otherwise the entire response body.
func decodeObject(raw string) (map[string]interface{}, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(jsonBody(raw)), &payload); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	return payload, nil
}

// decodeStrings parses a completion into a JSON string array.
func decodeStrings(raw string) ([]string, error) {
	var items []string
	if err := json.Unmarshal([]byte(jsonBody(raw)), &items); err != nil {
		return nil, fmt.Errorf("decode string array: %w", err)
	}
	return items, nil
}

// jsonBody returns the fenced JSON block when the response contains one,
// otherwise the trimmed response itself.
func jsonBody(raw string) string {
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

// clampConfidence bounds a confidence value to [0,1]. Non-finite values are
// dropped rather than propagated.
func clampConfidence(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return &f
}

func optString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func optFloat(m map[string]interface{}, key string) *float64 {
	switch v := m[key].(type) {
	case float64:
		f := v
		return &f
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}
