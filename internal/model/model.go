package model

import (
	"time"
)

// Sentinel values used when statement metadata cannot be detected.
const (
	UnknownBank     = "Unknown"
	UnknownAccount  = "Unknown"
	UnknownPeriod   = "Unknown Period"
	UnknownCurrency = "Unknown"
)

// TransactionType is the direction of a financial movement.
type TransactionType string

const (
	TypeDebit  TransactionType = "debit"
	TypeCredit TransactionType = "credit"
)

// Valid reports whether t is one of the two allowed directions.
func (t TransactionType) Valid() bool {
	return t == TypeDebit || t == TypeCredit
}

// Transaction represents one normalized financial movement.
//
// Date holds an ISO "YYYY-MM-DD" string when normalization succeeded; when
// the source date could not be parsed it holds the original token unchanged,
// which callers can detect with fields.IsISODate. Amount is always a
// non-negative magnitude; direction is carried by Type and is derived from
// the sign or column of the raw source amount, never from the description.
type Transaction struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Confidence  *float64        `json:"confidence,omitempty"` // set only by the AI categorization path
	Balance     *float64        `json:"balance,omitempty"`    // running balance when the source carries it
}

// StatementRecord is one fully parsed statement document.
//
// Transactions is never nil; an empty slice is a valid outcome that signals
// total extraction failure, distinguishable from an error.
type StatementRecord struct {
	BankName        string        `json:"bankName"`
	AccountNumber   string        `json:"accountNumber"`
	StatementPeriod string        `json:"statementPeriod"`
	Transactions    []Transaction `json:"transactions"`
	OpeningBalance  *float64      `json:"openingBalance,omitempty"`
	ClosingBalance  *float64      `json:"closingBalance,omitempty"`
}

// NewStatementRecord returns a record with all metadata set to the Unknown
// sentinels and an empty (non-nil) transaction list.
func NewStatementRecord() *StatementRecord {
	return &StatementRecord{
		BankName:        UnknownBank,
		AccountNumber:   UnknownAccount,
		StatementPeriod: UnknownPeriod,
		Transactions:    []Transaction{},
	}
}

// TemplateParsing holds the regex-level parsing recipe of a template.
// Pattern fields contain regular expressions, not Go time layouts.
type TemplateParsing struct {
	DateFormats            []string `json:"dateFormats"`
	AmountPatterns         []string `json:"amountPatterns"`
	DescriptionPatterns    []string `json:"descriptionPatterns"`
	BalancePatterns        []string `json:"balancePatterns"`
	AccountNumberPattern   string   `json:"accountNumberPattern"`
	StatementPeriodPattern string   `json:"statementPeriodPattern"`
	CreditKeywords         []string `json:"creditKeywords"`
	DebitKeywords          []string `json:"debitKeywords"`
}

// TemplateAI holds the AI-side instructions learned for a bank.
type TemplateAI struct {
	ExtractionPrompt string            `json:"extractionPrompt"`
	ValidationRules  []string          `json:"validationRules"`
	CategoryMappings map[string]string `json:"categoryMappings"` // description prefix -> category
}

// TemplateMetadata carries descriptive and quality metadata for a template.
//
// AvgAccuracy is a running weighted mean over UsageCount samples: each new
// observation a updates it as (avg*(n-1) + a) / n after n is incremented.
type TemplateMetadata struct {
	SupportedFormats []string `json:"supportedFormats"`
	Language         string   `json:"language"`
	Region           string   `json:"region"`
	Currency         string   `json:"currency"`
	AvgAccuracy      float64  `json:"avgAccuracy"`
	SampleSnippets   []string `json:"sampleSnippets"` // anonymized, never raw statement text
}

// Template is a reusable per-bank extraction recipe. Templates are owned by
// the template catalogue; IsVerified transitions false->true once
// UsageCount >= 10 and AvgAccuracy >= 0.9, and never reverts.
type Template struct {
	ID             string           `json:"id"`
	BankName       string           `json:"bankName"`
	Name           string           `json:"name"`
	Version        string           `json:"version"`
	Parsing        TemplateParsing  `json:"parsing"`
	AIInstructions TemplateAI       `json:"aiInstructions"`
	Metadata       TemplateMetadata `json:"metadata"`
	UsageCount     int              `json:"usageCount"`
	IsVerified     bool             `json:"isVerified"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	CreatedBy      string           `json:"createdBy"`
}
