// Package bqstore persists templates in BigQuery. Each template is one row
// in the templates table: hot query columns (bank, accuracy, usage) are
// broken out, the full nested document travels as a JSON payload column.
package bqstore

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/statement-pipeline/internal/model"
)

const templatesTable = "templates"

type TemplateRow struct {
	TemplateID string `bigquery:"template_id"` // REQUIRED
	BankName   string `bigquery:"bank_name"`   // REQUIRED
	Name       string `bigquery:"name"`        // NULLABLE
	Version    string `bigquery:"version"`     // NULLABLE

	Payload string `bigquery:"payload"` // REQUIRED, full template as JSON

	AvgAccuracy float64 `bigquery:"avg_accuracy"` // REQUIRED
	UsageCount  int64   `bigquery:"usage_count"`  // REQUIRED
	IsVerified  bool    `bigquery:"is_verified"`  // REQUIRED

	CreatedDate civil.Date `bigquery:"created_date"` // REQUIRED, partition column
	CreatedTS   time.Time  `bigquery:"created_ts"`   // REQUIRED
	UpdatedTS   time.Time  `bigquery:"updated_ts"`   // REQUIRED
	CreatedBy   string     `bigquery:"created_by"`   // NULLABLE
}

func rowFromTemplate(t *model.Template) (*TemplateRow, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding template %s: %w", t.ID, err)
	}
	return &TemplateRow{
		TemplateID:  t.ID,
		BankName:    t.BankName,
		Name:        t.Name,
		Version:     t.Version,
		Payload:     string(payload),
		AvgAccuracy: t.Metadata.AvgAccuracy,
		UsageCount:  int64(t.UsageCount),
		IsVerified:  t.IsVerified,
		CreatedDate: civil.DateOf(t.CreatedAt),
		CreatedTS:   t.CreatedAt,
		UpdatedTS:   t.UpdatedAt,
		CreatedBy:   t.CreatedBy,
	}, nil
}

// templateFromRow decodes the JSON payload back into a template. The broken
// out columns win over the payload for the mutable metrics fields, since
// updates touch only those columns.
func templateFromRow(row *TemplateRow) (model.Template, error) {
	var t model.Template
	if err := json.Unmarshal([]byte(row.Payload), &t); err != nil {
		return model.Template{}, fmt.Errorf("decoding template %s: %w", row.TemplateID, err)
	}
	t.ID = row.TemplateID
	t.Metadata.AvgAccuracy = row.AvgAccuracy
	t.UsageCount = int(row.UsageCount)
	t.IsVerified = row.IsVerified
	return t, nil
}
