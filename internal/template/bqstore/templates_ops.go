package bqstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/statement-pipeline/internal/model"
	"github.com/dvloznov/statement-pipeline/internal/template"
)

// Store is a BigQuery-backed template store.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewStore creates a store with its own BigQuery client. Close releases it.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: bigquery client: %w", err)
	}
	return NewStoreWithClient(client, projectID, datasetID), nil
}

// NewStoreWithClient creates a store using the provided BigQuery client.
func NewStoreWithClient(client *bigquery.Client, projectID, datasetID string) *Store {
	return &Store{client: client, projectID: projectID, datasetID: datasetID}
}

// Close releases the underlying BigQuery client.
func (s *Store) Close() error {
	return s.client.Close()
}

// LoadAll retrieves every stored template, oldest first so the catalogue's
// registration order matches creation order.
func (s *Store) LoadAll(ctx context.Context) ([]model.Template, error) {
	query := fmt.Sprintf(`
		SELECT
			template_id,
			bank_name,
			name,
			version,
			payload,
			avg_accuracy,
			usage_count,
			is_verified,
			created_date,
			created_ts,
			updated_ts,
			created_by
		FROM `+"`%s.%s.templates`"+`
		ORDER BY created_ts
	`, s.projectID, s.datasetID)

	q := s.client.Query(query)
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("LoadAll: reading query: %w", err)
	}

	var templates []model.Template
	for {
		var row TemplateRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("LoadAll: iterating: %w", err)
		}
		t, err := templateFromRow(&row)
		if err != nil {
			return nil, fmt.Errorf("LoadAll: %w", err)
		}
		templates = append(templates, t)
	}

	return templates, nil
}

// Save inserts a new template row.
func (s *Store) Save(ctx context.Context, t *model.Template) error {
	row, err := rowFromTemplate(t)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	inserter := s.client.DatasetInProject(s.projectID, s.datasetID).Table(templatesTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("Save: inserting row: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns of an existing template row.
func (s *Store) Update(ctx context.Context, t *model.Template) error {
	row, err := rowFromTemplate(t)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE `+"`%s.%s.templates`"+`
		SET
			payload = @payload,
			avg_accuracy = @avg_accuracy,
			usage_count = @usage_count,
			is_verified = @is_verified,
			updated_ts = @updated_ts
		WHERE template_id = @template_id
	`, s.projectID, s.datasetID)

	q := s.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "payload", Value: row.Payload},
		{Name: "avg_accuracy", Value: row.AvgAccuracy},
		{Name: "usage_count", Value: row.UsageCount},
		{Name: "is_verified", Value: row.IsVerified},
		{Name: "updated_ts", Value: row.UpdatedTS},
		{Name: "template_id", Value: row.TemplateID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("Update: running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("Update: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("Update: job failed: %w", err)
	}
	return nil
}

// Ensure Store implements the template store interface.
var _ template.Store = (*Store)(nil)
