package aiextract

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-pipeline/internal/model"
)

// categorizeWorkers bounds the per-transaction categorization fan-out.
const categorizeWorkers = 4

// CategorizeAll asks the model for a category and confidence per
// transaction. Calls are issued concurrently and joined before returning;
// each call fails independently, in which case that transaction gets the
// fallback category and no confidence. The input slice is not mutated; a new
// slice is returned.
func CategorizeAll(ctx context.Context, c Client, txs []model.Transaction, categories []string, fallback func(string) string, log zerolog.Logger) []model.Transaction {
	out := make([]model.Transaction, len(txs))
	copy(out, txs)

	sem := make(chan struct{}, categorizeWorkers)
	var wg sync.WaitGroup

	for i := range out {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			category, confidence, err := categorizeOne(ctx, c, out[i].Description, categories)
			if err != nil {
				log.Warn().
					Err(err).
					Str("description", out[i].Description).
					Msg("AI categorization failed, keeping heuristic category")
				out[i].Category = fallback(out[i].Description)
				out[i].Confidence = nil
				return
			}
			out[i].Category = category
			out[i].Confidence = confidence
		}(i)
	}

	wg.Wait()
	return out
}

func categorizeOne(ctx context.Context, c Client, description string, categories []string) (string, *float64, error) {
	raw, err := c.Complete(ctx, categoryPrompt(description, categories))
	if err != nil {
		return "", nil, fmt.Errorf("categorizeOne: %w: %v", model.ErrAICall, err)
	}

	payload, err := decodeObject(raw)
	if err != nil {
		return "", nil, fmt.Errorf("categorizeOne: %w: %v", model.ErrAIResponseInvalid, err)
	}

	category := optString(payload, "category")
	if category == "" {
		return "", nil, fmt.Errorf("categorizeOne: %w: payload missing 'category'", model.ErrAIResponseInvalid)
	}
	return category, clampConfidence(optFloat(payload, "confidence")), nil
}
