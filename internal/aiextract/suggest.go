package aiextract

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// SuggestKeywords asks the model for classification keywords after a user
// corrected a transaction's category. It never fails: any error yields an
// empty list, so feedback handling cannot break the caller.
func SuggestKeywords(ctx context.Context, c Client, description, correctCategory string, log zerolog.Logger) []string {
	raw, err := c.Complete(ctx, keywordPrompt(description, correctCategory))
	if err != nil {
		log.Warn().Err(err).Msg("keyword suggestion call failed")
		return []string{}
	}

	items, err := decodeStrings(raw)
	if err != nil {
		log.Warn().Err(err).Msg("keyword suggestion response unparseable")
		return []string{}
	}

	keywords := make([]string, 0, len(items))
	for _, kw := range items {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
