// Package aiextract derives structured statement data from raw text through
// an AI completion interface. The model is a black box returning free text
// that may or may not contain a fenced JSON payload.
package aiextract

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// Client is the AI completion interface consumed by the extractor: one text
// prompt in, one text completion out. Implementations do not retry; the
// pipeline owns its own recovery.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiClient implements Client with the GenAI SDK.
//
// Vertex vs Gemini Dev is controlled via env vars:
//   - GOOGLE_GENAI_USE_VERTEXAI=True  -> Vertex AI
//   - GOOGLE_CLOUD_PROJECT / GOOGLE_CLOUD_LOCATION
type GeminiClient struct {
	model string
}

// NewGeminiClient creates a Gemini-backed completion client. An empty model
// name selects DefaultModelName.
func NewGeminiClient(model string) *GeminiClient {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiClient{model: model}
}

// Complete sends the prompt to the model and returns the raw completion
// text.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("Complete: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Complete: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Complete: empty response from model")
	}
	return text, nil
}
