package model

import "errors"

// Error kinds surfaced by the pipeline. Callers match them with errors.Is;
// wrapping sites attach the document/stage context with fmt.Errorf.
var (
	// ErrExtraction means the document could not be converted to text
	// (corrupt or unsupported input). Fatal for that document.
	ErrExtraction = errors.New("document text extraction failed")

	// ErrAIResponseInvalid means the AI returned text that could not be
	// parsed as the expected structured payload for a whole-document
	// extraction. The pipeline never fabricates a partial record from it.
	ErrAIResponseInvalid = errors.New("AI response is not a valid structured payload")

	// ErrAICall is a transport, quota or timeout failure from the AI
	// interface. Recovered locally for per-transaction categorization,
	// surfaced for whole-document extraction.
	ErrAICall = errors.New("AI completion call failed")

	// ErrTemplateParse means a template-guided parse failed or produced
	// implausible output. Recovered by falling back to AI extraction.
	ErrTemplateParse = errors.New("template-guided parse failed")
)
