package aiextract

import "strings"

// statementPrompt asks for the full structured payload: bank metadata plus
// the complete transaction list. The schema mirrors model.StatementRecord.
func statementPrompt(text string, categories []string) string {
	basePrompt :=
		"You are a financial statement parser for bank statements from any bank.\n\n" +
			"Task:\n" +
			"- Parse ALL transactions and the statement metadata from the text below.\n" +
			"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
			"- Output a single JSON object.\n\n" +
			"The object must have these fields:\n" +
			"- \"bank_name\": string, or \"Unknown\" if not determinable\n" +
			"- \"account_number\": string, or \"Unknown\" if not determinable\n" +
			"- \"statement_period\": string like \"01/01/2024 - 01/31/2024\", or \"Unknown Period\"\n" +
			"- \"opening_balance\": number or null\n" +
			"- \"closing_balance\": number or null\n" +
			"- \"transactions\": array of objects, each with:\n" +
			"  - \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
			"  - \"description\": string, no embedded dates or amounts\n" +
			"  - \"amount\": number, always positive\n" +
			"  - \"type\": string, exactly \"debit\" or \"credit\"\n" +
			"  - \"currency\": string (e.g. \"USD\", \"GBP\"), or \"Unknown\"\n" +
			"  - \"category\": string (one of the categories below)\n" +
			"  - \"balance\": number or null (running balance if shown)\n\n"

	rulesPrompt :=
		"Rules:\n" +
			"- Money going out of the account is \"debit\"; money coming in is \"credit\".\n" +
			"- If the statement has separate paid-out/paid-in columns, use the column to decide the type.\n" +
			"- If the running balance is missing for a row, set \"balance\" to null.\n" +
			"- Do not invent transactions; parse only what is present.\n" +
			"Return ONLY valid raw JSON.\n"

	return basePrompt + categoriesPrompt(categories) + "\n" + rulesPrompt + "\nStatement text:\n\"\"\"\n" + text + "\n\"\"\"\n"
}

// categoriesPrompt constrains the model to the configured taxonomy.
func categoriesPrompt(categories []string) string {
	var b strings.Builder
	b.WriteString("Use ONLY the following categories:\n")
	for _, c := range categories {
		b.WriteString("  - " + c + "\n")
	}
	b.WriteString("If unsure, use \"Other\".\n")
	return b.String()
}

// categoryPrompt asks for a category plus confidence for one description.
func categoryPrompt(description string, categories []string) string {
	return "You classify bank transaction descriptions.\n\n" +
		categoriesPrompt(categories) +
		"\nRespond with STRICT JSON only, a single object:\n" +
		"- \"category\": string (one of the categories above)\n" +
		"- \"confidence\": number between 0 and 1\n\n" +
		"Description: \"" + description + "\"\n"
}

// keywordPrompt asks for classification keywords after a user correction.
func keywordPrompt(description, correctCategory string) string {
	return "A user corrected the category of a bank transaction.\n\n" +
		"Description: \"" + description + "\"\n" +
		"Correct category: \"" + correctCategory + "\"\n\n" +
		"Suggest up to 5 short lowercase keywords that would identify similar\n" +
		"transactions as this category in the future.\n" +
		"Respond with STRICT JSON only: a JSON array of strings.\n"
}
