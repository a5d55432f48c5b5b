package domain

// PreviewLength is the maximum number of characters in a source citation preview.
const PreviewLength = 200

// Source cites one retrieved chunk that grounded an answer.
type Source struct {
	Filename   string  `json:"filename"`
	Preview    string  `json:"preview"`
	Similarity float32 `json:"similarity"`
}

// Answer is the result of one query: the generated text, the model that
// produced it, and citations for every retrieved chunk used. Transient,
// never persisted.
type Answer struct {
	Text           string   `json:"answer"`
	Model          string   `json:"model"`
	ConversationID string   `json:"conversation_id"`
	Sources        []Source `json:"sources"`
}

// Preview shortens text for a citation, appending an ellipsis when truncated.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength]) + "..."
}
