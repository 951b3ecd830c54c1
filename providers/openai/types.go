package openai

// Response ist die Top-Level-Struktur einer Chat-Completions-Antwort.
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Choice repräsentiert eine einzelne Antwortvariante des Modells.
type Choice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason"`
	Message      Message `json:"message"`
}

// Message ist der Nachrichteninhalt einer Antwortvariante.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
