package sse

// Chunk is one decoded chat-completion stream payload.
type Chunk struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
}

// Choice is a single streamed completion choice.
type Choice struct {
	Delta        Delta  `json:"delta"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Delta carries the incremental content of a choice.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// Delta returns the content of the first choice, or "" when the chunk has
// no choices or no content.
func (c Chunk) Delta() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// FinishReason returns the finish reason of the first choice, if any.
func (c Chunk) FinishReason() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].FinishReason
}
