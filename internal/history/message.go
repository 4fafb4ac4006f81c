package history

import "time"

// Exchange is one completed prompt/response pair recorded by a front-end.
type Exchange struct {
	ID               string    `json:"id"`
	Prompt           string    `json:"prompt"`
	Model            string    `json:"model"`
	Content          string    `json:"content"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}
