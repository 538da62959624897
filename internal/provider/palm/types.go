package palm

import "encoding/json"

// Backend operations of the v1beta2 generative language API.
const (
	MethodGenerateMessage = "generateMessage"
	MethodGenerateText    = "generateText"
	MethodEmbedText       = "embedText"
)

// Message is one turn of a generateMessage prompt. Author is left unset by
// the gateway.
type Message struct {
	Author  string          `json:"author,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

type MessagePrompt struct {
	Context  json.RawMessage `json:"context,omitempty"`
	Messages []Message       `json:"messages,omitzero"`
}

type GenerateMessageRequest struct {
	Temperature    json.RawMessage `json:"temperature,omitempty"`
	CandidateCount json.RawMessage `json:"candidateCount,omitempty"`
	TopP           json.RawMessage `json:"topP,omitempty"`
	Prompt         MessagePrompt   `json:"prompt"`
}

type TextPrompt struct {
	Text json.RawMessage `json:"text,omitempty"`
}

type GenerateTextRequest struct {
	Temperature    json.RawMessage `json:"temperature,omitempty"`
	CandidateCount json.RawMessage `json:"candidateCount,omitempty"`
	TopP           json.RawMessage `json:"topP,omitempty"`
	Prompt         TextPrompt      `json:"prompt"`
}

type EmbedTextRequest struct {
	Text json.RawMessage `json:"text,omitempty"`
}

// Candidate is a generated result. generateMessage fills Content,
// generateText fills Output.
type Candidate struct {
	Author  string `json:"author,omitempty"`
	Content string `json:"content,omitempty"`
	Output  string `json:"output,omitempty"`
}

type ContentFilter struct {
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

type Embedding struct {
	Value []float64 `json:"value"`
}

type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// Response is the union of every field the three operations may return.
type Response struct {
	Candidates []Candidate     `json:"candidates,omitempty"`
	Filters    []ContentFilter `json:"filters,omitempty"`
	Embedding  *Embedding      `json:"embedding,omitempty"`
	Error      *Status         `json:"error,omitempty"`
}
