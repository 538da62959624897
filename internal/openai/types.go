// Package openai holds the OpenAI-compatible request and response shapes
// served by the gateway.
package openai

import "encoding/json"

// ChatMessage is one entry of a chat request. Content is kept raw so that
// string and multi-part contents pass through untouched.
type ChatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content,omitempty"`
}

// Sampling parameters are forwarded verbatim, whatever their JSON type.
// Stream only enables streaming when it is the literal true.
type ChatCompletionRequest struct {
	Messages    []ChatMessage   `json:"messages"`
	Temperature json.RawMessage `json:"temperature,omitempty"`
	N           json.RawMessage `json:"n,omitempty"`
	TopP        json.RawMessage `json:"top_p,omitempty"`
	Stream      json.RawMessage `json:"stream,omitempty"`
}

type CompletionRequest struct {
	Prompt      json.RawMessage `json:"prompt,omitempty"`
	Temperature json.RawMessage `json:"temperature,omitempty"`
	N           json.RawMessage `json:"n,omitempty"`
	TopP        json.RawMessage `json:"top_p,omitempty"`
	Stream      json.RawMessage `json:"stream,omitempty"`
}

type EmbeddingRequest struct {
	Input json.RawMessage `json:"input,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type AssistantMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatChoice struct {
	Message      AssistantMessage `json:"message"`
	FinishReason string           `json:"finish_reason"`
	Index        int              `json:"index"`
}

type ChatCompletion struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Usage   Usage        `json:"usage"`
	Choices []ChatChoice `json:"choices"`
}

// ChatChunkChoice carries one streamed delta. FinishReason serializes as
// null until the final chunk.
type ChatChunkChoice struct {
	Index        int              `json:"index"`
	Delta        AssistantMessage `json:"delta"`
	FinishReason *string          `json:"finish_reason"`
}

type ChatCompletionChunk struct {
	ID      string            `json:"id"`
	Object  string            `json:"object"`
	Created int64             `json:"created"`
	Model   string            `json:"model"`
	Choices []ChatChunkChoice `json:"choices"`
}

type TextChoice struct {
	Text         string          `json:"text"`
	Index        int             `json:"index"`
	Logprobs     json.RawMessage `json:"logprobs"`
	FinishReason string          `json:"finish_reason"`
}

type TextCompletion struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []TextChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

type TextDelta struct {
	Text string `json:"text"`
}

type TextChunkChoice struct {
	Index        int       `json:"index"`
	Delta        TextDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason"`
}

type TextCompletionChunk struct {
	ID      string            `json:"id"`
	Object  string            `json:"object"`
	Created int64             `json:"created"`
	Model   string            `json:"model"`
	Choices []TextChunkChoice `json:"choices"`
}

type Embedding struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type EmbeddingList struct {
	Object string         `json:"object"`
	Data   []Embedding    `json:"data"`
	Model  string         `json:"model"`
	Usage  EmbeddingUsage `json:"usage"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// ErrorResponse is the error envelope OpenAI clients expect.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
