package translate

import (
	"errors"
	"fmt"
	"time"

	"github.com/vnmchuo/palm-gateway/internal/openai"
	"github.com/vnmchuo/palm-gateway/internal/provider/palm"
)

var ErrMissingEmbedding = errors.New("backend response has no embedding value")

// Placeholder identifiers reported to clients. They are constant on purpose
// and never derived from backend data.
const (
	ChatCompletionID   = "chatcmpl-QXlha2FBbmROaXhpZUFyZUF3ZXNvbWUK"
	ChatModelLabel     = "gpt-3.5-turbo"
	TextCompletionID   = "cmpl-uqkvlQyYK7bGYrRHQ0eXlWi7"
	TextModelLabel     = "text-davinci-003"
	EmbeddingModelName = "text-embedding-ada-002"

	EmptyResultText = "Ooops, the model returned nothing"
)

// Fallback reasons, as reported by FallbackReason.
const (
	FallbackFilter = "filter"
	FallbackError  = "error"
	FallbackEmpty  = "empty"
)

// FallbackReason returns which synthetic candidate a chat or completion
// response needs, or "" when the backend returned real candidates.
// Filters win over errors.
func FallbackReason(resp *palm.Response) string {
	switch {
	case resp != nil && len(resp.Candidates) > 0:
		return ""
	case resp != nil && len(resp.Filters) > 0:
		return FallbackFilter
	case resp != nil && resp.Error != nil:
		return FallbackError
	default:
		return FallbackEmpty
	}
}

// candidates returns the backend candidates, or exactly one synthetic
// candidate when there are none. The synthetic text is set on both Content
// and Output so chat and completion mapping read it the same way.
func candidates(resp *palm.Response) []palm.Candidate {
	var text string
	switch FallbackReason(resp) {
	case "":
		return resp.Candidates
	case FallbackFilter:
		text = "Filter: " + resp.Filters[0].Reason
	case FallbackError:
		text = fmt.Sprintf("Error %d: %s", resp.Error.Code, resp.Error.Message)
	default:
		text = EmptyResultText
	}
	return []palm.Candidate{{Author: "1", Content: text, Output: text}}
}

func ToChatCompletion(resp *palm.Response, created time.Time) *openai.ChatCompletion {
	cands := candidates(resp)
	choices := make([]openai.ChatChoice, len(cands))
	for i, c := range cands {
		choices[i] = openai.ChatChoice{
			Message:      openai.AssistantMessage{Role: "assistant", Content: c.Content},
			FinishReason: "stop",
			Index:        i,
		}
	}
	return &openai.ChatCompletion{
		ID:      ChatCompletionID,
		Object:  "chat.completion",
		Created: created.Unix(),
		Model:   ChatModelLabel,
		Choices: choices,
	}
}

func ToTextCompletion(resp *palm.Response, created time.Time) *openai.TextCompletion {
	cands := candidates(resp)
	choices := make([]openai.TextChoice, len(cands))
	for i, c := range cands {
		choices[i] = openai.TextChoice{
			Text:         c.Output,
			Index:        i,
			FinishReason: "length",
		}
	}
	return &openai.TextCompletion{
		ID:      TextCompletionID,
		Object:  "text_completion",
		Created: created.Unix(),
		Model:   TextModelLabel,
		Choices: choices,
	}
}

// ToEmbeddingList has no fallback: a reply without embedding.value is an
// error, annotated with the backend's own error when it sent one.
func ToEmbeddingList(resp *palm.Response) (*openai.EmbeddingList, error) {
	if resp == nil || resp.Embedding == nil || resp.Embedding.Value == nil {
		if resp != nil && resp.Error != nil {
			return nil, fmt.Errorf("%w: backend error %d: %s", ErrMissingEmbedding, resp.Error.Code, resp.Error.Message)
		}
		return nil, ErrMissingEmbedding
	}
	return &openai.EmbeddingList{
		Object: "list",
		Data: []openai.Embedding{
			{Object: "embedding", Embedding: resp.Embedding.Value, Index: 0},
		},
		Model: EmbeddingModelName,
	}, nil
}

// FromBackend maps a backend reply into the client response for kind.
// The result is *openai.ChatCompletion, *openai.TextCompletion or
// *openai.EmbeddingList.
func FromBackend(kind Kind, resp *palm.Response, created time.Time) (any, error) {
	switch kind {
	case KindChat:
		return ToChatCompletion(resp, created), nil
	case KindCompletion:
		return ToTextCompletion(resp, created), nil
	case KindEmbedding:
		return ToEmbeddingList(resp)
	default:
		return nil, fmt.Errorf("unsupported response kind %s", kind)
	}
}
