// Package translate maps OpenAI-shaped requests onto the PaLM backend and
// maps PaLM replies back, including the emulated SSE stream.
//
// Every function here is pure: no I/O beyond the sink handed to WriteStream.
package translate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vnmchuo/palm-gateway/internal/openai"
	"github.com/vnmchuo/palm-gateway/internal/provider/palm"
)

var ErrMalformedRequest = errors.New("malformed request body")

// Kind is the client surface a request arrived on. It is decided once by the
// router and drives every later mapping step.
type Kind int

const (
	KindChat Kind = iota + 1
	KindCompletion
	KindEmbedding
)

func (k Kind) String() string {
	switch k {
	case KindChat:
		return "chat"
	case KindCompletion:
		return "completion"
	case KindEmbedding:
		return "embedding"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Streamable reports whether responses of this kind can be emitted as SSE.
func (k Kind) Streamable() bool {
	return k == KindChat || k == KindCompletion
}

// BackendRequest is a decoded client request already mapped to its backend
// payload.
type BackendRequest struct {
	Kind    Kind
	Payload any
	Stream  bool
}

// DecodeRequest parses a client body for kind and maps it. An empty body is
// treated as a request with every field absent.
func DecodeRequest(kind Kind, body []byte) (*BackendRequest, error) {
	empty := len(bytes.TrimSpace(body)) == 0
	decode := func(v any) error {
		if empty {
			return nil
		}
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
		}
		return nil
	}

	switch kind {
	case KindChat:
		var req openai.ChatCompletionRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return &BackendRequest{Kind: kind, Payload: ChatToMessage(&req), Stream: isTrue(req.Stream)}, nil
	case KindCompletion:
		var req openai.CompletionRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return &BackendRequest{Kind: kind, Payload: CompletionToText(&req), Stream: isTrue(req.Stream)}, nil
	case KindEmbedding:
		var req openai.EmbeddingRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return &BackendRequest{Kind: kind, Payload: EmbeddingToEmbed(&req)}, nil
	default:
		return nil, fmt.Errorf("unsupported request kind %s", kind)
	}
}

func isTrue(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "true"
}

// ChatToMessage builds a generateMessage payload. The first system message
// becomes the prompt context; all other messages keep their order and lose
// their role.
func ChatToMessage(req *openai.ChatCompletionRequest) *palm.GenerateMessageRequest {
	out := &palm.GenerateMessageRequest{
		Temperature:    req.Temperature,
		CandidateCount: req.N,
		TopP:           req.TopP,
	}
	if req.Messages == nil {
		return out
	}

	out.Prompt.Messages = make([]palm.Message, 0, len(req.Messages))
	foundContext := false
	for _, m := range req.Messages {
		if m.Role == "system" {
			if !foundContext {
				out.Prompt.Context = m.Content
				foundContext = true
			}
			continue
		}
		out.Prompt.Messages = append(out.Prompt.Messages, palm.Message{Content: m.Content})
	}
	return out
}

func CompletionToText(req *openai.CompletionRequest) *palm.GenerateTextRequest {
	return &palm.GenerateTextRequest{
		Temperature:    req.Temperature,
		CandidateCount: req.N,
		TopP:           req.TopP,
		Prompt:         palm.TextPrompt{Text: req.Prompt},
	}
}

func EmbeddingToEmbed(req *openai.EmbeddingRequest) *palm.EmbedTextRequest {
	return &palm.EmbedTextRequest{Text: req.Input}
}
