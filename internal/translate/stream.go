package translate

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"

	"github.com/vnmchuo/palm-gateway/internal/openai"
)

// DoneLine terminates every emulated stream.
const DoneLine = "data: [DONE]\n"

// ws is the whitespace class of ECMAScript regular expressions, which is
// wider than RE2's \s.
const ws = `\t\n\v\f\r \x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}`

var tokenPattern = regexp.MustCompile(`[` + ws + `]+|[^` + ws + `]+`)

// Tokenize splits text into alternating maximal runs of whitespace and
// non-whitespace. Joining the tokens yields text unchanged.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

func finishReason(i, n int) *string {
	if i != n-1 {
		return nil
	}
	stop := "stop"
	return &stop
}

// ChatChunks re-emits the first choice of c as one chunk per token.
// Other choices are not streamed.
func ChatChunks(c *openai.ChatCompletion) []*openai.ChatCompletionChunk {
	if len(c.Choices) == 0 {
		return nil
	}
	first := c.Choices[0]
	tokens := Tokenize(first.Message.Content)
	chunks := make([]*openai.ChatCompletionChunk, len(tokens))
	for i, tok := range tokens {
		delta := first.Message
		delta.Content = tok
		chunks[i] = &openai.ChatCompletionChunk{
			ID:      c.ID,
			Object:  "chat.completion.chunk",
			Created: c.Created,
			Model:   c.Model,
			Choices: []openai.ChatChunkChoice{{
				Index:        first.Index,
				Delta:        delta,
				FinishReason: finishReason(i, len(tokens)),
			}},
		}
	}
	return chunks
}

func TextChunks(c *openai.TextCompletion) []*openai.TextCompletionChunk {
	if len(c.Choices) == 0 {
		return nil
	}
	first := c.Choices[0]
	tokens := Tokenize(first.Text)
	chunks := make([]*openai.TextCompletionChunk, len(tokens))
	for i, tok := range tokens {
		chunks[i] = &openai.TextCompletionChunk{
			ID:      c.ID,
			Object:  "text_completion.chunk",
			Created: c.Created,
			Model:   c.Model,
			Choices: []openai.TextChunkChoice{{
				Index:        first.Index,
				Delta:        openai.TextDelta{Text: tok},
				FinishReason: finishReason(i, len(tokens)),
			}},
		}
	}
	return chunks
}

// WriteStream writes resp to sink as SSE data lines followed by DoneLine.
// sink is closed on return, including when a write fails partway. It
// returns the number of content chunks written.
func WriteStream(sink io.WriteCloser, resp any) (n int, err error) {
	defer func() {
		if cerr := sink.Close(); err == nil {
			err = cerr
		}
	}()

	var events []any
	switch r := resp.(type) {
	case *openai.ChatCompletion:
		for _, c := range ChatChunks(r) {
			events = append(events, c)
		}
	case *openai.TextCompletion:
		for _, c := range TextChunks(r) {
			events = append(events, c)
		}
	default:
		return 0, fmt.Errorf("cannot stream %T", resp)
	}

	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return n, err
		}
		if _, err := fmt.Fprintf(sink, "data: %s\n\n", data); err != nil {
			return n, err
		}
		n++
	}

	_, err = io.WriteString(sink, DoneLine)
	return n, err
}
