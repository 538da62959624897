package proxy

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vnmchuo/palm-gateway/config"
	"github.com/vnmchuo/palm-gateway/internal/provider"
	"github.com/vnmchuo/palm-gateway/internal/provider/palm"
	"github.com/vnmchuo/palm-gateway/internal/translate"
)

// MockProvider answers every call with reply, or fails with err.
type MockProvider struct {
	reply string // raw JSON decoded into the caller's target
	err   error
	calls []*provider.Call
}

func (m *MockProvider) Invoke(ctx context.Context, call *provider.Call, out any) error {
	m.calls = append(m.calls, call)
	if m.err != nil {
		return m.err
	}
	return decodeInto(m.reply, out)
}

func (m *MockProvider) Name() string { return "mock" }

func TestResolve(t *testing.T) {
	router := NewRouter(&MockProvider{}, config.DefaultModels)

	tests := []struct {
		path   string
		kind   translate.Kind
		method string
		model  string
	}{
		{"/v1/chat/completions", translate.KindChat, palm.MethodGenerateMessage, "chat-bison-001"},
		{"/v1/completions", translate.KindCompletion, palm.MethodGenerateText, "text-bison-001"},
		{"/v1/embeddings", translate.KindEmbedding, palm.MethodEmbedText, "embedding-gecko-001"},
	}

	for _, tt := range tests {
		rt, err := router.Resolve(tt.path)
		if err != nil {
			t.Fatalf("Resolve(%s) failed: %v", tt.path, err)
		}
		if rt.Kind != tt.kind || rt.Method != tt.method || rt.Model != tt.model {
			t.Errorf("Resolve(%s) = %+v", tt.path, rt)
		}
	}
}

func TestResolve_Unknown(t *testing.T) {
	router := NewRouter(&MockProvider{}, config.DefaultModels)

	for _, path := range []string{"/", "/v1/models", "/v1/chat/completions/", "/v1/edits"} {
		if _, err := router.Resolve(path); !errors.Is(err, ErrUnknownRoute) {
			t.Errorf("Resolve(%s): expected ErrUnknownRoute, got %v", path, err)
		}
	}
}

func TestResolve_ConfiguredModels(t *testing.T) {
	router := NewRouter(&MockProvider{}, config.Models{Chat: "c", Text: "t", Embedding: "e"})

	rt, _ := router.Resolve("/v1/embeddings")
	if rt.Model != "e" {
		t.Errorf("Expected model e, got %s", rt.Model)
	}
}

func TestPaths(t *testing.T) {
	router := NewRouter(&MockProvider{}, config.DefaultModels)
	paths := router.Paths()
	sort.Strings(paths)

	want := []string{"/v1/chat/completions", "/v1/completions", "/v1/embeddings"}
	if len(paths) != len(want) {
		t.Fatalf("Expected %v, got %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, paths)
		}
	}
}

func TestExecute_PassesCall(t *testing.T) {
	p := &MockProvider{reply: `{"candidates":[{"output":"ok"}]}`}
	router := NewRouter(p, config.DefaultModels)
	rt, _ := router.Resolve("/v1/completions")

	resp, err := router.Execute(context.Background(), rt, "key-1", "req-1", map[string]string{"x": "y"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(resp.Candidates) != 1 || resp.Candidates[0].Output != "ok" {
		t.Errorf("Unexpected response %+v", resp)
	}

	call := p.calls[0]
	if call.Model != "text-bison-001" || call.Method != palm.MethodGenerateText || call.APIKey != "key-1" || call.RequestID != "req-1" {
		t.Errorf("Unexpected call %+v", call)
	}
}

func TestExecute_CircuitBreakerOpens(t *testing.T) {
	p := &MockProvider{err: provider.ErrTransport}
	router := NewRouter(p, config.DefaultModels)
	chat, _ := router.Resolve("/v1/chat/completions")
	text, _ := router.Resolve("/v1/completions")

	// Trip the generateMessage breaker
	for i := 0; i < 3; i++ {
		_, err := router.Execute(context.Background(), chat, "k", "", nil)
		if !errors.Is(err, provider.ErrTransport) {
			t.Fatalf("Expected transport error, got %v", err)
		}
		if Unavailable(err) {
			t.Fatalf("Transport error must not count as unavailable")
		}
	}

	_, err := router.Execute(context.Background(), chat, "k", "", nil)
	if !errors.Is(err, gobreaker.ErrOpenState) || !Unavailable(err) {
		t.Errorf("Expected open breaker, got %v", err)
	}
	if len(p.calls) != 3 {
		t.Errorf("Expected the open breaker to skip the backend, got %d calls", len(p.calls))
	}

	// Other operations keep their own breaker
	_, err = router.Execute(context.Background(), text, "k", "", nil)
	if Unavailable(err) {
		t.Errorf("generateText breaker should still be closed, got %v", err)
	}
}

func TestExecute_BackendErrorObjectIsNotFailure(t *testing.T) {
	p := &MockProvider{reply: `{"error":{"code":400,"message":"bad key"}}`}
	router := NewRouter(p, config.DefaultModels)
	chat, _ := router.Resolve("/v1/chat/completions")

	for i := 0; i < 5; i++ {
		resp, err := router.Execute(context.Background(), chat, "k", "", nil)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if resp.Error == nil || resp.Error.Code != 400 {
			t.Errorf("Expected backend error object, got %+v", resp)
		}
	}
}

func TestExecute_CallerAbortDoesNotTripBreaker(t *testing.T) {
	p := &MockProvider{err: provider.ErrTransport, reply: `{"candidates":[{"content":"ok"}]}`}
	router := NewRouter(p, config.DefaultModels)
	chat, _ := router.Resolve("/v1/chat/completions")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()

	// More aborted callers than the breaker's failure threshold
	for i, ctx := range []context.Context{cancelled, expired, cancelled, expired, cancelled} {
		_, err := router.Execute(ctx, chat, "k", "", nil)
		if !errors.Is(err, ErrCallerGone) || !errors.Is(err, provider.ErrTransport) {
			t.Fatalf("call %d: expected ErrCallerGone wrapping the transport error, got %v", i, err)
		}
		if Unavailable(err) {
			t.Fatalf("call %d: breaker opened on caller aborts", i)
		}
	}

	p.err = nil
	resp, err := router.Execute(context.Background(), chat, "k", "", nil)
	if err != nil {
		t.Fatalf("Healthy caller got %v", err)
	}
	if len(resp.Candidates) != 1 {
		t.Errorf("Unexpected response %+v", resp)
	}
}
