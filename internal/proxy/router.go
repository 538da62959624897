package proxy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vnmchuo/palm-gateway/config"
	"github.com/vnmchuo/palm-gateway/internal/provider"
	"github.com/vnmchuo/palm-gateway/internal/provider/palm"
	"github.com/vnmchuo/palm-gateway/internal/translate"
)

var (
	ErrUnknownRoute = errors.New("unknown route")
	// ErrCallerGone marks backend failures caused by the caller's own
	// context ending. They do not count against the breaker.
	ErrCallerGone = errors.New("caller went away")
)

// Route is the immutable result of dispatching a request path.
type Route struct {
	Kind   translate.Kind
	Method string // backend operation
	Model  string // backend deployment name
}

// Router maps client paths to backend operations and guards each operation
// with its own circuit breaker.
type Router struct {
	provider provider.Provider
	routes   map[string]Route
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewRouter(p provider.Provider, models config.Models) *Router {
	routes := map[string]Route{
		"/v1/chat/completions": {Kind: translate.KindChat, Method: palm.MethodGenerateMessage, Model: models.Chat},
		"/v1/completions":      {Kind: translate.KindCompletion, Method: palm.MethodGenerateText, Model: models.Text},
		"/v1/embeddings":       {Kind: translate.KindEmbedding, Method: palm.MethodEmbedText, Model: models.Embedding},
	}

	breakers := make(map[string]*gobreaker.CircuitBreaker)
	for _, rt := range routes {
		settings := gobreaker.Settings{
			Name:        p.Name() + ":" + rt.Method,
			MaxRequests: 3,
			Interval:    5 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrCallerGone)
			},
		}
		breakers[rt.Method] = gobreaker.NewCircuitBreaker(settings)
	}

	return &Router{
		provider: p,
		routes:   routes,
		breakers: breakers,
	}
}

// Resolve returns the route for path or ErrUnknownRoute.
func (r *Router) Resolve(path string) (Route, error) {
	rt, ok := r.routes[path]
	if !ok {
		return Route{}, ErrUnknownRoute
	}
	return rt, nil
}

// Paths lists every routable client path.
func (r *Router) Paths() []string {
	paths := make([]string, 0, len(r.routes))
	for p := range r.routes {
		paths = append(paths, p)
	}
	return paths
}

// Execute calls the backend for route. Backend replies that carry an error
// object are not failures here; only transport and decoding errors count
// against the breaker, and only while the caller is still waiting.
func (r *Router) Execute(ctx context.Context, route Route, apiKey, requestID string, payload any) (*palm.Response, error) {
	cb := r.breakers[route.Method]
	result, err := cb.Execute(func() (interface{}, error) {
		var resp palm.Response
		err := r.provider.Invoke(ctx, &provider.Call{
			Model:     route.Model,
			Method:    route.Method,
			APIKey:    apiKey,
			Body:      payload,
			RequestID: requestID,
		}, &resp)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrCallerGone, err)
			}
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*palm.Response), nil
}

// Unavailable reports whether err came from an open or saturated breaker
// rather than from the backend itself.
func Unavailable(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
