package proxy

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vnmchuo/palm-gateway/internal/auth"
	"github.com/vnmchuo/palm-gateway/internal/requestlog"
	"github.com/vnmchuo/palm-gateway/internal/telemetry"
	"github.com/vnmchuo/palm-gateway/internal/translate"
	"github.com/vnmchuo/palm-gateway/pkg/ratelimit"
)

const (
	maxBodyBytes      = 8 << 20
	requestLogTimeout = 5 * time.Second

	backendFailed = "backend request failed"
)

type Handler struct {
	router   *Router
	requests requestlog.Store
	limiter  *ratelimit.Limiter // nil disables rate limiting
	tracer   trace.Tracer
	now      func() time.Time
}

func NewHandler(router *Router, requests requestlog.Store, limiter *ratelimit.Limiter, tracer trace.Tracer) *Handler {
	if requests == nil {
		requests = requestlog.NopStore{}
	}
	return &Handler{
		router:   router,
		requests: requests,
		limiter:  limiter,
		tracer:   tracer,
		now:      time.Now,
	}
}

// HandleProxy serves the three OpenAI-compatible routes: it maps the body to
// the backend schema, calls the backend, maps the reply back and writes it
// as JSON or as an emulated SSE stream.
func (h *Handler) HandleProxy(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	ctx := r.Context()

	apiKey := auth.GetAPIKey(ctx)
	if apiKey == "" {
		auth.Forbidden(w)
		return
	}

	route, err := h.router.Resolve(r.URL.Path)
	if err != nil {
		NotFound(w, r)
		return
	}

	requestID := auth.GetRequestID(ctx)
	entry := &requestlog.Entry{
		RequestID: requestID,
		KeyHash:   auth.HashKey(apiKey),
		Route:     route.Kind.String(),
		Model:     route.Model,
	}
	defer func() {
		entry.LatencyMs = h.now().Sub(start).Milliseconds()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), requestLogTimeout)
			defer cancel()
			if err := h.requests.Log(ctx, entry); err != nil {
				log.Printf("requestlog: %v", err)
			}
		}()
	}()

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(ctx, entry.KeyHash)
		if err != nil {
			// Fail open when the limiter store is unreachable.
			log.Printf("ratelimit: %v", err)
		} else if !allowed {
			telemetry.RateLimitRejectedTotal.Inc()
			entry.Status = http.StatusTooManyRequests
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate_limit_error", "rate limit exceeded")
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		entry.Status = http.StatusBadRequest
		writeError(w, http.StatusBadRequest, "invalid_request_error", "could not read request body")
		return
	}
	req, err := translate.DecodeRequest(route.Kind, body)
	if err != nil {
		entry.Status = http.StatusBadRequest
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body")
		return
	}
	stream := req.Stream && route.Kind.Streamable()
	entry.Streamed = stream

	spanCtx, span := h.tracer.Start(ctx, "proxy."+route.Kind.String())
	defer span.End()
	span.SetAttributes(
		attribute.String("request_id", requestID),
		attribute.String("backend.operation", route.Method),
		attribute.String("backend.model", route.Model),
		attribute.Bool("stream", stream),
	)

	backendStart := time.Now()
	backendResp, err := h.router.Execute(spanCtx, route, apiKey, requestID, req.Payload)
	telemetry.BackendLatency.WithLabelValues(route.Method).Observe(time.Since(backendStart).Seconds())
	if err != nil {
		// Fixed text only for the client and the span.
		if Unavailable(err) {
			telemetry.BackendRequestsTotal.WithLabelValues(route.Method, "unavailable").Inc()
			span.SetStatus(codes.Error, "backend temporarily unavailable")
			entry.Status = http.StatusServiceUnavailable
			writeError(w, http.StatusServiceUnavailable, "server_error", "backend temporarily unavailable")
			return
		}
		outcome := "error"
		if errors.Is(err, ErrCallerGone) {
			outcome = "aborted"
		}
		telemetry.BackendRequestsTotal.WithLabelValues(route.Method, outcome).Inc()
		span.SetAttributes(attribute.String("backend.outcome", outcome))
		span.SetStatus(codes.Error, backendFailed)
		log.Printf("proxy: request %s: %v", requestID, err)
		entry.Status = http.StatusBadGateway
		writeError(w, http.StatusBadGateway, "server_error", backendFailed)
		return
	}
	telemetry.BackendRequestsTotal.WithLabelValues(route.Method, "ok").Inc()

	if route.Kind.Streamable() {
		if reason := translate.FallbackReason(backendResp); reason != "" {
			entry.Fallback = reason
			telemetry.FallbacksTotal.WithLabelValues(route.Kind.String(), reason).Inc()
			span.SetAttributes(attribute.String("fallback", reason))
		}
	}

	resp, err := translate.FromBackend(route.Kind, backendResp, h.now())
	if err != nil {
		log.Printf("proxy: request %s: %v", requestID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		entry.Status = http.StatusBadGateway
		writeError(w, http.StatusBadGateway, "server_error", err.Error())
		return
	}

	entry.Status = http.StatusOK
	if !stream {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	h.stream(w, route, resp, span)
}

func (h *Handler) stream(w http.ResponseWriter, route Route, resp any, span trace.Span) {
	telemetry.StreamingConnections.Inc()
	defer telemetry.StreamingConnections.Dec()

	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	n, err := translate.WriteStream(newSSESink(w), resp)
	telemetry.StreamChunksTotal.WithLabelValues(route.Kind.String()).Add(float64(n))
	span.SetAttributes(attribute.Int("stream.chunks", n))
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("proxy: stream interrupted after %d chunks: %v", n, err)
	}
}
