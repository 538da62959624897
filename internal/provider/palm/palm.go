package palm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/vnmchuo/palm-gateway/internal/provider"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com"

type PalmProvider struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string, client *http.Client) *PalmProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &PalmProvider{
		baseURL: baseURL,
		client:  client,
	}
}

func (p *PalmProvider) Invoke(ctx context.Context, call *provider.Call, out any) error {
	body, err := json.Marshal(call.Body)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.endpoint(call), bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		// *url.Error prints the request URL, and the URL carries the key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("%w: %s %s: %w", provider.ErrTransport, call.Model, call.Method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", provider.ErrTransport, err)
	}

	// Error statuses still carry a JSON body with an "error" object, which
	// the response mapper turns into a synthetic candidate.
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w (status %d): %v", provider.ErrMalformedResponse, resp.StatusCode, err)
	}
	return nil
}

func (p *PalmProvider) endpoint(call *provider.Call) string {
	q := url.Values{"key": {call.APIKey}}
	return fmt.Sprintf("%s/v1beta2/models/%s:%s?%s", p.baseURL, url.PathEscape(call.Model), call.Method, q.Encode())
}

func (p *PalmProvider) Name() string {
	return "palm"
}
