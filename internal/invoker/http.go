package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/minwoo/labpilot/internal/plan"
)

const healthTimeout = 5 * time.Second

// HTTPInvoker performs JSON-over-HTTP calls against capability services.
type HTTPInvoker struct {
	Client *http.Client
}

func NewHTTPInvoker() *HTTPInvoker {
	// Per-call timeouts come from the request context, not the client.
	return &HTTPInvoker{Client: &http.Client{}}
}

// Invoke POSTs params as JSON to baseURL+path and decodes the response
// object. Application-level rejection is a response with success=false.
func (h *HTTPInvoker) Invoke(ctx context.Context, baseURL, path string, params map[string]any, timeout time.Duration) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(params)
	if err != nil {
		return nil, &Error{Kind: plan.KindInvalidResponse, Message: "encode request", Err: err}
	}

	url := joinURL(baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: plan.KindUnreachable, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, classifyTransport(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Kind:    plan.KindRemoteRejected,
			Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, snippet(raw)),
		}
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &Error{Kind: plan.KindInvalidResponse, Message: "decode response", Err: err}
	}

	if success, ok := result["success"].(bool); ok && !success {
		msg := "service reported failure"
		if e, ok := result["error"].(string); ok && e != "" {
			msg = e
		}
		return nil, &Error{Kind: plan.KindRemoteRejected, Message: msg}
	}

	return result, nil
}

// Health probes a service health endpoint with a short fixed timeout.
func (h *HTTPInvoker) Health(ctx context.Context, baseURL, path string) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(baseURL, path), nil)
	if err != nil {
		return err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: plan.KindTimeout, Message: "request timed out", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: plan.KindTimeout, Message: "request timed out", Err: err}
	}
	return &Error{Kind: plan.KindUnreachable, Message: "service unreachable", Err: err}
}

func joinURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func snippet(raw []byte) string {
	s := string(raw)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
