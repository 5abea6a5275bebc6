package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

type jsonClient struct {
	kind Kind
	http *http.Client
}

func newJSONClient(kind Kind, hc *http.Client) *jsonClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &jsonClient{kind: kind, http: hc}
}

// post sends payload as JSON and decodes a 2xx body into out.
func (c *jsonClient) post(ctx context.Context, op, url string, headers map[string]string, payload, out any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", c.kind, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return &Error{Provider: c.kind, Op: op, Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(op, req, out)
}

func (c *jsonClient) do(op string, req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Provider: c.kind, Op: op, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Provider: c.kind, Op: op, Status: resp.StatusCode, Message: string(bytes.TrimSpace(body))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Provider: c.kind, Op: op, Status: resp.StatusCode, Message: "decode response", Cause: err}
	}
	return nil
}
