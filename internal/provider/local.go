package provider

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type localProvider struct {
	*jsonClient
	baseURL       string
	healthTimeout time.Duration
}

func newLocal(c *jsonClient, baseURL string, healthTimeout time.Duration) *localProvider {
	if healthTimeout <= 0 {
		healthTimeout = time.Second
	}
	return &localProvider{jsonClient: c, baseURL: strings.TrimRight(baseURL, "/"), healthTimeout: healthTimeout}
}

type localRequest struct {
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"maxTokens"`
	TopP        float64   `json:"topP"`
}

type localResponse struct {
	Response string `json:"response"`
}

func (p *localProvider) Kind() Kind           { return Local }
func (p *localProvider) Models() []string     { return []string{"local-model"} }
func (p *localProvider) DefaultModel() string { return "local-model" }
func (p *localProvider) RequiresKey() bool    { return false }

// Available probes GET /health with a short timeout of its own.
func (p *localProvider) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.healthTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	return p.do("health", req, nil) == nil
}

func (p *localProvider) Generate(ctx context.Context, req Request) (string, error) {
	body := localRequest{
		System:      req.System,
		Messages:    req.Messages,
		Model:       modelOr(req, p.DefaultModel()),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
	}
	var out localResponse
	if err := p.post(ctx, "generate", p.baseURL+"/generate", nil, body, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

func (p *localProvider) TestConnection(ctx context.Context, _ string) error {
	if !p.Available(ctx) {
		return &Error{Provider: Local, Op: "test", Message: "health check failed", Cause: ErrUnavailable}
	}
	return nil
}
