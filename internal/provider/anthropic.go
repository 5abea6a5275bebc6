package provider

import (
	"context"
	"strings"

	"github.com/tbourn/character-hub/internal/domain"
)

var anthropicModels = []string{"claude-3-5-sonnet-latest", "claude-3-haiku-20240307", "claude-2.1"}

const anthropicDefaultMaxTokens = 1024

type anthropicProvider struct {
	*jsonClient
	baseURL string
	version string
	model   string
}

func newAnthropic(c *jsonClient, baseURL, version, model string) *anthropicProvider {
	if version == "" {
		version = "2023-06-01"
	}
	if model == "" {
		model = "claude-3-haiku-20240307"
	}
	return &anthropicProvider{jsonClient: c, baseURL: strings.TrimRight(baseURL, "/"), version: version, model: model}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
	TopP        float64            `json:"top_p,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *anthropicProvider) Kind() Kind                     { return Anthropic }
func (p *anthropicProvider) Models() []string               { return append([]string(nil), anthropicModels...) }
func (p *anthropicProvider) DefaultModel() string           { return p.model }
func (p *anthropicProvider) RequiresKey() bool              { return true }
func (p *anthropicProvider) Available(context.Context) bool { return true }

// toAnthropic converts a request to the Messages API shape. The API wants
// alternating turns that open with the user, so system turns join the system
// prompt, adjacent turns of one role are merged and leading assistant turns
// are carried in the system prompt as context.
func toAnthropic(req Request, model string) anthropicRequest {
	system := []string{}
	if req.System != "" {
		system = append(system, req.System)
	}
	var msgs []anthropicMessage
	for _, m := range req.Messages {
		if m.Role == domain.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := "assistant"
		if m.Role == domain.RoleUser {
			role = "user"
		}
		if len(msgs) == 0 && role == "assistant" {
			system = append(system, "You previously said: "+m.Content)
			continue
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content += "\n\n" + m.Content
			continue
		}
		msgs = append(msgs, anthropicMessage{Role: role, Content: m.Content})
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	return anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      strings.Join(system, "\n\n"),
		Messages:    msgs,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
}

func (p *anthropicProvider) call(ctx context.Context, op, key string, body anthropicRequest) (string, error) {
	if key == "" {
		return "", &Error{Provider: Anthropic, Op: op, Message: "no key configured", Cause: ErrMissingAPIKey}
	}
	headers := map[string]string{
		"x-api-key":         key,
		"anthropic-version": p.version,
	}
	var out anthropicResponse
	if err := p.post(ctx, op, p.baseURL+"/messages", headers, body, &out); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, c := range out.Content {
		if c.Type == "" || c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	if sb.Len() == 0 && op != "test" {
		return "", &Error{Provider: Anthropic, Op: op, Message: "response has no text content"}
	}
	return sb.String(), nil
}

func (p *anthropicProvider) Generate(ctx context.Context, req Request) (string, error) {
	return p.call(ctx, "generate", req.APIKey, toAnthropic(req, modelOr(req, p.model)))
}

// TestConnection sends a one-token request with the given key.
func (p *anthropicProvider) TestConnection(ctx context.Context, apiKey string) error {
	body := anthropicRequest{
		Model:     p.model,
		MaxTokens: 1,
		Messages:  []anthropicMessage{{Role: "user", Content: "ping"}},
	}
	_, err := p.call(ctx, "test", apiKey, body)
	return err
}
