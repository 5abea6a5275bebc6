package provider

import (
	"context"
	"errors"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tbourn/character-hub/internal/domain"
)

var openAIModels = []string{"gpt-4", "gpt-3.5-turbo", "gpt-3.5-turbo-16k"}

type openAIProvider struct {
	baseURL string
	model   string
	http    *http.Client
}

func newOpenAI(baseURL, model string, hc *http.Client) *openAIProvider {
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	return &openAIProvider{baseURL: baseURL, model: model, http: hc}
}

func (p *openAIProvider) Kind() Kind                     { return OpenAI }
func (p *openAIProvider) Models() []string               { return append([]string(nil), openAIModels...) }
func (p *openAIProvider) DefaultModel() string           { return p.model }
func (p *openAIProvider) RequiresKey() bool              { return true }
func (p *openAIProvider) Available(context.Context) bool { return true }

// client builds a go-openai client per call since keys can change at runtime.
func (p *openAIProvider) client(key string) *openai.Client {
	cfg := openai.DefaultConfig(key)
	if p.baseURL != "" {
		cfg.BaseURL = p.baseURL
	}
	if p.http != nil {
		cfg.HTTPClient = p.http
	}
	return openai.NewClientWithConfig(cfg)
}

func (p *openAIProvider) request(req Request, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleAssistant
		switch m.Role {
		case domain.RoleUser:
			role = openai.ChatMessageRoleUser
		case domain.RoleSystem:
			role = openai.ChatMessageRoleSystem
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return openai.ChatCompletionRequest{
		Model:       modelOr(req, p.model),
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
		Stream:      stream,
	}
}

func (p *openAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	if req.APIKey == "" {
		return "", &Error{Provider: OpenAI, Op: "generate", Message: "no key configured", Cause: ErrMissingAPIKey}
	}
	resp, err := p.client(req.APIKey).CreateChatCompletion(ctx, p.request(req, false))
	if err != nil {
		return "", openAIError("generate", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &Error{Provider: OpenAI, Op: "generate", Message: "empty completion response"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *openAIProvider) Stream(ctx context.Context, req Request, onDelta func(string) error) error {
	if req.APIKey == "" {
		return &Error{Provider: OpenAI, Op: "stream", Message: "no key configured", Cause: ErrMissingAPIKey}
	}
	stream, err := p.client(req.APIKey).CreateChatCompletionStream(ctx, p.request(req, true))
	if err != nil {
		return openAIError("stream", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return openAIError("stream", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			if err := onDelta(delta); err != nil {
				return err
			}
		}
	}
}

// TestConnection lists models, which needs a valid key and nothing else.
func (p *openAIProvider) TestConnection(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return &Error{Provider: OpenAI, Op: "test", Message: "no key configured", Cause: ErrMissingAPIKey}
	}
	if _, err := p.client(apiKey).ListModels(ctx); err != nil {
		return openAIError("test", err)
	}
	return nil
}

func openAIError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Provider: OpenAI, Op: op, Status: apiErr.HTTPStatusCode, Message: apiErr.Message, Cause: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Provider: OpenAI, Op: op, Status: reqErr.HTTPStatusCode, Message: "request failed", Cause: err}
	}
	return &Error{Provider: OpenAI, Op: op, Message: "request failed", Cause: err}
}
