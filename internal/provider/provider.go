// Package provider talks to the text-generation backends that voice the
// characters. A closed set of backends is supported (OpenAI, Anthropic, a
// self-hosted local server and an offline mock) and the Gateway in this
// package selects between them, holds their API keys, rate limits and retries
// calls, and falls back to the mock when a real backend fails.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tbourn/character-hub/internal/domain"
)

// Kind names a backend.
type Kind string

const (
	OpenAI    Kind = "openai"
	Anthropic Kind = "anthropic"
	Local     Kind = "local"
	Mock      Kind = "mock"
)

// Kinds lists every supported backend in display order.
var Kinds = []Kind{OpenAI, Anthropic, Local, Mock}

// ParseKind maps a case-insensitive name to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// Message is one turn of the conversation sent to a backend.
type Message struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

// Persona describes the character the backend speaks as. Only the mock reads
// it directly; real backends receive it through the system prompt.
type Persona struct {
	Name        string
	Personality string
	Greeting    string
	Scenario    string
}

// Request is a single generation call.
type Request struct {
	System      string
	Messages    []Message
	Model       string // empty selects the backend default
	Temperature float64
	MaxTokens   int
	TopP        float64
	APIKey      string
	Persona     Persona
}

// lastContent returns the most recent user turn, or the last turn of any role.
func (r Request) lastContent() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == domain.RoleUser {
			return r.Messages[i].Content
		}
	}
	if n := len(r.Messages); n > 0 {
		return r.Messages[n-1].Content
	}
	return ""
}

// Provider is implemented by every backend.
type Provider interface {
	Kind() Kind
	// Models lists the model names the backend offers.
	Models() []string
	// DefaultModel is used when a Request leaves Model empty.
	DefaultModel() string
	// RequiresKey reports whether calls need an API key.
	RequiresKey() bool
	// Available reports whether the backend can currently take requests.
	Available(ctx context.Context) bool
	Generate(ctx context.Context, req Request) (string, error)
	TestConnection(ctx context.Context, apiKey string) error
}

// Streamer is implemented by backends that deliver replies incrementally.
// Callers of other backends get word-by-word streaming simulated by the
// Gateway.
type Streamer interface {
	Stream(ctx context.Context, req Request, onDelta func(string) error) error
}

func modelOr(req Request, def string) string {
	if req.Model != "" && req.Model != domain.DefaultModel {
		return req.Model
	}
	return def
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
