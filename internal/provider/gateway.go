package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/tbourn/character-hub/internal/config"
)

// Result is a generated reply and where it came from.
type Result struct {
	Text     string
	Provider Kind
	Model    string
	// Fallback is set when the selected backend failed and the mock answered.
	Fallback bool
}

// Status summarizes a backend for listing.
type Status struct {
	Name        Kind     `json:"name"`
	Current     bool     `json:"current"`
	RequiresKey bool     `json:"requiresKey"`
	HasKey      bool     `json:"hasKey"`
	Available   bool     `json:"available"`
	Streaming   bool     `json:"streaming"`
	Models      []string `json:"models"`
}

// Gateway routes generation requests to the selected backend. It is safe for
// concurrent use.
type Gateway struct {
	mu        sync.RWMutex
	providers map[Kind]Provider
	current   Kind
	keys      map[Kind]string
	limiters  map[Kind]*rate.Limiter

	attempts   int
	retryDelay time.Duration
	timeout    time.Duration
	wordDelay  time.Duration

	log   zerolog.Logger
	sleep func(context.Context, time.Duration) error
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithProvider replaces the backend of the same kind.
func WithProvider(p Provider) Option {
	return func(g *Gateway) { g.providers[p.Kind()] = p }
}

// WithLogger sets the logger used for fallback and retry events.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

// WithSleep replaces the wait used between retries and streamed words.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(g *Gateway) { g.sleep = fn }
}

// NewGateway builds the backends described by cfg. Keys from cfg seed the key
// table; callers may restore persisted keys with RestoreKeys.
func NewGateway(cfg config.ProviderConfig, opts ...Option) *Gateway {
	hc := &http.Client{Timeout: cfg.Timeout}
	g := &Gateway{
		providers: map[Kind]Provider{
			OpenAI:    newOpenAI(cfg.OpenAIBaseURL, cfg.OpenAIModel, hc),
			Anthropic: newAnthropic(newJSONClient(Anthropic, hc), cfg.AnthropicBaseURL, cfg.AnthropicVersion, cfg.AnthropicModel),
			Local:     newLocal(newJSONClient(Local, hc), cfg.LocalBaseURL, cfg.HealthTimeout),
			Mock:      newMock(cfg.MockMinDelay, cfg.MockMaxDelay),
		},
		current:    Mock,
		keys:       map[Kind]string{},
		limiters:   map[Kind]*rate.Limiter{},
		attempts:   max(cfg.RetryAttempts, 1),
		retryDelay: cfg.RetryDelay,
		timeout:    cfg.Timeout,
		wordDelay:  cfg.StreamWordDelay,
		log:        zerolog.Nop(),
		sleep:      sleepCtx,
	}
	if k, err := ParseKind(cfg.Default); err == nil {
		g.current = k
	}
	if cfg.OpenAIKey != "" {
		g.keys[OpenAI] = cfg.OpenAIKey
	}
	if cfg.AnthropicKey != "" {
		g.keys[Anthropic] = cfg.AnthropicKey
	}
	limit := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		limit = rate.Inf
	}
	for _, k := range Kinds {
		g.limiters[k] = rate.NewLimiter(limit, max(cfg.Burst, 1))
	}
	for _, o := range opts {
		o(g)
	}
	if g.timeout <= 0 {
		g.timeout = 30 * time.Second
	}
	return g
}

// Current returns the selected backend.
func (g *Gateway) Current() Kind {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current
}

// SetCurrent selects the backend used by Generate and Stream.
func (g *Gateway) SetCurrent(k Kind) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.providers[k]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, k)
	}
	g.current = k
	return nil
}

// SetAPIKey stores the key for k. An empty key clears it.
func (g *Gateway) SetAPIKey(k Kind, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.providers[k]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, k)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		delete(g.keys, k)
		return nil
	}
	g.keys[k] = key
	return nil
}

// Keys returns a copy of the key table keyed by provider name.
func (g *Gateway) Keys() map[string]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]string, len(g.keys))
	for k, v := range g.keys {
		out[string(k)] = v
	}
	return out
}

// RestoreKeys merges persisted keys into the key table. Unknown names and
// empty keys are skipped.
func (g *Gateway) RestoreKeys(keys map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for name, key := range keys {
		k, err := ParseKind(name)
		if err != nil || key == "" {
			continue
		}
		g.keys[k] = key
	}
}

// Statuses describes every backend. Availability probes run with ctx.
func (g *Gateway) Statuses(ctx context.Context) []Status {
	g.mu.RLock()
	current := g.current
	out := make([]Status, 0, len(Kinds))
	ps := make([]Provider, 0, len(Kinds))
	for _, k := range Kinds {
		p := g.providers[k]
		_, hasKey := g.keys[k]
		_, streams := p.(Streamer)
		ps = append(ps, p)
		out = append(out, Status{
			Name:        k,
			Current:     k == current,
			RequiresKey: p.RequiresKey(),
			HasKey:      hasKey,
			Streaming:   streams,
			Models:      p.Models(),
		})
	}
	g.mu.RUnlock()

	for i, p := range ps {
		out[i].Available = p.Available(ctx)
	}
	return out
}

// Models lists the models offered by k.
func (g *Gateway) Models(k Kind) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.providers[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, k)
	}
	return p.Models(), nil
}

// TestConnection checks that k accepts apiKey, or its stored key when apiKey
// is empty.
func (g *Gateway) TestConnection(ctx context.Context, k Kind, apiKey string) error {
	g.mu.RLock()
	p, ok := g.providers[k]
	if apiKey == "" {
		apiKey = g.keys[k]
	}
	g.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, k)
	}

	ctx, span := otel.Tracer("provider/Gateway").Start(ctx, "TestConnection",
		trace.WithAttributes(attribute.String("provider", string(k))))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	err := p.TestConnection(ctx, apiKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "test failed")
	}
	return err
}

// EstimateTokens approximates the token count of text at four characters per
// token, rounded up.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// selected returns the current backend and fills in its stored key.
func (g *Gateway) selected(req Request) (Provider, Request) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p := g.providers[g.current]
	if req.APIKey == "" {
		req.APIKey = g.keys[g.current]
	}
	return p, req
}

func (g *Gateway) mock() Provider {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.providers[Mock]
}

// Generate produces a full reply. Failures of a real backend are retried and
// then answered by the mock.
func (g *Gateway) Generate(ctx context.Context, req Request) (Result, error) {
	p, req := g.selected(req)
	ctx, span := otel.Tracer("provider/Gateway").Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("provider", string(p.Kind())),
			attribute.Int("messages", len(req.Messages)),
		))
	defer span.End()

	var text string
	err := g.attempt(ctx, p, func(ctx context.Context) error {
		var err error
		text, err = p.Generate(ctx, req)
		return err
	})
	if err == nil {
		return Result{Text: text, Provider: p.Kind(), Model: modelOr(req, p.DefaultModel())}, nil
	}
	res, ferr := g.fallback(ctx, p.Kind(), req, err)
	if ferr != nil {
		span.RecordError(ferr)
		span.SetStatus(codes.Error, "generate failed")
	}
	return res, ferr
}

// Stream delivers a reply through onDelta as it is produced and returns the
// full text. Backends without native streaming are replayed word by word.
// Once any text reached onDelta a failure is returned as is.
func (g *Gateway) Stream(ctx context.Context, req Request, onDelta func(string) error) (Result, error) {
	p, req := g.selected(req)
	s, ok := p.(Streamer)
	if !ok {
		res, err := g.Generate(ctx, req)
		if err != nil {
			return res, err
		}
		return res, g.replay(ctx, res.Text, onDelta)
	}

	ctx, span := otel.Tracer("provider/Gateway").Start(ctx, "Stream",
		trace.WithAttributes(attribute.String("provider", string(p.Kind()))))
	defer span.End()

	var sb strings.Builder
	err := g.attempt(ctx, p, func(ctx context.Context) error {
		sb.Reset()
		err := s.Stream(ctx, req, func(delta string) error {
			sb.WriteString(delta)
			if err := onDelta(delta); err != nil {
				return haltError{err}
			}
			return nil
		})
		if err != nil && sb.Len() > 0 {
			return haltError{err}
		}
		return err
	})
	if err == nil {
		return Result{Text: sb.String(), Provider: p.Kind(), Model: modelOr(req, p.DefaultModel())}, nil
	}
	var h haltError
	if errors.As(err, &h) {
		span.RecordError(h.err)
		span.SetStatus(codes.Error, "stream interrupted")
		return Result{Text: sb.String(), Provider: p.Kind()}, h.err
	}
	res, ferr := g.fallback(ctx, p.Kind(), req, err)
	if ferr != nil {
		span.RecordError(ferr)
		span.SetStatus(codes.Error, "stream failed")
		return res, ferr
	}
	return res, g.replay(ctx, res.Text, onDelta)
}

// replay emits text one word at a time, each followed by a space.
func (g *Gateway) replay(ctx context.Context, text string, onDelta func(string) error) error {
	for i, word := range strings.Split(text, " ") {
		if i > 0 {
			if err := g.sleep(ctx, g.wordDelay); err != nil {
				return err
			}
		}
		if err := onDelta(word + " "); err != nil {
			return err
		}
	}
	return nil
}

// attempt runs fn against p with availability check, rate limiting, a per-call
// timeout and retries.
func (g *Gateway) attempt(ctx context.Context, p Provider, fn func(context.Context) error) error {
	kind := p.Kind()
	if !p.Available(ctx) {
		providerReqs.WithLabelValues(string(kind), "unavailable").Inc()
		return &Error{Provider: kind, Op: "generate", Message: "backend not reachable", Cause: ErrUnavailable}
	}
	limiter := g.limiters[kind]

	var err error
	for i := 1; i <= g.attempts; i++ {
		if limiter != nil {
			if werr := limiter.Wait(ctx); werr != nil {
				return werr
			}
		}
		start := time.Now()
		actx, cancel := context.WithTimeout(ctx, g.timeout)
		err = fn(actx)
		cancel()
		observe(kind, err, time.Since(start))

		if err == nil || !retryable(err) || ctx.Err() != nil || i == g.attempts {
			break
		}
		g.log.Debug().Err(err).Str("provider", string(kind)).Int("attempt", i).Msg("retrying provider call")
		if serr := g.sleep(ctx, g.retryDelay); serr != nil {
			return serr
		}
	}
	return err
}

// fallback answers with the mock after kind failed with cause.
func (g *Gateway) fallback(ctx context.Context, kind Kind, req Request, cause error) (Result, error) {
	if kind == Mock || ctx.Err() != nil {
		return Result{}, cause
	}
	g.log.Warn().Err(cause).Str("provider", string(kind)).Msg("provider failed; falling back to mock")
	providerFallbacks.WithLabelValues(string(kind)).Inc()

	m := g.mock()
	start := time.Now()
	text, err := m.Generate(ctx, req)
	observe(Mock, err, time.Since(start))
	if err != nil {
		return Result{}, errors.Join(cause, err)
	}
	return Result{Text: text, Provider: Mock, Model: m.DefaultModel(), Fallback: true}, nil
}
