package provider

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/character-hub/internal/domain"
)

func TestParseKind(t *testing.T) {
	for _, in := range []string{"openai", " Anthropic ", "LOCAL", "mock"} {
		if _, err := ParseKind(in); err != nil {
			t.Fatalf("ParseKind(%q) error: %v", in, err)
		}
	}
	if _, err := ParseKind("gemini"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("want ErrUnknownProvider, got %v", err)
	}
}

func TestEstimateTokens(t *testing.T) {
	cases := map[string]int{"": 0, "a": 1, "abcd": 1, "abcde": 2, "héllo wörld": 3}
	for in, want := range cases {
		if got := EstimateTokens(in); got != want {
			t.Fatalf("EstimateTokens(%q) = %d; want %d", in, got, want)
		}
	}
}

func TestRequest_LastContentPrefersUser(t *testing.T) {
	r := Request{Messages: []Message{
		{Role: domain.RoleUser, Content: "question"},
		{Role: domain.RoleAssistant, Content: "answer"},
	}}
	if r.lastContent() != "question" {
		t.Fatalf("lastContent = %q", r.lastContent())
	}
	if (Request{}).lastContent() != "" {
		t.Fatalf("empty request should have empty content")
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrMissingAPIKey, false},
		{&Error{Provider: OpenAI, Cause: ErrMissingAPIKey}, false},
		{context.Canceled, false},
		{haltError{errors.New("x")}, false},
		{&Error{Status: 401}, false},
		{&Error{Status: 429}, true},
		{&Error{Status: 503}, true},
		{&Error{}, true},
		{errors.New("boom"), true},
	}
	for i, tc := range cases {
		if got := retryable(tc.err); got != tc.want {
			t.Fatalf("case %d: retryable(%v) = %v; want %v", i, tc.err, got, tc.want)
		}
	}
}

func TestError_Message(t *testing.T) {
	e := &Error{Provider: Anthropic, Op: "generate", Status: 500, Message: "down", Cause: ErrUnavailable}
	msg := e.Error()
	for _, want := range []string{"anthropic", "generate", "down", "500", "provider unavailable"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q missing %q", msg, want)
		}
	}
	if !errors.Is(e, ErrUnavailable) {
		t.Fatalf("Error should unwrap to its cause")
	}
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("want canceled, got %v", err)
	}
	if err := sleepCtx(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
