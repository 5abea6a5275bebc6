package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tbourn/character-hub/internal/domain"
)

func TestToAnthropic_ShapesConversation(t *testing.T) {
	req := Request{
		System: "Be Ada.",
		Messages: []Message{
			{Role: domain.RoleAssistant, Content: "Hello! I'm Ada."},
			{Role: domain.RoleUser, Content: "hi"},
			{Role: domain.RoleUser, Content: "are you there?"},
			{Role: domain.RoleSystem, Content: "Stay in character."},
			{Role: domain.RoleAssistant, Content: "Yes."},
		},
	}
	out := toAnthropic(req, "m")
	if out.MaxTokens != anthropicDefaultMaxTokens {
		t.Fatalf("max tokens default = %d", out.MaxTokens)
	}
	if len(out.Messages) != 2 || out.Messages[0].Role != "user" || out.Messages[1].Role != "assistant" {
		t.Fatalf("unexpected messages: %+v", out.Messages)
	}
	if out.Messages[0].Content != "hi\n\nare you there?" {
		t.Fatalf("adjacent user turns not merged: %q", out.Messages[0].Content)
	}
	want := "Be Ada.\n\nYou previously said: Hello! I'm Ada.\n\nStay in character."
	if out.System != want {
		t.Fatalf("system = %q", out.System)
	}
}

func TestAnthropic_GenerateHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "ak" || r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("headers = %v", r.Header)
		}
		var body anthropicRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Model != "claude-3-haiku-20240307" || body.MaxTokens != 200 {
			t.Errorf("body = %+v", body)
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"Hi "},{"type":"text","text":"there"}]}`)
	}))
	defer srv.Close()

	p := newAnthropic(newJSONClient(Anthropic, srv.Client()), srv.URL+"/v1/", "", "")
	out, err := p.Generate(context.Background(), Request{
		APIKey:    "ak",
		MaxTokens: 200,
		Messages:  []Message{{Role: domain.RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "Hi there" {
		t.Fatalf("reply = %q", out)
	}
}

func TestAnthropic_ErrorsAndMissingKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":"overloaded"}`)
	}))
	defer srv.Close()
	p := newAnthropic(newJSONClient(Anthropic, srv.Client()), srv.URL, "", "")

	if _, err := p.Generate(context.Background(), Request{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("want ErrMissingAPIKey, got %v", err)
	}
	_, err := p.Generate(context.Background(), Request{APIKey: "k", Messages: []Message{{Role: domain.RoleUser, Content: "x"}}})
	var pe *Error
	if !errors.As(err, &pe) || pe.Status != http.StatusServiceUnavailable || !pe.Temporary() {
		t.Fatalf("want temporary 503 error, got %v", err)
	}
	if err := p.TestConnection(context.Background(), "k"); err == nil {
		t.Fatalf("TestConnection should fail on 503")
	}
}
