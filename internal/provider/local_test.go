package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tbourn/character-hub/internal/domain"
)

func TestLocal_HealthAndGenerate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var body localRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Messages) != 1 || body.Model != "local-model" || body.MaxTokens != 50 {
			t.Errorf("unexpected body %+v", body)
		}
		_ = json.NewEncoder(w).Encode(localResponse{Response: "local says hi"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newLocal(newJSONClient(Local, srv.Client()), srv.URL+"/api", time.Second)
	if !p.Available(context.Background()) {
		t.Fatalf("expected local backend available")
	}
	if err := p.TestConnection(context.Background(), ""); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	out, err := p.Generate(context.Background(), Request{
		MaxTokens: 50,
		Messages:  []Message{{Role: domain.RoleUser, Content: "hello"}},
	})
	if err != nil || out != "local says hi" {
		t.Fatalf("Generate = %q, %v", out, err)
	}
}

func TestLocal_UnavailableWhenHealthFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newLocal(newJSONClient(Local, srv.Client()), srv.URL, 0)
	if p.Available(context.Background()) {
		t.Fatalf("expected unavailable on 500 health")
	}
	if err := p.TestConnection(context.Background(), ""); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	if p.RequiresKey() {
		t.Fatalf("local backend needs no key")
	}
}
