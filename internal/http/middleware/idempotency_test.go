package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newIdemRouter(ic *IdempotencyCache, calls *atomic.Int32, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ic.Handler())
	r.POST("/chats/:id/messages", func(c *gin.Context) {
		key, _ := GetIdempotencyKey(c)
		c.JSON(status, gin.H{"reply": calls.Add(1), "key": key})
	})
	return r
}

func post(r http.Handler, path, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysFirstSuccess(t *testing.T) {
	var calls atomic.Int32
	r := newIdemRouter(NewIdempotencyCache(IdempotencyOptions{}), &calls, http.StatusCreated)

	first := post(r, "/chats/a/messages", "k-1")
	second := post(r, "/chats/a/messages", "k-1")
	if calls.Load() != 1 {
		t.Fatalf("handler ran %d times, want 1", calls.Load())
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Fatalf("replay mismatch: %d %q vs %q", second.Code, second.Body.String(), first.Body.String())
	}
	if second.Header().Get(HeaderIdempotentReplay) != "true" || first.Header().Get(HeaderIdempotentReplay) != "" {
		t.Fatalf("replay header wrong")
	}
	if !strings.HasPrefix(second.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("content type not replayed: %q", second.Header().Get("Content-Type"))
	}

	// Different path or key runs the handler again.
	post(r, "/chats/b/messages", "k-1")
	post(r, "/chats/a/messages", "k-2")
	post(r, "/chats/a/messages", "")
	if calls.Load() != 4 {
		t.Fatalf("handler ran %d times, want 4", calls.Load())
	}
}

func TestIdempotency_ErrorsAreNotCached(t *testing.T) {
	var calls atomic.Int32
	r := newIdemRouter(NewIdempotencyCache(IdempotencyOptions{}), &calls, http.StatusBadGateway)
	post(r, "/chats/a/messages", "k")
	post(r, "/chats/a/messages", "k")
	if calls.Load() != 2 {
		t.Fatalf("failed responses must not be replayed")
	}
}

func TestIdempotency_InvalidKeys(t *testing.T) {
	var calls atomic.Int32
	r := newIdemRouter(NewIdempotencyCache(IdempotencyOptions{MaxLen: 5}), &calls, http.StatusOK)
	for _, key := range []string{"toolong", "bad key", "ünï"} {
		if w := post(r, "/chats/a/messages", key); w.Code != http.StatusBadRequest {
			t.Fatalf("key %q: want 400, got %d", key, w.Code)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("handler should not run for invalid keys")
	}
}

func TestIdempotency_Expiry(t *testing.T) {
	var calls atomic.Int32
	ic := NewIdempotencyCache(IdempotencyOptions{TTL: time.Minute})
	now := time.Now()
	ic.now = func() time.Time { return now }
	r := newIdemRouter(ic, &calls, http.StatusOK)

	post(r, "/chats/a/messages", "k")
	now = now.Add(2 * time.Minute)
	post(r, "/chats/a/messages", "k")
	if calls.Load() != 2 {
		t.Fatalf("expired entry replayed")
	}
}

func TestIdempotency_HelpersDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("expected no key")
	}
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false")
	}
	c.Set(ctxKeyIdemReplay, "yes")
	if IsReplay(c) {
		t.Fatalf("non-bool should read as false")
	}
}
