package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RouteLabelsAndFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/chats/:id", func(c *gin.Context) { c.String(http.StatusOK, "chat") })
	r.DELETE("/chats/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	baseGet := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/chats/:id", "200"))
	baseDel := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/chats/:id", "204"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedRoute, "404"))

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/chats/a"},
		{http.MethodGet, "/chats/b"},
		{http.MethodDelete, "/chats/a"},
		{http.MethodGet, "/missing"},
		{http.MethodGet, "/also/missing"},
	} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.path, nil))
	}

	// Both ids collapse onto the route label.
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/chats/:id", "200")); got != baseGet+2 {
		t.Fatalf("GET counter = %v, want %v", got, baseGet+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/chats/:id", "204")); got != baseDel+1 {
		t.Fatalf("DELETE counter = %v, want %v", got, baseDel+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedRoute, "404")); got != base404+2 {
		t.Fatalf("unmatched counter = %v, want %v", got, base404+2)
	}
	if got := testutil.ToFloat64(httpInflight); got != 0 {
		t.Fatalf("in-flight = %v, want 0", got)
	}
	if n := testutil.CollectAndCount(httpLat); n == 0 {
		t.Fatalf("latency histogram not observed")
	}
}

func TestMetrics_CountsReplays(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cache := NewIdempotencyCache(IdempotencyOptions{})
	r.Use(Metrics(), cache.Handler())
	r.POST("/characters", func(c *gin.Context) { c.JSON(http.StatusCreated, gin.H{"id": "char-1"}) })

	base := testutil.ToFloat64(httpReplays.WithLabelValues("/characters"))
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/characters", nil)
		req.Header.Set(HeaderIdempotencyKey, "same-key")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	if got := testutil.ToFloat64(httpReplays.WithLabelValues("/characters")); got != base+2 {
		t.Fatalf("replays = %v, want %v", got, base+2)
	}
}
