package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func securityRecorder(opt SecurityOptions, prep func(*http.Request), pre ...gin.HandlerFunc) http.Header {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(pre...)
	r.Use(SecurityHeaders(opt))
	r.GET("/transcript", func(c *gin.Context) { c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<p>hi</p>")) })

	req := httptest.NewRequest(http.MethodGet, "/transcript", nil)
	if prep != nil {
		prep(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders(t *testing.T) {
	viaTLS := func(r *http.Request) { r.TLS = &tls.ConnectionState{} }
	viaProxy := func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "HTTPS") }

	cases := []struct {
		name string
		opt  SecurityOptions
		prep func(*http.Request)
		want map[string]string // "" means the header must be absent
	}{
		{
			name: "baseline",
			want: map[string]string{
				"X-Content-Type-Options":    "nosniff",
				"X-Frame-Options":           "DENY",
				"Referrer-Policy":           "no-referrer",
				"Permissions-Policy":        "",
				"Cache-Control":             "",
				"Strict-Transport-Security": "",
				"Content-Security-Policy":   "",
			},
		},
		{
			name: "policy and no-store",
			opt:  SecurityOptions{EnablePolicy: true, NoStore: true},
			want: map[string]string{
				"Permissions-Policy":                "geolocation=(), microphone=(), camera=(), payment=()",
				"X-Permitted-Cross-Domain-Policies": "none",
				"Cache-Control":                     "no-store",
				"Pragma":                            "no-cache",
				"Expires":                           "0",
			},
		},
		{
			name: "hsts ignored over plain http",
			opt:  SecurityOptions{EnableHSTS: true},
			want: map[string]string{"Strict-Transport-Security": ""},
		},
		{
			name: "hsts over tls with custom max-age",
			opt:  SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour},
			prep: viaTLS,
			want: map[string]string{"Strict-Transport-Security": "max-age=3600; includeSubDomains; preload"},
		},
		{
			name: "hsts behind proxy with default max-age",
			opt:  SecurityOptions{EnableHSTS: true},
			prep: viaProxy,
			want: map[string]string{"Strict-Transport-Security": "max-age=15552000; includeSubDomains; preload"},
		},
		{
			name: "content security policy",
			opt:  SecurityOptions{ContentSecurityPolicy: DefaultCSP},
			want: map[string]string{"Content-Security-Policy": DefaultCSP},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := securityRecorder(tc.opt, tc.prep)
			for k, want := range tc.want {
				if got := h.Get(k); got != want {
					t.Errorf("%s = %q; want %q", k, got, want)
				}
			}
		})
	}
}

func TestSecurityHeaders_ExposesRequestID(t *testing.T) {
	h := securityRecorder(SecurityOptions{}, nil, RequestID())
	if got := h.Get("Access-Control-Expose-Headers"); got != requestIDHeader {
		t.Fatalf("expose = %q", got)
	}

	// Appends to an existing list without duplicating.
	h = securityRecorder(SecurityOptions{}, nil, RequestID(), func(c *gin.Context) {
		c.Header("Access-Control-Expose-Headers", "Content-Disposition")
		c.Next()
	})
	if got := h.Get("Access-Control-Expose-Headers"); got != "Content-Disposition, "+requestIDHeader {
		t.Fatalf("expose = %q", got)
	}
}

func TestDefaultCSP_BlocksScripts(t *testing.T) {
	for _, directive := range []string{"default-src 'none'", "frame-ancestors 'none'"} {
		if !strings.Contains(DefaultCSP, directive) {
			t.Fatalf("DefaultCSP missing %q", directive)
		}
	}
}
