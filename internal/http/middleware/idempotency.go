// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotent replay for unsafe requests. Generating a
// character reply is slow and not repeatable, so a client that retries a
// POST after a dropped connection would otherwise get a second, different
// reply. When the request carries an Idempotency-Key header, the first
// successful response is cached in memory for a TTL and replayed verbatim to
// later requests with the same method, path and key.
package middleware

import (
	"bytes"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client-chosen idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplay is set to "true" on replayed responses.
const HeaderIdempotentReplay = "Idempotent-Replayed"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key stored by Idempotency.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the response is being served from the cache.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures Idempotency.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; nil uses ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// TTL bounds how long responses are replayable. Values <= 0 default to 24h.
	TTL time.Duration
	// MaxBody skips caching responses larger than this many bytes.
	// Values <= 0 default to 1 MiB.
	MaxBody int
}

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
	expires     time.Time
}

// IdempotencyCache holds replayable responses. It is safe for concurrent use.
type IdempotencyCache struct {
	opts IdempotencyOptions
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cachedResponse
}

// NewIdempotencyCache returns an empty cache with defaults applied to opts.
func NewIdempotencyCache(opts IdempotencyOptions) *IdempotencyCache {
	if opts.MaxLen <= 0 {
		opts.MaxLen = 200
	}
	if opts.Pattern == nil {
		opts.Pattern = defaultKeyPattern
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = 1 << 20
	}
	return &IdempotencyCache{opts: opts, now: time.Now, entries: map[string]cachedResponse{}}
}

func (ic *IdempotencyCache) get(key string) (cachedResponse, bool) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	now := ic.now()
	for k, e := range ic.entries {
		if now.After(e.expires) {
			delete(ic.entries, k)
		}
	}
	e, ok := ic.entries[key]
	return e, ok
}

func (ic *IdempotencyCache) put(key string, e cachedResponse) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	e.expires = ic.now().Add(ic.opts.TTL)
	ic.entries[key] = e
}

// captureWriter tees the response body so it can be cached.
type captureWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Handler returns the middleware. Requests without the header pass through.
// Malformed keys are rejected with 400. Only 2xx responses are cached.
func (ic *IdempotencyCache) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}
		if len(key) > ic.opts.MaxLen || !ic.opts.Pattern.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_request",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		cacheKey := c.Request.Method + " " + c.Request.URL.Path + " " + key
		if e, ok := ic.get(cacheKey); ok {
			c.Set(ctxKeyIdemReplay, true)
			c.Header(HeaderIdempotentReplay, "true")
			c.Data(e.status, e.contentType, e.body)
			c.Abort()
			return
		}

		buf := &bytes.Buffer{}
		c.Writer = captureWriter{ResponseWriter: c.Writer, buf: buf}
		c.Next()

		status := c.Writer.Status()
		if status >= 200 && status < 300 && buf.Len() <= ic.opts.MaxBody {
			ic.put(cacheKey, cachedResponse{
				status:      status,
				contentType: c.Writer.Header().Get("Content-Type"),
				body:        bytes.Clone(buf.Bytes()),
			})
		}
	}
}
