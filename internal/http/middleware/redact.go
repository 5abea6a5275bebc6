// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Redactor, which scrubs secrets and obvious PII from
// request metadata before it reaches the access log. Provider API keys are
// the main concern: they travel in headers and, from some clients, in query
// strings.
package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// Placeholder values written in place of scrubbed data.
const (
	redactedValue = "[REDACTED]"
	redactedKey   = "[REDACTED:key]"
	redactedEmail = "[REDACTED:email]"
)

var (
	// secretParamRE matches query parameters that conventionally carry secrets.
	secretParamRE = regexp.MustCompile(`(?i)\b(api_?key|apikey|key|token|access_token)=[^&\s]*`)
	// apiKeyRE matches provider key shapes such as sk-... and sk-ant-....
	apiKeyRE = regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{8,}`)
	emailRE  = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
)

// defaultMaskedHeaders are always fully masked.
var defaultMaskedHeaders = []string{"authorization", "cookie", "set-cookie", "x-api-key"}

// Redactor scrubs strings and header sets. It is safe for concurrent use.
type Redactor struct {
	mask map[string]struct{}
}

// NewRedactor returns a Redactor that fully masks the default sensitive
// headers plus maskHeaders (case-insensitive).
func NewRedactor(maskHeaders ...string) *Redactor {
	r := &Redactor{mask: make(map[string]struct{}, len(defaultMaskedHeaders)+len(maskHeaders))}
	for _, h := range append(defaultMaskedHeaders, maskHeaders...) {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.mask[h] = struct{}{}
		}
	}
	return r
}

// String scrubs secret parameters, API keys and email addresses from s.
// Secret parameters go first so their values are masked whole.
func (r *Redactor) String(s string) string {
	if s == "" {
		return s
	}
	s = secretParamRE.ReplaceAllString(s, "$1="+redactedValue)
	s = apiKeyRE.ReplaceAllString(s, redactedKey)
	return emailRE.ReplaceAllString(s, redactedEmail)
}

// Headers flattens h into a loggable map with sensitive values removed.
func (r *Redactor) Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.mask[strings.ToLower(k)]; ok {
			out[k] = redactedValue
			continue
		}
		out[k] = r.String(strings.Join(vv, ", "))
	}
	return out
}
