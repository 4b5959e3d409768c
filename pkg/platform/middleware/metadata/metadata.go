package metadata

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"rctrack/pkg/requestcontext"
)

// ClientMetadata extracts client IP address and User-Agent from the request
// and adds them to the context for use by handlers and audit emission.
// This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientDescription returns a short "Browser on OS" label for the request's
// User-Agent, or "" when none was captured.
func ClientDescription(ctx context.Context) string {
	return Describe(requestcontext.UserAgent(ctx))
}

// Describe summarizes a raw User-Agent header for audit records.
func Describe(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		name, _ := ua.Browser()
		return "bot:" + name
	}
	name, version := ua.Browser()
	label := name
	if version != "" {
		label += " " + version
	}
	if os := ua.OS(); os != "" {
		label += " on " + os
	}
	if ua.Mobile() {
		label += " (mobile)"
	}
	return strings.TrimSpace(label)
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For may list client, proxy1, proxy2; the first entry is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" or "[::1]:port".
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}

	return "unknown"
}
