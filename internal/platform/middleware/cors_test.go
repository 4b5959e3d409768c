package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	serve := func(origin string, req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		CORS(origin)(next).ServeHTTP(rec, req)
		return rec
	}

	t.Run("allowed origin gets headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/rc", nil)
		req.Header.Set("Origin", "https://dealer.example.com")
		rec := serve("https://dealer.example.com/", req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "https://dealer.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, rec.Header().Values("Vary"), "Origin")
	})

	t.Run("rate limit and download headers are readable by the browser", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/rc", nil)
		req.Header.Set("Origin", "https://dealer.example.com")
		rec := serve("https://dealer.example.com", req)

		exposed := strings.ToLower(rec.Header().Get("Access-Control-Expose-Headers"))
		for _, h := range []string{"content-disposition", "x-request-id", "x-ratelimit-limit", "x-ratelimit-remaining", "x-ratelimit-reset", "retry-after"} {
			assert.Contains(t, exposed, h)
		}
	})

	t.Run("other origin gets no allow header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/rc", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := serve("https://dealer.example.com", req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("wildcard origin never allows credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/rc", nil)
		req.Header.Set("Origin", "https://anyone.example.com")
		rec := serve("*", req)

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/rc/1/upload", nil)
		req.Header.Set("Origin", "https://dealer.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		req.Header.Set("Access-Control-Request-Headers", "Authorization")
		rec := serve("https://dealer.example.com", req)

		assert.NotEqual(t, http.StatusTeapot, rec.Code, "router is not reached")
		assert.Less(t, rec.Code, 300)
		assert.Equal(t, http.MethodPut, rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("preflight for an unlisted method is refused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/rc/1", nil)
		req.Header.Set("Origin", "https://dealer.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
		rec := serve("https://dealer.example.com", req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("disabled without origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/rc", nil)
		req.Header.Set("Origin", "https://dealer.example.com")
		rec := serve("", req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
