package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "rctrack/pkg/domain-errors"
	"rctrack/pkg/platform/httputil"
	request "rctrack/pkg/platform/middleware/request"
)

// HeaderAdminToken carries the operator token for infrastructure endpoints such as
// /metrics, which scrapers call without a user session.
const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken guards operator endpoints. An empty expectedToken leaves the
// route open, which is the local development default.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expectedToken == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderAdminToken)
			// Constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
