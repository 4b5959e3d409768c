package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"rctrack/pkg/domain"
	dErrors "rctrack/pkg/domain-errors"
	"rctrack/pkg/platform/httputil"
	request "rctrack/pkg/platform/middleware/request"
	"rctrack/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// TokenRevocationChecker defines the interface for checking if tokens are revoked
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	UserID string
	Role   string
	Name   string
	JTI    string // JWT ID for revocation tracking
}

// Principal parses the claims into a domain principal.
func (c *JWTClaims) Principal() (domain.Principal, error) {
	userID, err := domain.ParseUserID(c.UserID)
	if err != nil {
		return domain.Principal{}, err
	}
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return domain.Principal{}, err
	}
	return domain.Principal{ID: userID, Role: role, Name: c.Name}, nil
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, msg))
}

// RequireAuth validates the bearer token and injects the principal into the request
// context. revocationChecker may be nil.
func RequireAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			principal, err := claims.Principal()
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed claims",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			if revocationChecker != nil && claims.JTI != "" {
				revoked, err := revocationChecker.IsTokenRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"error", err,
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate token"))
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked",
						"jti", claims.JTI,
						"request_id", requestID,
					)
					writeUnauthorized(w, "Token has been revoked")
					return
				}
			}

			ctx = requestcontext.WithPrincipal(ctx, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
