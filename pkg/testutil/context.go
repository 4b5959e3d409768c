package testutil

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"rctrack/pkg/domain"
	"rctrack/pkg/requestcontext"
)

// WithPrincipal adds an authenticated principal to the request context.
// This simulates what the auth middleware does for authenticated requests.
func WithPrincipal(req *http.Request, p domain.Principal) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), p))
}

// NewStaff returns a staff principal with a fresh id.
func NewStaff(name string) domain.Principal {
	return domain.Principal{ID: domain.UserID(uuid.NewString()), Role: domain.RoleStaff, Name: name}
}

// NewAdmin returns an admin principal with a fresh id.
func NewAdmin(name string) domain.Principal {
	return domain.Principal{ID: domain.UserID(uuid.NewString()), Role: domain.RoleAdmin, Name: name}
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
