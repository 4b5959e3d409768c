package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rctrack/internal/dashboard/models"
	"rctrack/pkg/domain"
	dErrors "rctrack/pkg/domain-errors"
	"rctrack/pkg/platform/httputil"
	"rctrack/pkg/requestcontext"
)

type Service interface {
	Dashboard(ctx context.Context, p domain.Principal, scope models.Scope) (*models.Dashboard, error)
}

// Handler serves the dashboard endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts GET /dashboard (every entry) and GET /dashboard/owner (the
// caller's entries).
func (h *Handler) Register(r chi.Router) {
	r.Get("/dashboard", h.serve(models.ScopeAll))
	r.Get("/dashboard/owner", h.serve(models.ScopeOwner))
}

// DashboardResponse is the success envelope.
type DashboardResponse struct {
	Success bool              `json:"success"`
	Data    *models.Dashboard `json:"data"`
}

func (h *Handler) serve(scope models.Scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		p, ok := requestcontext.Principal(ctx)
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}

		d, err := h.service.Dashboard(ctx, p, scope)
		if err != nil {
			h.logger.ErrorContext(ctx, "dashboard failed",
				"error", err,
				"scope", string(scope),
				"request_id", requestcontext.RequestID(ctx),
			)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, DashboardResponse{Success: true, Data: d})
	}
}
