package attachment

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "rctrack/pkg/domain-errors"
	"rctrack/pkg/platform/httputil"
	"rctrack/pkg/platform/middleware/request"
	"rctrack/pkg/platform/sentinel"
)

// FileServer serves stored attachments inline as PDF.
type FileServer struct {
	store   Store
	locator Locator
	logger  *slog.Logger
}

func NewFileServer(store Store, locator Locator, logger *slog.Logger) *FileServer {
	return &FileServer{store: store, locator: locator, logger: logger}
}

// Register mounts GET {root}/{name}.
func (f *FileServer) Register(r chi.Router) {
	r.Get(f.locator.URL("{name}"), f.handleGet)
}

func (f *FileServer) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	if !ValidName(name) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "file not found"))
		return
	}

	body, err := f.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "file not found"))
			return
		}
		f.logger.ErrorContext(ctx, "failed to open attachment",
			"error", err,
			"attachment", name,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		f.logger.WarnContext(ctx, "attachment download interrupted",
			"error", err,
			"attachment", name,
			"request_id", request.GetRequestID(ctx),
		)
	}
}
