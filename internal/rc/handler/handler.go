package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rctrack/internal/rc/attachment"
	"rctrack/internal/rc/models"
	"rctrack/internal/rc/service"
	"rctrack/pkg/domain"
	dErrors "rctrack/pkg/domain-errors"
	"rctrack/pkg/platform/httputil"
	"rctrack/pkg/requestcontext"
)

const (
	uploadField     = "pdf"
	sniffLen        = 512
	multipartMemory = 1 << 20
	// multipartSlack covers boundaries and part headers around the file itself.
	multipartSlack = 64 << 10
)

// Service is the RC entry lifecycle the handler exposes.
type Service interface {
	CreateEntry(ctx context.Context, p domain.Principal, in service.CreateInput) (*models.Entry, error)
	ListEntries(ctx context.Context, p domain.Principal) ([]*models.Entry, error)
	GetEntry(ctx context.Context, p domain.Principal, id domain.EntryID) (*models.Entry, error)
	UpdateEntry(ctx context.Context, p domain.Principal, id domain.EntryID, patch models.Patch) (*models.Entry, error)
	DeleteEntry(ctx context.Context, p domain.Principal, id domain.EntryID) error
	AttachDocument(ctx context.Context, p domain.Principal, id domain.EntryID, doc service.Document) (*models.Entry, error)
}

// Handler serves the /rc endpoints.
type Handler struct {
	service        Service
	logger         *slog.Logger
	maxUploadBytes int64
}

// New constructs an RC handler. maxUploadBytes bounds the PDF part of an upload.
func New(service Service, logger *slog.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// Register mounts the RC endpoints on the router. Routes expect an authenticated
// principal in the request context.
func (h *Handler) Register(r chi.Router) {
	r.Route("/rc", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Post("/{id}/upload", h.HandleUpload)
	})
}

// HandleCreate handles POST /rc.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	entry, err := h.service.CreateEntry(ctx, p, req.Input())
	if err != nil {
		h.writeServiceError(ctx, w, err, "create rc entry failed")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entryResponse(entry))
}

// HandleList handles GET /rc.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	entries, err := h.service.ListEntries(ctx, p)
	if err != nil {
		h.writeServiceError(ctx, w, err, "list rc entries failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse(entries))
}

// HandleGet handles GET /rc/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}

	entry, err := h.service.GetEntry(ctx, p, id)
	if err != nil {
		h.writeServiceError(ctx, w, err, "get rc entry failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entryResponse(entry))
}

// HandleUpdate handles PUT /rc/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	entry, err := h.service.UpdateEntry(ctx, p, id, req.Patch())
	if err != nil {
		h.writeServiceError(ctx, w, err, "update rc entry failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entryResponse(entry))
}

// HandleDelete handles DELETE /rc/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteEntry(ctx, p, id); err != nil {
		h.writeServiceError(ctx, w, err, "delete rc entry failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DeleteResponse{Success: true, Message: msgEntryDeleted})
}

// HandleUpload handles POST /rc/{id}/upload with the PDF in the "pdf" multipart field.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartSlack)
	file, header, err := r.FormFile(uploadField)
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	if err != nil {
		h.logger.WarnContext(ctx, "invalid upload",
			"error", err,
			"entry_id", id.String(),
			"request_id", requestID,
		)
		httputil.WriteError(w, uploadError(err))
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		httputil.WriteError(w, dErrors.NewWithReason(dErrors.CodeValidation, models.ReasonInvalidDocument, "PDF exceeds the upload size limit"))
		return
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		h.logger.ErrorContext(ctx, "failed to read upload",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read upload"))
		return
	}
	head = head[:n]
	if n == 0 || http.DetectContentType(head) != attachment.ContentType {
		httputil.WriteError(w, dErrors.NewWithReason(dErrors.CodeValidation, models.ReasonInvalidDocument, "Please upload a PDF file"))
		return
	}

	entry, err := h.service.AttachDocument(ctx, p, id, service.Document{
		Content: io.MultiReader(bytes.NewReader(head), file),
		Size:    header.Size,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "upload rc document failed")
		return
	}

	h.logger.InfoContext(ctx, "rc document uploaded",
		"entry_id", id.String(),
		"bytes", header.Size,
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, entryResponse(entry))
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := requestcontext.Principal(r.Context())
	if !ok || p.ID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return domain.Principal{}, false
	}
	return p, true
}

// entryID parses the path id. An id that cannot name an entry is reported the
// same way as a missing one.
func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (domain.EntryID, bool) {
	id, err := domain.ParseEntryID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "RC Entry not found"))
		return domain.EntryID{}, false
	}
	return id, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	attrs := []any{"error", err, "request_id", requestcontext.RequestID(ctx)}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return dErrors.New(dErrors.CodeBadRequest, "Please upload a PDF file in the 'pdf' field")
	case errors.As(err, &tooLarge):
		return dErrors.NewWithReason(dErrors.CodeValidation, models.ReasonInvalidDocument, "PDF exceeds the upload size limit")
	default:
		return dErrors.New(dErrors.CodeBadRequest, "invalid multipart upload")
	}
}
