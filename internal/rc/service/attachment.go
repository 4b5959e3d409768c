package service

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"rctrack/internal/rc/attachment"
	"rctrack/internal/rc/authz"
	"rctrack/internal/rc/models"
	"rctrack/pkg/domain"
	dErrors "rctrack/pkg/domain-errors"
	audit "rctrack/pkg/platform/audit"
	"rctrack/pkg/platform/middleware/request"
	"rctrack/pkg/requestcontext"
)

// Document is an uploaded file whose content type has already been checked.
type Document struct {
	Content io.Reader
	Size    int64
}

// AttachDocument stores doc and points the entry at it, replacing any previous
// document. The old object is removed only once the record names the new one, so a
// failed record write leaves the entry and its current document untouched. Failure
// to remove the old object is logged and leaves an orphan.
func (s *Service) AttachDocument(ctx context.Context, p domain.Principal, id domain.EntryID, doc Document) (entry *models.Entry, err error) {
	defer s.observe(operationAttach, time.Now())
	ctx, span := s.startSpan(ctx, "AttachDocument")
	span.SetAttributes(attribute.String(attrEntryID, id.String()))
	defer func() { endSpan(span, err) }()

	current, err := s.loadAuthorized(ctx, p, id, authz.ActionAttach)
	if err != nil {
		return nil, err
	}
	if doc.Content == nil || doc.Size <= 0 {
		return nil, dErrors.NewWithReason(dErrors.CodeValidation, models.ReasonInvalidDocument, "Please upload a PDF file")
	}

	name := attachment.NewName(requestcontext.Now(ctx))
	if err := s.attachments.Put(ctx, name, doc.Content, doc.Size); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to store document")
	}
	span.SetAttributes(attribute.String("rc.attachment", name))

	url := s.locator.URL(name)
	entry, err = s.store.Update(ctx, id, models.Patch{PDFURL: &url})
	if err != nil {
		s.releaseDocument(ctx, p, current, url, cleanupOpRollback)
		return nil, s.classifyWriteError(err, "failed to record document")
	}

	if current.HasDocument() && *current.PDFURL != url {
		s.releaseDocument(ctx, p, entry, *current.PDFURL, cleanupOpReplace)
	}

	s.logger.InfoContext(ctx, "rc document attached",
		"entry_id", id.String(),
		"user_id", p.ID.String(),
		"attachment", name,
		"request_id", request.GetRequestID(ctx),
	)
	s.incrementAttached()
	s.emitAudit(ctx, p, audit.EventRCDocumentAttached, entry, decisionGranted, "")
	s.invalidateStats(ctx, entry.CreatedBy)
	return entry, nil
}

// releaseDocument deletes the object behind url. Failures are logged, counted and
// audited but never returned.
func (s *Service) releaseDocument(ctx context.Context, p domain.Principal, entry *models.Entry, url, operation string) {
	name, ok := s.locator.Name(url)
	if !ok {
		s.logger.WarnContext(ctx, "attachment url not managed by this store, skipping cleanup",
			"entry_id", entry.ID.String(),
			"pdf_url", url,
			"operation", operation,
			"request_id", request.GetRequestID(ctx),
		)
		return
	}
	if err := s.attachments.Delete(ctx, name); err != nil {
		s.logger.WarnContext(ctx, "attachment cleanup failed, object may be orphaned",
			"error", err,
			"entry_id", entry.ID.String(),
			"attachment", name,
			"operation", operation,
			"request_id", request.GetRequestID(ctx),
		)
		s.incrementCleanupFailure(operation)
		s.emitAudit(ctx, p, audit.EventAttachmentCleanupFailed, entry, decisionDegraded, operation)
	}
}
