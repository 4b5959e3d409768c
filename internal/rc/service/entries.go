package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"rctrack/internal/rc/authz"
	"rctrack/internal/rc/models"
	"rctrack/internal/rc/store"
	"rctrack/pkg/domain"
	dErrors "rctrack/pkg/domain-errors"
	audit "rctrack/pkg/platform/audit"
	"rctrack/pkg/platform/middleware/request"
	"rctrack/pkg/requestcontext"
)

const (
	msgEntryNotFound     = "RC Entry not found"
	msgDuplicateRegNo    = "An RC entry with this vehicle registration number already exists"
	msgUnauthenticated   = "authentication required"
	msgStoreTimeout      = "RC store did not respond in time"
	reasonNotOwner       = "not_owner"
	decisionGranted      = "granted"
	decisionDenied       = "denied"
	decisionDegraded     = "degraded"
	cleanupOpDelete      = "delete"
	cleanupOpReplace     = "replace"
	cleanupOpRollback    = "rollback"
	operationCreate      = "create"
	operationList        = "list"
	operationGet         = "get"
	operationUpdate      = "update"
	operationDelete      = "delete"
	operationAttach      = "attach"
	attrEntryID          = "rc.entry_id"
	attrPrincipalIsAdmin = "rc.principal_admin"
)

// CreateInput carries the client-supplied fields of a new entry.
type CreateInput struct {
	Details models.Details
	Status  models.Status
}

// CreateEntry records a new case owned by p.
func (s *Service) CreateEntry(ctx context.Context, p domain.Principal, in CreateInput) (entry *models.Entry, err error) {
	defer s.observe(operationCreate, time.Now())
	ctx, span := s.startSpan(ctx, "CreateEntry")
	defer func() { endSpan(span, err) }()

	if p.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, msgUnauthenticated)
	}
	in.Details.Normalize()
	if err := in.Details.Validate(); err != nil {
		return nil, err
	}

	entry = &models.Entry{
		ID:        domain.NewEntryID(),
		Details:   in.Details,
		Status:    in.Status,
		CreatedBy: p.ID,
		CreatedAt: requestcontext.Now(ctx).UTC(),
	}
	span.SetAttributes(attribute.String(attrEntryID, entry.ID.String()))

	if err := s.store.Create(ctx, entry); err != nil {
		if errors.Is(err, store.ErrDuplicateRegistration) {
			return nil, dErrors.NewWithReason(dErrors.CodeValidation, models.ReasonDuplicateRegistration, msgDuplicateRegNo)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create rc entry")
	}

	s.logger.InfoContext(ctx, "rc entry created",
		"entry_id", entry.ID.String(),
		"user_id", p.ID.String(),
		"request_id", request.GetRequestID(ctx),
	)
	s.incrementCreated()
	s.emitAudit(ctx, p, audit.EventRCEntryCreated, entry, decisionGranted, "")
	s.invalidateStats(ctx, entry.CreatedBy)
	return entry, nil
}

// ListEntries returns every entry for admins and the principal's own entries
// otherwise, newest first.
func (s *Service) ListEntries(ctx context.Context, p domain.Principal) (entries []*models.Entry, err error) {
	defer s.observe(operationList, time.Now())
	ctx, span := s.startSpan(ctx, "ListEntries")
	span.SetAttributes(attribute.Bool(attrPrincipalIsAdmin, p.IsAdmin()))
	defer func() { endSpan(span, err) }()

	if p.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, msgUnauthenticated)
	}
	entries, err = s.store.FindAll(ctx, authz.ListScope(p))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list rc entries")
	}
	return entries, nil
}

// GetEntry returns one entry. A missing id is NotFound for every role; an entry
// owned by someone else is Forbidden for non-admins.
func (s *Service) GetEntry(ctx context.Context, p domain.Principal, id domain.EntryID) (entry *models.Entry, err error) {
	defer s.observe(operationGet, time.Now())
	ctx, span := s.startSpan(ctx, "GetEntry")
	span.SetAttributes(attribute.String(attrEntryID, id.String()))
	defer func() { endSpan(span, err) }()

	return s.loadAuthorized(ctx, p, id, authz.ActionRead)
}

// UpdateEntry applies a partial update. Status flags in the patch are already
// coerced to booleans; pdfUrl can only change through AttachDocument.
func (s *Service) UpdateEntry(ctx context.Context, p domain.Principal, id domain.EntryID, patch models.Patch) (entry *models.Entry, err error) {
	defer s.observe(operationUpdate, time.Now())
	ctx, span := s.startSpan(ctx, "UpdateEntry")
	span.SetAttributes(attribute.String(attrEntryID, id.String()))
	defer func() { endSpan(span, err) }()

	patch.PDFURL = nil
	patch.Normalize()

	current, err := s.loadAuthorized(ctx, p, id, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return current, nil
	}

	entry, err = s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, s.classifyWriteError(err, "failed to update rc entry")
	}

	s.logger.InfoContext(ctx, "rc entry updated",
		"entry_id", id.String(),
		"user_id", p.ID.String(),
		"request_id", request.GetRequestID(ctx),
	)
	s.incrementUpdated()
	s.emitAudit(ctx, p, audit.EventRCEntryUpdated, entry, decisionGranted, "")
	s.invalidateStats(ctx, entry.CreatedBy)
	return entry, nil
}

// DeleteEntry removes the record, then releases its document. A failed document
// deletion is logged and never fails the operation.
func (s *Service) DeleteEntry(ctx context.Context, p domain.Principal, id domain.EntryID) (err error) {
	defer s.observe(operationDelete, time.Now())
	ctx, span := s.startSpan(ctx, "DeleteEntry")
	span.SetAttributes(attribute.String(attrEntryID, id.String()))
	defer func() { endSpan(span, err) }()

	entry, err := s.loadAuthorized(ctx, p, id, authz.ActionDelete)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return s.classifyWriteError(err, "failed to delete rc entry")
	}

	s.logger.InfoContext(ctx, "rc entry deleted",
		"entry_id", id.String(),
		"user_id", p.ID.String(),
		"request_id", request.GetRequestID(ctx),
	)
	s.incrementDeleted()
	s.emitAudit(ctx, p, audit.EventRCEntryDeleted, entry, decisionGranted, "")
	s.invalidateStats(ctx, entry.CreatedBy)

	if entry.HasDocument() {
		s.releaseDocument(ctx, p, entry, *entry.PDFURL, cleanupOpDelete)
	}
	return nil
}

// loadAuthorized fetches the entry and applies the guard for action.
func (s *Service) loadAuthorized(ctx context.Context, p domain.Principal, id domain.EntryID, action authz.Action) (*models.Entry, error) {
	if p.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, msgUnauthenticated)
	}
	entry, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, msgEntryNotFound)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, msgStoreTimeout)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rc entry")
	}
	if !s.guard.CanAccess(p, entry, action) {
		s.logger.WarnContext(ctx, "rc entry access denied",
			"entry_id", id.String(),
			"user_id", p.ID.String(),
			"action", string(action),
			"request_id", request.GetRequestID(ctx),
		)
		s.incrementAccessDenied(action)
		s.emitAudit(ctx, p, audit.EventRCAccessDenied, entry, decisionDenied, reasonNotOwner)
		return nil, dErrors.New(dErrors.CodeForbidden, forbiddenMessage(action))
	}
	return entry, nil
}

func (s *Service) classifyWriteError(err error, msg string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, msgEntryNotFound)
	case errors.Is(err, store.ErrDuplicateRegistration):
		return dErrors.NewWithReason(dErrors.CodeValidation, models.ReasonDuplicateRegistration, msgDuplicateRegNo)
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msgStoreTimeout)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func forbiddenMessage(action authz.Action) string {
	verb := string(action)
	switch action {
	case authz.ActionRead:
		verb = "view"
	case authz.ActionAttach:
		verb = "upload files to"
	}
	return "Not authorized to " + verb + " this RC entry"
}
