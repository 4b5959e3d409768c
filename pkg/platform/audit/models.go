package audit

import (
	"context"
	"time"

	"rctrack/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing per sink.
type EventCategory string

const (
	// CategoryCompliance covers changes to the case record itself (who created,
	// changed or removed an RC case). Long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers refused access attempts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers degradations worth investigating, such as orphaned blobs.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// UserID is the principal that performed the action.
	UserID domain.UserID
	// Subject is the RC entry id the action targeted.
	Subject  string
	Action   string
	Decision string
	Reason   string
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
	// ActorID is the owner of the entry when an admin acts on someone else's case.
	ActorID  string
	ClientIP string
	// Client is a short User-Agent summary ("Chrome 120 on Windows 10").
	Client string
}

type AuditEvent string

const (
	EventRCEntryCreated          AuditEvent = "rc_entry_created"
	EventRCEntryUpdated          AuditEvent = "rc_entry_updated"
	EventRCEntryDeleted          AuditEvent = "rc_entry_deleted"
	EventRCDocumentAttached      AuditEvent = "rc_document_attached"
	EventRCAccessDenied          AuditEvent = "rc_access_denied"
	EventAttachmentCleanupFailed AuditEvent = "rc_attachment_cleanup_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventRCEntryCreated:          CategoryCompliance,
	EventRCEntryUpdated:          CategoryCompliance,
	EventRCEntryDeleted:          CategoryCompliance,
	EventRCDocumentAttached:      CategoryCompliance,
	EventRCAccessDenied:          CategorySecurity,
	EventAttachmentCleanupFailed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister is implemented by stores that can read events back.
type Lister interface {
	ListByUser(ctx context.Context, userID domain.UserID) ([]Event, error)
}

// Emitter is what domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
