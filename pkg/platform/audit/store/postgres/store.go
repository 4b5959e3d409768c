package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"rctrack/pkg/domain"
	audit "rctrack/pkg/platform/audit"
	txcontext "rctrack/pkg/platform/tx"
)

// Store persists audit events to the audit_events table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer joins a caller's transaction when one is carried in ctx.
func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts one audit event. The category is always derived from the action.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, user_id, subject, action,
			decision, reason, request_id, actor_id, client_ip, client
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var userID sql.NullString
	if !event.UserID.IsNil() {
		userID = sql.NullString{String: event.UserID.String(), Valid: true}
	}

	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		string(audit.AuditEvent(event.Action).Category()),
		event.Timestamp,
		userID,
		event.Subject,
		event.Action,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ActorID,
		event.ClientIP,
		event.Client,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT category, timestamp, user_id, subject, action,
		   decision, reason, request_id, actor_id, client_ip, client
	FROM audit_events
`

// ListByUser returns events performed by a user, newest first.
func (s *Store) ListByUser(ctx context.Context, userID domain.UserID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`WHERE user_id = $1 ORDER BY timestamp DESC`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListBySubject returns the history of one RC entry, newest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`WHERE subject = $1 ORDER BY timestamp DESC`, subject)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			category       string
			event          audit.Event
			userIDNullable sql.NullString
		)

		err := rows.Scan(
			&category,
			&event.Timestamp,
			&userIDNullable,
			&event.Subject,
			&event.Action,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
			&event.ActorID,
			&event.ClientIP,
			&event.Client,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		if userIDNullable.Valid {
			event.UserID = domain.UserID(userIDNullable.String)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
