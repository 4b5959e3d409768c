package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rctrack/pkg/domain"
	audit "rctrack/pkg/platform/audit"
	txcontext "rctrack/pkg/platform/tx"
)

func TestAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db)
	userID := domain.UserID("64f1a2b3c4d5e6f708192a3b")
	ts := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
		WithArgs(sqlmock.AnyArg(), "security", ts, "64f1a2b3c4d5e6f708192a3b", "entry-1", "rc_access_denied",
			"denied", "not_owner", "req-1", "", "10.0.0.1", "curl").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.Append(context.Background(), audit.Event{
		Timestamp: ts,
		UserID:    userID,
		Subject:   "entry-1",
		Action:    string(audit.EventRCAccessDenied),
		Decision:  "denied",
		Reason:    "not_owner",
		RequestID: "req-1",
		ClientIP:  "10.0.0.1",
		Client:    "curl",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendJoinsContextTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	ctx := txcontext.WithTx(context.Background(), tx)

	require.NoError(t, New(db).Append(ctx, audit.Event{Action: string(audit.EventRCEntryCreated)}))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendWrapsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).WillReturnError(errors.New("conn reset"))

	err = New(db).Append(context.Background(), audit.Event{Action: string(audit.EventRCEntryCreated)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert audit event")
}

func TestListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userID := domain.UserID("64f1a2b3c4d5e6f708192a3b")
	ts := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"category", "timestamp", "user_id", "subject", "action",
		"decision", "reason", "request_id", "actor_id", "client_ip", "client"}).
		AddRow("compliance", ts, string(userID), "entry-1", "rc_entry_created", "", "", "req-9", "", "", "")

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_events")).WithArgs(string(userID)).WillReturnRows(rows)

	events, err := New(db).ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, userID, events[0].UserID)
	assert.Equal(t, "req-9", events[0].RequestID)
}
