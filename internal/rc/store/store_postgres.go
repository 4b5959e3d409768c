package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"rctrack/internal/rc/models"
	"rctrack/pkg/domain"
	txcontext "rctrack/pkg/platform/tx"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// PostgresStore persists entries in the rc_entries table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed entry repository.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const entryColumns = `id, vehicle_reg_no, vehicle_name, owner_name, owner_phone,
	applicant_name, applicant_phone, work, dealer_name, rto_agent_name, remarks,
	rc_transferred, rto_fees_paid, returned_to_dealer, pdf_url, created_by, created_at`

func (s *PostgresStore) Create(ctx context.Context, entry *models.Entry) error {
	query := `INSERT INTO rc_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		models.NormalizeRegNo(entry.VehicleRegNo),
		entry.VehicleName,
		entry.OwnerName,
		entry.OwnerPhone,
		entry.ApplicantName,
		entry.ApplicantPhone,
		entry.Work,
		entry.DealerName,
		entry.RTOAgentName,
		entry.Remarks,
		entry.Status.RCTransferred,
		entry.Status.RTOFeesPaid,
		entry.Status.ReturnedToDealer,
		nullString(entry.PDFURL),
		string(entry.CreatedBy),
		entry.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("registration %s: %w", entry.VehicleRegNo, ErrDuplicateRegistration)
		}
		return fmt.Errorf("insert rc entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.EntryID) (*models.Entry, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM rc_entries WHERE id = $1`, uuid.UUID(id))
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find rc entry by id: %w", err)
	}
	return entry, nil
}

// FindAll returns matching entries, newest first.
func (s *PostgresStore) FindAll(ctx context.Context, filter models.Filter) ([]*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM rc_entries`
	var args []any
	if filter.CreatedBy != nil {
		query += ` WHERE created_by = $1`
		args = append(args, string(*filter.CreatedBy))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rc entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rc entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rc entries: %w", err)
	}
	return entries, nil
}

// Update locks the row, applies the patch and writes every mutable column back.
// Concurrent updates to the same entry serialize on the row lock; the last one wins.
func (s *PostgresStore) Update(ctx context.Context, id domain.EntryID, patch models.Patch) (*models.Entry, error) {
	var updated *models.Entry
	err := txcontext.RunInTx(ctx, s.db, func(ctx context.Context) error {
		row := s.execer(ctx).QueryRowContext(ctx,
			`SELECT `+entryColumns+` FROM rc_entries WHERE id = $1 FOR UPDATE`, uuid.UUID(id))
		entry, err := scanEntry(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock rc entry: %w", err)
		}

		entry.Apply(patch)
		_, err = s.execer(ctx).ExecContext(ctx, `
			UPDATE rc_entries SET
				vehicle_reg_no = $2, vehicle_name = $3, owner_name = $4, owner_phone = $5,
				applicant_name = $6, applicant_phone = $7, work = $8, dealer_name = $9,
				rto_agent_name = $10, remarks = $11, rc_transferred = $12, rto_fees_paid = $13,
				returned_to_dealer = $14, pdf_url = $15
			WHERE id = $1`,
			uuid.UUID(entry.ID),
			models.NormalizeRegNo(entry.VehicleRegNo),
			entry.VehicleName,
			entry.OwnerName,
			entry.OwnerPhone,
			entry.ApplicantName,
			entry.ApplicantPhone,
			entry.Work,
			entry.DealerName,
			entry.RTOAgentName,
			entry.Remarks,
			entry.Status.RCTransferred,
			entry.Status.RTOFeesPaid,
			entry.Status.ReturnedToDealer,
			nullString(entry.PDFURL),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("registration %s: %w", entry.VehicleRegNo, ErrDuplicateRegistration)
			}
			return fmt.Errorf("update rc entry: %w", err)
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.EntryID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM rc_entries WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("delete rc entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rc entry rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e      models.Entry
		pdfURL sql.NullString
	)
	err := row.Scan(
		(*uuid.UUID)(&e.ID),
		&e.VehicleRegNo,
		&e.VehicleName,
		&e.OwnerName,
		&e.OwnerPhone,
		&e.ApplicantName,
		&e.ApplicantPhone,
		&e.Work,
		&e.DealerName,
		&e.RTOAgentName,
		&e.Remarks,
		&e.Status.RCTransferred,
		&e.Status.RTOFeesPaid,
		&e.Status.ReturnedToDealer,
		&pdfURL,
		(*string)(&e.CreatedBy),
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if pdfURL.Valid {
		url := pdfURL.String
		e.PDFURL = &url
	}
	return &e, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
