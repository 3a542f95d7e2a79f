package postgres

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/apphubio/api/pkg/domain/shared"
)

// rowScanner covers *sql.Row and *sql.Rows so scan helpers work with both.
type rowScanner interface {
	Scan(dest ...any) error
}

// nullString maps an empty string to NULL on the way in.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue maps NULL to an empty string on the way out.
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullStringPtr maps NULL to nil for optional text columns.
func nullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

// nullTimeValue maps NULL to nil for optional timestamp columns.
func nullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// parseNullID reads an optional uuid column. Unparseable values are
// treated as absent rather than failing the whole row.
func parseNullID(ns sql.NullString) *shared.ID {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	id, err := shared.IDFromString(ns.String)
	if err != nil {
		return nil
	}
	return &id
}

// nullID writes an optional shared.ID as a nullable uuid column.
func nullID(id *shared.ID) sql.NullString {
	if id == nil || id.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

// isUniqueViolation reports whether err is Postgres error 23505, the
// unique constraint class the repositories translate to ErrAlreadyExists.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
