package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	// ActiveSlotConstraint is the partial unique index over (date, time, practitioner) for non-cancelled rows.
	ActiveSlotConstraint = "ux_appointments_active_slot"

	PatientReferenceConstraint      = "appointments_patient_id_fkey"
	PractitionerReferenceConstraint = "appointments_practitioner_id_fkey"
)

// IsUniqueViolation checks if the error is a PostgreSQL unique constraint violation
// whose constraint name contains constraintName
func IsUniqueViolation(err error, constraintName string) bool {
	return hasPgCode(err, pgUniqueViolation, constraintName)
}

// IsForeignKeyViolation checks if the error is a PostgreSQL foreign key violation
// whose constraint name contains constraintName
func IsForeignKeyViolation(err error, constraintName string) bool {
	return hasPgCode(err, pgForeignKeyViolation, constraintName)
}

func hasPgCode(err error, code, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName))
	}
	return false
}
