// Package repository provides data access layer implementations.
package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations. Absence of a row is an expected
// outcome and surfaces as a not-found sentinel, never as a raw driver error.
var (
	ErrNamesNotFound       = errors.New("naming profile not found")
	ErrGuildConfigNotFound = errors.New("guild config not found")
	ErrTruthBulletNotFound = errors.New("truth bullet not found")

	// ErrConstraintViolation reports a uniqueness, referential-integrity or
	// value-constraint breach. Callers decide how to react; the repository
	// never retries.
	ErrConstraintViolation = errors.New("constraint violation")
)

// PostgreSQL error codes surfaced as ErrConstraintViolation.
const (
	pgCodeNotNull       = "23502"
	pgCodeForeignKey    = "23503"
	pgCodeUnique        = "23505"
	pgCodeStringTooLong = "22001"
)

// asConstraintErr returns the underlying PgError when err is a constraint
// breach, nil otherwise.
func asConstraintErr(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgCodeNotNull, pgCodeForeignKey, pgCodeUnique, pgCodeStringTooLong:
		return pgErr
	}
	return nil
}

// wrapWriteErr wraps a failed insert/update, mapping constraint breaches to
// ErrConstraintViolation.
func wrapWriteErr(err error, action string) error {
	if pgErr := asConstraintErr(err); pgErr != nil {
		return fmt.Errorf("failed to %s (%s): %w", action, pgErr.Code, ErrConstraintViolation)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
