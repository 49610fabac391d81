package repository

import (
	"errors"
	"fmt"

	"go-pen-inventory/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes that mean "another transaction got there first".
const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// translateError turns storage-specific failures into domain errors. Anything it
// does not recognise is returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable:
			return &model.ConflictError{Reason: "Timed out waiting for a stock lock, retry the request.", Err: err}
		case pgSerializationFailure, pgDeadlockDetected:
			return &model.ConflictError{Reason: "Concurrent stock update detected, retry the request.", Err: err}
		case pgUniqueViolation:
			return &model.ConflictError{Reason: fmt.Sprintf("Duplicate value violates %s.", pgErr.ConstraintName), Err: err}
		}
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &model.ConflictError{Reason: "Duplicate value violates a unique constraint.", Err: err}
	}
	return err
}

// notFound converts gorm.ErrRecordNotFound into a NotFoundError for resource/id.
func notFound(err error, resource string, id fmt.Stringer) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.NotFoundError{Resource: resource, ID: id.String()}
	}
	return translateError(err)
}
