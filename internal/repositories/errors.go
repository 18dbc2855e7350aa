package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "dispatch-system/pkg/errors"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func storageError(op string, err error) error {
	return apperrors.NewStorageError(op, err)
}

// notFoundOr переводит pgx.ErrNoRows в NotFoundError, остальное - в StorageError.
func notFoundOr(op, entity, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFoundError(entity, id)
	}
	return storageError(op, err)
}
