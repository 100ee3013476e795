package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrLinkNotFound signals that the requested short link does not exist.
	ErrLinkNotFound = errors.New("link not found")

	// ErrAccountNotFound signals that the requested account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicate signals a unique constraint violation in the store.
	ErrDuplicate = errors.New("duplicate key")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case isUniqueViolation(err):
		return ErrDuplicate
	default:
		return err
	}
}
