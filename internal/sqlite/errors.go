package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/rpggio/crmdesk/internal/repository"
)

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// notFound maps a missing row to repository.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}
