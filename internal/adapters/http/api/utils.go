package api

import (
	"errors"

	"github.com/okian/dwell/internal/adapters/repository"
)

// isNotFound allows the API to translate upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
