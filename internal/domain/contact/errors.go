package contact

import (
	"errors"
	"fmt"

	"github.com/rpggio/crmdesk/internal/repository"
)

var (
	// ErrContactNotFound indicates the contact doesn't exist.
	ErrContactNotFound = fmt.Errorf("contact %w", repository.ErrNotFound)
	// ErrInvalidInput indicates invalid contact input.
	ErrInvalidInput = errors.New("invalid contact input")
)
