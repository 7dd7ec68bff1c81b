package activity

import (
	"errors"
	"fmt"

	"github.com/rpggio/crmdesk/internal/repository"
)

var (
	// ErrActivityNotFound indicates the activity doesn't exist.
	ErrActivityNotFound = fmt.Errorf("activity %w", repository.ErrNotFound)
	// ErrInvalidInput indicates invalid activity input.
	ErrInvalidInput = errors.New("invalid activity input")
)
