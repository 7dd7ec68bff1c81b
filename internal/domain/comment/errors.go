package comment

import (
	"errors"
	"fmt"

	"github.com/rpggio/crmdesk/internal/repository"
)

var (
	// ErrCommentNotFound indicates the comment doesn't exist.
	ErrCommentNotFound = fmt.Errorf("comment %w", repository.ErrNotFound)
	// ErrInvalidInput indicates invalid comment input.
	ErrInvalidInput = errors.New("invalid comment input")
)
