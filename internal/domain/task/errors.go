package task

import (
	"errors"
	"fmt"

	"github.com/rpggio/crmdesk/internal/repository"
)

var (
	// ErrTaskNotFound indicates the task doesn't exist.
	ErrTaskNotFound = fmt.Errorf("task %w", repository.ErrNotFound)
	// ErrInvalidInput indicates invalid task input.
	ErrInvalidInput = errors.New("invalid task input")
)
