package deal

import (
	"errors"
	"fmt"

	"github.com/rpggio/crmdesk/internal/repository"
)

var (
	// ErrDealNotFound indicates the deal doesn't exist.
	ErrDealNotFound = fmt.Errorf("deal %w", repository.ErrNotFound)
	// ErrInvalidInput indicates invalid deal input.
	ErrInvalidInput = errors.New("invalid deal input")
)
