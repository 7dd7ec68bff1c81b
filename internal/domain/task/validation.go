package task

import "github.com/rpggio/crmdesk/internal/repository"

// ValidateCreateInput validates fields required to create a task.
func ValidateCreateInput(req CreateRequest) error {
	var p repository.Problems
	p.Require(FieldTitle, req.Title)
	if req.Priority != "" && !req.Priority.Valid() {
		p.Add(FieldPriority, "is not a known priority")
	}
	if req.ContactID < 0 {
		p.Add(FieldContactID, "must be positive")
	}
	return p.Err(ErrInvalidInput)
}

// ValidateUpdateInput validates the fields present in an update.
func ValidateUpdateInput(req UpdateRequest) error {
	var p repository.Problems
	if req.Title != nil {
		p.Require(FieldTitle, *req.Title)
	}
	if req.Priority != nil && !req.Priority.Valid() {
		p.Add(FieldPriority, "is not a known priority")
	}
	if req.ContactID != nil && *req.ContactID <= 0 {
		p.Add(FieldContactID, "must be positive")
	}
	return p.Err(ErrInvalidInput)
}
