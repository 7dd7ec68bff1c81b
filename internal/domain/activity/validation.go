package activity

import "github.com/rpggio/crmdesk/internal/repository"

// ValidateCreateInput validates fields required to log an activity.
func ValidateCreateInput(req CreateRequest) error {
	var p repository.Problems
	if req.Type != "" && !req.Type.Valid() {
		p.Add(FieldType, "is not a known activity type")
	}
	p.Require(FieldSubject, req.Subject)
	p.Require(FieldDescription, req.Description)
	if req.ContactID <= 0 {
		p.Add(FieldContactID, "is required")
	}
	if req.DealID != nil && *req.DealID <= 0 {
		p.Add(FieldDealID, "must be positive")
	}
	if req.Timestamp.IsZero() {
		p.Add(FieldTimestamp, "is required")
	}
	if req.Duration != nil && *req.Duration < 0 {
		p.Add(FieldDuration, "must not be negative")
	}
	return p.Err(ErrInvalidInput)
}

// ValidateUpdateInput validates the fields present in an update.
func ValidateUpdateInput(req UpdateRequest) error {
	var p repository.Problems
	if req.Type != nil && !req.Type.Valid() {
		p.Add(FieldType, "is not a known activity type")
	}
	if req.Subject != nil {
		p.Require(FieldSubject, *req.Subject)
	}
	if req.Description != nil {
		p.Require(FieldDescription, *req.Description)
	}
	if req.ContactID != nil && *req.ContactID <= 0 {
		p.Add(FieldContactID, "is required")
	}
	if req.DealID != nil && *req.DealID <= 0 {
		p.Add(FieldDealID, "must be positive")
	}
	if req.Timestamp != nil && req.Timestamp.IsZero() {
		p.Add(FieldTimestamp, "is required")
	}
	if req.Duration != nil && *req.Duration < 0 {
		p.Add(FieldDuration, "must not be negative")
	}
	return p.Err(ErrInvalidInput)
}
