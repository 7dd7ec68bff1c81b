package deal

import "github.com/rpggio/crmdesk/internal/repository"

// ValidateCreateInput validates fields required to create a deal.
func ValidateCreateInput(req CreateRequest) error {
	var p repository.Problems
	p.Require(FieldTitle, req.Title)
	checkValue(&p, req.Value)
	if req.ContactID <= 0 {
		p.Add(FieldContactID, "is required")
	}
	if req.Stage != "" {
		checkStage(&p, req.Stage)
	}
	if req.Probability != nil {
		checkProbability(&p, *req.Probability)
	}
	if req.ExpectedCloseDate.IsZero() {
		p.Add(FieldExpectedCloseDate, "is required")
	}
	return p.Err(ErrInvalidInput)
}

// ValidateUpdateInput validates the fields present in an update.
func ValidateUpdateInput(req UpdateRequest) error {
	var p repository.Problems
	if req.Title != nil {
		p.Require(FieldTitle, *req.Title)
	}
	if req.Value != nil {
		checkValue(&p, *req.Value)
	}
	if req.ContactID != nil && *req.ContactID <= 0 {
		p.Add(FieldContactID, "is required")
	}
	if req.Stage != nil {
		checkStage(&p, *req.Stage)
	}
	if req.Probability != nil {
		checkProbability(&p, *req.Probability)
	}
	if req.ExpectedCloseDate != nil && req.ExpectedCloseDate.IsZero() {
		p.Add(FieldExpectedCloseDate, "is required")
	}
	return p.Err(ErrInvalidInput)
}

func checkValue(p *repository.Problems, v float64) {
	if v <= 0 {
		p.Add(FieldValue, "must be greater than 0")
	}
}

func checkStage(p *repository.Problems, s Stage) {
	if !s.Valid() {
		p.Add(FieldStage, "is not a known stage")
	}
}

func checkProbability(p *repository.Problems, v int) {
	if v < 0 || v > 100 {
		p.Add(FieldProbability, "must be between 0 and 100")
	}
}

