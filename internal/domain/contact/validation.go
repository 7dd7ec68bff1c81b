package contact

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rpggio/crmdesk/internal/repository"
	"golang.org/x/text/unicode/norm"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateCreateInput validates fields required to create a contact.
func ValidateCreateInput(req CreateRequest) error {
	var p repository.Problems
	p.Require(FieldName, req.Name)
	p.Require(FieldEmail, req.Email)
	checkEmail(&p, req.Email)
	p.Require(FieldPhone, req.Phone)
	p.Require(FieldCompany, req.Company)
	checkTags(&p, req.Tags)
	return p.Err(ErrInvalidInput)
}

// ValidateUpdateInput validates the fields present in an update.
func ValidateUpdateInput(req UpdateRequest) error {
	var p repository.Problems
	if req.Name != nil {
		p.Require(FieldName, *req.Name)
	}
	if req.Email != nil {
		p.Require(FieldEmail, *req.Email)
		checkEmail(&p, *req.Email)
	}
	if req.Phone != nil {
		p.Require(FieldPhone, *req.Phone)
	}
	if req.Company != nil {
		p.Require(FieldCompany, *req.Company)
	}
	checkTags(&p, req.Tags)
	return p.Err(ErrInvalidInput)
}

func checkEmail(p *repository.Problems, email string) {
	email = strings.TrimSpace(email)
	if email != "" && !emailPattern.MatchString(email) {
		p.Add(FieldEmail, "is not a valid address")
	}
}

// TagSeparator may not appear inside a tag. Stores that keep tags as one
// delimited string split on it.
const TagSeparator = ","

func checkTags(p *repository.Problems, tags []string) {
	for _, tag := range tags {
		if strings.Contains(tag, TagSeparator) {
			p.Add(FieldTags, fmt.Sprintf("%q must not contain %q", tag, TagSeparator))
		}
	}
}

// NormalizeTags trims, NFC-normalizes and de-duplicates tags, keeping the
// first occurrence. Blank tags are dropped. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = norm.NFC.String(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
