package activity

import "time"

// ListOptions provides filtering options for listing activity.
type ListOptions struct {
	ContactID *int64
	DealID    *int64
	Type      *Type
	Since     time.Time
	Limit     int
}

func (o ListOptions) matches(a Activity) bool {
	if o.ContactID != nil && a.ContactID != *o.ContactID {
		return false
	}
	if o.DealID != nil && (a.DealID == nil || *a.DealID != *o.DealID) {
		return false
	}
	if o.Type != nil && a.Type != *o.Type {
		return false
	}
	if !o.Since.IsZero() && a.Timestamp.Before(o.Since) {
		return false
	}
	return true
}
