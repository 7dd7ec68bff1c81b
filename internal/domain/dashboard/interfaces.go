package dashboard

import (
	"context"

	"github.com/rpggio/crmdesk/internal/domain/activity"
	"github.com/rpggio/crmdesk/internal/domain/contact"
	"github.com/rpggio/crmdesk/internal/domain/deal"
)

// ContactLister lists contacts.
type ContactLister interface {
	List(ctx context.Context) ([]contact.Contact, error)
}

// DealLister lists deals.
type DealLister interface {
	List(ctx context.Context) ([]deal.Deal, error)
}

// ActivityLister lists activities.
type ActivityLister interface {
	List(ctx context.Context, opts activity.ListOptions) ([]activity.Activity, error)
}
