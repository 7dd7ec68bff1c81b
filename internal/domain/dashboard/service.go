// Package dashboard computes the headline numbers shown on the CRM overview.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/crmdesk/internal/domain/activity"
	"github.com/rpggio/crmdesk/internal/domain/contact"
	"github.com/rpggio/crmdesk/internal/domain/deal"
	"golang.org/x/sync/errgroup"
)

// RecentWindow is how far back an activity counts as recent.
const RecentWindow = 7 * 24 * time.Hour

// StageCount is the number of deals in one pipeline stage.
type StageCount struct {
	Stage deal.Stage `json:"stage"`
	Label string     `json:"label"`
	Count int        `json:"count"`
}

// Summary holds the dashboard figures.
type Summary struct {
	TotalContacts    int          `json:"total_contacts"`
	TotalDeals       int          `json:"total_deals"`
	TotalValue       float64      `json:"total_value"`
	WonDeals         int          `json:"won_deals"`
	RecentActivities int          `json:"recent_activities"`
	Pipeline         []StageCount `json:"pipeline"`
	GeneratedAt      time.Time    `json:"generated_at"`
}

// Service assembles dashboard summaries.
type Service struct {
	contacts   ContactLister
	deals      DealLister
	activities ActivityLister
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new dashboard service.
func NewService(contacts ContactLister, deals DealLister, activities ActivityLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		contacts:   contacts,
		deals:      deals,
		activities: activities,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock replaces the clock used for the recent-activity window.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Summary loads contacts, deals and activities concurrently and aggregates
// them. Any failed load fails the whole summary.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var (
		contacts   []contact.Contact
		deals      []deal.Deal
		activities []activity.Activity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		contacts, err = s.contacts.List(gctx)
		if err != nil {
			return fmt.Errorf("loading contacts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		deals, err = s.deals.List(gctx)
		if err != nil {
			return fmt.Errorf("loading deals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		activities, err = s.activities.List(gctx, activity.ListOptions{})
		if err != nil {
			return fmt.Errorf("loading activities: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("dashboard summary failed", "error", err)
		return nil, err
	}

	now := s.now()
	return Build(contacts, deals, activities, now), nil
}

// Build aggregates already loaded lists into a Summary.
func Build(contacts []contact.Contact, deals []deal.Deal, activities []activity.Activity, now time.Time) *Summary {
	sum := &Summary{
		TotalContacts: len(contacts),
		TotalDeals:    len(deals),
		GeneratedAt:   now,
	}

	for _, d := range deals {
		sum.TotalValue += d.Value
		if d.Stage == deal.StageClosedWon {
			sum.WonDeals++
		}
	}

	cutoff := now.Add(-RecentWindow)
	for _, a := range activities {
		if a.Timestamp.After(cutoff) {
			sum.RecentActivities++
		}
	}

	for _, stage := range deal.BuildPipeline(deals) {
		if stage.Stage == deal.StageClosedLost {
			continue
		}
		sum.Pipeline = append(sum.Pipeline, StageCount{Stage: stage.Stage, Label: stage.Label, Count: stage.Count})
	}
	return sum
}
