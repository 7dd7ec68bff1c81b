// Package mcp exposes the CRM services as Model Context Protocol tools.
package mcp

import (
	"context"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/crmdesk/internal/app"
	"github.com/rpggio/crmdesk/internal/domain/activity"
	"github.com/rpggio/crmdesk/internal/domain/comment"
	"github.com/rpggio/crmdesk/internal/domain/contact"
	"github.com/rpggio/crmdesk/internal/domain/dashboard"
	"github.com/rpggio/crmdesk/internal/domain/deal"
	"github.com/rpggio/crmdesk/internal/domain/task"
)

// ContactService defines contact operations needed by MCP.
type ContactService interface {
	List(ctx context.Context) ([]contact.Contact, error)
	Get(ctx context.Context, id int64) (*contact.Contact, error)
	Search(ctx context.Context, query string) ([]contact.Contact, error)
	Create(ctx context.Context, req contact.CreateRequest) (*contact.Contact, error)
	Update(ctx context.Context, id int64, req contact.UpdateRequest) (*contact.Contact, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// DealService defines deal operations needed by MCP.
type DealService interface {
	List(ctx context.Context) ([]deal.Deal, error)
	ListByContact(ctx context.Context, contactID int64) ([]deal.Deal, error)
	Create(ctx context.Context, req deal.CreateRequest) (*deal.Deal, error)
	MoveToStage(ctx context.Context, id int64, stage deal.Stage) (*deal.Deal, error)
	Pipeline(ctx context.Context) ([]deal.StageSummary, error)
}

// TaskService defines task operations needed by MCP.
type TaskService interface {
	List(ctx context.Context) ([]task.Task, error)
	ListByContact(ctx context.Context, contactID int64) ([]task.Task, error)
	Create(ctx context.Context, req task.CreateRequest) (*task.Task, error)
	ToggleComplete(ctx context.Context, id int64) (*task.Task, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	List(ctx context.Context, opts activity.ListOptions) ([]activity.Activity, error)
	Create(ctx context.Context, req activity.CreateRequest) (*activity.Activity, error)
}

// CommentService defines comment operations needed by MCP.
type CommentService interface {
	ListByContact(ctx context.Context, contactID int64) ([]comment.Comment, error)
	Create(ctx context.Context, req comment.CreateRequest) (*comment.Comment, error)
}

// DashboardService defines the summary needed by MCP.
type DashboardService interface {
	Summary(ctx context.Context) (*dashboard.Summary, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Contacts   ContactService
	Deals      DealService
	Tasks      TaskService
	Activities ActivityService
	Comments   CommentService
	Dashboard  DashboardService
}

// ServicesFrom selects the MCP service set from the application services.
func ServicesFrom(s app.Services) Services {
	return Services{
		Contacts:   s.Contacts,
		Deals:      s.Deals,
		Tasks:      s.Tasks,
		Activities: s.Activities,
		Comments:   s.Comments,
		Dashboard:  s.Dashboard,
	}
}

// Config contains server configuration.
type Config struct {
	Services Services
	Logger   *slog.Logger
	// Now stamps activities logged without a timestamp. Defaults to time.Now.
	Now func() time.Time
	// Version is reported to clients during initialization.
	Version string
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "crmdesk",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(requestIDMiddleware())
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, &tools{services: cfg.Services, now: cfg.Now})

	return server
}
