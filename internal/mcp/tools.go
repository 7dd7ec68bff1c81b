package mcp

import (
	"context"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/crmdesk/internal/domain/activity"
	"github.com/rpggio/crmdesk/internal/domain/comment"
	"github.com/rpggio/crmdesk/internal/domain/contact"
	"github.com/rpggio/crmdesk/internal/domain/deal"
	"github.com/rpggio/crmdesk/internal/domain/task"
)

// DefaultCommentAuthor is used when add_comment names no author.
const DefaultCommentAuthor = "Current User"

type tools struct {
	services Services
	now      func() time.Time
}

type noInput struct{}

type idInput struct {
	ID int64 `json:"id" jsonschema:"record id"`
}

type contactInput struct {
	ContactID int64 `json:"contact_id" jsonschema:"contact id"`
}

type searchInput struct {
	Query string `json:"query" jsonschema:"text matched against name, email and company"`
}

type createContactInput struct {
	Name     string   `json:"name" jsonschema:"full name"`
	Email    string   `json:"email" jsonschema:"email address"`
	Phone    string   `json:"phone" jsonschema:"phone number"`
	Company  string   `json:"company" jsonschema:"company name"`
	Position string   `json:"position,omitempty" jsonschema:"job title"`
	Tags     []string `json:"tags,omitempty" jsonschema:"free-form labels"`
}

type updateContactInput struct {
	ID       int64    `json:"id" jsonschema:"contact id"`
	Name     *string  `json:"name,omitempty"`
	Email    *string  `json:"email,omitempty"`
	Phone    *string  `json:"phone,omitempty"`
	Company  *string  `json:"company,omitempty"`
	Position *string  `json:"position,omitempty"`
	Tags     []string `json:"tags,omitempty" jsonschema:"replaces every tag when present"`
}

type listByContactInput struct {
	ContactID int64 `json:"contact_id,omitempty" jsonschema:"only records for this contact"`
}

type moveDealInput struct {
	ID    int64  `json:"id" jsonschema:"deal id"`
	Stage string `json:"stage" jsonschema:"lead, qualified, proposal, closed-won or closed-lost"`
}

type createDealInput struct {
	Title             string  `json:"title"`
	Value             float64 `json:"value" jsonschema:"deal value, greater than zero"`
	ContactID         int64   `json:"contact_id"`
	Stage             string  `json:"stage,omitempty" jsonschema:"defaults to lead"`
	Probability       *int    `json:"probability,omitempty" jsonschema:"win probability 0-100, defaults to 10"`
	ExpectedCloseDate string  `json:"expected_close_date" jsonschema:"YYYY-MM-DD or RFC 3339"`
}

type listTasksInput struct {
	ContactID   int64 `json:"contact_id,omitempty" jsonschema:"only tasks for this contact"`
	PendingOnly bool  `json:"pending_only,omitempty" jsonschema:"hide completed tasks"`
}

type createTaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty" jsonschema:"low, medium or high; defaults to medium"`
	DueDate     string `json:"due_date,omitempty" jsonschema:"YYYY-MM-DD or RFC 3339"`
	ContactID   int64  `json:"contact_id,omitempty"`
}

type logActivityInput struct {
	Type        string `json:"type,omitempty" jsonschema:"call, email, meeting, note or task; defaults to call"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	ContactID   int64  `json:"contact_id"`
	DealID      *int64 `json:"deal_id,omitempty"`
	Timestamp   string `json:"timestamp,omitempty" jsonschema:"RFC 3339; defaults to now"`
	Duration    *int   `json:"duration,omitempty" jsonschema:"minutes"`
}

type listActivitiesInput struct {
	ContactID *int64 `json:"contact_id,omitempty"`
	DealID    *int64 `json:"deal_id,omitempty"`
	Type      string `json:"type,omitempty"`
	SinceDays int    `json:"since_days,omitempty" jsonschema:"only activities from the last N days"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of results"`
}

type addCommentInput struct {
	ContactID int64  `json:"contact_id"`
	Author    string `json:"author,omitempty" jsonschema:"defaults to Current User"`
	Content   string `json:"content"`
}

type contactsResult struct {
	Contacts []contact.Contact `json:"contacts"`
}

type dealsResult struct {
	Deals []deal.Deal `json:"deals"`
}

type pipelineResult struct {
	Stages []deal.StageSummary `json:"stages"`
}

type tasksResult struct {
	Tasks []task.Task `json:"tasks"`
}

type activitiesResult struct {
	Activities []activity.Activity `json:"activities"`
}

type commentsResult struct {
	Comments []comment.Comment `json:"comments"`
}

type deleteResult struct {
	ID      int64 `json:"id"`
	Deleted bool  `json:"deleted"`
}

func registerTools(server *sdkmcp.Server, t *tools) {
	// Contacts
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "list_contacts", Description: "List every contact"}, t.listContacts)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "get_contact", Description: "Get one contact by id"}, t.getContact)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "search_contacts", Description: "Find contacts whose name, email or company contains the query"}, t.searchContacts)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "create_contact", Description: "Create a contact; name, email, phone and company are required"}, t.createContact)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "update_contact", Description: "Change the supplied fields of a contact"}, t.updateContact)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "delete_contact", Description: "Delete a contact. Related deals, tasks and activities are kept"}, t.deleteContact)

	// Deals
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "list_deals", Description: "List deals, optionally for one contact"}, t.listDeals)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "deal_pipeline", Description: "Deal count and total value per pipeline stage"}, t.dealPipeline)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "move_deal", Description: "Move a deal to another pipeline stage"}, t.moveDeal)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "create_deal", Description: "Create a deal for a contact"}, t.createDeal)

	// Tasks
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "list_tasks", Description: "List tasks, optionally for one contact or only pending ones"}, t.listTasks)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "create_task", Description: "Create a task"}, t.createTask)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "toggle_task", Description: "Flip the completed flag of a task"}, t.toggleTask)

	// Activities and comments
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "log_activity", Description: "Record a call, email, meeting, note or task against a contact"}, t.logActivity)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "list_activities", Description: "List activities, most recent first"}, t.listActivities)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "add_comment", Description: "Add a comment to a contact"}, t.addComment)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "list_comments", Description: "List the comments on a contact, most recent first"}, t.listComments)

	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "dashboard", Description: "Headline CRM numbers: totals, won deals, recent activity and pipeline"}, t.dashboard)
}

func (t *tools) listContacts(ctx context.Context, _ *sdkmcp.CallToolRequest, _ noInput) (*sdkmcp.CallToolResult, any, error) {
	contacts, err := t.services.Contacts.List(ctx)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, contactsResult{Contacts: contacts}, nil
}

func (t *tools) getContact(ctx context.Context, _ *sdkmcp.CallToolRequest, in idInput) (*sdkmcp.CallToolResult, any, error) {
	c, err := t.services.Contacts.Get(ctx, in.ID)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, c, nil
}

func (t *tools) searchContacts(ctx context.Context, _ *sdkmcp.CallToolRequest, in searchInput) (*sdkmcp.CallToolResult, any, error) {
	contacts, err := t.services.Contacts.Search(ctx, in.Query)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, contactsResult{Contacts: contacts}, nil
}

func (t *tools) createContact(ctx context.Context, _ *sdkmcp.CallToolRequest, in createContactInput) (*sdkmcp.CallToolResult, any, error) {
	c, err := t.services.Contacts.Create(ctx, contact.CreateRequest{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Company:  in.Company,
		Position: in.Position,
		Tags:     in.Tags,
	})
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, c, nil
}

func (t *tools) updateContact(ctx context.Context, _ *sdkmcp.CallToolRequest, in updateContactInput) (*sdkmcp.CallToolResult, any, error) {
	c, err := t.services.Contacts.Update(ctx, in.ID, contact.UpdateRequest{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Company:  in.Company,
		Position: in.Position,
		Tags:     in.Tags,
	})
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, c, nil
}

func (t *tools) deleteContact(ctx context.Context, _ *sdkmcp.CallToolRequest, in idInput) (*sdkmcp.CallToolResult, any, error) {
	ok, err := t.services.Contacts.Delete(ctx, in.ID)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, deleteResult{ID: in.ID, Deleted: ok}, nil
}

func (t *tools) listDeals(ctx context.Context, _ *sdkmcp.CallToolRequest, in listByContactInput) (*sdkmcp.CallToolResult, any, error) {
	var (
		deals []deal.Deal
		err   error
	)
	if in.ContactID > 0 {
		deals, err = t.services.Deals.ListByContact(ctx, in.ContactID)
	} else {
		deals, err = t.services.Deals.List(ctx)
	}
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, dealsResult{Deals: deals}, nil
}

func (t *tools) dealPipeline(ctx context.Context, _ *sdkmcp.CallToolRequest, _ noInput) (*sdkmcp.CallToolResult, any, error) {
	stages, err := t.services.Deals.Pipeline(ctx)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, pipelineResult{Stages: stages}, nil
}

func (t *tools) moveDeal(ctx context.Context, _ *sdkmcp.CallToolRequest, in moveDealInput) (*sdkmcp.CallToolResult, any, error) {
	d, err := t.services.Deals.MoveToStage(ctx, in.ID, deal.Stage(in.Stage))
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, d, nil
}

func (t *tools) createDeal(ctx context.Context, _ *sdkmcp.CallToolRequest, in createDealInput) (*sdkmcp.CallToolResult, any, error) {
	closeDate, err := parseDate("expected_close_date", in.ExpectedCloseDate)
	if err != nil {
		return nil, nil, err
	}
	d, err := t.services.Deals.Create(ctx, deal.CreateRequest{
		Title:             in.Title,
		Value:             in.Value,
		Stage:             deal.Stage(in.Stage),
		ContactID:         in.ContactID,
		Probability:       in.Probability,
		ExpectedCloseDate: closeDate,
	})
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, d, nil
}

func (t *tools) listTasks(ctx context.Context, _ *sdkmcp.CallToolRequest, in listTasksInput) (*sdkmcp.CallToolResult, any, error) {
	var (
		tasks []task.Task
		err   error
	)
	if in.ContactID > 0 {
		tasks, err = t.services.Tasks.ListByContact(ctx, in.ContactID)
	} else {
		tasks, err = t.services.Tasks.List(ctx)
	}
	if err != nil {
		return nil, nil, MapError(err)
	}
	if in.PendingOnly {
		pending := tasks[:0]
		for _, tk := range tasks {
			if !tk.Completed {
				pending = append(pending, tk)
			}
		}
		tasks = pending
	}
	return nil, tasksResult{Tasks: tasks}, nil
}

func (t *tools) createTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in createTaskInput) (*sdkmcp.CallToolResult, any, error) {
	req := task.CreateRequest{
		Title:       in.Title,
		Description: in.Description,
		Priority:    task.Priority(in.Priority),
		ContactID:   in.ContactID,
	}
	if in.DueDate != "" {
		due, err := parseDate("due_date", in.DueDate)
		if err != nil {
			return nil, nil, err
		}
		req.DueDate = &due
	}
	tk, err := t.services.Tasks.Create(ctx, req)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, tk, nil
}

func (t *tools) toggleTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in idInput) (*sdkmcp.CallToolResult, any, error) {
	tk, err := t.services.Tasks.ToggleComplete(ctx, in.ID)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, tk, nil
}

func (t *tools) logActivity(ctx context.Context, _ *sdkmcp.CallToolRequest, in logActivityInput) (*sdkmcp.CallToolResult, any, error) {
	ts := t.now()
	if in.Timestamp != "" {
		parsed, err := parseDate("timestamp", in.Timestamp)
		if err != nil {
			return nil, nil, err
		}
		ts = parsed
	}
	a, err := t.services.Activities.Create(ctx, activity.CreateRequest{
		Type:        activity.Type(in.Type),
		Subject:     in.Subject,
		Description: in.Description,
		ContactID:   in.ContactID,
		DealID:      in.DealID,
		Timestamp:   ts,
		Duration:    in.Duration,
	})
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, a, nil
}

func (t *tools) listActivities(ctx context.Context, _ *sdkmcp.CallToolRequest, in listActivitiesInput) (*sdkmcp.CallToolResult, any, error) {
	opts := activity.ListOptions{
		ContactID: in.ContactID,
		DealID:    in.DealID,
		Limit:     in.Limit,
	}
	if in.Type != "" {
		typ := activity.Type(in.Type)
		if !typ.Valid() {
			return nil, nil, invalidArgument("unknown activity type %q", in.Type)
		}
		opts.Type = &typ
	}
	if in.SinceDays > 0 {
		opts.Since = t.now().AddDate(0, 0, -in.SinceDays)
	}
	activities, err := t.services.Activities.List(ctx, opts)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, activitiesResult{Activities: activities}, nil
}

func (t *tools) addComment(ctx context.Context, _ *sdkmcp.CallToolRequest, in addCommentInput) (*sdkmcp.CallToolResult, any, error) {
	author := strings.TrimSpace(in.Author)
	if author == "" {
		author = DefaultCommentAuthor
	}
	c, err := t.services.Comments.Create(ctx, comment.CreateRequest{
		ContactID: in.ContactID,
		Author:    author,
		Content:   in.Content,
	})
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, c, nil
}

func (t *tools) listComments(ctx context.Context, _ *sdkmcp.CallToolRequest, in contactInput) (*sdkmcp.CallToolResult, any, error) {
	comments, err := t.services.Comments.ListByContact(ctx, in.ContactID)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, commentsResult{Comments: comments}, nil
}

func (t *tools) dashboard(ctx context.Context, _ *sdkmcp.CallToolRequest, _ noInput) (*sdkmcp.CallToolResult, any, error) {
	summary, err := t.services.Dashboard.Summary(ctx)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, summary, nil
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, invalidArgument("%s is required", field)
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.DateOnly, value); err == nil {
		return ts, nil
	}
	return time.Time{}, invalidArgument("%s must be YYYY-MM-DD or RFC 3339, got %q", field, value)
}
