package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `crmdesk is a small CRM: contacts, the deals and tasks attached to them, and a log of activities and comments.

Data model:
- Contact: name, email, phone, company, position, tags. Everything else points at a contact by contact_id.
- Deal: title, value, stage (lead -> qualified -> proposal -> closed-won | closed-lost), probability, expected_close_date.
- Task: title, description, priority (low|medium|high), due_date, completed.
- Activity: a logged call, email, meeting, note or task with a timestamp and optional duration in minutes.
- Comment: free text on a contact; edited is set once the content changes.

Ids are positive integers assigned by the store and never reused. Deleting a contact does not delete what points at it.

Workflow:
1) Orient with dashboard or deal_pipeline.
2) Find people with search_contacts, then get_contact for detail.
3) Write with create_*/update_contact/move_deal/toggle_task/log_activity/add_comment.

Errors carry a code (NOT_FOUND, INVALID_INPUT, REJECTED, UPSTREAM_UNAVAILABLE) and a hint.

Docs:
- crmdesk://docs/index
- crmdesk://docs/entities
- crmdesk://docs/errors
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "crmdesk://docs/index",
		Name:        "docs_index",
		Title:       "crmdesk docs index",
		Description: "What the server stores and which tool to reach for.",
		Content: `# crmdesk

| Need | Tool |
|---|---|
| Overview | dashboard, deal_pipeline |
| Find a person | search_contacts, list_contacts, get_contact |
| Change a person | create_contact, update_contact, delete_contact |
| Sales | list_deals, create_deal, move_deal |
| Follow-ups | list_tasks, create_task, toggle_task |
| History | log_activity, list_activities, add_comment, list_comments |

Dates accept YYYY-MM-DD or RFC 3339. Times are returned in UTC.
`,
	},
	{
		URI:         "crmdesk://docs/entities",
		Name:        "docs_entities",
		Title:       "Entity reference",
		Description: "Fields, defaults and validation rules of every entity.",
		Content: `# Entities

## Contact
Required: name, email (must look like an address), phone, company. Tags are trimmed,
normalized and de-duplicated; an empty list clears them on update.

## Deal
Required: title, value > 0, contact_id, expected_close_date. Stage defaults to lead and
probability to 10; probability must be within 0-100.

## Task
Required: title. Priority defaults to medium, completed to false. toggle_task flips
completed and changes nothing else.

## Activity
Required: subject, description, contact_id. Type defaults to call and the timestamp to
now. Duration is in minutes and must not be negative.

## Comment
Required: contact_id, content. Author defaults to "Current User". The server stamps the
timestamp; editing the content marks the comment edited.
`,
	},
	{
		URI:         "crmdesk://docs/errors",
		Name:        "docs_errors",
		Title:       "Error codes",
		Description: "Tool error codes and how to recover.",
		Content: `# Errors

- NOT_FOUND: the id does not exist. List the entity again.
- INVALID_INPUT: arguments failed validation; details name each field.
- REJECTED: the record service refused the write; details carry its field messages.
- UPSTREAM_UNAVAILABLE: the record service could not be reached or reported a failure. Retry later.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
