package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/crmdesk/internal/app"
	"github.com/rpggio/crmdesk/internal/config"
	"github.com/rpggio/crmdesk/internal/domain/contact"
	"github.com/rpggio/crmdesk/internal/repository"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

func newSession(t *testing.T) (*sdkmcp.ClientSession, *app.App) {
	t.Helper()
	return newSessionWithLogger(t, nil)
}

func newSessionWithLogger(t *testing.T, logger *slog.Logger) (*sdkmcp.ClientSession, *app.App) {
	t.Helper()
	ctx := context.Background()

	cfg := config.Default()
	cfg.Backend.Mock.MinLatency = 0
	cfg.Backend.Mock.MaxLatency = 0
	a, err := app.New(cfg, nil)
	require.NoError(t, err)

	server := NewServer(Config{
		Services: ServicesFrom(a.Services),
		Logger:   logger,
		Now:      func() time.Time { return fixedNow },
	})

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})
	return cs, a
}

func callTool(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func decodeResult(t *testing.T, res *sdkmcp.CallToolResult, v any) {
	t.Helper()
	require.False(t, res.IsError, "tool error: %s", resultText(res))
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), v))
}

func resultText(res *sdkmcp.CallToolResult) string {
	for _, c := range res.Content {
		if text, ok := c.(*sdkmcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

func TestServer_ListsEveryTool(t *testing.T) {
	cs, _ := newSession(t)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	for _, want := range []string{
		"list_contacts", "get_contact", "search_contacts", "create_contact", "update_contact", "delete_contact",
		"list_deals", "deal_pipeline", "move_deal", "create_deal",
		"list_tasks", "create_task", "toggle_task",
		"log_activity", "list_activities", "add_comment", "list_comments", "dashboard",
	} {
		require.True(t, slices.Contains(names, want), "missing tool %s", want)
	}
}

func TestServer_ContactLifecycle(t *testing.T) {
	cs, _ := newSession(t)

	var created contact.Contact
	decodeResult(t, callTool(t, cs, "create_contact", map[string]any{
		"name":    "Ada Lovelace",
		"email":   "ada@example.com",
		"phone":   "555-0100",
		"company": "Analytical Engines",
		"tags":    []string{"vip"},
	}), &created)
	require.Equal(t, int64(6), created.ID)

	var found struct {
		Contacts []contact.Contact `json:"contacts"`
	}
	decodeResult(t, callTool(t, cs, "search_contacts", map[string]any{"query": "analytical"}), &found)
	require.Len(t, found.Contacts, 1)
	require.Equal(t, created.ID, found.Contacts[0].ID)

	var updated contact.Contact
	decodeResult(t, callTool(t, cs, "update_contact", map[string]any{"id": created.ID, "position": "Analyst"}), &updated)
	require.Equal(t, "Analyst", updated.Position)
	require.Equal(t, "Ada Lovelace", updated.Name)

	var removed deleteResult
	decodeResult(t, callTool(t, cs, "delete_contact", map[string]any{"id": created.ID}), &removed)
	require.True(t, removed.Deleted)

	res := callTool(t, cs, "get_contact", map[string]any{"id": created.ID})
	require.True(t, res.IsError)
	require.Contains(t, resultText(res), "NOT_FOUND")
}

func TestServer_CreateContactValidation(t *testing.T) {
	cs, _ := newSession(t)

	res := callTool(t, cs, "create_contact", map[string]any{
		"name":    "Bad",
		"email":   "not-an-email",
		"phone":   "1",
		"company": "X",
	})
	require.True(t, res.IsError)
	require.Contains(t, resultText(res), "INVALID_INPUT")
	require.Contains(t, resultText(res), "email")
}

func TestServer_DealsAndPipeline(t *testing.T) {
	cs, _ := newSession(t)

	var moved struct {
		Stage string `json:"stage"`
	}
	decodeResult(t, callTool(t, cs, "move_deal", map[string]any{"id": 1, "stage": "closed-won"}), &moved)
	require.Equal(t, "closed-won", moved.Stage)

	var pipeline pipelineResult
	decodeResult(t, callTool(t, cs, "deal_pipeline", map[string]any{}), &pipeline)
	require.Len(t, pipeline.Stages, 5)
	require.Equal(t, 2, pipeline.Stages[3].Count)

	res := callTool(t, cs, "create_deal", map[string]any{
		"title":               "Expansion",
		"value":               5000,
		"contact_id":          2,
		"expected_close_date": "someday",
	})
	require.True(t, res.IsError)
	require.Contains(t, resultText(res), "expected_close_date")

	var d struct {
		ID          int64  `json:"id"`
		Stage       string `json:"stage"`
		Probability int    `json:"probability"`
	}
	decodeResult(t, callTool(t, cs, "create_deal", map[string]any{
		"title":               "Expansion",
		"value":               5000,
		"contact_id":          2,
		"expected_close_date": "2025-06-30",
	}), &d)
	require.Equal(t, "lead", d.Stage)
	require.Equal(t, 10, d.Probability)

	var deals struct {
		Deals []json.RawMessage `json:"deals"`
	}
	decodeResult(t, callTool(t, cs, "list_deals", map[string]any{"contact_id": 2}), &deals)
	require.Len(t, deals.Deals, 2)
}

func TestServer_TasksToggle(t *testing.T) {
	cs, _ := newSession(t)

	var created struct {
		ID        int64  `json:"id"`
		Priority  string `json:"priority"`
		Completed bool   `json:"completed"`
	}
	decodeResult(t, callTool(t, cs, "create_task", map[string]any{"title": "Call back", "contact_id": 3, "due_date": "2025-02-03"}), &created)
	require.Equal(t, "medium", created.Priority)
	require.False(t, created.Completed)

	var toggled struct {
		Completed bool `json:"completed"`
	}
	decodeResult(t, callTool(t, cs, "toggle_task", map[string]any{"id": created.ID}), &toggled)
	require.True(t, toggled.Completed)

	var pending struct {
		Tasks []struct {
			Completed bool `json:"completed"`
		} `json:"tasks"`
	}
	decodeResult(t, callTool(t, cs, "list_tasks", map[string]any{"pending_only": true}), &pending)
	require.Len(t, pending.Tasks, 2)
	for _, tk := range pending.Tasks {
		require.False(t, tk.Completed)
	}
}

func TestServer_ActivitiesAndComments(t *testing.T) {
	cs, _ := newSession(t)

	var logged struct {
		Type      string    `json:"type"`
		Timestamp time.Time `json:"timestamp"`
	}
	decodeResult(t, callTool(t, cs, "log_activity", map[string]any{
		"subject":     "Follow-up",
		"description": "Checked in on pilot",
		"contact_id":  2,
	}), &logged)
	require.Equal(t, "call", logged.Type)
	require.True(t, fixedNow.Equal(logged.Timestamp))

	var recent struct {
		Activities []struct {
			Subject string `json:"subject"`
		} `json:"activities"`
	}
	decodeResult(t, callTool(t, cs, "list_activities", map[string]any{"contact_id": 2, "limit": 1}), &recent)
	require.Len(t, recent.Activities, 1)
	require.Equal(t, "Follow-up", recent.Activities[0].Subject)

	res := callTool(t, cs, "list_activities", map[string]any{"type": "telegram"})
	require.True(t, res.IsError)

	var c struct {
		Author string `json:"author"`
		Edited bool   `json:"edited"`
	}
	decodeResult(t, callTool(t, cs, "add_comment", map[string]any{"contact_id": 2, "content": "Wants a demo"}), &c)
	require.Equal(t, DefaultCommentAuthor, c.Author)
	require.False(t, c.Edited)

	var comments commentsResult
	decodeResult(t, callTool(t, cs, "list_comments", map[string]any{"contact_id": 2}), &comments)
	require.Len(t, comments.Comments, 2)
}

func TestServer_Dashboard(t *testing.T) {
	cs, _ := newSession(t)

	var summary struct {
		TotalContacts int `json:"total_contacts"`
		TotalDeals    int `json:"total_deals"`
		WonDeals      int `json:"won_deals"`
	}
	decodeResult(t, callTool(t, cs, "dashboard", map[string]any{}), &summary)
	require.Equal(t, 5, summary.TotalContacts)
	require.Equal(t, 5, summary.TotalDeals)
	require.Equal(t, 1, summary.WonDeals)
}

func TestServer_ReadsDocs(t *testing.T) {
	cs, _ := newSession(t)

	res, err := cs.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: "crmdesk://docs/errors"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	require.Contains(t, res.Contents[0].Text, "NOT_FOUND")
}

func TestMapError(t *testing.T) {
	require.Nil(t, MapError(nil))

	notFound := fmt.Errorf("contact %w", repository.ErrNotFound)
	require.Equal(t, "NOT_FOUND", MapError(notFound).Code)

	var p repository.Problems
	p.Add("email", "is not a valid email address")
	invalid := MapError(p.Err(errors.New("invalid contact input")))
	require.Equal(t, "INVALID_INPUT", invalid.Code)
	require.Equal(t, []repository.FieldError{{Field: "email", Message: "is not a valid email address"}}, invalid.Details)

	rejected := MapError(&repository.RecordError{Op: "create", Message: "1 failed"})
	require.Equal(t, "REJECTED", rejected.Code)

	upstream := MapError(fmt.Errorf("%w: dial tcp", repository.ErrTransport))
	require.Equal(t, "UPSTREAM_UNAVAILABLE", upstream.Code)
	require.Contains(t, upstream.Error(), "hint: Retry later")

	require.Equal(t, "INTERNAL", MapError(errors.New("boom")).Code)
}

func TestTrafficLogging_NamesTool(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cs, _ := newSessionWithLogger(t, logger)

	callTool(t, cs, "get_contact", map[string]any{"id": 1})
	res := callTool(t, cs, "get_contact", map[string]any{"id": 999})
	require.True(t, res.IsError)

	var toolLines []string
	for _, line := range strings.Split(logs.String(), "\n") {
		if strings.Contains(line, "tool=get_contact") {
			toolLines = append(toolLines, line)
		}
	}
	require.Len(t, toolLines, 4)
	require.Contains(t, toolLines[1], "stage=response")
	require.Contains(t, toolLines[1], "tool_error=false")
	require.Contains(t, toolLines[3], "tool_error=true")
}
