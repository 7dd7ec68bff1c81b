package transport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/crmdesk/internal/app"
	"github.com/rpggio/crmdesk/internal/config"
	"github.com/rpggio/crmdesk/internal/remote"
	"github.com/rpggio/crmdesk/internal/remote/remotetest"
	"github.com/rpggio/crmdesk/internal/testserver"
	"github.com/rpggio/crmdesk/internal/transport"
	"github.com/stretchr/testify/require"
)

const token = "test-token"

type client struct {
	t     *testing.T
	base  string
	token string
}

func newClient(t *testing.T) *client {
	ts := testserver.New(t, token)
	return &client{t: t, base: ts.Server.URL, token: token}
}

func (c *client) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(c.t, err)
			r = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, c.base+path, r)
	require.NoError(c.t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (c *client) expect(method, path string, body any, status int, out any) {
	c.t.Helper()
	resp := c.do(method, path, body)
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	require.Equal(c.t, status, resp.StatusCode, string(data))
	if out != nil {
		require.NoError(c.t, json.Unmarshal(data, out))
	}
}

type contactJSON struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Company string   `json:"company"`
	Tags    []string `json:"tags"`
}

func TestHTTPServer_Health(t *testing.T) {
	ts := testserver.New(t, token)

	resp, err := http.Get(ts.Server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(transport.HeaderRequestID))
}

func TestHTTPServer_RequiresToken(t *testing.T) {
	c := newClient(t)
	c.token = ""

	var body transport.ErrorResponse
	c.expect(http.MethodGet, "/api/contacts", nil, http.StatusUnauthorized, &body)
	require.Equal(t, transport.CodeUnauthorized, body.Error.Code)
	require.NotEmpty(t, body.Error.RequestID)

	c.token = "wrong"
	c.expect(http.MethodGet, "/api/contacts", nil, http.StatusUnauthorized, nil)
}

func TestHTTPServer_NoAuthWhenTokenEmpty(t *testing.T) {
	ts := testserver.New(t, "")
	c := &client{t: t, base: ts.Server.URL}

	var contacts []contactJSON
	c.expect(http.MethodGet, "/api/contacts", nil, http.StatusOK, &contacts)
	require.Len(t, contacts, 5)
}

func TestHTTPServer_ContactLifecycle(t *testing.T) {
	c := newClient(t)

	var created contactJSON
	c.expect(http.MethodPost, "/api/contacts", map[string]any{
		"name":    "Ada Lovelace",
		"email":   "ada@example.com",
		"phone":   "555-0100",
		"company": "Analytical Engines",
		"tags":    []string{" vip ", "vip", "math"},
	}, http.StatusCreated, &created)
	require.Equal(t, int64(6), created.ID)
	require.Equal(t, []string{"vip", "math"}, created.Tags)

	var found []contactJSON
	c.expect(http.MethodGet, "/api/contacts?q=ANALYTICAL", nil, http.StatusOK, &found)
	require.Len(t, found, 1)

	var updated contactJSON
	c.expect(http.MethodPatch, "/api/contacts/6", map[string]any{"email": "ada@engines.io"}, http.StatusOK, &updated)
	require.Equal(t, "ada@engines.io", updated.Email)
	require.Equal(t, "Ada Lovelace", updated.Name)

	var del struct {
		ID      int64 `json:"id"`
		Deleted bool  `json:"deleted"`
	}
	c.expect(http.MethodDelete, "/api/contacts/6", nil, http.StatusOK, &del)
	require.True(t, del.Deleted)

	var missing transport.ErrorResponse
	c.expect(http.MethodGet, "/api/contacts/6", nil, http.StatusNotFound, &missing)
	require.Equal(t, transport.CodeNotFound, missing.Error.Code)

	c.expect(http.MethodDelete, "/api/contacts/6", nil, http.StatusNotFound, nil)
}

func TestHTTPServer_BadRequests(t *testing.T) {
	c := newClient(t)

	var body transport.ErrorResponse
	c.expect(http.MethodPost, "/api/contacts", map[string]any{"name": "No Email"}, http.StatusBadRequest, &body)
	require.Equal(t, transport.CodeInvalidInput, body.Error.Code)
	fields := map[string]bool{}
	for _, f := range body.Error.Fields {
		fields[f.Field] = true
	}
	require.True(t, fields["email"])
	require.True(t, fields["phone"])
	require.True(t, fields["company"])

	c.expect(http.MethodGet, "/api/contacts/abc", nil, http.StatusBadRequest, &body)
	require.Equal(t, transport.CodeBadRequest, body.Error.Code)

	c.expect(http.MethodPost, "/api/contacts", `{"name":"x","nickname":"y"}`, http.StatusBadRequest, &body)
	require.Equal(t, transport.CodeBadRequest, body.Error.Code)

	c.expect(http.MethodPost, "/api/tasks", `{`, http.StatusBadRequest, nil)
	c.expect(http.MethodGet, "/api/activities?type=telegram", nil, http.StatusBadRequest, nil)
	c.expect(http.MethodGet, "/api/tasks?contact_id=-1", nil, http.StatusBadRequest, nil)
}

func TestHTTPServer_ContactRelations(t *testing.T) {
	c := newClient(t)

	var deals []map[string]any
	c.expect(http.MethodGet, "/api/contacts/1/deals", nil, http.StatusOK, &deals)
	require.Len(t, deals, 1)

	var tasks []map[string]any
	c.expect(http.MethodGet, "/api/contacts/1/tasks", nil, http.StatusOK, &tasks)
	require.Len(t, tasks, 1)

	var activities []map[string]any
	c.expect(http.MethodGet, "/api/contacts/1/activities", nil, http.StatusOK, &activities)
	require.Len(t, activities, 1)

	var comments []map[string]any
	c.expect(http.MethodGet, "/api/contacts/1/comments", nil, http.StatusOK, &comments)
	require.Len(t, comments, 1)

	var none []map[string]any
	c.expect(http.MethodGet, "/api/contacts/99/deals", nil, http.StatusOK, &none)
	require.NotNil(t, none)
	require.Empty(t, none)
}

func TestHTTPServer_Deals(t *testing.T) {
	c := newClient(t)

	var created struct {
		ID          int64  `json:"id"`
		Stage       string `json:"stage"`
		Probability int    `json:"probability"`
	}
	c.expect(http.MethodPost, "/api/deals", map[string]any{
		"title":               "Expansion",
		"value":               2500,
		"contact_id":          3,
		"expected_close_date": "2025-09-30T00:00:00Z",
	}, http.StatusCreated, &created)
	require.Equal(t, "lead", created.Stage)
	require.Equal(t, 10, created.Probability)

	var moved struct {
		Stage string `json:"stage"`
		Title string `json:"title"`
	}
	c.expect(http.MethodPut, "/api/deals/6/stage", map[string]any{"stage": "qualified"}, http.StatusOK, &moved)
	require.Equal(t, "qualified", moved.Stage)
	require.Equal(t, "Expansion", moved.Title)

	c.expect(http.MethodPut, "/api/deals/6/stage", map[string]any{"stage": "won"}, http.StatusBadRequest, nil)

	var pipeline []struct {
		Stage string  `json:"stage"`
		Count int     `json:"count"`
		Value float64 `json:"value"`
	}
	c.expect(http.MethodGet, "/api/deals/pipeline", nil, http.StatusOK, &pipeline)
	require.Len(t, pipeline, 5)
	require.Equal(t, "qualified", pipeline[1].Stage)
	require.Equal(t, 2, pipeline[1].Count)
	require.InDelta(t, 20500, pipeline[1].Value, 0.001)

	var byContact []map[string]any
	c.expect(http.MethodGet, "/api/deals?contact_id=3", nil, http.StatusOK, &byContact)
	require.Len(t, byContact, 2)
}

func TestHTTPServer_TasksToggle(t *testing.T) {
	c := newClient(t)

	var task struct {
		ID        int64 `json:"id"`
		Completed bool  `json:"completed"`
	}
	c.expect(http.MethodPost, "/api/tasks/1/toggle", nil, http.StatusOK, &task)
	require.True(t, task.Completed)
	c.expect(http.MethodPost, "/api/tasks/1/toggle", nil, http.StatusOK, &task)
	require.False(t, task.Completed)

	c.expect(http.MethodPost, "/api/tasks/99/toggle", nil, http.StatusNotFound, nil)
}

func TestHTTPServer_ActivitiesAndComments(t *testing.T) {
	c := newClient(t)

	c.expect(http.MethodPost, "/api/activities", map[string]any{
		"type":        "meeting",
		"subject":     "Demo",
		"description": "Product demo",
		"contact_id":  1,
		"timestamp":   time.Date(2025, 2, 2, 10, 0, 0, 0, time.UTC),
		"duration":    45,
	}, http.StatusCreated, nil)

	var activities []struct {
		Subject string `json:"subject"`
	}
	c.expect(http.MethodGet, "/api/activities?contact_id=1&type=meeting&limit=1", nil, http.StatusOK, &activities)
	require.Len(t, activities, 1)
	require.Equal(t, "Demo", activities[0].Subject)

	var comment struct {
		ID     int64 `json:"id"`
		Edited bool  `json:"edited"`
	}
	c.expect(http.MethodPost, "/api/comments", map[string]any{
		"contact_id": 3,
		"author":     "Current User",
		"content":    "Call after lunch",
	}, http.StatusCreated, &comment)
	require.False(t, comment.Edited)

	c.expect(http.MethodPatch, "/api/comments/3", map[string]any{"content": "Call before lunch"}, http.StatusOK, &comment)
	require.True(t, comment.Edited)

	var comments []map[string]any
	c.expect(http.MethodGet, "/api/comments?contact_id=3", nil, http.StatusOK, &comments)
	require.Len(t, comments, 1)
}

func TestHTTPServer_Dashboard(t *testing.T) {
	c := newClient(t)

	var summary struct {
		TotalContacts int     `json:"total_contacts"`
		TotalValue    float64 `json:"total_value"`
		Pipeline      []struct {
			Stage string `json:"stage"`
		} `json:"pipeline"`
	}
	c.expect(http.MethodGet, "/api/dashboard", nil, http.StatusOK, &summary)
	require.Equal(t, 5, summary.TotalContacts)
	require.InDelta(t, 292500, summary.TotalValue, 0.001)
	require.Len(t, summary.Pipeline, 4)
}

func TestHTTPServer_RemoteFailures(t *testing.T) {
	rs := remotetest.New(t)

	cfg := config.Default()
	cfg.Backend.Mode = config.BackendRemote
	cfg.Backend.Remote.BaseURL = rs.URL
	cfg.Backend.Remote.ProjectID = remotetest.ProjectID
	cfg.Backend.Remote.PublicKey = remotetest.PublicKey
	a, err := app.New(cfg, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(transport.NewServer(a.Services, transport.Options{}))
	t.Cleanup(srv.Close)
	c := &client{t: t, base: srv.URL}

	contact := map[string]any{"name": "Ada", "email": "ada@example.com", "phone": "1", "company": "X"}

	rs.FailNext("contact_c", remotetest.Failure{
		Message: "1 record failed",
		Errors:  []remote.FieldError{{FieldLabel: "Email_c", Message: "duplicate value"}},
	})
	var rejected transport.ErrorResponse
	c.expect(http.MethodPost, "/api/contacts", contact, http.StatusUnprocessableEntity, &rejected)
	require.Equal(t, transport.CodeRejected, rejected.Error.Code)
	require.Len(t, rejected.Error.Fields, 1)
	require.Equal(t, "Email_c", rejected.Error.Fields[0].Field)

	rs.FailNext("contact_c", remotetest.Failure{TopLevel: true, Message: "quota exceeded"})
	var upstream transport.ErrorResponse
	c.expect(http.MethodPost, "/api/contacts", contact, http.StatusBadGateway, &upstream)
	require.Equal(t, transport.CodeUpstream, upstream.Error.Code)
	require.Contains(t, upstream.Error.Message, "quota exceeded")

	rs.RespondNext("contact_c", http.StatusInternalServerError)
	c.expect(http.MethodGet, "/api/contacts", nil, http.StatusBadGateway, nil)

	var created contactJSON
	c.expect(http.MethodPost, "/api/contacts", contact, http.StatusCreated, &created)
	require.Positive(t, created.ID)
}

type bearerTransport struct {
	token string
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return http.DefaultTransport.RoundTrip(req)
}

func TestHTTPServer_MCPOverHTTP(t *testing.T) {
	ts := testserver.New(t, token)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mcpClient := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := mcpClient.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearerTransport{token: token}},
	}, nil)
	require.NoError(t, err)
	defer session.Close()

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "dashboard", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, res.IsError)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	require.Contains(t, text.Text, `"total_contacts":5`)
}
