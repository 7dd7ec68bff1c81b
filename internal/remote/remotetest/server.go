// Package remotetest runs an in-process stand-in for the record service.
package remotetest

import (
	"cmp"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/crmdesk/internal/remote"
)

// Credentials expected by a Server.
const (
	ProjectID = "test-project"
	PublicKey = "test-public-key"
)

// Failure scripts the reply to the next write on a table.
type Failure struct {
	// TopLevel makes the whole call report success=false with Message.
	TopLevel bool
	Message  string
	Errors   []remote.FieldError
}

// Call records one request received by the server.
type Call struct {
	Method    string
	Path      string
	Table     string
	RequestID string
	Body      json.RawMessage
}

// Server is a fake record service backed by memory.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	tables   map[string]*table
	failures map[string][]Failure
	statuses map[string][]int
	calls    []Call
	now      func() time.Time
}

type table struct {
	lastID  int64
	records []remote.RawRecord
}

// New starts a server. It is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := NewUnstarted()
	s.Server = httptest.NewServer(s.Router())
	t.Cleanup(s.Close)
	return s
}

// NewUnstarted creates a server whose Router can be mounted elsewhere.
func NewUnstarted() *Server {
	return &Server{
		tables:   map[string]*table{},
		failures: map[string][]Failure{},
		statuses: map[string][]int{},
		now:      time.Now,
	}
}

// Client returns a record service client for the server.
func (s *Server) Client() *remote.Client {
	return remote.NewClient(s.URL, ProjectID, PublicKey)
}

// FailNext scripts the reply of the next create, update or delete on tbl.
func (s *Server) FailNext(tbl string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[tbl] = append(s.failures[tbl], f)
}

// RespondNext makes the next call on tbl reply with an empty body and status.
func (s *Server) RespondNext(tbl string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[tbl] = append(s.statuses[tbl], status)
}

// Put stores a raw record as-is, assigning an Id when it has none.
func (s *Server) Put(tbl string, rec remote.RawRecord) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(tbl, rec)
}

// Raw returns a copy of the stored record, or nil.
func (s *Server) Raw(tbl string, id int64) remote.RawRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(tbl)
	if i := t.index(id); i >= 0 {
		return cloneRaw(t.records[i])
	}
	return nil
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// Router returns the HTTP handler of the fake service.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.authenticate)
	r.Route("/api/records/{table}", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Post("/get/{id}", s.handleGet)
		r.Post("/", s.handleCreate)
		r.Put("/", s.handleUpdate)
		r.Delete("/", s.handleDelete)
	})
	return r
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+PublicKey || r.Header.Get(remote.HeaderProjectID) != ProjectID {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "invalid credentials"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// begin decodes the body, records the call and reports whether a scripted
// status was consumed.
func (s *Server) begin(w http.ResponseWriter, r *http.Request, v any) (string, bool) {
	tbl := chi.URLParam(r, "table")

	var body json.RawMessage
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "malformed body"})
		return tbl, false
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{
		Method:    r.Method,
		Path:      r.URL.Path,
		Table:     tbl,
		RequestID: r.Header.Get(remote.HeaderRequestID),
		Body:      body,
	})
	var status int
	if queued := s.statuses[tbl]; len(queued) > 0 {
		status = queued[0]
		s.statuses[tbl] = queued[1:]
	}
	s.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return tbl, false
	}

	dec = json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
		return tbl, false
	}
	return tbl, true
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var params remote.FetchParams
	tbl, ok := s.begin(w, r, &params)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(tbl)
	matched := make([]remote.RawRecord, 0, len(t.records))
	for _, rec := range t.records {
		if matches(rec, params.Where) {
			matched = append(matched, rec)
		}
	}
	sortRecords(matched, params.OrderBy)

	if p := params.PagingInfo; p != nil {
		start := min(p.Offset, len(matched))
		end := len(matched)
		if p.Limit > 0 {
			end = min(start+p.Limit, len(matched))
		}
		matched = matched[start:end]
	}

	out := make([]remote.RawRecord, 0, len(matched))
	for _, rec := range matched {
		out = append(out, project(rec, params.Fields))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": out})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	var params remote.FetchParams
	tbl, ok := s.begin(w, r, &params)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid id"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(tbl)
	i := t.index(id)
	if i < 0 {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": project(t.records[i], params.Fields)})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req remote.WriteRequest
	tbl, ok := s.begin(w, r, &req)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.replyScripted(w, tbl, len(req.Records)) {
		return
	}
	results := make([]remote.RecordResult, 0, len(req.Records))
	for _, rec := range req.Records {
		id := s.insert(tbl, rec)
		t := s.table(tbl)
		results = append(results, remote.RecordResult{Success: true, Data: cloneRaw(t.records[t.index(id)])})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": results})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req remote.WriteRequest
	tbl, ok := s.begin(w, r, &req)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.replyScripted(w, tbl, len(req.Records)) {
		return
	}
	t := s.table(tbl)
	results := make([]remote.RecordResult, 0, len(req.Records))
	for _, patch := range req.Records {
		id, _ := strconv.ParseInt(fmt.Sprint(patch[remote.FieldID]), 10, 64)
		i := t.index(id)
		if i < 0 {
			results = append(results, remote.RecordResult{Success: false, Message: "Record does not exist"})
			continue
		}
		for k, v := range patch {
			if k != remote.FieldID {
				t.records[i][k] = v
			}
		}
		t.records[i][remote.FieldLastModifiedDate] = s.timestamp()
		results = append(results, remote.RecordResult{Success: true, Data: cloneRaw(t.records[i])})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": results})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req remote.DeleteRequest
	tbl, ok := s.begin(w, r, &req)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.replyScripted(w, tbl, len(req.RecordIDs)) {
		return
	}
	t := s.table(tbl)
	results := make([]remote.RecordResult, 0, len(req.RecordIDs))
	for _, id := range req.RecordIDs {
		i := t.index(id)
		if i < 0 {
			results = append(results, remote.RecordResult{Success: false, Message: "Record does not exist"})
			continue
		}
		t.records = slices.Delete(t.records, i, i+1)
		results = append(results, remote.RecordResult{Success: true})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": results})
}

// replyScripted must be called with mu held.
func (s *Server) replyScripted(w http.ResponseWriter, tbl string, n int) bool {
	queued := s.failures[tbl]
	if len(queued) == 0 {
		return false
	}
	f := queued[0]
	s.failures[tbl] = queued[1:]

	if f.TopLevel {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": f.Message})
		return true
	}
	results := make([]remote.RecordResult, n)
	for i := range results {
		results[i] = remote.RecordResult{Success: false, Message: f.Message, Errors: f.Errors}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": results})
	return true
}

// insert must be called with mu held.
func (s *Server) insert(tbl string, rec remote.RawRecord) int64 {
	t := s.table(tbl)
	stored := cloneRaw(rec)
	id, _ := strconv.ParseInt(fmt.Sprint(stored[remote.FieldID]), 10, 64)
	if id <= 0 {
		id = t.lastID + 1
	}
	t.lastID = max(t.lastID, id)
	stored[remote.FieldID] = id

	now := s.timestamp()
	if _, ok := stored[remote.FieldCreatedDate]; !ok {
		stored[remote.FieldCreatedDate] = now
	}
	stored[remote.FieldLastModifiedDate] = now
	t.records = append(t.records, stored)
	return id
}

func (s *Server) table(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		t = &table{}
		s.tables[name] = t
	}
	return t
}

func (s *Server) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func (t *table) index(id int64) int {
	for i, rec := range t.records {
		if fmt.Sprint(rec[remote.FieldID]) == strconv.FormatInt(id, 10) {
			return i
		}
	}
	return -1
}

func matches(rec remote.RawRecord, where []remote.Condition) bool {
	for _, c := range where {
		if c.Operator != remote.OperatorEqualTo {
			return false
		}
		got := fmt.Sprint(rec[c.FieldName])
		if !slices.ContainsFunc(c.Values, func(v any) bool { return fmt.Sprint(v) == got }) {
			return false
		}
	}
	return true
}

func sortRecords(recs []remote.RawRecord, orderBy []remote.OrderBy) {
	slices.SortStableFunc(recs, func(a, b remote.RawRecord) int {
		for _, o := range orderBy {
			c := compareValues(a[o.FieldName], b[o.FieldName])
			if c == 0 {
				c = compareValues(a[remote.FieldID], b[remote.FieldID])
			}
			if strings.EqualFold(o.SortType, remote.SortDesc) {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareValues(a, b any) int {
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	if af, err := strconv.ParseFloat(as, 64); err == nil {
		if bf, err := strconv.ParseFloat(bs, 64); err == nil {
			return cmp.Compare(af, bf)
		}
	}
	if at, err := time.Parse(time.RFC3339Nano, as); err == nil {
		if bt, err := time.Parse(time.RFC3339Nano, bs); err == nil {
			return at.Compare(bt)
		}
	}
	return strings.Compare(as, bs)
}

func project(rec remote.RawRecord, fields []remote.FieldSpec) remote.RawRecord {
	if len(fields) == 0 {
		return cloneRaw(rec)
	}
	out := remote.RawRecord{}
	for _, f := range fields {
		if v, ok := rec[f.Field.Name]; ok {
			out[f.Field.Name] = v
		}
	}
	return out
}

func cloneRaw(rec remote.RawRecord) remote.RawRecord {
	out := make(remote.RawRecord, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
