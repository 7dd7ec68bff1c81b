package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rpggio/crmdesk/internal/domain/activity"
)

// activityOptions reads contact_id, deal_id, type, since (RFC 3339) and limit.
func activityOptions(r *http.Request) (activity.ListOptions, error) {
	var opts activity.ListOptions
	q := r.URL.Query()

	contactID, err := queryInt64(r, "contact_id")
	if err != nil {
		return opts, err
	}
	opts.ContactID = contactID

	dealID, err := queryInt64(r, "deal_id")
	if err != nil {
		return opts, err
	}
	opts.DealID = dealID

	if raw := q.Get("type"); raw != "" {
		t := activity.Type(raw)
		if !t.Valid() {
			return opts, badRequest("invalid type %q", raw)
		}
		opts.Type = &t
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return opts, badRequest("invalid since %q", raw)
		}
		opts.Since = since
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return opts, badRequest("invalid limit %q", raw)
		}
		opts.Limit = limit
	}
	return opts, nil
}

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	opts, err := activityOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	activities, err := s.services.Activities.List(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

func (s *Server) getActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.services.Activities.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) createActivity(w http.ResponseWriter, r *http.Request) {
	var req activity.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.services.Activities.Create(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) updateActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req activity.UpdateRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.services.Activities.Update(r.Context(), id, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) deleteActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok, err := s.services.Activities.Delete(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted{ID: id, Deleted: ok})
}
