package transport

import (
	"net/http"

	"github.com/rpggio/crmdesk/internal/domain/comment"
)

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	contactID, err := queryInt64(r, "contact_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var comments []comment.Comment
	if contactID != nil {
		comments, err = s.services.Comments.ListByContact(r.Context(), *contactID)
	} else {
		comments, err = s.services.Comments.List(r.Context())
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) getComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.services.Comments.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	var req comment.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.services.Comments.Create(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) updateComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req comment.UpdateRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.services.Comments.Update(r.Context(), id, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok, err := s.services.Comments.Delete(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted{ID: id, Deleted: ok})
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.services.Dashboard.Summary(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
