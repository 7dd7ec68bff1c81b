package transport

import (
	"net/http"

	"github.com/rpggio/crmdesk/internal/domain/deal"
)

type moveRequest struct {
	Stage deal.Stage `json:"stage"`
}

func (s *Server) listDeals(w http.ResponseWriter, r *http.Request) {
	contactID, err := queryInt64(r, "contact_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var deals []deal.Deal
	if contactID != nil {
		deals, err = s.services.Deals.ListByContact(r.Context(), *contactID)
	} else {
		deals, err = s.services.Deals.List(r.Context())
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deals)
}

func (s *Server) getDeal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.services.Deals.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) createDeal(w http.ResponseWriter, r *http.Request) {
	var req deal.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.services.Deals.Create(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) updateDeal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req deal.UpdateRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.services.Deals.Update(r.Context(), id, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) moveDeal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.services.Deals.MoveToStage(r.Context(), id, req.Stage)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) deleteDeal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok, err := s.services.Deals.Delete(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted{ID: id, Deleted: ok})
}

func (s *Server) dealPipeline(w http.ResponseWriter, r *http.Request) {
	stages, err := s.services.Deals.Pipeline(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stages)
}
