package api

import (
	"encoding/json"
	"net/http"

	"github.com/azure/brand-mentions-api/internal/casestudy"
	"github.com/azure/brand-mentions-api/internal/validation"
)

type statusInput struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) listCaseStudies(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	page, err := h.svc.Filtering.ListCaseStudies(r.Context(), UserID(r.Context()), params)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, page)
}

func (h *Handler) createCaseStudy(w http.ResponseWriter, r *http.Request) {
	var in casestudy.CreateInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}

	cs, err := h.svc.CaseStudies.Create(r.Context(), UserID(r.Context()), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, cs)
}

func (h *Handler) getCaseStudy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "case study")
	if err != nil {
		fail(w, r, err)
		return
	}

	cs, err := h.svc.CaseStudies.Get(r.Context(), UserID(r.Context()), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, cs)
}

func (h *Handler) deleteCaseStudy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "case study")
	if err != nil {
		fail(w, r, err)
		return
	}

	if err := h.svc.CaseStudies.Delete(r.Context(), UserID(r.Context()), id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setCaseStudyStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "case study")
	if err != nil {
		fail(w, r, err)
		return
	}
	var in statusInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	if err := validation.Struct(in); err != nil {
		fail(w, r, err)
		return
	}

	cs, err := h.svc.CaseStudies.SetStatus(r.Context(), UserID(r.Context()), id, in.Status)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, cs)
}

func (h *Handler) caseStudyArchive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "case study")
	if err != nil {
		fail(w, r, err)
		return
	}

	data, err := h.svc.CaseStudies.Archived(r.Context(), UserID(r.Context()), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, json.RawMessage(data))
}
