package api

import (
	"net/http"

	"github.com/azure/brand-mentions-api/internal/ingestion"
)

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	page, err := h.svc.Filtering.ListPosts(r.Context(), UserID(r.Context()), params)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, page)
}

func (h *Handler) postsByAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "alertId", "alert")
	if err != nil {
		fail(w, r, err)
		return
	}
	params, err := listParams(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	page, err := h.svc.Filtering.PostsByAlert(r.Context(), UserID(r.Context()), id, params)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, page)
}

func (h *Handler) postsByCaseStudy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "caseStudyId", "case study")
	if err != nil {
		fail(w, r, err)
		return
	}
	params, err := listParams(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	page, err := h.svc.Filtering.PostsByCaseStudy(r.Context(), UserID(r.Context()), id, params)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, page)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	var in ingestion.PostInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}

	result, err := h.svc.Ingestion.Ingest(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, result)
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "post")
	if err != nil {
		fail(w, r, err)
		return
	}
	var in ingestion.UpdateInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}

	result, err := h.svc.Ingestion.Update(r.Context(), UserID(r.Context()), id, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "post")
	if err != nil {
		fail(w, r, err)
		return
	}

	if err := h.svc.Ingestion.Delete(r.Context(), UserID(r.Context()), id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
