package api

import (
	"errors"
	"net/http"

	"github.com/azure/brand-mentions-api/internal/alerts"
	"github.com/sirupsen/logrus"
)

type scanAllResult struct {
	Results interface{} `json:"results"`
	Failed  int         `json:"failed"`
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	page, err := h.svc.Filtering.ListAlerts(r.Context(), UserID(r.Context()), params)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, page)
}

func (h *Handler) createAlert(w http.ResponseWriter, r *http.Request) {
	var in alerts.Input
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}

	alert, err := h.svc.Alerts.Create(r.Context(), UserID(r.Context()), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, alert)
}

func (h *Handler) alertStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Filtering.Stats(r.Context(), UserID(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, stats)
}

func (h *Handler) getAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "alert")
	if err != nil {
		fail(w, r, err)
		return
	}
	params, err := listParams(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	detail, err := h.svc.Filtering.AlertDetail(r.Context(), UserID(r.Context()), id, params)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, detail)
}

func (h *Handler) updateAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "alert")
	if err != nil {
		fail(w, r, err)
		return
	}
	var in alerts.Input
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}

	alert, err := h.svc.Alerts.Update(r.Context(), UserID(r.Context()), id, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, alert)
}

func (h *Handler) deleteAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "alert")
	if err != nil {
		fail(w, r, err)
		return
	}

	if err := h.svc.Alerts.Delete(r.Context(), UserID(r.Context()), id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) scanAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "alert")
	if err != nil {
		fail(w, r, err)
		return
	}

	result, err := h.svc.Matching.ScanAlert(r.Context(), UserID(r.Context()), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, result)
}

// scanAllAlerts reports per-alert results. Alerts that failed are counted
// and logged; the rest still return. The request fails when no alert
// could be scanned.
func (h *Handler) scanAllAlerts(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.Matching.ScanAllActive(r.Context(), UserID(r.Context()))
	if err != nil && len(results) == 0 {
		fail(w, r, err)
		return
	}

	failed := 0
	if err != nil {
		failed = 1
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			failed = len(joined.Unwrap())
		}
		logrus.WithError(err).WithField("failed", failed).Warn("Scan of all alerts partially failed")
	}

	respond(w, http.StatusOK, scanAllResult{Results: results, Failed: failed})
}
