// Package api exposes the services over a JSON HTTP interface. Successful
// responses wrap their payload as {"data": ...}; failures carry
// {"error": "<message>"}.
package api

import (
	"net/http"
	"time"

	"github.com/azure/brand-mentions-api/internal/alerts"
	"github.com/azure/brand-mentions-api/internal/apperr"
	"github.com/azure/brand-mentions-api/internal/auth"
	"github.com/azure/brand-mentions-api/internal/casestudy"
	"github.com/azure/brand-mentions-api/internal/filtering"
	"github.com/azure/brand-mentions-api/internal/ingestion"
	"github.com/azure/brand-mentions-api/internal/matching"
	"github.com/azure/brand-mentions-api/internal/monitoring"
	"github.com/gorilla/mux"
)

// Services are the components the handlers call into
type Services struct {
	Auth        *auth.Service
	Alerts      *alerts.Service
	Filtering   *filtering.Service
	Matching    *matching.Engine
	Ingestion   *ingestion.Service
	CaseStudies *casestudy.Service
	Recorder    *monitoring.Recorder
}

// Handler serves the HTTP API
type Handler struct {
	svc Services
}

// NewRouter builds the router with every public and authenticated route.
func NewRouter(svc Services) *mux.Router {
	h := &Handler{svc: svc}

	router := mux.NewRouter()
	router.Use(recoverPanics, logRequests)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found"})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	router.HandleFunc("/metrics", h.metrics).Methods(http.MethodGet)
	router.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)

	protected := router.NewRoute().Subrouter()
	protected.Use(requireAuth(svc.Auth))

	protected.HandleFunc("/users/me", h.me).Methods(http.MethodGet)
	protected.HandleFunc("/users/me", h.updateMe).Methods(http.MethodPut)

	// Fixed alert paths come before /alerts/{id}.
	protected.HandleFunc("/alerts", h.listAlerts).Methods(http.MethodGet)
	protected.HandleFunc("/alerts", h.createAlert).Methods(http.MethodPost)
	protected.HandleFunc("/alerts/stats", h.alertStats).Methods(http.MethodGet)
	protected.HandleFunc("/alerts/scan-all", h.scanAllAlerts).Methods(http.MethodPost)
	protected.HandleFunc("/alerts/{id}", h.getAlert).Methods(http.MethodGet)
	protected.HandleFunc("/alerts/{id}", h.updateAlert).Methods(http.MethodPut)
	protected.HandleFunc("/alerts/{id}", h.deleteAlert).Methods(http.MethodDelete)
	protected.HandleFunc("/alerts/{id}/scan", h.scanAlert).Methods(http.MethodPost)

	protected.HandleFunc("/posts/all", h.listPosts).Methods(http.MethodGet)
	protected.HandleFunc("/posts/by-alert/{alertId}", h.postsByAlert).Methods(http.MethodGet)
	protected.HandleFunc("/posts/by-case-study/{caseStudyId}", h.postsByCaseStudy).Methods(http.MethodGet)
	protected.HandleFunc("/posts", h.createPost).Methods(http.MethodPost)
	protected.HandleFunc("/posts/{id}", h.updatePost).Methods(http.MethodPut)
	protected.HandleFunc("/posts/{id}", h.deletePost).Methods(http.MethodDelete)

	protected.HandleFunc("/casestudies", h.listCaseStudies).Methods(http.MethodGet)
	protected.HandleFunc("/casestudies", h.createCaseStudy).Methods(http.MethodPost)
	protected.HandleFunc("/casestudies/{id}", h.getCaseStudy).Methods(http.MethodGet)
	protected.HandleFunc("/casestudies/{id}", h.deleteCaseStudy).Methods(http.MethodDelete)
	protected.HandleFunc("/casestudies/{id}/status", h.setCaseStudyStatus).Methods(http.MethodPatch)
	protected.HandleFunc("/casestudies/{id}/archive", h.caseStudyArchive).Methods(http.MethodGet)

	return router
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if h.svc.Recorder == nil {
		fail(w, r, apperr.NotFound("metrics"))
		return
	}
	respond(w, http.StatusOK, h.svc.Recorder.Snapshot())
}
