package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/azure/brand-mentions-api/internal/apperr"
	"github.com/azure/brand-mentions-api/internal/filtering"
	"github.com/azure/brand-mentions-api/internal/query"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// listParams reads the list query parameters shared by every list route.
// Multi-value filters are comma separated.
func listParams(r *http.Request) (filtering.ListParams, error) {
	q := r.URL.Query()
	p := filtering.ListParams{
		Search:     q.Get("search"),
		Fields:     query.ParseList(q.Get("fields")),
		Statuses:   query.ParseList(q.Get("statuses")),
		Severities: query.ParseList(q.Get("severities")),
		Platforms:  query.ParseList(q.Get("platforms")),
		Sentiments: query.ParseList(q.Get("sentiments")),
	}

	var err error
	if p.Page, err = intParam(q.Get("page"), "page"); err != nil {
		return p, err
	}
	if p.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return p, err
	}

	if raw := strings.TrimSpace(q.Get("alertId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return p, apperr.Validation("alertId must be a valid id")
		}
		p.AlertID = &id
	}
	return p, nil
}

func intParam(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperr.Validation("%s must be a positive integer", name)
	}
	return n, nil
}

// pathID parses a uuid route variable. A malformed id cannot name an
// entity, so it is reported as not found.
func pathID(r *http.Request, name, entity string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, apperr.NotFound(entity)
	}
	return id, nil
}
