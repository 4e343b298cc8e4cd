package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/azure/brand-mentions-api/internal/apperr"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Data interface{} `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("Failed to write response")
	}
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Data: data})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindPrecondition:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the client-safe message of err. Internal errors are logged in
// full and reported generically.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(apperr.KindOf(err))

	entry := logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	writeJSON(w, status, errorBody{Error: apperr.Message(err)})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperr.Validation("request body is required")
		case errors.As(err, &tooLarge):
			return apperr.Validation("request body too large")
		default:
			return apperr.Validation("invalid request body")
		}
	}
	return nil
}
