package api

import (
	"net/http"

	"github.com/azure/brand-mentions-api/internal/auth"
	"github.com/azure/brand-mentions-api/internal/validation"
)

type settingsInput struct {
	NotificationsEnabled *bool `json:"notifications_enabled" validate:"required"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}

	user, err := h.svc.Auth.Register(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, user)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}

	token, err := h.svc.Auth.Login(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, token)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Auth.Me(r.Context(), UserID(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, user)
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var in settingsInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	if err := validation.Struct(in); err != nil {
		fail(w, r, err)
		return
	}

	user, err := h.svc.Auth.SetNotifications(r.Context(), UserID(r.Context()), *in.NotificationsEnabled)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, user)
}
