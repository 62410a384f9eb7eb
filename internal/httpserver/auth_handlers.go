package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"spendwise/internal/api"
	"spendwise/internal/apperr"
	"spendwise/internal/auth"
	"spendwise/internal/events"
)

type authHandler struct {
	svc    *auth.Service
	events events.Publisher
	logger *slog.Logger
	errs   api.Errors
}

// register ignores any role in the body; new accounts are always users.
func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var in auth.Registration
	if err := api.Decode(r, &in); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	user, token, err := h.svc.Register(r.Context(), in)
	if err != nil {
		h.errs.Write(w, r, apperr.OrInternal("Error registering user", err))
		return
	}
	h.logger.InfoContext(r.Context(), "user registered", "user_id", user.ID)
	events.Emit(r.Context(), h.events, h.logger, events.New(events.UserRegistered, user.ID, user.ID, nil))
	api.OK(w, http.StatusCreated, "User registered successfully", api.M{"token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := api.Decode(r, &in); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	user, token, err := h.svc.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.WarnContext(r.Context(), "login failed")
			h.errs.Write(w, r, apperr.New(apperr.KindInvalidCredentials, "Invalid email or password"))
			return
		}
		h.errs.Write(w, r, apperr.Internal("Error logging in", err))
		return
	}
	api.OK(w, http.StatusOK, "Login successful", api.M{"token": token, "user": user})
}

func (h *authHandler) me(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	api.OK(w, http.StatusOK, "", api.M{"user": user})
}
