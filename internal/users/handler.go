// Package users serves profile self-service and the admin user directory.
package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"spendwise/internal/api"
	"spendwise/internal/apperr"
	"spendwise/internal/auth"
	"spendwise/internal/events"
)

const recentUsers = 5

type Handler struct {
	Store  *auth.Store
	Events events.Publisher
	Logger *slog.Logger
	Errors api.Errors
}

func notFound(err error) error {
	if errors.Is(err, auth.ErrUserNotFound) {
		return apperr.NotFound("User not found")
	}
	return err
}

func targetID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NotFound("User not found")
	}
	return id, nil
}

type profileRequest struct {
	Name     *string `json:"name"`
	Avatar   *string `json:"avatar"`
	Bio      *string `json:"bio"`
	Currency *string `json:"currency"`
	Theme    *string `json:"theme"`
}

// UpdateProfile changes the caller's own profile fields.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	if u == nil {
		h.Errors.Write(w, r, apperr.Unauthenticated("Authentication required"))
		return
	}
	var req profileRequest
	if err := api.Decode(r, &req); err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	p := auth.ProfileUpdate(req)
	if err := auth.ValidateProfile(p); err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	updated, err := h.Store.UpdateProfile(r.Context(), u.ID, p)
	if err != nil {
		h.Errors.Write(w, r, apperr.OrInternal("Error updating profile", notFound(err)))
		return
	}
	api.OK(w, http.StatusOK, "Profile updated successfully", api.M{"user": updated})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := auth.ListFilter{Role: auth.Role(strings.TrimSpace(q.Get("role"))), Search: q.Get("search")}
	if f.Role == "all" {
		f.Role = ""
	}
	if f.Role != "" && !f.Role.Valid() {
		h.Errors.Write(w, r, apperr.Validation([]string{"Role must be one of admin, user, read-only"}))
		return
	}
	list, err := h.Store.List(r.Context(), f)
	if err != nil {
		h.Errors.Write(w, r, apperr.Internal("Error fetching users", err))
		return
	}
	api.OK(w, http.StatusOK, "", api.M{"users": list, "count": len(list)})
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.Store.Overview(r.Context(), recentUsers)
	if err != nil {
		h.Errors.Write(w, r, apperr.Internal("Error fetching user statistics", err))
		return
	}
	api.OK(w, http.StatusOK, "", api.M{"stats": ov})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := targetID(r)
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	u, err := h.Store.GetByID(r.Context(), id)
	if err != nil {
		h.Errors.Write(w, r, apperr.OrInternal("Error fetching user", notFound(err)))
		return
	}
	api.OK(w, http.StatusOK, "", api.M{"user": u})
}

type roleRequest struct {
	Role auth.Role `json:"role"`
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.UserFromContext(r.Context())
	id, err := targetID(r)
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	var req roleRequest
	if err := api.Decode(r, &req); err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	u, err := h.Store.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		h.Errors.Write(w, r, apperr.OrInternal("Error updating user role", notFound(err)))
		return
	}
	h.Logger.InfoContext(r.Context(), "user role changed", "user_id", u.ID, "role", u.Role, "by", admin.ID)
	events.Emit(r.Context(), h.Events, h.Logger, events.New(events.UserRoleChanged, admin.ID, u.ID,
		map[string]any{"role": u.Role}))
	api.OK(w, http.StatusOK, "User role updated successfully", api.M{"user": u})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.UserFromContext(r.Context())
	id, err := targetID(r)
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	if id == admin.ID {
		h.Errors.Write(w, r, apperr.Forbidden("You cannot delete your own account"))
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		h.Errors.Write(w, r, apperr.OrInternal("Error deleting user", notFound(err)))
		return
	}
	h.Logger.InfoContext(r.Context(), "user deleted", "user_id", id, "by", admin.ID)
	events.Emit(r.Context(), h.Events, h.Logger, events.New(events.UserDeleted, admin.ID, id, nil))
	api.OK(w, http.StatusOK, "User deleted successfully", nil)
}
