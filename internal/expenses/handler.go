package expenses

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"spendwise/internal/api"
	"spendwise/internal/apperr"
	"spendwise/internal/auth"
	"spendwise/internal/events"
	"spendwise/internal/validate"
)

type Handler struct {
	Store  *Store
	Events events.Publisher
	Logger *slog.Logger
	Errors api.Errors
	Now    func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.Errors.Write(w, r, apperr.Unauthenticated("Authentication required"))
		return nil, false
	}
	return u, true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// parseListQuery reads page, limit, category, startDate and endDate. A
// date-only endDate covers that whole day.
func parseListQuery(q url.Values) (Filter, int, int, error) {
	var v validate.Errors
	page, limit := 1, DefaultPageSize
	if s := q.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		v.Check(err == nil && n >= 1, "Page must be a positive integer")
		if err == nil {
			page = n
		}
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		v.Check(err == nil && n >= 1 && n <= MaxPageSize, "Limit must be between 1 and 100")
		if err == nil {
			limit = n
		}
	}

	f := Filter{Category: strings.TrimSpace(q.Get("category"))}
	if s := q.Get("startDate"); s != "" {
		d, ok := ParseDate(s)
		v.Check(ok, "startDate must be YYYY-MM-DD or an RFC 3339 timestamp")
		f.From = d
	}
	if s := q.Get("endDate"); s != "" {
		d, ok := ParseDate(s)
		v.Check(ok, "endDate must be YYYY-MM-DD or an RFC 3339 timestamp")
		if ok && len(strings.TrimSpace(s)) == len(time.DateOnly) {
			d = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		f.To = d
	}
	return f, page, limit, v.Err()
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := h.caller(w, r)
	if !ok {
		return
	}
	h.list(w, r, u.ID)
}

// ListForUser serves another account's expenses. The route guards access.
func (h *Handler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := pathID(r, "id")
	if !ok {
		h.Errors.Write(w, r, apperr.NotFound("User not found"))
		return
	}
	h.list(w, r, ownerID)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, ownerID int64) {
	f, page, limit, err := parseListQuery(r.URL.Query())
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	p, err := h.Store.List(r.Context(), ownerID, f, page, limit)
	if err != nil {
		h.Errors.Write(w, r, apperr.Internal("Error fetching expenses", err))
		return
	}
	api.JSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*Page
	}{true, p})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	u, ok := h.caller(w, r)
	if !ok {
		return
	}
	h.stats(w, r, u.ID)
}

func (h *Handler) StatsForUser(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := pathID(r, "id")
	if !ok {
		h.Errors.Write(w, r, apperr.NotFound("User not found"))
		return
	}
	h.stats(w, r, ownerID)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request, ownerID int64) {
	items, err := h.Store.All(r.Context(), ownerID)
	if err != nil {
		h.Errors.Write(w, r, apperr.Internal("Error fetching statistics", err))
		return
	}
	api.OK(w, http.StatusOK, "", api.M{"stats": Compute(items, h.now())})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		h.Errors.Write(w, r, errNotFound())
		return
	}
	e, err := h.Store.Get(r.Context(), id, u.ID)
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	api.OK(w, http.StatusOK, "", api.M{"expense": e})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in CreateInput
	if err := api.Decode(r, &in); err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	e, err := h.Store.Create(r.Context(), u.ID, in)
	if err != nil {
		h.Errors.Write(w, r, apperr.OrInternal("Error creating expense", err))
		return
	}
	h.Logger.InfoContext(r.Context(), "expense created", "expense_id", e.ID, "user_id", u.ID)
	events.Emit(r.Context(), h.Events, h.Logger, events.New(events.ExpenseCreated, u.ID, e.ID,
		map[string]any{"category": e.Category, "amount": e.Amount.String()}))
	api.OK(w, http.StatusCreated, "Expense created successfully", api.M{"expense": e})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		h.Errors.Write(w, r, errNotFound())
		return
	}
	var in UpdateInput
	if err := api.Decode(r, &in); err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	e, err := h.Store.Update(r.Context(), id, u.ID, in)
	if err != nil {
		h.Errors.Write(w, r, apperr.OrInternal("Error updating expense", err))
		return
	}
	events.Emit(r.Context(), h.Events, h.Logger, events.New(events.ExpenseUpdated, u.ID, e.ID, nil))
	api.OK(w, http.StatusOK, "Expense updated successfully", api.M{"expense": e})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		h.Errors.Write(w, r, errNotFound())
		return
	}
	if err := h.Store.Delete(r.Context(), id, u.ID); err != nil {
		h.Errors.Write(w, r, apperr.OrInternal("Error deleting expense", err))
		return
	}
	events.Emit(r.Context(), h.Events, h.Logger, events.New(events.ExpenseDeleted, u.ID, id, nil))
	api.OK(w, http.StatusOK, "Expense deleted successfully", nil)
}
