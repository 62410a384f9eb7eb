package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"spendwise/internal/api"
	"spendwise/internal/apperr"
)

type contextKey string

const userContextKey contextKey = "spendwise_user"

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userContextKey).(*User)
	return u, ok
}

// JWTMiddleware authenticates the bearer token and loads the caller's
// current account into the request context.
func JWTMiddleware(svc *Service, errs api.Errors) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				errs.Write(w, r, apperr.Unauthenticated("Access denied. No token provided."))
				return
			}
			user, err := svc.Resolve(r.Context(), strings.TrimSpace(token))
			if err != nil {
				errs.Write(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func guard(errs api.Errors, check func(r *http.Request, u *User) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := UserFromContext(r.Context())
			if err := check(r, user); err != nil {
				errs.Write(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireRole(errs api.Errors, roles ...Role) func(http.Handler) http.Handler {
	return guard(errs, func(_ *http.Request, u *User) error { return CheckRoles(u, roles...) })
}

func RequireWrite(errs api.Errors) func(http.Handler) http.Handler {
	return guard(errs, func(_ *http.Request, u *User) error { return CanWrite(u) })
}

func RequireAdmin(errs api.Errors) func(http.Handler) http.Handler {
	return guard(errs, func(_ *http.Request, u *User) error { return IsAdmin(u) })
}

// RequireOwnershipOrAdmin compares the route parameter param with the caller.
// A malformed id is reported as not found.
func RequireOwnershipOrAdmin(errs api.Errors, param string) func(http.Handler) http.Handler {
	return guard(errs, func(r *http.Request, u *User) error {
		if u == nil {
			return apperr.Unauthenticated("Authentication required")
		}
		id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
		if err != nil || id <= 0 {
			return apperr.NotFound("User not found")
		}
		return CanAccessOwner(u, id)
	})
}
