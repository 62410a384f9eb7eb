package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/api"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	api.OK(w, http.StatusOK, "", api.M{"role": u.Role, "_id": u.ID})
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body api.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestJWTMiddleware(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	u, token, err := svc.Register(ctx, Registration{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	h := JWTMiddleware(svc, api.Errors{})(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access denied. No token provided.", message(t, rec))

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is not valid", message(t, rec))

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "user", body["role"])
	assert.EqualValues(t, u.ID, body["_id"])
}

func TestJWTMiddlewareExpired(t *testing.T) {
	svc := newTestService(t)
	issued := time.Now().UTC().AddDate(0, 0, -8)
	svc.now = func() time.Time { return issued }
	token, err := svc.IssueToken(1, RoleUser)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().UTC() }

	h := JWTMiddleware(svc, api.Errors{})(http.HandlerFunc(okHandler))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token has expired", message(t, rec))
}

func serveAs(h http.Handler, u *User, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if u != nil {
		req = req.WithContext(WithUser(req.Context(), u))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireWriteAndAdmin(t *testing.T) {
	errs := api.Errors{}
	write := RequireWrite(errs)(http.HandlerFunc(okHandler))
	admin := RequireAdmin(errs)(http.HandlerFunc(okHandler))
	roles := RequireRole(errs, RoleAdmin, RoleUser)(http.HandlerFunc(okHandler))

	assert.Equal(t, http.StatusOK, serveAs(write, &User{ID: 1, Role: RoleUser}, http.MethodPost, "/").Code)
	assert.Equal(t, http.StatusForbidden, serveAs(write, &User{ID: 1, Role: RoleReadOnly}, http.MethodPost, "/").Code)
	assert.Equal(t, http.StatusUnauthorized, serveAs(write, nil, http.MethodPost, "/").Code)

	assert.Equal(t, http.StatusOK, serveAs(admin, &User{ID: 1, Role: RoleAdmin}, http.MethodGet, "/").Code)
	assert.Equal(t, http.StatusForbidden, serveAs(admin, &User{ID: 1, Role: RoleUser}, http.MethodGet, "/").Code)

	assert.Equal(t, http.StatusOK, serveAs(roles, &User{ID: 1, Role: RoleUser}, http.MethodGet, "/").Code)
	rec := serveAs(roles, &User{ID: 1, Role: RoleReadOnly}, http.MethodGet, "/")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied. Required role(s): admin, user. Your role: read-only", message(t, rec))
}

func TestRequireOwnershipOrAdmin(t *testing.T) {
	r := chi.NewRouter()
	r.With(RequireOwnershipOrAdmin(api.Errors{}, "id")).Get("/users/{id}", okHandler)

	self := &User{ID: 7, Role: RoleReadOnly}
	assert.Equal(t, http.StatusOK, serveAs(r, self, http.MethodGet, "/users/"+strconv.Itoa(7)).Code)
	assert.Equal(t, http.StatusForbidden, serveAs(r, self, http.MethodGet, "/users/8").Code)
	assert.Equal(t, http.StatusNotFound, serveAs(r, self, http.MethodGet, "/users/abc").Code)
	assert.Equal(t, http.StatusOK, serveAs(r, &User{ID: 1, Role: RoleAdmin}, http.MethodGet, "/users/8").Code)
}
