package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/qmsauth"
	"github.com/MrEthical07/qmsauth/model"
	"github.com/MrEthical07/qmsauth/permission"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type staticSource struct {
	s qmsauth.Session
}

func (f staticSource) Session() qmsauth.Session { return f.s }

func signedIn() qmsauth.Session {
	return qmsauth.Session{
		Phase:           qmsauth.PhaseAuthenticated,
		IsAuthenticated: true,
		User:            &model.User{ID: 3, Email: "ana@qms.co"},
		Tokens:          &model.TokenPair{Access: "a", Refresh: "r"},
		Permissions:     permission.NewSet("audits.view", "documents.approve"),
		Roles:           permission.NewSet("auditor"),
	}
}

func newRouter(src SessionSource) http.Handler {
	ok := func(w http.ResponseWriter, r *http.Request) {
		s, found := qmsauth.SessionFromContext(r.Context())
		if !found || s.User == nil {
			http.Error(w, "no session in context", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	r := chi.NewRouter()
	r.With(RequireAuthenticated(src)).Get("/dashboard", ok)
	r.With(RequirePermission(src, "audits.view", "documents.approve")).Get("/audits", ok)
	r.With(RequirePermission(src, "audits.delete")).Delete("/audits", ok)
	r.With(RequireAnyPermission(src, "reports.export", "audits.view")).Get("/reports", ok)
	r.With(RequireRole(src, "admin", "auditor")).Get("/findings", ok)
	r.With(RequireRole(src, "admin")).Get("/admin", ok)
	return r
}

func serve(h http.Handler, method, path string) int {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec.Code
}

func TestGuardsAllowGrantedSession(t *testing.T) {
	h := newRouter(staticSource{signedIn()})

	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodGet, "/dashboard"))
	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodGet, "/audits"))
	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodGet, "/reports"))
	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodGet, "/findings"))
}

func TestGuardsForbidMissingGrants(t *testing.T) {
	h := newRouter(staticSource{signedIn()})

	assert.Equal(t, http.StatusForbidden, serve(h, http.MethodDelete, "/audits"))
	assert.Equal(t, http.StatusForbidden, serve(h, http.MethodGet, "/admin"))
}

func TestGuardsRejectSignedOutSession(t *testing.T) {
	h := newRouter(staticSource{qmsauth.Session{Phase: qmsauth.PhaseUnauthenticated}})

	for _, path := range []string{"/dashboard", "/audits", "/reports", "/findings", "/admin"} {
		assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodGet, path), path)
	}
}

func TestGuardNilSource(t *testing.T) {
	h := Guard(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodGet, "/"))
}
