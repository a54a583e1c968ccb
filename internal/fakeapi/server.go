// Package fakeapi is an in-memory QMS auth backend for tests and local
// development. It speaks the same JSON shapes as the Django backend and
// mints real HS256 tokens.
package fakeapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/qmsauth/api"
	"github.com/MrEthical07/qmsauth/jwt"
	"github.com/MrEthical07/qmsauth/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// PingPath is a protected resource that only checks the bearer token.
const PingPath = "/api/ping/"

// Account is one user the backend accepts.
type Account struct {
	User     model.User
	Password string
	// RBAC is returned verbatim by the RBAC endpoint.
	RBAC map[string]any

	passwordHash string
}

// Config configures a Server.
type Config struct {
	Accounts   []Account
	Paths      api.Paths
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Secret     []byte
	// RotateRefresh issues a new refresh token on every refresh.
	RotateRefresh bool
	Now           func() time.Time
}

type failure struct {
	status int
	body   any
	left   int
}

// Handler is the backend's HTTP surface. Use New for an httptest server.
type Handler struct {
	router http.Handler
	tokens *jwt.Manager
	paths  api.Paths
	rotate bool

	mu        sync.Mutex
	byLogin   map[string]*Account
	byID      map[int64]*Account
	revoked   map[string]struct{}
	calls     map[string]int
	failures  map[string]*failure
	rejectAll bool
}

// NewHandler builds the backend.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 5 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = []byte("qms-fake-backend-secret")
	}
	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    cfg.Secret,
		Issuer:        "qms-fake",
		Now:           cfg.Now,
	})
	if err != nil {
		return nil, err
	}

	paths := cfg.Paths.WithDefaults()
	h := &Handler{
		tokens:   tokens,
		paths:    paths,
		rotate:   cfg.RotateRefresh,
		byLogin:  make(map[string]*Account),
		byID:     make(map[int64]*Account),
		revoked:  make(map[string]struct{}),
		calls:    make(map[string]int),
		failures: make(map[string]*failure),
	}
	for i := range cfg.Accounts {
		h.AddAccount(cfg.Accounts[i])
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.count)
	r.Use(h.inject)
	r.Post(paths.Login, h.login)
	r.Post(paths.Logout, h.logout)
	r.Post(paths.Refresh, h.refresh)
	r.Post(paths.Verify, h.verify)
	r.Get(paths.User, h.requireBearer(h.user))
	r.Get(paths.RBAC, h.requireBearer(h.rbac))
	r.Get(PingPath, h.requireBearer(func(w http.ResponseWriter, _ *http.Request, _ *Account) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}))
	h.router = r
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Server wraps Handler in an httptest server.
type Server struct {
	*Handler
	*httptest.Server
}

// New starts an httptest server. It panics on invalid config, like
// httptest.NewServer does on listen failures.
func New(cfg Config) *Server {
	h, err := NewHandler(cfg)
	if err != nil {
		panic(err)
	}
	return &Server{Handler: h, Server: httptest.NewServer(h)}
}

// AddAccount registers or replaces an account. Email and username both log
// in. Only an argon2id hash of the password is kept.
func (h *Handler) AddAccount(a Account) {
	hash, err := hashPassword(a.Password)
	if err != nil {
		panic(err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	acct := a
	acct.Password = ""
	acct.passwordHash = hash
	if acct.User.Email != "" {
		h.byLogin[strings.ToLower(acct.User.Email)] = &acct
	}
	if acct.User.Username != "" {
		h.byLogin[strings.ToLower(acct.User.Username)] = &acct
	}
	h.byID[acct.User.ID] = &acct
}

// SetRBAC replaces the RBAC payload of userID.
func (h *Handler) SetRBAC(userID int64, payload map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if acct, ok := h.byID[userID]; ok {
		acct.RBAC = payload
	}
}

// Fail makes the next times requests to path answer status with body.
func (h *Handler) Fail(path string, status int, body any, times int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures[path] = &failure{status: status, body: body, left: times}
}

// RejectBearer makes every bearer check fail with 401 until reset.
func (h *Handler) RejectBearer(reject bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejectAll = reject
}

// Calls returns how many requests reached path.
func (h *Handler) Calls(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[path]
}

// TotalCalls returns the number of requests across all paths.
func (h *Handler) TotalCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		n += c
	}
	return n
}

// Paths returns the endpoint layout served.
func (h *Handler) Paths() api.Paths {
	return h.paths
}

// IssuePair mints tokens for userID as a login would.
func (h *Handler) IssuePair(userID int64) (model.TokenPair, error) {
	access, refresh, err := h.tokens.IssuePair(userID)
	if err != nil {
		return model.TokenPair{}, err
	}
	return model.TokenPair{Access: access, Refresh: refresh}, nil
}

func (h *Handler) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.calls[r.URL.Path]++
		h.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		f, ok := h.failures[r.URL.Path]
		if ok {
			f.left--
			if f.left <= 0 {
				delete(h.failures, r.URL.Path)
			}
		}
		h.mu.Unlock()
		if ok {
			writeJSON(w, f.status, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error"})
		return
	}
	if req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"password": {"Este campo es requerido."}})
		return
	}
	login := req.Email
	if login == "" {
		login = req.Username
	}

	h.mu.Lock()
	acct, ok := h.byLogin[strings.ToLower(login)]
	h.mu.Unlock()
	valid := false
	if ok {
		valid, _ = verifyPassword(req.Password, acct.passwordHash)
	}
	if !valid || !acct.User.IsActive {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "No se encontró una cuenta activa con las credenciales proporcionadas",
			"code":   "no_active_account",
		})
		return
	}

	access, refresh, err := h.tokens.IssuePair(acct.User.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":    acct.User,
		"access":  access,
		"refresh": refresh,
	})
}

type refreshBody struct {
	Refresh string `json:"refresh"`
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshBody
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Refresh != "" {
		h.mu.Lock()
		h.revoked[req.Refresh] = struct{}{}
		h.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "ok"})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"Este campo es requerido."}})
		return
	}

	h.mu.Lock()
	_, revoked := h.revoked[req.Refresh]
	h.mu.Unlock()
	claims, err := h.tokens.Verify(req.Refresh, jwt.TokenRefresh)
	if revoked || err != nil {
		writeTokenInvalid(w)
		return
	}

	out := map[string]string{}
	if h.rotate {
		access, refresh, err := h.tokens.IssuePair(claims.UserID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
			return
		}
		h.mu.Lock()
		h.revoked[req.Refresh] = struct{}{}
		h.mu.Unlock()
		out["access"], out["refresh"] = access, refresh
	} else {
		access, err := h.tokens.IssueAccess(claims.UserID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
			return
		}
		out["access"] = access
	}
	writeJSON(w, http.StatusOK, out)
}

type verifyBody struct {
	Token string `json:"token"`
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"token": {"Este campo es requerido."}})
		return
	}
	if _, err := h.authenticate(req.Token); err != nil {
		writeTokenInvalid(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (h *Handler) user(w http.ResponseWriter, _ *http.Request, acct *Account) {
	writeJSON(w, http.StatusOK, acct.User)
}

func (h *Handler) rbac(w http.ResponseWriter, _ *http.Request, acct *Account) {
	h.mu.Lock()
	payload := acct.RBAC
	h.mu.Unlock()
	if payload == nil {
		payload = map[string]any{"permissions": []string{}, "roles": []string{}}
	}
	writeJSON(w, http.StatusOK, payload)
}

var errRejected = errors.New("bearer rejected")

func (h *Handler) authenticate(access string) (*Account, error) {
	claims, err := h.tokens.Verify(access, jwt.TokenAccess)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rejectAll {
		return nil, errRejected
	}
	acct, ok := h.byID[claims.UserID]
	if !ok {
		return nil, errRejected
	}
	return acct, nil
}

func (h *Handler) requireBearer(next func(http.ResponseWriter, *http.Request, *Account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "No se proporcionaron las credenciales de autenticación.",
				"code":   "not_authenticated",
			})
			return
		}
		acct, err := h.authenticate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeTokenInvalid(w)
			return
		}
		next(w, r, acct)
	}
}

func writeTokenInvalid(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"detail": "El token es inválido o ha expirado",
		"code":   "token_not_valid",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}
