package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MrEthical07/qmsauth/apierr"
	"github.com/MrEthical07/qmsauth/model"
	"github.com/MrEthical07/qmsauth/permission"
	"github.com/MrEthical07/qmsauth/transport"
)

// Paths lists the backend endpoints. Empty fields fall back to DefaultPaths.
type Paths struct {
	Login   string
	Logout  string
	Refresh string
	Verify  string
	User    string
	RBAC    string
}

// DefaultPaths returns the Django backend's endpoint layout.
func DefaultPaths() Paths {
	return Paths{
		Login:   "/api/auth/login/",
		Logout:  "/api/auth/logout/",
		Refresh: "/api/auth/refresh/",
		Verify:  "/api/auth/verify/",
		User:    "/api/auth/user/",
		RBAC:    "/api/auth/rbac/",
	}
}

// WithDefaults fills empty fields from DefaultPaths.
func (p Paths) WithDefaults() Paths {
	d := DefaultPaths()
	if p.Login == "" {
		p.Login = d.Login
	}
	if p.Logout == "" {
		p.Logout = d.Logout
	}
	if p.Refresh == "" {
		p.Refresh = d.Refresh
	}
	if p.Verify == "" {
		p.Verify = d.Verify
	}
	if p.User == "" {
		p.User = d.User
	}
	if p.RBAC == "" {
		p.RBAC = d.RBAC
	}
	return p
}

// HTTPBackend implements Backend over a pipeline.
type HTTPBackend struct {
	pipeline *transport.Pipeline
	paths    Paths
}

// NewHTTPBackend returns a Backend that sends requests through pipeline.
func NewHTTPBackend(pipeline *transport.Pipeline, paths Paths) *HTTPBackend {
	return &HTTPBackend{pipeline: pipeline, paths: paths.WithDefaults()}
}

// Paths returns the endpoint layout in use.
func (b *HTTPBackend) Paths() Paths {
	return b.paths
}

type loginResponse struct {
	User    *model.User `json:"user"`
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

// authCall marks a request against the auth endpoints.
func authCall(ctx context.Context, bearer bool) context.Context {
	ctx = transport.WithSilent(ctx)
	ctx = transport.WithoutAuthTeardown(ctx)
	if !bearer {
		ctx = transport.WithoutAuth(ctx)
	}
	return ctx
}

func (b *HTTPBackend) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	var out loginResponse
	if err := b.pipeline.JSON(authCall(ctx, false), http.MethodPost, b.paths.Login, creds, &out); err != nil {
		return LoginResult{}, err
	}
	if out.Access == "" {
		return LoginResult{}, fmt.Errorf("login: %w", ErrMissingTokens)
	}
	if out.User == nil {
		return LoginResult{}, fmt.Errorf("login: %w", ErrMissingUser)
	}
	return LoginResult{
		User:   *out.User,
		Tokens: model.TokenPair{Access: out.Access, Refresh: out.Refresh},
	}, nil
}

func (b *HTTPBackend) Logout(ctx context.Context, refresh string) error {
	return b.pipeline.JSON(transport.WithoutRetry(authCall(ctx, true)), http.MethodPost, b.paths.Logout, refreshRequest{Refresh: refresh}, nil)
}

func (b *HTTPBackend) Refresh(ctx context.Context, refresh string) (model.TokenPair, error) {
	var out refreshResponse
	if err := b.pipeline.JSON(authCall(ctx, false), http.MethodPost, b.paths.Refresh, refreshRequest{Refresh: refresh}, &out); err != nil {
		return model.TokenPair{}, err
	}
	if out.Access == "" {
		return model.TokenPair{}, fmt.Errorf("refresh: %w", ErrMissingTokens)
	}
	return model.TokenPair{Access: out.Access, Refresh: out.Refresh}, nil
}

func (b *HTTPBackend) Verify(ctx context.Context, access string) (bool, error) {
	err := b.pipeline.JSON(authCall(ctx, false), http.MethodPost, b.paths.Verify, verifyRequest{Token: access}, nil)
	if err == nil {
		return true, nil
	}
	switch apierr.StatusCode(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return false, nil
	}
	return false, err
}

func (b *HTTPBackend) CurrentUser(ctx context.Context) (model.User, error) {
	var out model.User
	if err := b.pipeline.JSON(authCall(ctx, true), http.MethodGet, b.paths.User, nil, &out); err != nil {
		return model.User{}, err
	}
	return out, nil
}

func (b *HTTPBackend) RBAC(ctx context.Context) (permission.Payload, error) {
	var out permission.Payload
	if err := b.pipeline.JSON(authCall(ctx, true), http.MethodGet, b.paths.RBAC, nil, &out); err != nil {
		return permission.Payload{}, err
	}
	return out, nil
}
