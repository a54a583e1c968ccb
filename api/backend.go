package api

import (
	"context"
	"errors"

	"github.com/MrEthical07/qmsauth/model"
	"github.com/MrEthical07/qmsauth/permission"
)

var (
	// ErrMissingTokens is returned when a login or refresh response lacks
	// the access token.
	ErrMissingTokens = errors.New("response did not include tokens")
	// ErrMissingUser is returned when a login response lacks the user.
	ErrMissingUser = errors.New("response did not include user")
)

// Credentials are the login form fields. RememberMe is kept client side.
type Credentials struct {
	Email      string `json:"email,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password"`
	RememberMe bool   `json:"-"`
}

// LoginResult is a successful login.
type LoginResult struct {
	User   model.User
	Tokens model.TokenPair
}

// Backend is the auth contract the session client consumes.
type Backend interface {
	Login(ctx context.Context, creds Credentials) (LoginResult, error)
	// Logout invalidates refresh server side. Callers treat failure as
	// best effort.
	Logout(ctx context.Context, refresh string) error
	// Refresh exchanges a refresh token. The returned pair's Refresh is
	// empty when the server does not rotate it.
	Refresh(ctx context.Context, refresh string) (model.TokenPair, error)
	// Verify reports whether access is still accepted. A rejection is
	// (false, nil); transport failures are returned as errors.
	Verify(ctx context.Context, access string) (bool, error)
	CurrentUser(ctx context.Context) (model.User, error)
	RBAC(ctx context.Context) (permission.Payload, error)
}
