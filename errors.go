package qmsauth

import (
	"errors"

	"github.com/MrEthical07/qmsauth/transport"
)

var (
	// ErrNotAuthenticated is returned by operations that need a live session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoRefreshToken is returned when a refresh is attempted without a stored refresh token.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrInvalidCredentials wraps a 401 from the login endpoint.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenRejected is returned when the stored access token fails verification and cannot be refreshed.
	ErrTokenRejected = errors.New("stored access token rejected")
	// ErrSessionNotRestored wraps the cause when Initialize cleared unusable stored credentials.
	ErrSessionNotRestored = errors.New("session not restored")
	// ErrInvalidTransition is returned when a state change would break the session invariants.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrClientClosed is returned by operations on a closed client.
	ErrClientClosed = errors.New("client closed")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrBuilderUsed is returned when Build is called twice on the same builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrMissingBackend is returned by Build when neither a backend nor a base URL is configured.
	ErrMissingBackend = errors.New("no backend: set Transport.BaseURL or call WithBackend")

	// ErrMalformedResponse is returned when a successful response cannot be decoded.
	ErrMalformedResponse = transport.ErrMalformedResponse
)
