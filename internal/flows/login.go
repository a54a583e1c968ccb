package flows

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MrEthical07/qmsauth/api"
	"github.com/MrEthical07/qmsauth/apierr"
	"github.com/MrEthical07/qmsauth/model"
)

// LoginResult carries either the authenticated user or the failure and the
// message to show for it.
type LoginResult struct {
	User        model.User
	Tokens      model.TokenPair
	Err         error
	UserMessage string
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Login          func(context.Context, api.Credentials) (api.LoginResult, error)
	SaveTokens     func(context.Context, model.TokenPair) error
	SaveUser       func(context.Context, *model.User) error
	SaveRememberMe func(context.Context, bool) error
	Classify       func(err error, method, url string) apierr.Descriptor
	Warn           func(string, ...any)

	LoginURL              string
	ErrInvalidCredentials error
}

// RunLogin authenticates creds against the backend. It does not persist
// anything; see SaveLogin.
func RunLogin(ctx context.Context, creds api.Credentials, deps LoginDeps) LoginResult {
	res, err := deps.Login(ctx, creds)
	if err != nil {
		out := LoginResult{Err: err, UserMessage: loginMessage(err, deps)}
		if deps.ErrInvalidCredentials != nil && apierr.StatusCode(err) == http.StatusUnauthorized {
			out.Err = fmt.Errorf("%w: %w", deps.ErrInvalidCredentials, err)
		}
		return out
	}
	return LoginResult{User: res.User, Tokens: res.Tokens}
}

// SaveLogin persists a successful login. Storage failures are logged; the
// in-memory session still proceeds.
func SaveLogin(ctx context.Context, res LoginResult, rememberMe bool, deps LoginDeps) {
	warn := warnOrDiscard(deps.Warn)
	if err := deps.SaveTokens(ctx, res.Tokens); err != nil {
		warn("could not persist tokens after login", "error", err)
	}
	user := res.User
	if err := deps.SaveUser(ctx, &user); err != nil {
		warn("could not persist user after login", "error", err)
	}
	if deps.SaveRememberMe != nil {
		if err := deps.SaveRememberMe(ctx, rememberMe); err != nil {
			warn("could not persist remember-me flag", "error", err)
		}
	}
}

// loginMessage prefers the backend's own wording (for example "no active
// account") over the generic status message.
func loginMessage(err error, deps LoginDeps) string {
	if httpErr, ok := apierr.AsHTTPError(err); ok {
		if msg, ok := apierr.ParseBody(httpErr.Body).ValidationMessage(); ok {
			return msg
		}
	}
	if deps.Classify == nil {
		return err.Error()
	}
	return deps.Classify(err, http.MethodPost, deps.LoginURL).UserMessage
}
