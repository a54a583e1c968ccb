package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/qmsauth/model"
)

// InitializeOutcome tells the client which state to enter after startup.
type InitializeOutcome int

const (
	// InitializeNoTokens means nothing was stored; the user must log in.
	InitializeNoTokens InitializeOutcome = iota
	// InitializeRestored means the stored access token was accepted.
	InitializeRestored
	// InitializeRefreshed means the stored refresh token produced a new pair.
	InitializeRefreshed
	// InitializeFailed means stored credentials were unusable and were cleared.
	InitializeFailed
)

func (o InitializeOutcome) String() string {
	switch o {
	case InitializeNoTokens:
		return "no_tokens"
	case InitializeRestored:
		return "restored"
	case InitializeRefreshed:
		return "refreshed"
	default:
		return "failed"
	}
}

// InitializeResult is the outcome of RunInitialize. User and Tokens are set
// for the restored and refreshed outcomes.
type InitializeResult struct {
	Outcome InitializeOutcome
	User    model.User
	Tokens  model.TokenPair
	Err     error
}

// Authenticated reports whether the session can be restored.
func (r InitializeResult) Authenticated() bool {
	return r.Outcome == InitializeRestored || r.Outcome == InitializeRefreshed
}

// InitializeDeps captures startup dependencies.
type InitializeDeps struct {
	LoadTokens func(context.Context) (model.TokenPair, bool)
	LoadUser   func(context.Context) (*model.User, bool)
	Verify     func(ctx context.Context, access string) (bool, error)
	Refresh    func(ctx context.Context, refresh string) (model.TokenPair, error)
	// FetchUser runs after SaveTokens, so the bearer it sends is the stored one.
	FetchUser  func(context.Context) (model.User, error)
	SaveTokens func(context.Context, model.TokenPair) error
	SaveUser   func(context.Context, *model.User) error
	ClearStore func(context.Context) error
	Warn       func(string, ...any)

	ErrTokenRejected error
}

// RunInitialize restores a session from stored credentials.
func RunInitialize(ctx context.Context, deps InitializeDeps) InitializeResult {
	warn := warnOrDiscard(deps.Warn)

	tokens, ok := deps.LoadTokens(ctx)
	if !ok {
		return InitializeResult{Outcome: InitializeNoTokens}
	}

	valid, err := deps.Verify(ctx, tokens.Access)
	if err != nil {
		warn("access token verification failed", "error", err)
	}
	if valid {
		user, err := restoreUser(ctx, deps)
		if err == nil {
			return InitializeResult{Outcome: InitializeRestored, User: user, Tokens: tokens}
		}
		warn("could not load user for restored session", "error", err)
		return fail(ctx, deps, err)
	}

	if tokens.Refresh == "" {
		rejected := deps.ErrTokenRejected
		if rejected == nil {
			rejected = errors.New("stored access token rejected")
		}
		if err != nil {
			rejected = errors.Join(rejected, err)
		}
		return fail(ctx, deps, rejected)
	}

	pair, err := deps.Refresh(ctx, tokens.Refresh)
	if err != nil {
		warn("stored refresh token rejected", "error", err)
		return fail(ctx, deps, err)
	}
	if pair.Refresh == "" {
		pair.Refresh = tokens.Refresh
	}
	if err := deps.SaveTokens(ctx, pair); err != nil {
		warn("could not persist refreshed tokens", "error", err)
	}

	user, err := deps.FetchUser(ctx)
	if err != nil {
		warn("could not fetch user after refresh", "error", err)
		return fail(ctx, deps, err)
	}
	if err := deps.SaveUser(ctx, &user); err != nil {
		warn("could not persist user", "error", err)
	}
	return InitializeResult{Outcome: InitializeRefreshed, User: user, Tokens: pair}
}

func restoreUser(ctx context.Context, deps InitializeDeps) (model.User, error) {
	if user, ok := deps.LoadUser(ctx); ok && user != nil {
		return *user, nil
	}
	user, err := deps.FetchUser(ctx)
	if err != nil {
		return model.User{}, err
	}
	if err := deps.SaveUser(ctx, &user); err != nil {
		warnOrDiscard(deps.Warn)("could not persist user", "error", err)
	}
	return user, nil
}

func fail(ctx context.Context, deps InitializeDeps, cause error) InitializeResult {
	if err := deps.ClearStore(ctx); err != nil {
		warnOrDiscard(deps.Warn)("could not clear stored credentials", "error", err)
	}
	return InitializeResult{Outcome: InitializeFailed, Err: cause}
}
