package flows

import (
	"context"

	"github.com/MrEthical07/qmsauth/model"
)

// RefreshResult carries the new pair or the failure.
type RefreshResult struct {
	Tokens  model.TokenPair
	Rotated bool
	Err     error
}

// RefreshDeps captures refresh dependencies.
type RefreshDeps struct {
	Refresh func(ctx context.Context, refresh string) (model.TokenPair, error)

	ErrNoRefreshToken error
}

// RunRefresh exchanges current.Refresh for a new access token. The refresh
// token is kept when the server does not rotate it. Nothing is persisted:
// the caller stores the pair once the session accepts it.
func RunRefresh(ctx context.Context, current model.TokenPair, deps RefreshDeps) RefreshResult {
	if current.Refresh == "" {
		return RefreshResult{Err: deps.ErrNoRefreshToken}
	}

	pair, err := deps.Refresh(ctx, current.Refresh)
	if err != nil {
		return RefreshResult{Err: err}
	}

	out := RefreshResult{Tokens: pair, Rotated: pair.Refresh != "" && pair.Refresh != current.Refresh}
	if pair.Refresh == "" {
		out.Tokens.Refresh = current.Refresh
	}
	return out
}
