package flows

import (
	"context"

	"github.com/MrEthical07/qmsauth/model"
)

// LogoutResult reports a best-effort backend failure. It never blocks the
// local logout.
type LogoutResult struct {
	BackendErr error
}

// LogoutDeps captures logout dependencies. A nil Logout skips the backend.
type LogoutDeps struct {
	Logout func(ctx context.Context, refresh string) error
	Warn   func(string, ...any)
}

// RunLogout tells the backend when tokens are known. Clearing the store is
// left to the caller, which does it together with the session reset.
func RunLogout(ctx context.Context, tokens *model.TokenPair, deps LogoutDeps) LogoutResult {
	var out LogoutResult
	if deps.Logout != nil && tokens != nil && !tokens.Empty() {
		if err := deps.Logout(ctx, tokens.Refresh); err != nil {
			warnOrDiscard(deps.Warn)("backend logout failed; continuing with local logout", "error", err)
			out.BackendErr = err
		}
	}
	return out
}
