package flows

// Deps groups flow dependency sets. The client builds this once and
// delegates each operation to the matching flow.
type Deps struct {
	Initialize InitializeDeps
	Login      LoginDeps
	Refresh    RefreshDeps
	Logout     LogoutDeps
	RBAC       RBACDeps
}

func warnOrDiscard(warn func(string, ...any)) func(string, ...any) {
	if warn == nil {
		return func(string, ...any) {}
	}
	return warn
}
