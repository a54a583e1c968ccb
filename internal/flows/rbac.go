package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/qmsauth/model"
	"github.com/MrEthical07/qmsauth/permission"
)

// RBACResult carries the loaded grants or the failure. Cache is the blob to
// persist for a fetched result and is zero for a cache hit.
type RBACResult struct {
	Grants    permission.Grants
	FetchedAt time.Time
	FromCache bool
	Cache     model.RBACCache
	Err       error
}

// RBACDeps captures RBAC dependencies.
type RBACDeps struct {
	CacheValid func(context.Context) bool
	LoadCache  func(context.Context) model.RBACCache
	Fetch      func(context.Context) (permission.Payload, error)
	Now        func() time.Time
}

// RunLoadRBAC returns the cached grants when preferCache is set and the
// cache is fresh; otherwise it fetches and transforms them. The caller
// writes Cache back only if the session still wants the result.
func RunLoadRBAC(ctx context.Context, preferCache bool, deps RBACDeps) RBACResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	if preferCache && deps.CacheValid(ctx) {
		cache := deps.LoadCache(ctx)
		return RBACResult{
			Grants:    permission.FromCache(cache),
			FetchedAt: cache.FetchedAt(),
			FromCache: true,
		}
	}

	payload, err := deps.Fetch(ctx)
	if err != nil {
		return RBACResult{Err: err}
	}
	grants, err := permission.FromPayload(payload)
	if err != nil {
		return RBACResult{Err: fmt.Errorf("transform rbac payload: %w", err)}
	}

	now := deps.Now()
	return RBACResult{Grants: grants, FetchedAt: now, Cache: grants.ToCache(now)}
}
