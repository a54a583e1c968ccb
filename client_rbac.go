package qmsauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/qmsauth/internal/flows"
)

// RefreshRBAC fetches the user's roles and permissions and caches them.
// On failure RBACError is set and the previous grants are kept unless
// RBAC.FailClosed is configured.
func (c *Client) RefreshRBAC(ctx context.Context) error {
	return c.loadRBAC(ctx, false)
}

// LoadCachedRBACData uses the cached grants when they are younger than the
// cache TTL and fetches them otherwise.
func (c *Client) LoadCachedRBACData(ctx context.Context) error {
	return c.loadRBAC(ctx, true)
}

func (c *Client) loadRBAC(ctx context.Context, preferCache bool) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	_, started, err := c.state.dispatch(action{kind: actRBACStart})
	if err != nil {
		return ErrNotAuthenticated
	}
	gen := started.gen

	res := flows.RunLoadRBAC(ctx, preferCache, c.flows.RBAC)
	if res.Err != nil {
		d := c.pipeline.Classifier().ClassifyError(res.Err, http.MethodGet, c.resolve(c.cfg.Paths.RBAC))
		_, _, err := c.state.dispatch(action{kind: actRBACFailure, err: d.UserMessage, failClosed: c.cfg.RBAC.FailClosed, gen: gen})
		if errors.Is(err, errStale) {
			return fmt.Errorf("load rbac: %w", errors.Join(res.Err, ErrNotAuthenticated))
		}
		c.metrics.Inc(MetricRBACFailure)
		return fmt.Errorf("load rbac: %w", res.Err)
	}

	// The cache is written only for the session that asked, so grants of a
	// user who has since left never reach the next one.
	_, _, err = c.commit(action{kind: actRBACSuccess, grants: res.Grants, at: res.FetchedAt, gen: gen}, func(Session) {
		if res.FromCache {
			return
		}
		if err := c.store.SetRBACData(context.WithoutCancel(ctx), res.Cache); err != nil {
			c.log.Info("could not cache rbac data", "error", err)
		}
	})
	if err != nil {
		return ErrNotAuthenticated
	}
	if res.FromCache {
		c.metrics.Inc(MetricRBACCacheHit)
	} else {
		c.metrics.Inc(MetricRBACFetch)
	}
	return nil
}

// HasPermission reports whether the current session was granted code.
func (c *Client) HasPermission(code string) bool {
	return c.Session().HasPermission(code)
}

// HasAnyPermission reports whether any of codes was granted. No codes is false.
func (c *Client) HasAnyPermission(codes ...string) bool {
	return c.Session().HasAnyPermission(codes...)
}

// HasAllPermissions reports whether every code was granted. No codes is true.
func (c *Client) HasAllPermissions(codes ...string) bool {
	return c.Session().HasAllPermissions(codes...)
}

// HasRole reports whether the current session has role.
func (c *Client) HasRole(role string) bool {
	return c.Session().HasRole(role)
}

// HasAnyRole reports whether any of roles is assigned. No roles is false.
func (c *Client) HasAnyRole(roles ...string) bool {
	return c.Session().HasAnyRole(roles...)
}

// HasAllRoles reports whether every role is assigned. No roles is true.
func (c *Client) HasAllRoles(roles ...string) bool {
	return c.Session().HasAllRoles(roles...)
}

// ResourcePermissions returns the sorted actions granted on resource.
func (c *Client) ResourcePermissions(resource string) []string {
	return c.Session().ResourcePermissions(resource)
}
