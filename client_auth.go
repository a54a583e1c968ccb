package qmsauth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/qmsauth/broadcast"
	"github.com/MrEthical07/qmsauth/internal/flows"
	"github.com/MrEthical07/qmsauth/jwt"
	"github.com/MrEthical07/qmsauth/model"
	"github.com/benbjohnson/clock"
)

// Initialize restores the session from stored credentials. With nothing
// stored the session becomes unauthenticated and the error is nil. When
// stored credentials are unusable they are cleared and the returned error
// wraps ErrSessionNotRestored with the cause.
func (c *Client) Initialize(ctx context.Context) (Session, error) {
	if err := c.checkOpen(); err != nil {
		return c.Session(), err
	}
	if _, _, err := c.state.dispatch(action{kind: actInitialize}); err != nil {
		return c.Session(), err
	}

	res := flows.RunInitialize(ctx, c.flows.Initialize)
	switch res.Outcome {
	case flows.InitializeNoTokens:
		_, next, _ := c.state.dispatch(action{kind: actSignedOut})
		return next, nil

	case flows.InitializeFailed:
		c.log.Info("stored session could not be restored", "error", res.Err)
		_, next, _ := c.state.dispatch(action{kind: actSignedOut})
		return next, fmt.Errorf("%w: %w", ErrSessionNotRestored, res.Err)
	}

	user, tokens := res.User, res.Tokens
	if _, _, err := c.state.dispatch(action{kind: actRestore, user: &user, tokens: &tokens}); err != nil {
		return c.Session(), err
	}
	c.metrics.Inc(MetricSessionRestored)
	if res.Outcome == flows.InitializeRefreshed {
		c.metrics.Inc(MetricRefreshSuccess)
		c.emit(ctx, Signal{Type: SignalTokenRefreshed, User: user.Clone(), Tokens: tokens.Clone()})
	}

	if err := c.loadRBAC(ctx, true); err != nil {
		c.log.Info("rbac load after restore failed", "error", err)
	}
	return c.Session(), nil
}

// Login authenticates creds. On failure Session.Error holds the message to
// show and the returned error wraps the backend failure; a 401 also wraps
// ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, creds Credentials) (Session, error) {
	if err := c.checkOpen(); err != nil {
		return c.Session(), err
	}
	c.state.dispatch(action{kind: actLoginStart})

	res := flows.RunLogin(ctx, creds, c.flows.Login)
	if res.Err != nil {
		_, next, _ := c.state.dispatch(action{kind: actLoginFailure, err: res.UserMessage})
		c.metrics.Inc(MetricLoginFailure)
		c.emit(ctx, Signal{Type: SignalLoginFailed, Error: res.UserMessage})
		return next, res.Err
	}

	user, tokens := res.User, res.Tokens
	_, _, err := c.commit(action{kind: actLoginSuccess, user: &user, tokens: &tokens}, func(Session) {
		flows.SaveLogin(ctx, res, creds.RememberMe, c.flows.Login)
	})
	if err != nil {
		c.state.dispatch(action{kind: actLoginFailure, err: err.Error()})
		c.metrics.Inc(MetricLoginFailure)
		return c.Session(), err
	}
	c.metrics.Inc(MetricLoginSuccess)

	if !c.cfg.RBAC.SkipOnLogin {
		if err := c.loadRBAC(ctx, false); err != nil {
			c.log.Info("rbac load after login failed", "error", err)
		}
	}

	c.emit(ctx, Signal{Type: SignalLoginSuccess, User: user.Clone(), Tokens: tokens.Clone()})
	return c.Session(), nil
}

// Logout ends the session. The backend is told on a best-effort basis; the
// local session and store are always cleared. Logging out twice leaves the
// same state as logging out once.
func (c *Client) Logout(ctx context.Context) error {
	return c.logout(ctx, ReasonUser)
}

func (c *Client) logout(ctx context.Context, reason string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	prev, _, _ := c.state.dispatch(action{kind: actLogoutStart})

	flows.RunLogout(ctx, prev.Tokens, c.flows.Logout)

	c.commit(action{kind: actSignedOut}, func(Session) {
		if err := c.store.ClearAuth(context.WithoutCancel(ctx)); err != nil {
			c.log.Info("stored credentials may remain after logout", "error", err)
		}
	})
	if prev.IsAuthenticated {
		c.metrics.Inc(MetricLogout)
		c.publish(context.WithoutCancel(ctx), broadcast.EventLogout, "")
		c.emit(ctx, Signal{Type: SignalLogout, User: prev.User.Clone(), Reason: reason})
	}
	return nil
}

// teardownScope says who owns the stored credentials of a session that is
// being torn down.
type teardownScope int

const (
	// teardownOwn: the backend rejected this client's session. The store is
	// cleared and other clients are told.
	teardownOwn teardownScope = iota
	// teardownObserved: another client ended the session and already cleared
	// the shared store, which may hold its next session by now.
	teardownObserved
)

// teardown ends an authenticated session without calling the backend. It
// is a no-op when the session already ended, which makes the overlapping
// 401 paths safe.
func (c *Client) teardown(ctx context.Context, reason string, m MetricID, scope teardownScope) bool {
	ctx = context.WithoutCancel(ctx)
	prev, _, err := c.commit(action{kind: actTeardown}, func(Session) {
		if scope != teardownOwn {
			return
		}
		if err := c.store.ClearAuth(ctx); err != nil {
			c.log.Info("could not clear stored credentials", "error", err)
		}
	})
	if err != nil {
		return false
	}
	c.metrics.Inc(m)
	if scope == teardownOwn {
		c.publish(ctx, broadcast.EventLogout, "")
	}
	c.emit(ctx, Signal{Type: SignalLogout, User: prev.User.Clone(), Reason: reason})
	return true
}

func (c *Client) onUnauthorized(ctx context.Context, d Descriptor) {
	if c.teardown(ctx, ReasonUnauthorized, MetricUnauthorizedTeardown, teardownOwn) {
		c.log.Info("session ended by backend", "url", d.URL, "code", d.Code)
	}
}

func (c *Client) onAuthenticationFailure(ctx context.Context, d Descriptor) {
	c.onUnauthorized(ctx, d)
}

func (c *Client) onConnectivityLost(ctx context.Context, d Descriptor) {
	c.metrics.Inc(MetricConnectivityLost)
	c.emit(ctx, Signal{Type: SignalConnectivityLost, Error: d.UserMessage})
}

// RefreshToken exchanges the refresh token for a new access token.
// Concurrent callers share one backend call. A failed refresh logs the user
// out and emits session.expired.
func (c *Client) RefreshToken(ctx context.Context) (TokenPair, error) {
	if err := c.checkOpen(); err != nil {
		return TokenPair{}, err
	}
	leader := false
	key := strconv.FormatUint(c.Session().gen, 10)
	v, err, _ := c.refreshGroup.Do(key, func() (any, error) {
		leader = true
		return c.refresh(ctx)
	})
	if !leader {
		c.metrics.Inc(MetricRefreshDeduplicated)
	}
	pair, _ := v.(model.TokenPair)
	return pair, err
}

func (c *Client) refresh(ctx context.Context) (model.TokenPair, error) {
	snap := c.Session()
	if !snap.IsAuthenticated || snap.Tokens == nil {
		return model.TokenPair{}, ErrNotAuthenticated
	}
	_, started, err := c.state.dispatch(action{kind: actRefreshStart})
	if err != nil {
		return model.TokenPair{}, ErrNotAuthenticated
	}
	gen := started.gen

	res := flows.RunRefresh(ctx, *started.Tokens, c.flows.Refresh)
	if res.Err != nil {
		if _, _, err := c.state.dispatch(action{kind: actRefreshFailure, gen: gen}); errors.Is(err, errStale) {
			// The session that asked already ended; the current one is not judged by this answer.
			return model.TokenPair{}, fmt.Errorf("refresh token: %w", errors.Join(res.Err, ErrNotAuthenticated))
		}
		if ctx.Err() != nil {
			// The caller gave up; the refresh token was not judged.
			return model.TokenPair{}, fmt.Errorf("refresh token: %w", errors.Join(res.Err, ctx.Err()))
		}
		c.metrics.Inc(MetricRefreshFailure)
		if err := c.logout(ctx, ReasonExpired); err != nil {
			c.log.Info("logout after failed refresh", "error", err)
		}
		c.metrics.Inc(MetricSessionExpired)
		c.emit(ctx, Signal{Type: SignalSessionExpired, User: started.User.Clone(), Error: res.Err.Error()})
		return model.TokenPair{}, fmt.Errorf("refresh token: %w", res.Err)
	}

	_, _, err = c.commit(action{kind: actRefreshSuccess, tokens: &res.Tokens, gen: gen}, func(Session) {
		if err := c.store.SetTokens(context.WithoutCancel(ctx), res.Tokens); err != nil {
			c.log.Info("could not persist refreshed tokens", "error", err)
		}
	})
	if err != nil {
		// Logged out while the call was in flight.
		return model.TokenPair{}, ErrNotAuthenticated
	}
	c.metrics.Inc(MetricRefreshSuccess)
	c.emit(ctx, Signal{Type: SignalTokenRefreshed, User: started.User.Clone(), Tokens: res.Tokens.Clone()})
	return res.Tokens, nil
}

func (c *Client) autoRefreshLoop(ticker *clock.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.refreshIfExpiring()
		}
	}
}

// refreshIfExpiring refreshes when the access token has expired or expires
// within RefreshLeeway. The exp claim is read without verifying the
// signature; the backend remains the judge of validity.
func (c *Client) refreshIfExpiring() {
	snap := c.Session()
	if !snap.IsAuthenticated || snap.Tokens == nil {
		return
	}
	soon, err := jwt.ExpiresWithin(snap.Tokens.Access, c.clock.Now(), c.cfg.Session.RefreshLeeway)
	if err != nil {
		c.log.V(1).Info("cannot read access token expiry", "error", err.Error())
		return
	}
	if !soon {
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.Session.BackgroundTimeout)
	defer cancel()
	if _, err := c.RefreshToken(ctx); err != nil {
		c.log.Info("background token refresh failed", "error", err)
	}
}
