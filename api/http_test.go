package api_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/MrEthical07/qmsauth/api"
	"github.com/MrEthical07/qmsauth/apierr"
	"github.com/MrEthical07/qmsauth/internal/fakeapi"
	"github.com/MrEthical07/qmsauth/model"
	"github.com/MrEthical07/qmsauth/permission"
	"github.com/MrEthical07/qmsauth/retry"
	"github.com/MrEthical07/qmsauth/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = fakeapi.Account{
	User:     model.User{ID: 1, Email: "a@b.com", Username: "ana", FirstName: "Ana", IsActive: true},
	Password: "x",
	RBAC: map[string]any{
		"permissions": []any{"audits.view", map[string]any{"resource": "processes", "action": "edit"}},
		"roles":       []any{"admin"},
	},
}

type backendTest struct {
	srv       *fakeapi.Server
	backend   *api.HTTPBackend
	token     string
	teardowns int
}

func newBackendTest(t *testing.T, cfg fakeapi.Config) *backendTest {
	t.Helper()
	cfg.Accounts = append(cfg.Accounts, admin)
	bt := &backendTest{srv: fakeapi.New(cfg)}
	t.Cleanup(bt.srv.Close)

	sleeper := retry.SleeperFunc(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })
	p, err := transport.New(transport.Config{BaseURL: bt.srv.URL}, transport.Deps{
		Tokens: transport.TokenSourceFunc(func(context.Context) (string, bool) {
			return bt.token, bt.token != ""
		}),
		Retry: retry.NewCoordinator(retry.DefaultPolicy(), retry.WithSleeper(sleeper)),
		OnUnauthorized: func(context.Context, apierr.Descriptor) {
			bt.teardowns++
		},
	})
	require.NoError(t, err)
	bt.backend = api.NewHTTPBackend(p, api.Paths{})
	return bt
}

func TestLoginReturnsUserAndTokens(t *testing.T) {
	bt := newBackendTest(t, fakeapi.Config{})

	res, err := bt.backend.Login(context.Background(), api.Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.User.ID)
	assert.NotEmpty(t, res.Tokens.Access)
	assert.NotEmpty(t, res.Tokens.Refresh)
}

func TestLoginWrongPasswordDoesNotTearDown(t *testing.T) {
	bt := newBackendTest(t, fakeapi.Config{})

	_, err := bt.backend.Login(context.Background(), api.Credentials{Email: "a@b.com", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apierr.StatusCode(err))
	assert.Zero(t, bt.teardowns)
	assert.Equal(t, 1, bt.srv.Calls(bt.backend.Paths().Login), "401 is never retried")
}

func TestLoginValidationErrorSurfacesFieldMessage(t *testing.T) {
	bt := newBackendTest(t, fakeapi.Config{})

	_, err := bt.backend.Login(context.Background(), api.Credentials{Email: "a@b.com"})
	require.Error(t, err)

	d := apierr.NewClassifier(apierr.DefaultGate()).ClassifyError(err, http.MethodPost, "/api/auth/login/")
	assert.Equal(t, apierr.KindValidation, d.Kind)
	assert.Equal(t, "password: Este campo es requerido.", d.UserMessage)
}

func TestRefreshVerifyAndProtectedCalls(t *testing.T) {
	bt := newBackendTest(t, fakeapi.Config{RotateRefresh: true})
	ctx := context.Background()

	res, err := bt.backend.Login(ctx, api.Credentials{Username: "ana", Password: "x"})
	require.NoError(t, err)
	bt.token = res.Tokens.Access

	ok, err := bt.backend.Verify(ctx, res.Tokens.Access)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = bt.backend.Verify(ctx, "garbage")
	require.NoError(t, err)
	assert.False(t, ok)

	pair, err := bt.backend.Refresh(ctx, res.Tokens.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh, "rotation returns a new refresh token")

	_, err = bt.backend.Refresh(ctx, res.Tokens.Refresh)
	assert.Equal(t, http.StatusUnauthorized, apierr.StatusCode(err), "rotated refresh token is revoked")

	user, err := bt.backend.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)

	payload, err := bt.backend.RBAC(ctx)
	require.NoError(t, err)
	grants, err := permission.FromPayload(payload)
	require.NoError(t, err)
	assert.True(t, grants.Permissions.HasAll("audits.view", "processes.edit"))
	assert.True(t, grants.Roles.Has("admin"))
}

func TestRefreshWithoutRotationKeepsRefreshEmpty(t *testing.T) {
	bt := newBackendTest(t, fakeapi.Config{})
	ctx := context.Background()

	res, err := bt.backend.Login(ctx, api.Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	pair, err := bt.backend.Refresh(ctx, res.Tokens.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.Empty(t, pair.Refresh)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	bt := newBackendTest(t, fakeapi.Config{})
	ctx := context.Background()

	res, err := bt.backend.Login(ctx, api.Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	bt.token = res.Tokens.Access
	require.NoError(t, bt.backend.Logout(ctx, res.Tokens.Refresh))

	_, err = bt.backend.Refresh(ctx, res.Tokens.Refresh)
	require.Error(t, err)
}

func TestVerifyServerErrorIsReturned(t *testing.T) {
	bt := newBackendTest(t, fakeapi.Config{})
	bt.srv.Fail(bt.backend.Paths().Verify, http.StatusServiceUnavailable, nil, 10)

	ok, err := bt.backend.Verify(context.Background(), "anything")
	assert.False(t, ok)
	require.Error(t, err)
	var httpErr *apierr.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, 4, bt.srv.Calls(bt.backend.Paths().Verify), "503 is retried up to the policy limit")
}

func TestMissingTokensInLoginResponse(t *testing.T) {
	bt := newBackendTest(t, fakeapi.Config{})
	bt.srv.Fail(bt.backend.Paths().Login, http.StatusOK, map[string]any{"user": admin.User}, 1)

	_, err := bt.backend.Login(context.Background(), api.Credentials{Email: "a@b.com", Password: "x"})
	assert.ErrorIs(t, err, api.ErrMissingTokens)
}

func TestDefaultPathsFillBlanks(t *testing.T) {
	p := api.Paths{Login: "/custom/login"}.WithDefaults()
	assert.Equal(t, "/custom/login", p.Login)
	assert.Equal(t, api.DefaultPaths().RBAC, p.RBAC)
}
