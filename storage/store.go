package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/qmsauth/model"
	"github.com/benbjohnson/clock"
	"github.com/go-logr/logr"
)

const (
	DefaultPrefix       = "qms_"
	DefaultRBACCacheTTL = time.Hour

	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
	KeyRememberMe   = "remember_me"
	KeyRBACCache    = "rbac_cache"
)

var (
	// ErrEmptyAccessToken is returned when a token pair without an access token is stored.
	ErrEmptyAccessToken = errors.New("storage: empty access token")
	// ErrNilUser is returned when a nil user is stored.
	ErrNilUser = errors.New("storage: nil user")
)

// authKeys are removed by ClearAuth, access token first so other clients
// observe the logout as early as possible.
var authKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser, KeyRBACCache, KeyRememberMe}

// RemoveHook observes every key removed from the backend. key is the full,
// prefixed key.
type RemoveHook func(ctx context.Context, key string)

// Options configures a Store. Zero values select the defaults.
type Options struct {
	Prefix       string
	RBACCacheTTL time.Duration
	Clock        clock.Clock
	Logger       logr.Logger
	OnRemove     RemoveHook
}

// Store is the credential store. It is safe for concurrent use when its
// backend is.
type Store struct {
	backend  Backend
	prefix   string
	ttl      time.Duration
	clock    clock.Clock
	log      logr.Logger
	onRemove RemoveHook
}

// New wraps backend.
func New(backend Backend, opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.RBACCacheTTL <= 0 {
		opts.RBACCacheTTL = DefaultRBACCacheTTL
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	return &Store{
		backend:  backend,
		prefix:   opts.Prefix,
		ttl:      opts.RBACCacheTTL,
		clock:    opts.Clock,
		log:      opts.Logger,
		onRemove: opts.OnRemove,
	}
}

// SetRemoveHook replaces the removal hook. It must be called before the
// store is shared.
func (s *Store) SetRemoveHook(hook RemoveHook) {
	s.onRemove = hook
}

// Key returns the prefixed backend key for name.
func (s *Store) Key(name string) string {
	return s.prefix + name
}

// AccessTokenKey is the key whose removal signals a logout elsewhere.
func (s *Store) AccessTokenKey() string {
	return s.Key(KeyAccessToken)
}

// SetTokens writes access then refresh. The refresh key is written even
// when the token is empty. A failure on either write fails the whole call;
// the writes are not atomic.
func (s *Store) SetTokens(ctx context.Context, pair model.TokenPair) error {
	if pair.Access == "" {
		return ErrEmptyAccessToken
	}
	if err := s.setJSON(ctx, KeyAccessToken, pair.Access); err != nil {
		return err
	}
	if err := s.setJSON(ctx, KeyRefreshToken, pair.Refresh); err != nil {
		return err
	}
	return nil
}

// Tokens returns the stored pair when both keys are present. The refresh
// token may be empty for backends that issue access tokens only; a missing
// refresh key means SetTokens did not finish.
func (s *Store) Tokens(ctx context.Context) (model.TokenPair, bool) {
	var pair model.TokenPair
	if !s.getJSON(ctx, KeyAccessToken, &pair.Access) || pair.Access == "" {
		return model.TokenPair{}, false
	}
	if !s.getJSON(ctx, KeyRefreshToken, &pair.Refresh) {
		return model.TokenPair{}, false
	}
	return pair, true
}

// AccessToken returns the stored access token alone.
func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	var access string
	if !s.getJSON(ctx, KeyAccessToken, &access) || access == "" {
		return "", false
	}
	return access, true
}

func (s *Store) SetUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return ErrNilUser
	}
	return s.setJSON(ctx, KeyUser, user)
}

func (s *Store) User(ctx context.Context) (*model.User, bool) {
	var user model.User
	if !s.getJSON(ctx, KeyUser, &user) {
		return nil, false
	}
	return &user, true
}

func (s *Store) SetRememberMe(ctx context.Context, remember bool) error {
	return s.setJSON(ctx, KeyRememberMe, remember)
}

func (s *Store) RememberMe(ctx context.Context) bool {
	var remember bool
	s.getJSON(ctx, KeyRememberMe, &remember)
	return remember
}

// SetRBACData stores data, stamping the current time when Timestamp is unset.
func (s *Store) SetRBACData(ctx context.Context, data model.RBACCache) error {
	if data.Timestamp <= 0 {
		data.Timestamp = s.clock.Now().UnixMilli()
	}
	return s.setJSON(ctx, KeyRBACCache, normalizeRBAC(data))
}

// RBACData returns the cached blob, or the empty shape when absent or corrupt.
func (s *Store) RBACData(ctx context.Context) model.RBACCache {
	var data model.RBACCache
	if !s.getJSON(ctx, KeyRBACCache, &data) {
		return model.EmptyRBACCache()
	}
	return normalizeRBAC(data)
}

// IsRBACCacheValid reports whether a cache timestamp exists and is younger
// than the configured TTL.
func (s *Store) IsRBACCacheValid(ctx context.Context) bool {
	return s.RBACData(ctx).FreshAt(s.clock.Now(), s.ttl)
}

// RBACCacheTTL returns the freshness window of the RBAC cache.
func (s *Store) RBACCacheTTL() time.Duration {
	return s.ttl
}

// ClearAuth removes tokens, user, RBAC cache and the remember-me flag. It is
// idempotent; every key is attempted even if an earlier removal fails.
func (s *Store) ClearAuth(ctx context.Context) error {
	var errs []error
	for _, name := range authKeys {
		if err := s.remove(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) remove(ctx context.Context, name string) error {
	key := s.Key(name)
	existed, err := s.backend.Remove(ctx, key)
	if err != nil {
		s.log.Error(err, "storage remove failed", "key", key)
		return fmt.Errorf("remove %s: %w", key, err)
	}
	if existed && s.onRemove != nil {
		s.onRemove(ctx, key)
	}
	return nil
}

func (s *Store) setJSON(ctx context.Context, name string, value any) error {
	key := s.Key(name)
	data, err := json.Marshal(value)
	if err != nil {
		s.log.Error(err, "storage encode failed", "key", key)
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, string(data)); err != nil {
		s.log.Error(err, "storage write failed", "key", key)
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, name string, out any) bool {
	key := s.Key(name)
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.log.Error(err, "storage read failed", "key", key)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.log.Error(err, "storage value corrupt", "key", key)
		return false
	}
	return true
}

func normalizeRBAC(data model.RBACCache) model.RBACCache {
	if data.Permissions == nil {
		data.Permissions = []string{}
	}
	if data.Roles == nil {
		data.Roles = []string{}
	}
	if data.PermissionsByResource == nil {
		data.PermissionsByResource = map[string][]string{}
	}
	return data
}
