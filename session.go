package qmsauth

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/qmsauth/model"
	"github.com/MrEthical07/qmsauth/permission"
	"github.com/go-logr/logr"
)

// Phase is the session state machine's current state.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInitializing
	PhaseAuthenticated
	PhaseUnauthenticated
	PhaseRefreshingToken
	PhaseRefreshingRBAC
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "UNINITIALIZED"
	case PhaseInitializing:
		return "INITIALIZING"
	case PhaseAuthenticated:
		return "AUTHENTICATED"
	case PhaseUnauthenticated:
		return "UNAUTHENTICATED"
	case PhaseRefreshingToken:
		return "REFRESHING_TOKEN"
	case PhaseRefreshingRBAC:
		return "REFRESHING_RBAC"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Session is an immutable snapshot of the client's authentication state.
// The sets and maps are shared between snapshots and must be treated as
// read-only.
type Session struct {
	Phase           Phase
	IsAuthenticated bool
	IsLoading       bool
	User            *model.User
	Tokens          *model.TokenPair
	// Error is the user-facing message of the last failed login or
	// session restore.
	Error string

	Permissions           permission.Set
	Roles                 permission.Set
	PermissionsByResource map[string]permission.Set
	RBACLoading           bool
	RBACError             string
	// RBACLastUpdated is when the loaded grants were fetched. Zero until the
	// first successful load.
	RBACLastUpdated time.Time

	// gen identifies one signed-in session. It changes whenever a user
	// signs in or out, so results of calls started under an earlier session
	// can be told apart.
	gen        uint64
	refreshing bool
}

func initialSession() Session {
	return Session{Phase: PhaseUninitialized, IsLoading: true}
}

// HasPermission reports whether code was granted.
func (s Session) HasPermission(code string) bool {
	return s.Permissions.Has(code)
}

// HasAnyPermission reports whether any of codes was granted. No codes is false.
func (s Session) HasAnyPermission(codes ...string) bool {
	return s.Permissions.HasAny(codes...)
}

// HasAllPermissions reports whether every code was granted. No codes is true.
func (s Session) HasAllPermissions(codes ...string) bool {
	return s.Permissions.HasAll(codes...)
}

// HasRole reports whether role was assigned.
func (s Session) HasRole(role string) bool {
	return s.Roles.Has(role)
}

// HasAnyRole reports whether any of roles was assigned. No roles is false.
func (s Session) HasAnyRole(roles ...string) bool {
	return s.Roles.HasAny(roles...)
}

// HasAllRoles reports whether every role was assigned. No roles is true.
func (s Session) HasAllRoles(roles ...string) bool {
	return s.Roles.HasAll(roles...)
}

// ResourcePermissions returns the sorted actions granted on resource.
func (s Session) ResourcePermissions(resource string) []string {
	set, ok := s.PermissionsByResource[resource]
	if !ok {
		return []string{}
	}
	return set.Sorted()
}

/*
====================================
REDUCER
====================================
*/

type actionKind int

const (
	actInitialize actionKind = iota
	actRestore
	actSignedOut
	actTeardown
	actLoginStart
	actLoginSuccess
	actLoginFailure
	actLogoutStart
	actRefreshStart
	actRefreshSuccess
	actRefreshFailure
	actRBACStart
	actRBACSuccess
	actRBACFailure
	actionKindCount
)

func (k actionKind) String() string {
	names := [...]string{
		"initialize", "restore", "signed_out", "teardown",
		"login_start", "login_success", "login_failure", "logout_start",
		"refresh_start", "refresh_success", "refresh_failure",
		"rbac_start", "rbac_success", "rbac_failure",
	}
	if k < 0 || int(k) >= len(names) {
		return fmt.Sprintf("action(%d)", int(k))
	}
	return names[k]
}

type action struct {
	kind       actionKind
	user       *model.User
	tokens     *model.TokenPair
	grants     permission.Grants
	at         time.Time
	err        string
	failClosed bool
	// gen is the session generation a backend result belongs to.
	gen uint64
}

var (
	// errUnchanged marks actions that are valid but have nothing to do, such
	// as a teardown of a session that already ended.
	errUnchanged = errors.New("session unchanged")
	// errStale marks a backend result that arrived after the session it was
	// requested for ended.
	errStale = errors.New("result belongs to an ended session")
)

func reduce(s Session, a action) (Session, error) {
	switch a.kind {
	case actInitialize:
		if s.Phase != PhaseUninitialized && s.Phase != PhaseUnauthenticated {
			return s, fmt.Errorf("%w: initialize from %s", ErrInvalidTransition, s.Phase)
		}
		gen := s.gen
		s = initialSession()
		s.gen = gen
		s.Phase = PhaseInitializing

	case actRestore, actLoginSuccess:
		if a.user == nil || a.tokens == nil || a.tokens.Access == "" {
			return s, fmt.Errorf("%w: %s without user and tokens", ErrInvalidTransition, a.kind)
		}
		if a.kind == actRestore && s.Phase != PhaseInitializing {
			return s, fmt.Errorf("%w: restore from %s", ErrInvalidTransition, s.Phase)
		}
		s = signedOutSession(s.gen)
		s.IsAuthenticated = true
		s.User = a.user.Clone()
		s.Tokens = a.tokens.Clone()

	case actSignedOut:
		s = signedOutSession(s.gen)
		s.Error = a.err

	case actTeardown:
		if !s.IsAuthenticated {
			return s, errUnchanged
		}
		s = signedOutSession(s.gen)

	case actLoginStart:
		s.IsLoading = true
		s.Error = ""

	case actLoginFailure:
		s.IsLoading = false
		s.Error = a.err
		if !s.IsAuthenticated {
			s.Phase = PhaseUnauthenticated
		}

	case actLogoutStart:
		s.IsLoading = true

	case actRefreshStart:
		if !s.IsAuthenticated {
			return s, fmt.Errorf("%w: refresh while signed out", ErrInvalidTransition)
		}
		s.refreshing = true

	case actRefreshSuccess:
		if a.gen != s.gen {
			return s, errStale
		}
		if !s.IsAuthenticated {
			return s, fmt.Errorf("%w: refresh result after sign-out", ErrInvalidTransition)
		}
		if a.tokens == nil || a.tokens.Access == "" {
			return s, fmt.Errorf("%w: refresh without tokens", ErrInvalidTransition)
		}
		s.Tokens = a.tokens.Clone()
		s.refreshing = false

	case actRefreshFailure:
		if a.gen != s.gen {
			return s, errStale
		}
		s.refreshing = false

	case actRBACStart:
		if !s.IsAuthenticated {
			return s, fmt.Errorf("%w: rbac load while signed out", ErrInvalidTransition)
		}
		s.RBACLoading = true

	case actRBACSuccess:
		if a.gen != s.gen {
			return s, errStale
		}
		if !s.IsAuthenticated {
			return s, fmt.Errorf("%w: rbac result after sign-out", ErrInvalidTransition)
		}
		g := a.grants.Clone()
		if g.Permissions == nil {
			g = permission.EmptyGrants()
		}
		s.Permissions = g.Permissions
		s.Roles = g.Roles
		s.PermissionsByResource = g.ByResource
		s.RBACLastUpdated = a.at
		s.RBACError = ""
		s.RBACLoading = false

	case actRBACFailure:
		if a.gen != s.gen {
			return s, errStale
		}
		s.RBACLoading = false
		s.RBACError = a.err
		if a.failClosed {
			clearGrants(&s)
		}

	default:
		return s, fmt.Errorf("%w: unknown action %d", ErrInvalidTransition, int(a.kind))
	}

	if s.IsAuthenticated {
		if s.User == nil || s.Tokens == nil {
			return s, fmt.Errorf("%w: authenticated without user or tokens", ErrInvalidTransition)
		}
		switch {
		case s.refreshing:
			s.Phase = PhaseRefreshingToken
		case s.RBACLoading:
			s.Phase = PhaseRefreshingRBAC
		default:
			s.Phase = PhaseAuthenticated
		}
	}
	return s, nil
}

// signedOutSession starts the generation after prev.
func signedOutSession(prev uint64) Session {
	s := Session{Phase: PhaseUnauthenticated, gen: prev + 1}
	clearGrants(&s)
	return s
}

func clearGrants(s *Session) {
	g := permission.EmptyGrants()
	s.Permissions = g.Permissions
	s.Roles = g.Roles
	s.PermissionsByResource = g.ByResource
	s.RBACLastUpdated = time.Time{}
}

/*
====================================
STATE STORE
====================================
*/

// sessionState serializes the reducer and publishes snapshots. Reads are
// lock-free.
type sessionState struct {
	mu      sync.Mutex
	current atomic.Pointer[Session]
	log     logr.Logger
	metrics *Metrics

	subsMu sync.RWMutex
	subs   map[uint64]func(Session)
	nextID uint64
}

func newSessionState(log logr.Logger, metrics *Metrics) *sessionState {
	st := &sessionState{
		log:     log,
		metrics: metrics,
		subs:    make(map[uint64]func(Session)),
	}
	s := initialSession()
	st.current.Store(&s)
	return st
}

func (st *sessionState) load() Session {
	return *st.current.Load()
}

// dispatch applies a, notifies subscribers and returns the snapshots before
// and after it. A rejected action leaves the state untouched and returns the
// previous snapshot twice.
func (st *sessionState) dispatch(a action) (prev, next Session, err error) {
	prev, next, err = st.apply(a)
	if err == nil {
		st.notify(next)
	}
	return prev, next, err
}

// apply is dispatch without the subscriber notification. Callers that pair a
// transition with a store write use it under their own lock and notify once
// the lock is released.
func (st *sessionState) apply(a action) (prev, next Session, err error) {
	st.mu.Lock()
	prev = st.load()
	next, err = reduce(prev, a)
	if err != nil {
		st.mu.Unlock()
		switch {
		case errors.Is(err, errUnchanged):
		case errors.Is(err, errStale):
			st.metrics.Inc(MetricStaleResult)
			st.log.V(1).Info("dropped result of an ended session", "action", a.kind.String())
		default:
			st.metrics.Inc(MetricRejectedTransition)
			st.log.Info("session transition rejected", "action", a.kind.String(), "phase", prev.Phase.String(), "error", err.Error())
		}
		return prev, prev, err
	}
	st.current.Store(&next)
	st.mu.Unlock()

	st.log.V(1).Info("session transition", "action", a.kind.String(), "from", prev.Phase.String(), "to", next.Phase.String())
	return prev, next, nil
}

// subscribe registers fn for every accepted transition. fn runs on the
// dispatching goroutine after the state lock is released, so it may call
// back into the client; concurrent transitions can deliver out of order.
func (st *sessionState) subscribe(fn func(Session)) func() {
	st.subsMu.Lock()
	id := st.nextID
	st.nextID++
	st.subs[id] = fn
	st.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			st.subsMu.Lock()
			delete(st.subs, id)
			st.subsMu.Unlock()
		})
	}
}

func (st *sessionState) notify(s Session) {
	st.subsMu.RLock()
	fns := make([]func(Session), 0, len(st.subs))
	for _, fn := range st.subs {
		fns = append(fns, fn)
	}
	st.subsMu.RUnlock()

	for _, fn := range fns {
		st.deliver(fn, s)
	}
}

func (st *sessionState) deliver(fn func(Session), s Session) {
	defer func() {
		if r := recover(); r != nil {
			st.log.Error(fmt.Errorf("panic: %v", r), "session subscriber panicked")
		}
	}()
	fn(s)
}
