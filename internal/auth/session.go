// Havenlink - Smart Home Device Orchestration Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/havenlink

// Package auth holds the session state machine that gates every remote
// call. No real credential handling happens here: sign-in is simulated, and
// the minted tokens are JWT-shaped purely so the rest of the system can
// treat them as opaque bearer tokens.
//
// State transitions:
//
//	SignedOut -> Authenticating -> SignedIn -> Refreshing -> SignedIn
//	SignedIn  -> SignedOut  (explicit sign-out)
//	Refreshing -> SignedOut (refresh failure)
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/havenlink/internal/logging"
	"github.com/tomtom215/havenlink/internal/models"
)

// State is the session's position in the auth lifecycle.
type State string

const (
	StateSignedOut      State = "signed_out"
	StateAuthenticating State = "authenticating"
	StateSignedIn       State = "signed_in"
	StateRefreshing     State = "refreshing"
)

// Outcome decides whether a simulated sign-in or refresh attempt succeeds.
// Production uses AlwaysSucceed; tests inject failures.
type Outcome interface {
	SignInSucceeds() bool
	RefreshSucceeds() bool
}

// AlwaysSucceed is the production outcome policy.
type AlwaysSucceed struct{}

func (AlwaysSucceed) SignInSucceeds() bool  { return true }
func (AlwaysSucceed) RefreshSucceeds() bool { return true }

// StaticOutcome forces fixed results. For tests.
type StaticOutcome struct {
	SignIn  bool
	Refresh bool
}

func (o StaticOutcome) SignInSucceeds() bool  { return o.SignIn }
func (o StaticOutcome) RefreshSucceeds() bool { return o.Refresh }

// Session holds access/refresh token state. It is the sole authorization
// gate: the gateway consults AccessToken before doing anything else.
type Session struct {
	outcome    Outcome
	latency    time.Duration
	signingKey []byte
	tokenTTL   time.Duration

	mu           sync.Mutex
	state        State
	gen          uint64
	accessToken  string
	refreshToken string
	signOutHooks []func()
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithOutcome replaces the sign-in/refresh outcome policy.
func WithOutcome(o Outcome) SessionOption {
	return func(s *Session) { s.outcome = o }
}

// WithLatency sets the simulated sign-in/refresh delay. Zero disables it.
func WithLatency(d time.Duration) SessionOption {
	return func(s *Session) { s.latency = d }
}

// WithTokenTTL overrides the minted access token lifetime.
func WithTokenTTL(ttl time.Duration) SessionOption {
	return func(s *Session) { s.tokenTTL = ttl }
}

// NewSession creates a signed-out session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		outcome:    AlwaysSucceed{},
		latency:    time.Second,
		signingKey: []byte(uuid.NewString()),
		tokenTTL:   time.Hour,
		state:      StateSignedOut,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsSignedIn reports whether remote calls are currently authorized.
// Refreshing counts as signed in; the old access token stays valid until
// the refresh resolves.
func (s *Session) IsSignedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateSignedIn || s.state == StateRefreshing
}

// AccessToken implements gateway.TokenSource.
func (s *Session) AccessToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accessToken == "" {
		return "", false
	}
	return s.accessToken, true
}

// OnSignOut registers a teardown hook run on every sign-out, after tokens
// are cleared. Hooks run in registration order; the supervisor teardown is
// registered here so sign-out leaves no orphaned timers.
func (s *Session) OnSignOut(hook func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signOutHooks = append(s.signOutHooks, hook)
}

// SignIn authenticates the session. Valid only from SignedOut; on success
// the session holds a fresh access/refresh token pair, on failure it stays
// SignedOut and reports ErrAuthenticationFailed.
func (s *Session) SignIn(ctx context.Context) error {
	const op = "auth.sign_in"

	s.mu.Lock()
	if s.state != StateSignedOut {
		s.mu.Unlock()
		return models.NewOpError(models.ErrOperationFailed, op)
	}
	s.state = StateAuthenticating
	gen := s.gen
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		s.abort(gen, StateAuthenticating)
		return models.WrapOpError(models.ErrNetwork, op, err)
	}

	if !s.outcome.SignInSucceeds() {
		s.abort(gen, StateAuthenticating)
		return models.NewOpError(models.ErrAuthenticationFailed, op)
	}

	access, refresh, err := s.mintTokens()
	if err != nil {
		s.abort(gen, StateAuthenticating)
		return models.WrapOpError(models.ErrAuthenticationFailed, op, err)
	}

	s.mu.Lock()
	if s.gen != gen || s.state != StateAuthenticating {
		// Signed out while this attempt was in flight; the sign-out wins
		// and the minted tokens are discarded.
		s.mu.Unlock()
		logging.Debug().Msg("Discarding sign-in result, session signed out mid-flight")
		return models.NewOpError(models.ErrNotAuthenticated, op)
	}
	s.state = StateSignedIn
	s.accessToken = access
	s.refreshToken = refresh
	s.mu.Unlock()

	logging.Info().Msg("Session signed in")
	return nil
}

// Refresh renews the access token. Valid only from SignedIn with a present
// refresh token; a failed refresh signs the session out.
func (s *Session) Refresh(ctx context.Context) error {
	const op = "auth.refresh"

	s.mu.Lock()
	if s.state != StateSignedIn || s.refreshToken == "" {
		s.mu.Unlock()
		return models.NewOpError(models.ErrNotAuthenticated, op)
	}
	s.state = StateRefreshing
	gen := s.gen
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		s.expire(gen)
		return models.WrapOpError(models.ErrNetwork, op, err)
	}

	if !s.outcome.RefreshSucceeds() {
		s.expire(gen)
		return models.NewOpError(models.ErrNotAuthenticated, op)
	}

	access, _, err := s.mintTokens()
	if err != nil {
		s.expire(gen)
		return models.WrapOpError(models.ErrAuthenticationFailed, op, err)
	}

	s.mu.Lock()
	if s.gen != gen || s.state != StateRefreshing {
		// Signed out while the refresh was in flight; the sign-out wins
		// and the new access token is discarded.
		s.mu.Unlock()
		logging.Debug().Msg("Discarding refresh result, session signed out mid-flight")
		return models.NewOpError(models.ErrNotAuthenticated, op)
	}
	s.state = StateSignedIn
	s.accessToken = access
	s.mu.Unlock()

	logging.Debug().Msg("Access token refreshed")
	return nil
}

// SignOut clears both tokens unconditionally, transitions to SignedOut and
// runs the registered teardown hooks.
func (s *Session) SignOut() {
	s.signOutLocked()
	logging.Info().Msg("Session signed out")
}

// signOutLocked performs the sign-out transition and runs hooks outside the
// lock (hooks stop timers that may be logging concurrently). Bumping gen
// invalidates any sign-in or refresh attempt still in flight.
func (s *Session) signOutLocked() {
	s.mu.Lock()
	s.state = StateSignedOut
	s.gen++
	s.accessToken = ""
	s.refreshToken = ""
	hooks := make([]func(), len(s.signOutHooks))
	copy(hooks, s.signOutHooks)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

// abort rolls a failed sign-in attempt back to SignedOut, unless a
// concurrent sign-out already moved the session past gen.
func (s *Session) abort(gen uint64, from State) {
	s.mu.Lock()
	if s.gen == gen && s.state == from {
		s.state = StateSignedOut
	}
	s.mu.Unlock()
}

// expire signs the session out after a failed refresh. A concurrent
// explicit sign-out already ran the teardown hooks; they must not run
// twice, so a stale gen makes this a no-op.
func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.state = StateSignedOut
	s.gen++
	s.accessToken = ""
	s.refreshToken = ""
	hooks := make([]func(), len(s.signOutHooks))
	copy(hooks, s.signOutHooks)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

// wait sleeps out the simulated auth latency, honoring ctx.
func (s *Session) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// mintTokens issues a JWT-shaped access token and an opaque refresh token.
func (s *Session) mintTokens() (access, refresh string, err error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "havenlink-user",
		Issuer:    "havenlink",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	access, err = token.SignedString(s.signingKey)
	if err != nil {
		return "", "", err
	}
	return access, uuid.NewString(), nil
}
