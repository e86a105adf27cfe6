// Package session owns the authenticated identity and bearer credential.
// Every other component reads snapshots through the store; all mutation flows
// through login, register, logout and refresh.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pawtrait/pawtrait-client/internal/api"
	"github.com/pawtrait/pawtrait-client/internal/models"
)

type State int

const (
	StateUninitialized State = iota
	StateValidating
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateValidating:
		return "validating"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// ErrNotAuthenticated is returned by operations that require a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// identityAPI is the slice of the API client the store needs.
type identityAPI interface {
	Me(ctx context.Context) (*models.Identity, error)
	Login(ctx context.Context, email, password string) (*models.TokenResponse, error)
	Register(ctx context.Context, email, password string) (*models.TokenResponse, error)
}

type Store struct {
	mu       sync.RWMutex
	state    State
	identity models.Identity
	client   identityAPI
	creds    *Credentials
	log      *slog.Logger
}

func NewStore(client identityAPI, creds *Credentials, log *slog.Logger) *Store {
	return &Store{
		state:  StateUninitialized,
		client: client,
		creds:  creds,
		log:    log,
	}
}

// Initialize validates any persisted credential against the identity service.
// Any validation failure at startup is treated as an invalid credential: it is
// purged, and the session becomes anonymous.
func (s *Store) Initialize(ctx context.Context) {
	if s.creds.Token() == "" {
		s.setAnonymous()
		return
	}

	s.setState(StateValidating)
	identity, err := s.client.Me(ctx)
	if err != nil {
		s.log.Info("session validation failed, logging out", "err", err)
		if purgeErr := s.creds.Purge(); purgeErr != nil {
			s.log.Error("purge credentials", "err", purgeErr)
		}
		s.setAnonymous()
		return
	}
	s.setAuthenticated(*identity)
}

// Login authenticates with the identity service and persists the issued
// credential. The returned error message is suitable for direct display.
func (s *Store) Login(ctx context.Context, email, password string) (*models.Identity, error) {
	return s.authenticate(ctx, email, password, s.client.Login)
}

// Register creates an account and persists the issued credential.
func (s *Store) Register(ctx context.Context, email, password string) (*models.Identity, error) {
	return s.authenticate(ctx, email, password, s.client.Register)
}

func (s *Store) authenticate(ctx context.Context, email, password string, call func(context.Context, string, string) (*models.TokenResponse, error)) (*models.Identity, error) {
	token, err := call(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.creds.Store(token.AccessToken); err != nil {
		return nil, fmt.Errorf("persist credential: %w", err)
	}
	s.setAuthenticated(token.User)
	identity := token.User
	return &identity, nil
}

// Logout is synchronous and unconditional: the credential is purged and the
// identity cleared regardless of any in-flight work.
func (s *Store) Logout() {
	if err := s.creds.Purge(); err != nil {
		s.log.Error("purge credentials", "err", err)
	}
	s.setAnonymous()
}

// Refresh re-validates the session to pull updated identity fields such as
// the credit balance. Only a definitive auth rejection ends the session;
// transport-level failures keep the current identity and are reported to the
// caller for logging.
func (s *Store) Refresh(ctx context.Context) error {
	if s.State() != StateAuthenticated {
		return ErrNotAuthenticated
	}

	identity, err := s.client.Me(ctx)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.IsAuthFailure() {
			s.log.Info("credential rejected during refresh, logging out", "status", apiErr.Status)
			if purgeErr := s.creds.Purge(); purgeErr != nil {
				s.log.Error("purge credentials", "err", purgeErr)
			}
			s.setAnonymous()
		}
		return fmt.Errorf("refresh identity: %w", err)
	}

	s.setAuthenticated(*identity)
	return nil
}

// Identity returns a snapshot of the current identity. The second return is
// false while the session is not authenticated.
func (s *Store) Identity() (models.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateAuthenticated {
		return models.Identity{}, false
	}
	return s.identity, true
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Store) setAuthenticated(identity models.Identity) {
	s.mu.Lock()
	s.state = StateAuthenticated
	s.identity = identity
	s.mu.Unlock()
}

func (s *Store) setAnonymous() {
	s.mu.Lock()
	s.state = StateAnonymous
	s.identity = models.Identity{}
	s.mu.Unlock()
}
