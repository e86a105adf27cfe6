package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/pawtrait/pawtrait-client/internal/api"
	"github.com/pawtrait/pawtrait-client/internal/models"
)

type mockIdentityAPI struct {
	MeFunc       func(ctx context.Context) (*models.Identity, error)
	LoginFunc    func(ctx context.Context, email, password string) (*models.TokenResponse, error)
	RegisterFunc func(ctx context.Context, email, password string) (*models.TokenResponse, error)
}

func (m *mockIdentityAPI) Me(ctx context.Context) (*models.Identity, error) {
	return m.MeFunc(ctx)
}

func (m *mockIdentityAPI) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	return m.LoginFunc(ctx, email, password)
}

func (m *mockIdentityAPI) Register(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	return m.RegisterFunc(ctx, email, password)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, client identityAPI) (*Store, *Credentials) {
	t.Helper()
	creds := NewCredentials(credsPath(t))
	if err := creds.Load(); err != nil {
		t.Fatalf("load credentials: %v", err)
	}
	return NewStore(client, creds, discardLogger()), creds
}

func TestInitialize_NoCredential(t *testing.T) {
	store, _ := newTestStore(t, &mockIdentityAPI{
		MeFunc: func(ctx context.Context) (*models.Identity, error) {
			t.Fatal("Me must not be called without a credential")
			return nil, nil
		},
	})

	store.Initialize(context.Background())
	if got := store.State(); got != StateAnonymous {
		t.Errorf("state = %s; want anonymous", got)
	}
}

func TestInitialize_ValidCredential(t *testing.T) {
	want := models.Identity{ID: "u1", Email: "a@b.c", CreditsRemaining: 7}
	store, creds := newTestStore(t, &mockIdentityAPI{
		MeFunc: func(ctx context.Context) (*models.Identity, error) {
			id := want
			return &id, nil
		},
	})
	if err := creds.Store("tok"); err != nil {
		t.Fatalf("store token: %v", err)
	}

	store.Initialize(context.Background())
	if got := store.State(); got != StateAuthenticated {
		t.Fatalf("state = %s; want authenticated", got)
	}
	identity, ok := store.Identity()
	if !ok || identity != want {
		t.Errorf("Identity = %+v, %v; want %+v, true", identity, ok, want)
	}
}

func TestInitialize_FailedValidationPurgesCredential(t *testing.T) {
	store, creds := newTestStore(t, &mockIdentityAPI{
		MeFunc: func(ctx context.Context) (*models.Identity, error) {
			return nil, &api.APIError{Status: http.StatusUnauthorized, Message: "Invalid token"}
		},
	})
	if err := creds.Store("tok-stale"); err != nil {
		t.Fatalf("store token: %v", err)
	}

	store.Initialize(context.Background())
	if got := store.State(); got != StateAnonymous {
		t.Errorf("state = %s; want anonymous", got)
	}
	if _, ok := store.Identity(); ok {
		t.Error("identity still present after failed validation")
	}
	if got := creds.Token(); got != "" {
		t.Errorf("token after failed validation = %q; want empty", got)
	}
}

func TestLogin_Success(t *testing.T) {
	store, creds := newTestStore(t, &mockIdentityAPI{
		LoginFunc: func(ctx context.Context, email, password string) (*models.TokenResponse, error) {
			if email != "a@b.c" || password != "pw" {
				t.Errorf("Login received %q/%q", email, password)
			}
			return &models.TokenResponse{
				AccessToken: "tok-new",
				User:        models.Identity{ID: "u1", Email: email},
			}, nil
		},
	})

	identity, err := store.Login(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if identity.Email != "a@b.c" {
		t.Errorf("identity email = %q", identity.Email)
	}
	if got := store.State(); got != StateAuthenticated {
		t.Errorf("state = %s; want authenticated", got)
	}
	if got := creds.Token(); got != "tok-new" {
		t.Errorf("persisted token = %q; want tok-new", got)
	}
}

func TestLogin_Failure(t *testing.T) {
	wantErr := &api.APIError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	store, creds := newTestStore(t, &mockIdentityAPI{
		LoginFunc: func(ctx context.Context, email, password string) (*models.TokenResponse, error) {
			return nil, wantErr
		},
	})

	_, err := store.Login(context.Background(), "a@b.c", "wrong")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Login error = %v; want %v", err, wantErr)
	}
	if err.Error() != "Invalid credentials" {
		t.Errorf("error message = %q; want the server detail verbatim", err.Error())
	}
	if got := creds.Token(); got != "" {
		t.Errorf("token persisted on failed login: %q", got)
	}
}

func TestRegister_Success(t *testing.T) {
	store, _ := newTestStore(t, &mockIdentityAPI{
		RegisterFunc: func(ctx context.Context, email, password string) (*models.TokenResponse, error) {
			return &models.TokenResponse{
				AccessToken: "tok-reg",
				User:        models.Identity{Email: email},
			}, nil
		},
	})

	if _, err := store.Register(context.Background(), "new@b.c", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := store.State(); got != StateAuthenticated {
		t.Errorf("state = %s; want authenticated", got)
	}
}

func TestLogout_Unconditional(t *testing.T) {
	store, creds := newTestStore(t, &mockIdentityAPI{
		LoginFunc: func(ctx context.Context, email, password string) (*models.TokenResponse, error) {
			return &models.TokenResponse{AccessToken: "tok", User: models.Identity{Email: email}}, nil
		},
	})
	if _, err := store.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	store.Logout()
	if got := store.State(); got != StateAnonymous {
		t.Errorf("state = %s; want anonymous", got)
	}
	if got := creds.Token(); got != "" {
		t.Errorf("token after logout = %q; want empty", got)
	}
}

func TestRefresh_UpdatesIdentity(t *testing.T) {
	credits := 10
	client := &mockIdentityAPI{
		MeFunc: func(ctx context.Context) (*models.Identity, error) {
			return &models.Identity{ID: "u1", CreditsRemaining: credits}, nil
		},
	}
	store, creds := newTestStore(t, client)
	if err := creds.Store("tok"); err != nil {
		t.Fatalf("store token: %v", err)
	}
	store.Initialize(context.Background())

	credits = 9
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	identity, _ := store.Identity()
	if identity.CreditsRemaining != 9 {
		t.Errorf("credits after refresh = %d; want 9", identity.CreditsRemaining)
	}
}

func TestRefresh_TransportErrorKeepsSession(t *testing.T) {
	calls := 0
	client := &mockIdentityAPI{
		MeFunc: func(ctx context.Context) (*models.Identity, error) {
			calls++
			if calls == 1 {
				return &models.Identity{ID: "u1"}, nil
			}
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	store, creds := newTestStore(t, client)
	if err := creds.Store("tok"); err != nil {
		t.Fatalf("store token: %v", err)
	}
	store.Initialize(context.Background())

	if err := store.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh returned nil error on transport failure")
	}
	if got := store.State(); got != StateAuthenticated {
		t.Errorf("state after transport failure = %s; want authenticated", got)
	}
	if got := creds.Token(); got == "" {
		t.Error("credential purged on a transport failure")
	}
}

func TestRefresh_AuthFailureEndsSession(t *testing.T) {
	calls := 0
	client := &mockIdentityAPI{
		MeFunc: func(ctx context.Context) (*models.Identity, error) {
			calls++
			if calls == 1 {
				return &models.Identity{ID: "u1"}, nil
			}
			return nil, &api.APIError{Status: http.StatusUnauthorized, Message: "Token expired"}
		},
	}
	store, creds := newTestStore(t, client)
	if err := creds.Store("tok"); err != nil {
		t.Fatalf("store token: %v", err)
	}
	store.Initialize(context.Background())

	if err := store.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh returned nil error on auth failure")
	}
	if got := store.State(); got != StateAnonymous {
		t.Errorf("state after auth failure = %s; want anonymous", got)
	}
	if got := creds.Token(); got != "" {
		t.Errorf("token after auth failure = %q; want empty", got)
	}
}

func TestRefresh_WhileAnonymous(t *testing.T) {
	store, _ := newTestStore(t, &mockIdentityAPI{})
	store.Initialize(context.Background())

	if err := store.Refresh(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Refresh while anonymous = %v; want ErrNotAuthenticated", err)
	}
}

func TestIdentity_ReturnsSnapshot(t *testing.T) {
	store, creds := newTestStore(t, &mockIdentityAPI{
		MeFunc: func(ctx context.Context) (*models.Identity, error) {
			return &models.Identity{ID: "u1", CreditsRemaining: 5}, nil
		},
	})
	if err := creds.Store("tok"); err != nil {
		t.Fatalf("store token: %v", err)
	}
	store.Initialize(context.Background())

	snapshot, _ := store.Identity()
	snapshot.CreditsRemaining = 0
	again, _ := store.Identity()
	if again.CreditsRemaining != 5 {
		t.Error("mutating a snapshot leaked into the store")
	}
}
