package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/innerview/realtime-server/internal/auth"
	"github.com/innerview/realtime-server/internal/config"
	"github.com/innerview/realtime-server/internal/core"
	"github.com/innerview/realtime-server/internal/log"
	"github.com/innerview/realtime-server/internal/store"
	"github.com/innerview/realtime-server/internal/store/sqlite"
)

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, st store.Store, jwtSecret string) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return auth.NewService(st, jwtConfig)
}

type testEnv struct {
	ts   *httptest.Server
	st   store.Store
	auth *auth.Service
}

// startTestServer wires a full server over an in-memory store:
// REST handlers, the hub and the websocket endpoint.
func startTestServer(t *testing.T) *testEnv {
	t.Helper()

	st := createTestStore(t)
	authService := createTestAuthService(t, st, "test-secret")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := core.NewHub(st, log.Nop())
	go hub.Run(ctx)

	cfg := config.Default()
	cfg.Addr = ":0"

	server := NewServer(hub, authService, st, &cfg, log.Nop())

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, st: st, auth: authService}
}

// registerUser creates an account directly through the auth service and
// returns the token plus the stored user.
func (env *testEnv) registerUser(t *testing.T, username string, role store.Role) (string, *store.User) {
	t.Helper()

	token, err := env.auth.Register(context.Background(), username, "password123", role)
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	user, err := env.st.GetUserByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("failed to load %s: %v", username, err)
	}
	return token, user
}
