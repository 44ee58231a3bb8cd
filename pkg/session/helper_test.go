package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tourista/session-coordinator/internal/config"
	"github.com/tourista/session-coordinator/pkg/session"
	sessionmock "github.com/tourista/session-coordinator/pkg/session/mock"
)

type refreshFunc func(ctx context.Context, accessToken, refreshToken string) (session.Session, error)

// fakeAuthAPI counts refresh calls and delegates them to refresh.
type fakeAuthAPI struct {
	refresh refreshFunc
	login   func(ctx context.Context, credentials session.Credentials) (session.Session, error)

	mu            sync.Mutex
	refreshCalls  int
	refreshedWith []string
	registrations []session.Registration
}

func (f *fakeAuthAPI) Login(ctx context.Context, credentials session.Credentials) (session.Session, error) {
	return f.login(ctx, credentials)
}

func (f *fakeAuthAPI) Register(_ context.Context, registration session.Registration) (session.Session, error) {
	f.mu.Lock()
	f.registrations = append(f.registrations, registration)
	f.mu.Unlock()

	return session.Session{
		AccessToken:  "A",
		RefreshToken: "R1",
		SubjectID:    "user-2",
		DisplayName:  registration.FirstName + " " + registration.LastName,
		Email:        registration.Email,
	}, nil
}

func (f *fakeAuthAPI) Refresh(ctx context.Context, accessToken, refreshToken string) (session.Session, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.refreshedWith = append(f.refreshedWith, accessToken+"/"+refreshToken)
	f.mu.Unlock()

	return f.refresh(ctx, accessToken, refreshToken)
}

func (f *fakeAuthAPI) RefreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.refreshCalls
}

func (f *fakeAuthAPI) RefreshedWith() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.refreshedWith...)
}

// gatedRefresh blocks every refresh call until gate is closed and then
// returns the result.
func gatedRefresh(gate <-chan struct{}, result session.Session, err error) refreshFunc {
	return func(ctx context.Context, _, _ string) (session.Session, error) {
		select {
		case <-gate:
		case <-ctx.Done():
			return session.Session{}, ctx.Err()
		}
		return result, err
	}
}

func rotatedSession() session.Session {
	return session.Session{
		AccessToken:        "B",
		RefreshToken:       "R2",
		AccessTokenExpiry:  time.Now().Add(time.Hour),
		RefreshTokenExpiry: time.Now().Add(24 * time.Hour),
		SubjectID:          "user-1",
		DisplayName:        "Nour",
		Email:              "nour@example.com",
	}
}

func initialSession() session.Session {
	return session.Session{
		AccessToken:        "A",
		RefreshToken:       "R1",
		AccessTokenExpiry:  time.Now().Add(-time.Minute),
		RefreshTokenExpiry: time.Now().Add(24 * time.Hour),
		SubjectID:          "user-1",
		DisplayName:        "Nour",
		Email:              "nour@example.com",
	}
}

// protectedAPI answers 200 to requests carrying validToken and 401 otherwise.
type protectedAPI struct {
	*httptest.Server

	validToken   string
	unauthorized atomic.Int32
	authorized   atomic.Int32
	onAuthorized func(r *http.Request)
}

func startProtectedAPI(t *testing.T, validToken string) *protectedAPI {
	t.Helper()

	api := &protectedAPI{validToken: validToken}
	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+api.validToken {
			api.unauthorized.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"token expired"}`))
			return
		}

		api.authorized.Add(1)
		if api.onAuthorized != nil {
			api.onAuthorized(r)
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok:" + strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")))
	}))
	t.Cleanup(api.Close)

	return api
}

func newCoordinator(t *testing.T, api session.AuthAPI, repo *sessionmock.Repository, store *session.Store) *session.Coordinator {
	t.Helper()

	c, err := session.NewCoordinator(t.Context(), config.Session{RefreshTimeout: 5 * time.Second}, api, repo, store, nil)
	require.NoError(t, err)

	return c
}

func tokenCookie(value string) *http.Cookie {
	return &http.Cookie{Name: "token", Value: value, Path: "/"}
}

func refreshTokenCookie(value string) *http.Cookie {
	return &http.Cookie{Name: "refreshToken", Value: value, Path: "/"}
}
