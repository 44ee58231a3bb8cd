package business

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/tourista/session-coordinator/internal/config"
)

// remoteAPI imitates the tourism API: the authentication endpoints and one
// protected endpoint. Every refresh rotates the token pair.
type remoteAPI struct {
	*httptest.Server

	mu           sync.Mutex
	generation   int
	access       string
	refresh      string
	refreshCalls int
	expiresIn    time.Duration
}

func startRemoteAPI(t *testing.T) *remoteAPI {
	t.Helper()

	api := &remoteAPI{expiresIn: time.Hour}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /authenticat/Login", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid email or password"}`))
			return
		}

		api.writeTokens(w, api.rotate())
	})
	mux.HandleFunc("POST /authenticat/Register", func(w http.ResponseWriter, r *http.Request) {
		var profile map[string]string
		_ = json.NewDecoder(r.Body).Decode(&profile)
		if profile["email"] == "taken@example.com" {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"Email already registered"}`))
			return
		}

		api.writeTokens(w, api.rotate())
	})
	mux.HandleFunc("POST /authenticat/GetRefreshToken", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		api.mu.Lock()
		api.refreshCalls++
		valid := body["refrehToken"] == api.refresh
		api.mu.Unlock()

		if !valid {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		api.writeTokens(w, api.rotate())
	})
	mux.HandleFunc("/places", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		want := "Bearer " + api.access
		api.mu.Unlock()

		if r.Header.Get("Authorization") != want {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"name":"Karnak Temple"}]`))
	})

	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)

	return api
}

func (api *remoteAPI) rotate() (gen string) {
	api.mu.Lock()
	defer api.mu.Unlock()

	api.generation++
	gen = strconv.Itoa(api.generation)
	api.access = "A" + gen
	api.refresh = "R" + gen

	return gen
}

func (api *remoteAPI) writeTokens(w http.ResponseWriter, gen string) {
	api.mu.Lock()
	expiresIn := int(api.expiresIn.Seconds())
	api.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"token":                  "A" + gen,
		"refreshToken":           "R" + gen,
		"expiresIn":              expiresIn,
		"refreshTokenExpiretion": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		"name":                   "Nour",
		"email":                  "nour@example.com",
		"id":                     7,
	})
}

func (api *remoteAPI) RefreshCalls() int {
	api.mu.Lock()
	defer api.mu.Unlock()

	return api.refreshCalls
}

// expireAccessToken makes the server reject the current access token while
// the refresh token stays valid.
func (api *remoteAPI) expireAccessToken() {
	api.mu.Lock()
	defer api.mu.Unlock()

	api.access = "expired"
}

// revokeRefreshToken makes the server reject the current refresh token.
func (api *remoteAPI) revokeRefreshToken() {
	api.mu.Lock()
	defer api.mu.Unlock()

	api.refresh = "revoked"
}

func (api *remoteAPI) setExpiresIn(d time.Duration) {
	api.mu.Lock()
	defer api.mu.Unlock()

	api.expiresIn = d
}

func testConfig(t *testing.T, apiURL string) *config.Config {
	t.Helper()

	return &config.Config{
		API: config.API{BaseURL: apiURL, Timeout: 5 * time.Second},
		Session: config.Session{
			RefreshTimeout: 5 * time.Second,
		},
		DurableStore: config.DurableStore{
			Type: config.DurableStoreFile,
			Path: filepath.Join(t.TempDir(), "cookies.yaml"),
		},
		TokenRefresher: config.TokenRefresher{
			RefreshInterval: time.Minute,
			ExpiryWindow:    5 * time.Minute,
		},
	}
}
