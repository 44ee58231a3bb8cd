//go:build integration

package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// remoteAPI plays the tourism API with rotating token pairs.
type remoteAPI struct {
	*httptest.Server

	mu           sync.Mutex
	generation   int
	access       string
	refresh      string
	refreshCalls int
}

func startRemoteAPI(t *testing.T) *remoteAPI {
	t.Helper()

	api := &remoteAPI{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /authenticat/Login", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid email or password"}`))
			return
		}

		api.writeTokens(w)
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

		api.writeTokens(w)
	})
	mux.HandleFunc("GET /places", func(w http.ResponseWriter, r *http.Request) {
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

func (api *remoteAPI) writeTokens(w http.ResponseWriter) {
	api.mu.Lock()
	api.generation++
	gen := strconv.Itoa(api.generation)
	api.access = "A" + gen
	api.refresh = "R" + gen
	api.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"token":                  "A" + gen,
		"refreshToken":           "R" + gen,
		"expiresIn":              3600,
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

func (api *remoteAPI) expireAccessToken() {
	api.mu.Lock()
	defer api.mu.Unlock()

	api.access = "expired"
}
