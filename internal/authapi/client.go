// Package authapi is the client of the authentication endpoints of the
// remote tourism API.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/tourista/session-coordinator/internal/config"
	"github.com/tourista/session-coordinator/internal/serviceerr"
	"github.com/tourista/session-coordinator/pkg/session"
)

// maxBodySize caps the size of a response body the client reads.
const maxBodySize = 1 << 20

// Client calls the login, register and refresh endpoints. It implements
// session.AuthAPI.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	now        func() time.Time
}

var _ session.AuthAPI = (*Client)(nil)

type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client. It must not be a client of the
// session coordinator, the authentication endpoints carry no bearer token.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithClock replaces the clock relative expiries are resolved against.
func WithClock(now func() time.Time) ClientOption {
	return func(client *Client) {
		if now != nil {
			client.now = now
		}
	}
}

func NewClient(cfg config.API, opts ...ClientOption) (*Client, error) {
	baseURL, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing api base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q must be http or https", cfg.BaseURL)
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c, nil
}

func (c *Client) Login(ctx context.Context, credentials session.Credentials) (session.Session, error) {
	resp, err := c.post(ctx, loginPath, credentials)
	if err != nil {
		return session.Session{}, err
	}

	return resp.toSession(), nil
}

func (c *Client) Register(ctx context.Context, registration session.Registration) (session.Session, error) {
	if registration.Password != registration.ConfirmPassword {
		return session.Session{}, &serviceerr.Error{Err: serviceerr.CodeInvalidRequest, Description: "passwords do not match"}
	}

	resp, err := c.post(ctx, registerPath, registration)
	if err != nil {
		return session.Session{}, err
	}

	return resp.toSession(), nil
}

// Refresh exchanges the token pair for a new one. Errors match either
// serviceerr.ErrRefreshRejected, when the remote API refused the refresh
// token, or serviceerr.ErrRefreshUnavailable, when it could not be asked.
func (c *Client) Refresh(ctx context.Context, accessToken, refreshToken string) (session.Session, error) {
	resp, err := c.post(ctx, refreshPath, refreshRequest{Token: accessToken, RefreshToken: refreshToken})
	if err != nil {
		return session.Session{}, refreshError(err)
	}

	if resp.Token == "" {
		return session.Session{}, fmt.Errorf("%w: response carries no access token", serviceerr.ErrRefreshRejected)
	}

	s := resp.toSession()
	// the remote API may keep the refresh token
	if s.RefreshToken == "" {
		s.RefreshToken = refreshToken
	}

	return s, nil
}

func refreshError(err error) error {
	var svcErr *serviceerr.Error
	if errors.As(err, &svcErr) {
		switch svcErr.Err {
		case serviceerr.CodeInvalidRequest, serviceerr.CodeUnauthorized, serviceerr.CodeAccessDenied, serviceerr.CodeNotFound:
			return errors.Join(serviceerr.ErrRefreshRejected, err)
		}
	}

	return errors.Join(serviceerr.ErrRefreshUnavailable, err)
}

func (c *Client) post(ctx context.Context, path string, body any) (authResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return authResponse{}, fmt.Errorf("encoding request: %w", err)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return authResponse{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return authResponse{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return authResponse{}, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp errorResponse
		_ = json.Unmarshal(data, &errResp)

		slogctx.Debug(ctx, "Authentication call rejected", "path", path, "status", resp.StatusCode)

		return authResponse{}, serviceerr.FromHTTPStatus(resp.StatusCode, errResp.description())
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return authResponse{}, fmt.Errorf("%w: decoding response: %w", serviceerr.ErrServerError, err)
	}

	out, err := decodeAuthResponse(raw, c.now())
	if err != nil {
		return authResponse{}, fmt.Errorf("%w: %w", serviceerr.ErrServerError, err)
	}

	out.fillFromClaims()

	return out, nil
}
