package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	slogctx "github.com/veqryn/slog-context"

	"github.com/tourista/session-coordinator/internal/config"
	"github.com/tourista/session-coordinator/internal/serviceerr"
)

// drainLimit caps how much of a rejected response body is read before the
// connection is handed back for reuse.
const drainLimit = 4 << 10

// Coordinator owns the session. It attaches credentials to protected API
// calls and refreshes the access token when the API rejects it.
//
// However many requests fail concurrently, at most one refresh call is in
// flight. Requests failing during a refresh wait for its outcome and are
// replayed once with the new token.
type Coordinator struct {
	api     AuthAPI
	store   *Store
	cookies cookieJar
	next    http.RoundTripper
	meters  *meters

	refreshTimeout time.Duration

	// mu also serialises writes of the session to the store and the cookies.
	mu         sync.Mutex
	refreshing bool
	queue      []*pendingRequest
	// epoch changes whenever the session is replaced or cleared outside a
	// refresh. A refresh started in an older epoch must not write its result.
	epoch uint64
}

// pendingRequest is a request waiting for the in-flight refresh. done
// receives the refresh outcome exactly once.
type pendingRequest struct {
	done chan error
}

// NewCoordinator creates a coordinator. next carries the actual requests and
// defaults to http.DefaultTransport.
func NewCoordinator(
	ctx context.Context,
	cfg config.Session,
	api AuthAPI,
	repo Repository,
	store *Store,
	next http.RoundTripper,
) (*Coordinator, error) {
	if api == nil {
		return nil, errors.New("auth api is required")
	}
	if repo == nil {
		return nil, errors.New("cookie repository is required")
	}
	if store == nil {
		store = NewStore()
	}
	if next == nil {
		next = http.DefaultTransport
	}

	m, err := newMeters(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating meters: %w", err)
	}

	cfg = cfg.WithDefaults()

	return &Coordinator{
		api:   api,
		store: store,
		cookies: cookieJar{
			repo:         repo,
			tokenCookie:  cfg.TokenCookie,
			refreshToken: cfg.RefreshTokenCookie,
		},
		next:           next,
		meters:         m,
		refreshTimeout: cfg.RefreshTimeout,
	}, nil
}

// Current returns the in-memory session.
func (c *Coordinator) Current() (Session, bool) {
	return c.store.Current()
}

// Watch notifies fn about every change of the in-memory session. fn runs
// while the session is being written and must not log in or out.
func (c *Coordinator) Watch(fn func(sess Session, ok bool)) (cancel func()) {
	return c.store.Watch(fn)
}

// AttachCredentials sets the current access token as bearer credential on
// req. Without a token the request goes out unauthenticated.
func (c *Coordinator) AttachCredentials(req *http.Request) {
	s, ok := c.store.Current()
	if !ok || s.AccessToken == "" {
		req.Header.Del("Authorization")
		return
	}

	req.Header.Set("Authorization", "Bearer "+s.AccessToken)
}

// HandleResponseFailure recovers from a 401 response to req by refreshing the
// session and replaying req once. Any other response, and a 401 to an
// already replayed request, is returned unchanged.
//
// A 401 without a refresh token to recover with logs the session out and is
// returned unchanged. A failed refresh logs the session out and returns the
// refresh error.
//
// A request whose body cannot be rewound (no GetBody) still triggers the
// refresh but is not replayed; its 401 is returned unchanged.
func (c *Coordinator) HandleResponseFailure(req *http.Request, resp *http.Response) (*http.Response, error) {
	if resp.StatusCode != http.StatusUnauthorized || isRetried(req.Context()) {
		return resp, nil
	}

	ctx := req.Context()
	replayable := canReplay(req)
	sentToken := bearerToken(req)

	c.mu.Lock()
	current, _ := c.store.Current()
	epoch := c.epoch

	switch {
	case current.RefreshToken == "":
		c.mu.Unlock()

		slogctx.Info(ctx, "Unauthorized response without a refresh token; logging out")
		if err := c.Logout(ctx); err != nil {
			slogctx.Error(ctx, "Could not clear the session", "error", err)
		}

		return resp, nil

	case c.refreshing:
		if !replayable {
			c.mu.Unlock()
			return notReplayed(ctx, req, resp), nil
		}

		pending := c.enqueueLocked()
		c.mu.Unlock()

		drain(resp)
		c.meters.recordQueued(ctx)
		if err := c.await(ctx, pending); err != nil {
			return nil, err
		}

	case current.AccessToken != sentToken:
		// an earlier refresh already rotated the token this request carried
		c.mu.Unlock()
		if !replayable {
			return notReplayed(ctx, req, resp), nil
		}
		drain(resp)

	default:
		c.refreshing = true
		c.mu.Unlock()

		if !replayable {
			if err := c.runRefresh(ctx, current, epoch); err != nil {
				drain(resp)
				return nil, err
			}

			return notReplayed(ctx, req, resp), nil
		}

		drain(resp)
		if err := c.runRefresh(ctx, current, epoch); err != nil {
			return nil, err
		}
	}

	return c.resubmit(req)
}

func notReplayed(ctx context.Context, req *http.Request, resp *http.Response) *http.Response {
	slogctx.Warn(ctx, "Cannot replay unauthorized request without GetBody", "method", req.Method, "url", req.URL.Redacted())
	return resp
}

// Bootstrap restores the session from durable storage at start-up. A session
// already in memory is kept as is. Durable tokens are exchanged for a fresh
// pair through a single refresh. Without durable tokens the application runs
// unauthenticated and Bootstrap returns nil.
//
// When the refresh fails the session is cleared and the returned error
// matches serviceerr.ErrLoginRequired.
func (c *Coordinator) Bootstrap(ctx context.Context) error {
	s, ok, epoch := c.snapshot()
	if ok && s.AccessToken != "" {
		return nil
	}

	accessToken, refreshToken, err := c.cookies.load(ctx)
	if errors.Is(err, serviceerr.ErrNotFound) {
		slogctx.Debug(ctx, "No durable session found; continuing unauthenticated")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading durable session: %w", err)
	}

	if refreshToken == "" {
		if err := c.Logout(ctx); err != nil {
			slogctx.Error(ctx, "Could not clear the session", "error", err)
		}

		return errors.Join(serviceerr.ErrLoginRequired, serviceerr.ErrNoRefreshToken)
	}

	seed := Session{AccessToken: accessToken, RefreshToken: refreshToken}
	if err := c.refreshSession(ctx, seed, epoch); err != nil {
		return errors.Join(serviceerr.ErrLoginRequired, err)
	}

	return nil
}

// RefreshIfExpiring refreshes the session when its access token expires
// within window. It joins a refresh that is already in flight.
func (c *Coordinator) RefreshIfExpiring(ctx context.Context, window time.Duration) error {
	s, ok, epoch := c.snapshot()
	if !ok || s.RefreshToken == "" {
		return serviceerr.ErrLoginRequired
	}

	if !s.ExpiresWithin(window) {
		return nil
	}

	slogctx.Info(ctx, "Access token is about to expire; refreshing", "expiry", s.AccessTokenExpiry)

	return c.refreshSession(ctx, s, epoch)
}

// snapshot returns the in-memory session together with its epoch.
func (c *Coordinator) snapshot() (Session, bool, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.store.Current()

	return s, ok, c.epoch
}

// refreshSession refreshes seed, read in epoch, or joins the refresh in flight.
func (c *Coordinator) refreshSession(ctx context.Context, seed Session, epoch uint64) error {
	c.mu.Lock()
	if c.refreshing {
		pending := c.enqueueLocked()
		c.mu.Unlock()

		return c.await(ctx, pending)
	}

	c.refreshing = true
	c.mu.Unlock()

	return c.runRefresh(ctx, seed, epoch)
}

// Resync drops the in-memory session when the durable one was removed or
// replaced by another process, for instance by a logout from another
// command. It reports whether the session was dropped.
func (c *Coordinator) Resync(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.store.Current()
	if !ok {
		return false, nil
	}

	_, refreshToken, err := c.cookies.load(ctx)
	if err != nil && !errors.Is(err, serviceerr.ErrNotFound) {
		return false, fmt.Errorf("loading durable session: %w", err)
	}

	if refreshToken == s.RefreshToken {
		return false, nil
	}

	c.epoch++
	c.store.Clear()
	slogctx.Info(ctx, "Durable session changed; dropped the in-memory session")

	return true, nil
}

// runRefresh performs the refresh call. The caller must have set c.refreshing.
// The result is discarded when the session left epoch in the meantime.
//
// The call is detached from the cancellation of ctx since other requests may
// be waiting for it, and bounded by the refresh timeout instead.
func (c *Coordinator) runRefresh(ctx context.Context, current Session, epoch uint64) error {
	ctx = slogctx.With(ctx, "refresh_id", uuid.NewString())

	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	defer cancel()

	refreshCtx, span := c.meters.tracer.Start(refreshCtx, "session.refresh")
	defer span.End()

	slogctx.Info(ctx, "Refreshing the session")
	start := time.Now()

	refreshed, err := c.api.Refresh(refreshCtx, current.AccessToken, current.RefreshToken)

	// storage must be updated even when the refresh call ran into its timeout
	storeCtx := context.WithoutCancel(ctx)

	c.mu.Lock()
	switch {
	case c.epoch != epoch:
		// logged out or logged in again meanwhile; the result belongs to a
		// session that no longer exists
		slogctx.Info(ctx, "Session changed during the refresh; discarding the result")
		err = errors.Join(serviceerr.ErrLoginRequired, err)
	case err == nil:
		c.store.Set(refreshed)
		// the durable copy has to be up to date before queued requests are replayed
		if perr := c.cookies.persist(storeCtx, refreshed); perr != nil {
			slogctx.Error(ctx, "Could not persist the refreshed session", "error", perr)
		}
	default:
		if lerr := c.clearLocked(storeCtx); lerr != nil {
			slogctx.Error(ctx, "Could not clear the session", "error", lerr)
		}
	}

	c.refreshing = false
	queue := c.queue
	c.queue = nil
	c.mu.Unlock()

	if err != nil {
		c.meters.recordRefresh(ctx, outcomeFailure, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		slogctx.Warn(ctx, "Session refresh failed; logged out", "error", err, "queued", len(queue))

		err = fmt.Errorf("refreshing session: %w", err)
		for _, p := range queue {
			p.done <- err
		}

		return err
	}

	c.meters.recordRefresh(ctx, outcomeSuccess, time.Since(start))
	slogctx.Info(ctx, "Session refreshed", "queued", len(queue))

	for _, p := range queue {
		p.done <- nil
	}

	return nil
}

func (c *Coordinator) enqueueLocked() *pendingRequest {
	p := &pendingRequest{done: make(chan error, 1)}
	c.queue = append(c.queue, p)

	return p
}

// await blocks until the in-flight refresh resolves or ctx is done. A caller
// giving up does not affect the refresh nor the other waiters.
func (c *Coordinator) await(ctx context.Context, p *pendingRequest) error {
	select {
	case err := <-p.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resubmit replays req once with the current access token.
func (c *Coordinator) resubmit(req *http.Request) (*http.Response, error) {
	retry := req.Clone(withRetried(req.Context()))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewinding request body: %w", err)
		}
		retry.Body = body
	}

	c.AttachCredentials(retry)

	resp, err := c.next.RoundTrip(retry)
	if err != nil {
		return nil, err
	}

	return c.HandleResponseFailure(retry, resp)
}

// Logout clears the in-memory and the durable session. Logging out without a
// session is a no-op.
func (c *Coordinator) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.clearLocked(ctx)
}

func (c *Coordinator) clearLocked(ctx context.Context) error {
	c.epoch++
	c.store.Clear()

	if err := c.cookies.clear(ctx); err != nil {
		return fmt.Errorf("clearing durable session: %w", err)
	}

	return nil
}

// Login authenticates with the remote API and establishes the session.
func (c *Coordinator) Login(ctx context.Context, credentials Credentials) (Session, error) {
	s, err := c.api.Login(ctx, credentials)
	if err != nil {
		return Session{}, fmt.Errorf("logging in: %w", err)
	}

	if err := c.establish(ctx, s); err != nil {
		return Session{}, err
	}

	slogctx.Info(ctx, "Logged in", "subject_id", s.SubjectID)

	return s, nil
}

// Register creates an account with the remote API and establishes the session.
func (c *Coordinator) Register(ctx context.Context, registration Registration) (Session, error) {
	s, err := c.api.Register(ctx, registration)
	if err != nil {
		return Session{}, fmt.Errorf("registering: %w", err)
	}

	if err := c.establish(ctx, s); err != nil {
		return Session{}, err
	}

	slogctx.Info(ctx, "Registered", "subject_id", s.SubjectID, "role", registration.Role)

	return s, nil
}

func (c *Coordinator) establish(ctx context.Context, s Session) error {
	if s.AccessToken == "" {
		return fmt.Errorf("%w: no access token in response", serviceerr.ErrUnauthorized)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.cookies.persist(ctx, s); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}

	c.epoch++
	c.store.Set(s)

	return nil
}

func canReplay(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func bearerToken(req *http.Request) string {
	const prefix = "Bearer "

	h := req.Header.Get("Authorization")
	if !strings.HasPrefix(h, prefix) {
		return ""
	}

	return strings.TrimPrefix(h, prefix)
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	_ = resp.Body.Close()
}

type retriedKey struct{}

func withRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

func isRetried(ctx context.Context) bool {
	retried, _ := ctx.Value(retriedKey{}).(bool)
	return retried
}
