package business

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/tourista/session-coordinator/internal/config"
	"github.com/tourista/session-coordinator/internal/serviceerr"
	"github.com/tourista/session-coordinator/pkg/session"
)

type LoginInput struct {
	Credentials session.Credentials
	Out         io.Writer
}

// LoginMain logs in with the remote API and stores the session durably.
func LoginMain(ctx context.Context, cfg *config.Config, in LoginInput) error {
	a, err := initCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.coordinator.Login(ctx, in.Credentials)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(in.Out, "Logged in as %s\n", displayName(s))

	return nil
}

type RegisterInput struct {
	Registration session.Registration
	Out          io.Writer
}

// RegisterMain creates a user or tour guide account and logs it in.
func RegisterMain(ctx context.Context, cfg *config.Config, in RegisterInput) error {
	a, err := initCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.coordinator.Register(ctx, in.Registration)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(in.Out, "Registered and logged in as %s\n", displayName(s))

	return nil
}

// LogoutMain clears the durable session. Logging out twice is fine.
func LogoutMain(ctx context.Context, cfg *config.Config) error {
	a, err := initCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	return a.coordinator.Logout(ctx)
}

// WhoAmIMain restores the session and prints who it belongs to.
func WhoAmIMain(ctx context.Context, cfg *config.Config, out io.Writer) error {
	a, err := initCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := bootstrap(ctx, a.coordinator)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Name:\t%s\n", s.DisplayName)
	_, _ = fmt.Fprintf(w, "Email:\t%s\n", s.Email)
	_, _ = fmt.Fprintf(w, "ID:\t%s\n", s.SubjectID)
	_, _ = fmt.Fprintf(w, "Access token expires:\t%s\n", formatExpiry(s.AccessTokenExpiry))
	_, _ = fmt.Fprintf(w, "Session expires:\t%s\n", formatExpiry(s.RefreshTokenExpiry))

	return w.Flush()
}

type CallInput struct {
	Method  string
	Path    string
	Body    string
	Headers []string
	Out     io.Writer
}

// CallMain sends one protected API call through the session coordinator and
// prints the response body.
func CallMain(ctx context.Context, cfg *config.Config, in CallInput) error {
	a, err := initCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := bootstrap(ctx, a.coordinator); err != nil {
		return err
	}

	req, err := newCallRequest(ctx, cfg.API, in)
	if err != nil {
		return err
	}

	resp, err := a.coordinator.Client(cfg.API.Timeout).Do(req)
	if err != nil {
		if errors.Is(err, serviceerr.ErrRefreshRejected) {
			return errors.Join(errNotLoggedIn, err)
		}

		return fmt.Errorf("calling %s %s: %w", req.Method, in.Path, err)
	}
	defer resp.Body.Close()

	slogctx.Debug(ctx, "Protected API call finished", "method", req.Method, "path", in.Path, "status", resp.StatusCode)

	if _, err := io.Copy(in.Out, resp.Body); err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serviceerr.FromHTTPStatus(resp.StatusCode, resp.Status)
	}

	return nil
}

func newCallRequest(ctx context.Context, api config.API, in CallInput) (*http.Request, error) {
	method := strings.ToUpper(in.Method)
	if method == "" {
		method = http.MethodGet
	}

	url := strings.TrimSuffix(api.BaseURL, "/") + "/" + strings.TrimPrefix(in.Path, "/")

	var body io.Reader
	if in.Body != "" {
		body = strings.NewReader(in.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if in.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	for _, h := range in.Headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("header %q is not in name:value form", h)
		}
		req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	return req, nil
}

// bootstrap restores the session and returns it. Without a session it
// returns errNotLoggedIn.
func bootstrap(ctx context.Context, c *session.Coordinator) (session.Session, error) {
	if err := c.Bootstrap(ctx); err != nil {
		if errors.Is(err, serviceerr.ErrLoginRequired) {
			return session.Session{}, errors.Join(errNotLoggedIn, err)
		}

		return session.Session{}, err
	}

	s, ok := c.Current()
	if !ok {
		return session.Session{}, errNotLoggedIn
	}

	return s, nil
}

func displayName(s session.Session) string {
	switch {
	case s.DisplayName != "" && s.Email != "":
		return fmt.Sprintf("%s <%s>", s.DisplayName, s.Email)
	case s.DisplayName != "":
		return s.DisplayName
	case s.Email != "":
		return s.Email
	default:
		return s.SubjectID
	}
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	return fmt.Sprintf("%s (in %s)", t.Local().Format(time.RFC3339), time.Until(t).Round(time.Second))
}
