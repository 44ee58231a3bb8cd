package business

import (
	"context"
	"errors"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/tourista/session-coordinator/internal/config"
	"github.com/tourista/session-coordinator/internal/serviceerr"
	"github.com/tourista/session-coordinator/pkg/session"
)

// expiredCookiePurger is implemented by durable stores that do not expire
// cookies on their own.
type expiredCookiePurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// TokenRefresherMain keeps the durable session alive by refreshing the
// access token before it expires.
func TokenRefresherMain(ctx context.Context, cfg *config.Config) error {
	a, err := initCoordinator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the session coordinator: %w", err)
	}
	defer a.close()

	cancel := a.coordinator.Watch(func(s session.Session, ok bool) {
		if !ok {
			slogctx.Info(ctx, "Session ended")
			return
		}
		slogctx.Info(ctx, "Session updated", "subject_id", s.SubjectID, "expiry", s.AccessTokenExpiry)
	})
	defer cancel()

	slogctx.Info(ctx, "Starting token refresh job")
	return startTokenRefresher(ctx, a, cfg.TokenRefresher)
}

func startTokenRefresher(ctx context.Context, a *app, cfg config.TokenRefresher) error {
	if cfg.RefreshInterval <= 0 {
		return fmt.Errorf("token refresh interval must be positive, got %s", cfg.RefreshInterval)
	}

	c := time.Tick(cfg.RefreshInterval)
	for {
		slogctx.Debug(ctx, "Triggering token refresh")
		refreshOnce(ctx, a, cfg.ExpiryWindow)

		select {
		case <-c:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}

// refreshOnce follows the durable session, which other processes may have
// logged out of or into meanwhile, and refreshes it when it is about to
// expire.
func refreshOnce(ctx context.Context, a *app, window time.Duration) {
	if purger, ok := a.repo.(expiredCookiePurger); ok {
		n, err := purger.DeleteExpired(ctx)
		if err != nil {
			slogctx.Error(ctx, "Failed to delete expired cookies", "error", err)
		} else if n > 0 {
			slogctx.Info(ctx, "Deleted expired cookies", "count", n)
		}
	}

	if _, err := a.coordinator.Resync(ctx); err != nil {
		slogctx.Error(ctx, "Failed to compare with the durable session", "error", err)
		return
	}

	if _, ok := a.coordinator.Current(); !ok {
		err := a.coordinator.Bootstrap(ctx)
		switch {
		case errors.Is(err, serviceerr.ErrLoginRequired):
			slogctx.Warn(ctx, "Durable session is no longer valid; waiting for a new login", "error", err)
		case err != nil:
			slogctx.Error(ctx, "Failed to restore the session", "error", err)
		}

		return
	}

	err := a.coordinator.RefreshIfExpiring(ctx, window)
	switch {
	case errors.Is(err, serviceerr.ErrLoginRequired):
		slogctx.Debug(ctx, "No session to refresh")
	case err != nil:
		slogctx.Error(ctx, "Failed to refresh tokens", "error", err)
	}
}
