package business

import (
	"context"
	"errors"
	"fmt"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/tourista/session-coordinator/internal/authapi"
	"github.com/tourista/session-coordinator/internal/config"
	"github.com/tourista/session-coordinator/pkg/session"
	sessionfile "github.com/tourista/session-coordinator/pkg/session/file"
	sessionsql "github.com/tourista/session-coordinator/pkg/session/sql"
	sessionvalkey "github.com/tourista/session-coordinator/pkg/session/valkey"
)

// app holds the wired session coordinator of one command run.
type app struct {
	coordinator *session.Coordinator
	repo        session.Repository
	closeFn     func()
}

func (a *app) close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func initCoordinator(ctx context.Context, cfg *config.Config) (*app, error) {
	repo, closeFn, err := initRepository(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialising the durable store: %w", err)
	}

	api, err := authapi.NewClient(cfg.API)
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("creating the auth api client: %w", err)
	}

	coordinator, err := session.NewCoordinator(ctx, cfg.Session, api, repo, session.NewStore(), nil)
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("creating the session coordinator: %w", err)
	}

	return &app{
		coordinator: coordinator,
		repo:        repo,
		closeFn:     closeFn,
	}, nil
}

func initRepository(ctx context.Context, cfg *config.Config) (_ session.Repository, closeFn func(), _ error) {
	noop := func() {}

	switch cfg.DurableStore.Type {
	case config.DurableStoreFile, "":
		repo, err := sessionfile.NewRepository(cfg.DurableStore.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("creating cookie file store: %w", err)
		}

		slogctx.Debug(ctx, "Using the cookie file store", "path", repo.Path())

		return repo, noop, nil
	case config.DurableStoreValKey:
		client, err := initValKeyClient(cfg.ValKey)
		if err != nil {
			return nil, nil, err
		}

		return sessionvalkey.NewRepository(client, cfg.ValKey.Prefix), client.Close, nil
	case config.DurableStorePostgres:
		pool, err := initPostgresPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}

		return sessionsql.NewRepository(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown durable store type %q", cfg.DurableStore.Type)
	}
}

func initValKeyClient(cfg config.ValKey) (valkey.Client, error) {
	valkeyHost, err := commoncfg.LoadValueFromSourceRef(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("loading valkey host: %w", err)
	}

	valkeyUsername, err := commoncfg.LoadValueFromSourceRef(cfg.User)
	if err != nil {
		return nil, fmt.Errorf("loading valkey username: %w", err)
	}

	valkeyPassword, err := commoncfg.LoadValueFromSourceRef(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("loading valkey password: %w", err)
	}

	valkeyOpts := valkey.ClientOption{
		InitAddress: []string{string(valkeyHost)},
		Username:    string(valkeyUsername),
		Password:    string(valkeyPassword),
	}

	if cfg.SecretRef.Type == commoncfg.MTLSSecretType {
		tlsConfig, err := commoncfg.LoadMTLSConfig(&cfg.SecretRef.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading valkey mTLS config from secret ref: %w", err)
		}

		valkeyOpts.TLSConfig = tlsConfig
	}

	valkeyClient, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return valkeyClient, nil
}

func initPostgresPool(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	connStr, err := config.MakeConnStr(cfg)
	if err != nil {
		return nil, fmt.Errorf("making dsn from config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing pgxpool config: %w", err)
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("initialising pgxpool connection: %w", err)
	}

	return db, nil
}

// errNotLoggedIn is returned by commands that need a session when there is none.
var errNotLoggedIn = errors.New("not logged in; run the login command first")
