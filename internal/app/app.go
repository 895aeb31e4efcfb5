package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"api-go-template/internal/account"
	"api-go-template/internal/adapter/external/supabase"
	"api-go-template/internal/adapter/httpapi"
	"api-go-template/internal/adapter/repository/postgres"
	"api-go-template/internal/adapter/repository/postgrest"
	sqliterepo "api-go-template/internal/adapter/repository/sqlite"
	"api-go-template/internal/adapter/scheduler"
	"api-go-template/internal/auth"
	"api-go-template/internal/config"
	"api-go-template/internal/item"
	"api-go-template/internal/platform/logger"
	"api-go-template/internal/platform/pg"
	"api-go-template/internal/platform/sqlite"
	"api-go-template/internal/platform/validate"
	"api-go-template/migrations"
)

// App wires application components.
type App struct {
	cfg config.Config
	log *slog.Logger
}

// New loads configuration and creates the logger.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "api",
	})
	return &App{cfg: cfg, log: log}, nil
}

// Close flushes the log file.
func (a *App) Close() error {
	return logger.Close(a.log)
}

// Run serves the API until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.log.Info("starting", slog.Any("config", a.cfg))

	c, err := a.build(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	sched := scheduler.NewWithContext(ctx, scheduler.Config{Logger: a.log})
	probe := scheduler.NewStoreProbe(c.items, a.log)
	if _, err := probe.Register(sched, a.cfg.HealthSchedule); err != nil {
		return err
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sched.StopContext(stopCtx); err != nil {
			a.log.Warn("scheduler stop", slog.Any("error", err))
		}
	}()

	if a.cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(httpapi.Deps{
		Items:          c.items,
		Accounts:       c.accounts,
		Verifier:       c.verifier,
		Health:         probe,
		Log:            a.log,
		AuthLimiter:    httpapi.NewRateLimiter(a.cfg.HTTP.AuthRateLimit, time.Minute),
		TrustedProxies: a.cfg.HTTP.TrustedProxies,
	})
	err = httpapi.NewServer(a.cfg.HTTP.Addr, router, a.log).Run(ctx)
	a.log.Info("stopped")
	return err
}

// Migrate applies pending migrations to the configured database.
func (a *App) Migrate(ctx context.Context) error {
	switch a.cfg.Store.Driver {
	case config.StorePostgres:
		if err := pg.WaitForDB(ctx, a.cfg.Store.DatabaseURL, a.waitOptions()); err != nil {
			return err
		}
		info, err := pg.Migrate(a.cfg.Store.DatabaseURL, migrations.FS, migrations.PostgresDir)
		if err != nil {
			return err
		}
		a.log.Info("migrations applied",
			slog.Bool("changed", info.Applied),
			slog.Uint64("from", uint64(info.CurrentVersion)),
			slog.Uint64("to", uint64(info.FinalVersion)),
		)
		return nil
	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, a.cfg.Store.SQLitePath, sqlite.DefaultOptions())
		if err != nil {
			return err
		}
		_ = db.Close()
		v, err := sqlite.Migrate(a.cfg.Store.SQLitePath, migrations.FS, migrations.SQLiteDir)
		if err != nil {
			return err
		}
		a.log.Info("migrations applied", slog.Uint64("version", uint64(v)))
		return nil
	default:
		return errors.New("the supabase store is migrated from the Supabase project, not by this binary")
	}
}

// IssueToken signs a token pair with the configured JWT secrets.
func (a *App) IssueToken(p auth.Principal) (auth.TokenPair, error) {
	if a.cfg.AuthMode != config.AuthJWT {
		return auth.TokenPair{}, errors.New("tokens can only be issued when AUTH_MODE=jwt")
	}
	return a.issuer().Issue(p)
}

func (a *App) issuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer(auth.IssuerConfig{
		AccessSecret:  a.cfg.JWT.Secret,
		RefreshSecret: a.cfg.JWT.RefreshSecret,
		AccessTTL:     a.cfg.JWT.AccessTTL,
		RefreshTTL:    a.cfg.JWT.RefreshTTL,
	}, nil)
}

func (a *App) waitOptions() pg.WaitOptions {
	opts := pg.DefaultWaitOptions()
	opts.Logger = a.log
	return opts
}

type components struct {
	items    *item.Service
	accounts account.Service
	verifier auth.Verifier
	closers  []func()
}

func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// build constructs the store, the verifier and the services for the
// configured store driver and auth mode.
func (a *App) build(ctx context.Context) (*components, error) {
	c := &components{}
	v := validate.New()

	var sb *supabase.Client
	if a.cfg.NeedsSupabase() {
		var err error
		sb, err = supabase.New(supabase.Config{
			URL:            a.cfg.Supabase.URL,
			AnonKey:        a.cfg.Supabase.AnonKey,
			ServiceRoleKey: a.cfg.Supabase.ServiceRoleKey,
			RESTRetries:    a.cfg.Supabase.RESTRetries,
		}, a.log)
		if err != nil {
			return nil, err
		}
	}

	var (
		items item.Repository
		users account.UserRepository
	)
	switch a.cfg.Store.Driver {
	case config.StorePostgres:
		if err := a.Migrate(ctx); err != nil {
			return nil, err
		}
		dsn, err := pg.WithApplicationName(a.cfg.Store.DatabaseURL, "api")
		if err != nil {
			return nil, err
		}
		pool, err := pg.NewPool(ctx, dsn, pg.DefaultPoolOptions())
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, pool.Close)
		tx := pg.NewTxRunner(pool)
		items, users = postgres.NewItems(tx), postgres.NewUsers(tx)
		a.log.Info("store ready", slog.String("driver", "postgres"), slog.String("dsn", pg.RedactDSN(dsn)))

	case config.StoreSQLite:
		if err := a.Migrate(ctx); err != nil {
			return nil, err
		}
		db, err := sqlite.Open(ctx, a.cfg.Store.SQLitePath, sqlite.DefaultOptions())
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { _ = db.Close() })
		tx := sqlite.NewTxRunner(db)
		tx.Logger = a.log
		items, users = sqliterepo.NewItems(tx), sqliterepo.NewUsers(tx)
		a.log.Info("store ready", slog.String("driver", "sqlite"), slog.String("path", a.cfg.Store.SQLitePath))

	case config.StoreSupabase:
		items = postgrest.NewItems(sb)
		a.log.Info("store ready", slog.String("driver", "supabase"))

	default:
		return nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
	c.items = item.NewService(items, v, a.log)

	switch a.cfg.AuthMode {
	case config.AuthJWT:
		issuer := a.issuer()
		c.verifier = issuer.AccessVerifier()
		c.accounts = account.NewLocal(users, issuer, v, a.log)
	case config.AuthSupabase:
		c.verifier = auth.NewSessionVerifier(sb)
		c.accounts = account.NewSupabase(sb, v)
	default:
		c.close()
		return nil, fmt.Errorf("unknown auth mode %q", a.cfg.AuthMode)
	}
	return c, nil
}
