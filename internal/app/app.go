package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"

	"github.com/shubekshya11/BlogApp/internal/audit"
	"github.com/shubekshya11/BlogApp/internal/auth"
	"github.com/shubekshya11/BlogApp/internal/config"
	"github.com/shubekshya11/BlogApp/internal/httpserver"
	"github.com/shubekshya11/BlogApp/internal/migrations"
	"github.com/shubekshya11/BlogApp/internal/observability"
	"github.com/shubekshya11/BlogApp/internal/posts"
)

type App struct {
	cfg    config.Config
	log    *slog.Logger
	db     *sql.DB
	server *httpserver.Server
}

func New(cfg config.Config) (*App, error) {
	logger := observability.NewLogger()

	var err error
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
	}

	var userStore auth.UserStore
	if db != nil {
		userStore, err = auth.NewPostgresUserStore(db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create postgres user store: %w", err)
		}
	} else {
		userStore, err = auth.NewFileUserStore(cfg.Auth.UserStateFile)
		if err != nil {
			return nil, fmt.Errorf("create user store: %w", err)
		}
	}

	authService, err := auth.NewService(userStore, auth.ServiceConfig{
		BcryptCost: cfg.Auth.BcryptCost,
	})
	if err != nil {
		return nil, fmt.Errorf("create auth service: %w", err)
	}

	if err := seedBootstrapAdmin(userStore, cfg.Auth, logger); err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}

	var postService httpserver.PostService
	if db != nil {
		postService, err = posts.NewPGService(db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create postgres post service: %w", err)
		}
	} else {
		postService, err = posts.NewServiceWithFile(cfg.PostStateFile)
		if err != nil {
			return nil, fmt.Errorf("create post service: %w", err)
		}
	}

	var ledger *migrations.Ledger
	if db != nil {
		ledger, err = migrations.NewLedgerWithPostgres(cfg.MigrationsDir, db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create postgres migration ledger: %w", err)
		}
	} else {
		ledger = migrations.NewLedger(cfg.MigrationsDir, cfg.MigrationState)
	}

	if pending, err := ledger.Pending(); err == nil && len(pending) > 0 {
		logger.Warn("migrations without applied record", "pending", pending)
	}

	server := httpserver.New(cfg.HTTP, httpserver.Deps{
		Auth:            authService,
		Posts:           postService,
		Migrations:      ledger,
		Audit:           audit.NewLogger(cfg.AuditLogFile),
		Metrics:         observability.NewMetrics(nil),
		Logger:          logger,
		SessionTTL:      cfg.Auth.SessionTTL,
		FrontendDistDir: cfg.FrontendDistDir,
	})

	return &App{
		cfg:    cfg,
		log:    logger,
		db:     db,
		server: server,
	}, nil
}

// seedBootstrapAdmin creates the configured admin account if it does not
// exist. Registration through the API only ever produces the user role, so
// this is the single path to an admin.
func seedBootstrapAdmin(store auth.UserStore, cfg config.AuthConfig, logger *slog.Logger) error {
	email := auth.NormalizeEmail(cfg.BootstrapEmail)
	if email == "" || cfg.BootstrapPassword == "" {
		return nil
	}

	if _, err := store.FindByEmail(email); err == nil {
		return nil
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		return fmt.Errorf("check bootstrap admin: %w", err)
	}

	hash, err := auth.HashPassword(cfg.BootstrapPassword, cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}
	if _, err := store.Create(email, hash, cfg.BootstrapName); err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	if err := store.SetRole(email, auth.RoleAdmin); err != nil {
		return fmt.Errorf("promote bootstrap admin: %w", err)
	}
	logger.Info("bootstrap admin created", "email", email)
	return nil
}

func (a *App) Run(ctx context.Context) error {
	defer func() {
		if a.db != nil {
			_ = a.db.Close()
		}
	}()

	errCh := make(chan error, 1)

	go func() {
		a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr)
		errCh <- a.server.Start()
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server exited: %w", err)
	}
}
