package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"authapi/backend/internal/config"
	domain "authapi/backend/internal/domain/auth"
	"authapi/backend/internal/httpserver"
	"authapi/backend/internal/infrastructure/hasher"
	"authapi/backend/internal/infrastructure/memory"
	"authapi/backend/internal/infrastructure/postgres"
	"authapi/backend/internal/infrastructure/sqlite"
	"authapi/backend/internal/infrastructure/token"
	"authapi/backend/internal/logging"
	authusecase "authapi/backend/internal/usecase/auth"
)

func main() {
	configPath := flag.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "auth-api: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(os.Stdout, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	appLog := log.With("app", cfg.AppName)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	rootCtx := context.Background()
	store, closeStore, err := openStore(rootCtx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	passwordHasher, err := hasher.NewHasher(cfg.Auth.HashAlgorithm, cfg.Auth.EncryptKey, cfg.Auth.Salt)
	if err != nil {
		return fmt.Errorf("init hasher: %w", err)
	}
	tokenManager, err := token.NewJWTManager(cfg.Auth.SecretKey, cfg.Auth.Algorithm)
	if err != nil {
		return fmt.Errorf("init token codec: %w", err)
	}

	authenticator := authusecase.NewAuthenticator(passwordHasher, tokenManager, cfg.Auth.ExpireDelta.Duration())
	authService := authusecase.NewService(store, authenticator, loc, authusecase.WithLogger(appLog))

	server := httpserver.NewServer(cfg.HTTP, authService, appLog)
	appLog.Info(rootCtx, "HTTP server listening",
		"addr", server.Addr(),
		"store", cfg.Store.Driver,
		"time_zone", loc.String(),
		"token_lifetime", cfg.Auth.ExpireDelta.String(),
	)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		appLog.Info(rootCtx, "HTTP server stopped accepting new connections")
		close(serveErr)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-shutdownCtx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLog.Error(ctx, "graceful shutdown failed", "error", err)
		return err
	}
	appLog.Info(ctx, "graceful shutdown completed")
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (domain.CredentialRepository, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DSN, postgres.Options{Database: cfg.Database, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("run database migrations: %w", err)
		}
		return postgres.NewCredentialRepository(db.Pool), db.Close, nil
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		repo, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	case config.DriverMemory:
		return memory.NewCredentialRepository(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
