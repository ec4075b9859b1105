package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/eduhub/internal/config"
	"github.com/iudanet/eduhub/internal/crypto"
	"github.com/iudanet/eduhub/internal/logging"
	"github.com/iudanet/eduhub/internal/server"
	"github.com/iudanet/eduhub/internal/server/auth"
	"github.com/iudanet/eduhub/internal/server/handlers"
	"github.com/iudanet/eduhub/internal/server/jwt"
	"github.com/iudanet/eduhub/internal/server/metrics"
	"github.com/iudanet/eduhub/internal/server/storage"
	"github.com/iudanet/eduhub/internal/server/storage/boltdb"
	"github.com/iudanet/eduhub/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// store is a credential store that can report its health
type store interface {
	storage.UserStorage
	handlers.Pinger
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "eduhub-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("eduhub-server", os.Args[1:])
	if err != nil {
		return err
	}

	if cfg.ShowVersion {
		printVersion()
		return nil
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", slog.Any("error", err))
		}
	}()

	issuer, err := jwt.NewIssuer(cfg.JWT())
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	m := metrics.New()

	svc := auth.NewService(logger, st, crypto.NewPasswordHasher(cfg.BcryptCost), issuer, auth.Options{
		RevokeOnPasswordChange: cfg.RevokeOnPasswordChange,
	}, m)

	router := server.NewRouter(server.Deps{
		Logger:  logger,
		Service: svc,
		Store:   st,
		Metrics: m,
		Version: Version,
		Cookies: handlers.CookieConfig{Secure: cfg.CookieSecure},
	})

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
	}

	logger.Info("eduhub server starting",
		slog.String("version", Version),
		slog.String("storage", cfg.StorageDriver),
		slog.String("db", cfg.DBPath),
		slog.Bool("revoke_on_password_change", cfg.RevokeOnPasswordChange))

	return server.Run(ctx, logger, server.New(cfg.HTTPAddr, router), ln, cfg.ShutdownTimeout)
}

func openStore(ctx context.Context, cfg config.Config) (store, error) {
	switch cfg.StorageDriver {
	case config.DriverBolt:
		s, err := boltdb.New(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		return s, nil
	default:
		s, err := sqlite.New(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	}
}

func printVersion() {
	fmt.Printf("EduHub Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
