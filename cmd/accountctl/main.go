package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/eduhub/internal/accountctl"
	"github.com/iudanet/eduhub/internal/config"
	"github.com/iudanet/eduhub/internal/crypto"
	"github.com/iudanet/eduhub/internal/iocli"
	"github.com/iudanet/eduhub/internal/logging"
	"github.com/iudanet/eduhub/internal/server/auth"
	"github.com/iudanet/eduhub/internal/server/jwt"
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

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("eduhub-accountctl", os.Args[1:])
	if err != nil {
		return err
	}

	if cfg.ShowVersion {
		fmt.Printf("EduHub Account Tool\n")
		fmt.Printf("Version:    %s\n", Version)
		fmt.Printf("Build Date: %s\n", BuildDate)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		return nil
	}

	// Diagnostics go to stderr so prompts stay readable.
	logger, err := logging.New(os.Stderr, cfg.LogLevel, logging.FormatText)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", slog.Any("error", err))
		}
	}()

	issuer, err := jwt.NewIssuer(cfg.JWT())
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	svc := auth.NewService(logger, store, crypto.NewPasswordHasher(cfg.BcryptCost), issuer, auth.Options{
		RevokeOnPasswordChange: cfg.RevokeOnPasswordChange,
	}, nil)

	return accountctl.New(iocli.NewStdio(), svc).Run(ctx, cfg.Args)
}

func openStore(ctx context.Context, cfg config.Config) (storage.UserStorage, error) {
	if cfg.StorageDriver == config.DriverBolt {
		s, err := boltdb.New(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		return s, nil
	}

	s, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return s, nil
}
