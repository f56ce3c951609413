// Package main starts the white elephant party HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	engine "github.com/nhiquach/white-elephant-party/engine"
	"github.com/nhiquach/white-elephant-party/internal/auth"
	"github.com/nhiquach/white-elephant-party/internal/cache"
	"github.com/nhiquach/white-elephant-party/internal/config"
	"github.com/nhiquach/white-elephant-party/internal/database"
	"github.com/nhiquach/white-elephant-party/internal/game"
	"github.com/nhiquach/white-elephant-party/internal/handlers"
	"github.com/nhiquach/white-elephant-party/internal/ids"
	"github.com/nhiquach/white-elephant-party/internal/logging"
	"github.com/nhiquach/white-elephant-party/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load if present")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	var (
		st       handlers.AdminStore
		opts     = []game.Option{game.WithLockWait(cfg.LockWait)}
		archive  *database.Archive
		resolved = cfg.Backend()
	)

	switch resolved {
	case config.StoreRedis:
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		st = cache.NewPartyStore(rdb, cfg.PartyTTL)
		opts = append(opts,
			game.WithDistributedLock(cache.NewLocker(rdb, cfg.LockLease)),
			game.WithActionFeed(cache.NewActionFeed(rdb, cfg.PartyTTL)),
		)
	default:
		log.Warn("using in-memory store; parties are lost on restart")
		st = store.NewMemory(cfg.PartyTTL)
	}

	if cfg.DatabaseURL != "" {
		a, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer a.Close()
		archive = a
		opts = append(opts, game.WithArchive(a))
	}

	svc := game.NewService(engine.New(ids.New), st, log, opts...)

	var results handlers.ResultsReader
	if archive != nil {
		results = archive
	}
	admin := handlers.NewAdminHandler(auth.NewAdminGate(cfg.AdminKeyHash), st, results, log)
	if admin == nil {
		log.Info("ADMIN_KEY_HASH not set; admin routes disabled")
	}
	if cfg.SessionSecret == "" {
		log.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	}
	sessions, err := auth.NewIssuer(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}
	api := handlers.New(svc, sessions, admin, cfg.AllowedOrigin, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.HTTPAddr,
			"store":   resolved,
			"archive": archive != nil,
		}).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
