package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sudo-init-do/servicehub/internal/alerts"
	"github.com/sudo-init-do/servicehub/internal/auth"
	"github.com/sudo-init-do/servicehub/internal/config"
	"github.com/sudo-init-do/servicehub/internal/db"
	"github.com/sudo-init-do/servicehub/internal/directory"
	"github.com/sudo-init-do/servicehub/internal/logger"
	"github.com/sudo-init-do/servicehub/internal/marketplace"
	"github.com/sudo-init-do/servicehub/internal/messaging"
	"github.com/sudo-init-do/servicehub/internal/user"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

type stores struct {
	users     user.Store
	market    marketplace.Store
	directory directory.Store
	close     func()
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (stores, error) {
	if cfg.DB.Driver == config.DriverMemory {
		dir := directory.NewMemStore()
		n, err := directory.Seed(ctx, dir, time.Now())
		if err != nil {
			return stores{}, err
		}
		log.Warn().Int("directory_listings", n).Msg("using in-memory storage, data is lost on exit")
		return stores{
			users:     user.NewMemStore(),
			market:    marketplace.NewMemStore(),
			directory: dir,
			close:     func() {},
		}, nil
	}

	pool, err := db.New(ctx, cfg.DB, log)
	if err != nil {
		return stores{}, fmt.Errorf("postgres: %w", err)
	}
	return stores{
		users:     user.NewPGStore(pool),
		market:    marketplace.NewPGStore(pool),
		directory: directory.NewPGStore(pool),
		close:     pool.Close,
	}, nil
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	hub := messaging.NewHub()
	d := deps{cfg: cfg, log: log, stores: st, hub: hub, notifier: hub}

	var worker *alerts.Worker
	if cfg.Alerts.Enabled {
		sender, err := alerts.NewSender(cfg.Mail, log)
		if err != nil {
			return err
		}
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Alerts.RedisAddr})
		defer client.Close()

		dispatcher := alerts.NewDispatcher(client, st.users, cfg.AppURL)
		d.notifier = marketplace.Notifiers{dispatcher, hub}
		d.mailer = dispatcher
		worker = alerts.NewWorker(cfg.Alerts, sender, log)
	} else {
		log.Info().Msg("email alerts disabled")
	}

	e, err := newServer(d)
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("storage", cfg.DB.Driver).Msg("http server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if worker != nil {
		g.Go(func() error { return worker.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

var _ auth.Mailer = (*alerts.Dispatcher)(nil)
