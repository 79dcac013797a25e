package main

import (
	"context"
	"database/sql"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"alem_concierge/internal/adapters/observability"
	"alem_concierge/internal/adapters/webhook"
	"alem_concierge/internal/app"
	"alem_concierge/internal/shared"
	mysqlrepo "alem_concierge/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "relay")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Int("workers", cfg.RelayWorkers).
		Int("batch", cfg.RelayBatch).
		Dur("interval", cfg.RelayInterval).
		Msg("relay starting")

	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	client, err := webhook.New(cfg.WebhookURL, cfg.WebhookToken, cfg.RelayRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize webhook client")
	}
	relay := app.NewRelayService(mysqlrepo.New(db), client, cfg.RelayMaxTries, func(err error) bool {
		return errors.Is(err, webhook.ErrRejected) || errors.Is(err, webhook.ErrUnauthorized)
	})

	tick := time.NewTicker(cfg.RelayInterval)
	defer tick.Stop()
	for {
		drain(ctx, relay, cfg.RelayWorkers, cfg.RelayBatch)
		select {
		case <-ctx.Done():
			log.Info().Msg("relay stopped")
			return
		case <-tick.C:
		}
	}
}

// drain delivers one batch of pending leads with at most workers in flight.
func drain(ctx context.Context, relay *app.RelayService, workers, batch int) {
	pending, err := relay.Pending(ctx, batch)
	if err != nil {
		log.Error().Err(err).Msg("list pending leads failed")
		return
	}
	if len(pending) == 0 {
		return
	}

	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for _, l := range pending {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			break // shutting down
		}

		l := l
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer sem.Release(1)

			if err := relay.Deliver(ctx, l); err != nil {
				log.Warn().Str("lead_id", id).Int("attempt", l.Attempts+1).Str("kind", observability.LabelErr(err)).Err(err).Msg("lead delivery failed")
				return
			}
			log.Info().Str("lead_id", id).Msg("lead delivered")
		}(l.ID)
	}

	wg.Wait()
	log.Info().Int("leads", len(pending)).Msg("relay batch completed")
}
