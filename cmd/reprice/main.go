package main

import (
	"context"
	"database/sql"
	"flag"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"innkeeper/internal/adapters/observability"
	redisad "innkeeper/internal/adapters/redis"
	"innkeeper/internal/app"
	"innkeeper/internal/shared"
	mysqlrepo "innkeeper/internal/storage/mysql"
)

// Reprice walks every group and standalone booking, recomputes totals against
// the live rate calendars and fee snapshots, and reports drift. With -apply
// the stored totals are corrected; without it the run is read-only.
func main() {
	apply := flag.Bool("apply", false, "write corrected totals instead of only reporting drift")
	flag.Parse()

	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Int("workers", cfg.RepriceWorkers).
		Int("write_rps", cfg.RepriceWriteRPS).
		Bool("apply", *apply).
		Msg("reprice starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	locks := redisad.NewGroupLock(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.GroupLockTTL)
	svc := app.NewBookingService(repo, locks)

	groups, err := repo.ListGroups(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("listing groups failed")
	}
	standalone, err := repo.ListStandaloneBookings(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("listing standalone bookings failed")
	}

	sem := semaphore.NewWeighted(int64(cfg.RepriceWorkers))
	limiter := rate.NewLimiter(rate.Limit(cfg.RepriceWriteRPS), 1)
	var wg sync.WaitGroup
	var drifted, failed int64

	run := func(kind string, id int64, fn func() (bool, error)) {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(int64(1))

			if *apply {
				if err := limiter.Wait(ctx); err != nil {
					log.Warn().Err(err).Msg("rate limiter wait failed")
					return
				}
			}
			changed, err := fn()
			if err != nil {
				atomic.AddInt64(&failed, 1)
				log.Warn().Str("kind", kind).Int64("id", id).Err(err).Msg("reprice failed")
				return
			}
			if changed {
				atomic.AddInt64(&drifted, 1)
			}
		}()
	}

	for _, g := range groups {
		id := g.ID
		run("group", id, func() (bool, error) { return svc.RepriceGroup(ctx, id, *apply) })
	}
	for _, b := range standalone {
		id := b.ID
		run("booking", id, func() (bool, error) { return svc.RepriceBooking(ctx, id, *apply) })
	}

	wg.Wait()
	log.Info().
		Int("groups", len(groups)).
		Int("bookings", len(standalone)).
		Int64("drifted", drifted).
		Int64("failed", failed).
		Bool("applied", *apply).
		Msg("reprice completed")
}
